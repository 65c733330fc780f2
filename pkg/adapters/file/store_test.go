package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/companion/pkg/adapters/file"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunConversationStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	conv := domain.NewConversation("s1")
	conv.Messages = []domain.Message{domain.UserMessage("hello")}

	require.NoError(t, store.Save(context.Background(), "s1", conv))
	require.NoError(t, store.Save(context.Background(), "s1", conv))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "s1.json", entries[0].Name())
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store := file.New(filepath.Join(dir, "sessions"))

	err := store.Save(context.Background(), "../escape", domain.NewConversation("x"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = os.Stat(filepath.Join(dir, "escape.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))

	_, err := file.New(dir).Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}
