package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/companion/pkg/adapters/memory"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/persistence/middleware"
	"github.com/aretw0/companion/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secretConversation(sessionID string) *domain.Conversation {
	conv := domain.NewConversation(sessionID)
	conv.Messages = append(conv.Messages,
		domain.UserMessage("my secret sauce is paprika"),
		domain.AssistantMessage("I will keep it safe"),
	)
	conv.Summary = "sauce talk"
	conv.Turns = 1
	return conv
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunConversationStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)

	ctx := context.Background()
	original := secretConversation("s1")
	require.NoError(t, secure.Save(ctx, "s1", original))

	stored, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, stored.Messages, "content must not be stored in the clear")
	assert.Empty(t, stored.Summary)
	assert.NotEmpty(t, stored.Sealed)
	assert.NotContains(t, string(stored.Sealed), "paprika")
	assert.Equal(t, 1, stored.Turns, "bookkeeping stays readable")

	loaded, err := secure.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, original.Messages, loaded.Messages)
	assert.Equal(t, "sauce talk", loaded.Summary)
	assert.Empty(t, loaded.Sealed)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	secureOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, secureOld.Save(ctx, "rotation", secretConversation("rotation")))

	secureNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := secureNew.Load(ctx, "rotation")
	require.NoError(t, err, "fallback key should decrypt old data")
	assert.Equal(t, "sauce talk", loaded.Summary)

	loaded.Summary = "re-encrypted"
	require.NoError(t, secureNew.Save(ctx, "rotation", loaded))

	_, err = secureOld.Load(ctx, "rotation")
	assert.Error(t, err, "data written with the new key must not open with the old one")
}

func TestEncryptionMiddleware_RejectsPlainConversation(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", secretConversation("plain")))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(ctx, "plain")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}
