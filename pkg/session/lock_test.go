package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/companion/pkg/adapters/memory"
	"github.com/aretw0/companion/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		require.NoError(t, mgr.Save(ctx, sid, domain.NewConversation(sid)))
		require.NoError(t, mgr.Delete(ctx, sid))
	}

	mgr.mu.Lock()
	lockCount := len(mgr.locks)
	mgr.mu.Unlock()

	assert.Zero(t, lockCount, "lock entries must be released once unused")
}

func TestManager_AbandonedWaitReleasesEntry(t *testing.T) {
	mgr := NewManager(memory.NewStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := mgr.WithLock(context.Background(), "s1", func(context.Context) error {
		return mgr.WithLock(ctx, "s1", func(context.Context) error {
			t.Error("nested waiter must not run")
			return nil
		})
	})
	assert.ErrorIs(t, err, context.Canceled)

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Empty(t, mgr.locks)
}
