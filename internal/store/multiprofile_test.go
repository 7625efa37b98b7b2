package store

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilevault/internal/common"
	"profilevault/internal/cryptox"
	"profilevault/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func keyFor(name string) []byte {
	return cryptox.DeriveDataKey([]byte("pw-"+name), []byte("salt-"+name))
}

func newRouter(t *testing.T) *MultiProfileStore {
	t.Helper()
	m := NewMultiProfileStore(t.TempDir(), testLogger())
	t.Cleanup(func() { m.WipeMemory(context.Background()) })
	return m
}

func TestNoActiveContextFailsClosed(t *testing.T) {
	m := newRouter(t)
	ctx := context.Background()

	assert.ErrorIs(t, m.Store(ctx, "id", "x", nil), common.ErrNoActiveContext)
	_, err := m.Retrieve(ctx, "id", new(string))
	assert.ErrorIs(t, err, common.ErrNoActiveContext)
	_, err = m.ListIDs(ctx)
	assert.ErrorIs(t, err, common.ErrNoActiveContext)
	assert.ErrorIs(t, m.Clear(ctx), common.ErrNoActiveContext)
}

func TestSetActiveContextAndOperate(t *testing.T) {
	m := newRouter(t)
	ctx := context.Background()

	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "a", Key: keyFor("a")}))
	assert.Equal(t, "a", m.ActiveProfileID())

	require.NoError(t, m.Store(ctx, "note", map[string]string{"text": "hi"}, nil))

	var got map[string]string
	found, err := m.Retrieve(ctx, "note", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hi", got["text"])
}

func TestSwitchTearsDownPreviousContext(t *testing.T) {
	m := newRouter(t)
	ctx := context.Background()

	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "a", Key: keyFor("a")}))
	require.NoError(t, m.Store(ctx, "a-note", "private-to-a", nil))

	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "b", Key: keyFor("b")}))
	assert.Equal(t, "b", m.ActiveProfileID())

	// b's context must not see a's record
	var v string
	found, err := m.Retrieve(ctx, "a-note", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSubscribeNotifications(t *testing.T) {
	m := newRouter(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	m.Subscribe(func(id string) {
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
	})

	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "a", Key: keyFor("a")}))
	m.ClearActiveContext(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", ""}, seen)
}

func TestDeleteActiveProfileFailsClosed(t *testing.T) {
	m := newRouter(t)
	ctx := context.Background()

	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "a", Key: keyFor("a")}))
	require.NoError(t, m.Store(ctx, "note", "x", nil))

	require.NoError(t, m.DeleteProfile(ctx, "a"))
	assert.Equal(t, "", m.ActiveProfileID())
	assert.ErrorIs(t, m.Store(ctx, "note", "x", nil), common.ErrNoActiveContext)

	// data did not survive the delete
	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "a", Key: keyFor("a")}))
	ids, err := m.ListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDeleteInactiveProfile(t *testing.T) {
	m := newRouter(t)
	ctx := context.Background()

	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "a", Key: keyFor("a")}))
	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "b", Key: keyFor("b")}))

	require.NoError(t, m.DeleteProfile(ctx, "a"))
	// active context untouched
	assert.Equal(t, "b", m.ActiveProfileID())

	// deleting a profile that never had a database is fine
	require.NoError(t, m.DeleteProfile(ctx, "ghost"))
}

// A retrieve racing a context switch must observe either the old context or
// the new one fully established, never a torn state.
func TestContextSwitchAtomicity(t *testing.T) {
	m := newRouter(t)
	ctx := context.Background()

	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "a", Key: keyFor("a")}))
	require.NoError(t, m.Store(ctx, "probe", "from-a", nil))

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "b", Key: keyFor("b")}))
		require.NoError(t, m.Store(ctx, "probe", "from-b", nil))
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			var v string
			found, err := m.Retrieve(ctx, "probe", &v)
			// never a decryption error or a half-ready context; the value,
			// when present, belongs to exactly one profile
			require.NoError(t, err)
			if found {
				require.Contains(t, []string{"from-a", "from-b"}, v)
			}
		}
	}()

	wg.Wait()
}

func TestExportImportProfileDataDoesNotTouchContext(t *testing.T) {
	m := newRouter(t)
	ctx := context.Background()

	// populate profile "a", then leave "b" active
	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "a", Key: keyFor("a")}))
	require.NoError(t, m.Store(ctx, "note", map[string]string{"text": "hi"}, nil))
	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "b", Key: keyFor("b")}))

	exportSalt := cryptox.GenerateSalt()
	ciphertext, nonce, err := m.ExportProfileData(ctx, "a", keyFor("a"), []byte("pw"), exportSalt, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", m.ActiveProfileID())

	require.NoError(t, m.ImportProfileData(ctx, "c", keyFor("c"), ciphertext, nonce, []byte("pw"), exportSalt))
	assert.Equal(t, "b", m.ActiveProfileID())

	// imported data readable under c's context
	require.NoError(t, m.SetActiveContext(ctx, Context{ProfileID: "c", Key: keyFor("c")}))
	var got map[string]string
	found, err := m.Retrieve(ctx, "note", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hi", got["text"])
}
