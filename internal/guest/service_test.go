package guest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilevault/internal/catalog"
	"profilevault/internal/common"
	"profilevault/internal/logging"
	"profilevault/internal/profiles"
	"profilevault/internal/sessions"
	"profilevault/internal/store"
)

func setupService(t *testing.T) (*Service, *store.MultiProfileStore) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	db, repos, err := catalog.Open(ctx, filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	st := store.NewMultiProfileStore(dir, logger)
	sess := sessions.NewService(db, repos, sessions.Options{
		SecretKey:           "test-secret",
		AccessTokenValidity: time.Minute,
		SessionValidity:     time.Hour,
	})
	pm := profiles.NewManager(db, repos, st, sess, logger)
	t.Cleanup(func() { pm.Cleanup(ctx) })

	s := NewService(pm, logger)
	t.Cleanup(s.EndSync)
	return s, st
}

func TestGuestRoundTrip(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	sess, err := s.Start(ctx, Options{})
	require.NoError(t, err)
	assert.True(t, sess.Profile.IsGuest)
	assert.Equal(t, "Guest", sess.Name)
	require.NotNil(t, s.Active())

	require.NoError(t, s.Store(ctx, "note", map[string]string{"v": "temporary"}))

	var got map[string]string
	found, err := s.Retrieve(ctx, "note", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "temporary", got["v"])

	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"note"}, ids)
}

func TestNothingSurvivesEnd(t *testing.T) {
	s, st := setupService(t)
	ctx := context.Background()

	_, err := s.Start(ctx, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, "note", "secret browsing"))

	stats, err := s.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Records)
	assert.Nil(t, s.Active())

	// operations fail closed after end
	err = s.Store(ctx, "note", "again")
	assert.ErrorIs(t, err, common.ErrNoActiveContext)

	// no guest data reached the durable store router
	assert.Equal(t, "", st.ActiveProfileID())

	// a fresh session starts empty
	_, err = s.Start(ctx, Options{})
	require.NoError(t, err)
	var v string
	found, err := s.Retrieve(ctx, "note", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEndWithoutSession(t *testing.T) {
	s, _ := setupService(t)

	stats, err := s.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestStartEndsPreviousSession(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	first, err := s.Start(ctx, Options{SessionName: "first"})
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, "k", "v"))

	second, err := s.Start(ctx, Options{SessionName: "second"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Profile.ID, second.Profile.ID)

	var v string
	found, err := s.Retrieve(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found, "previous session data must not leak")
}

func TestClearData(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	_, err := s.Start(ctx, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, "a", 1))
	require.NoError(t, s.Store(ctx, "b", 2))

	require.NoError(t, s.ClearData(ctx, "a"))
	assert.ErrorIs(t, s.ClearData(ctx, "a"), common.ErrNotFound)

	require.NoError(t, s.ClearAllData(ctx))
	ids, err := s.ListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	require.NotNil(t, s.Active(), "clearing data keeps the session running")
}

func TestMaxDurationAutoEnd(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	_, err := s.Start(ctx, Options{MaxDuration: 60 * time.Millisecond})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Active() == nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = s.ListIDs(ctx)
	assert.ErrorIs(t, err, common.ErrNoActiveContext)
}

func TestStaleMaxDurationTimer(t *testing.T) {
	s, _ := setupService(t)
	ctx := context.Background()

	_, err := s.Start(ctx, Options{MaxDuration: 50 * time.Millisecond})
	require.NoError(t, err)

	// restart before expiry; the first timer must not end the new session
	second, err := s.Start(ctx, Options{})
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)
	active := s.Active()
	require.NotNil(t, active)
	assert.Equal(t, second.Profile.ID, active.Profile.ID)
}
