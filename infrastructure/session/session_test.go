package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"inspectsync/database"
	"inspectsync/domain/contracts"
	"inspectsync/logging"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.New(database.DefaultConfig(database.MemoryPath), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db, logging.Discard())
}

func TestStaticStore(t *testing.T) {
	token, ok, err := NewStaticStore("abc").CurrentToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok, err = NewStaticStore("").CurrentToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, ok, err := store.CurrentToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty store has no session")

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, contracts.ErrNoSession)

	require.NoError(t, store.Save(ctx, Session{AccessToken: "first", Subject: "inspector@example.com"}))
	require.NoError(t, store.Save(ctx, Session{AccessToken: "second", RefreshToken: "r1"}))

	token, ok, err := store.CurrentToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", token)

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", sess.TokenType)
	assert.Equal(t, "r1", sess.RefreshToken)
	assert.Nil(t, sess.ExpiresAt)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.CurrentToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ExpiredTokenIsAbsent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	expiry := now.Add(time.Minute)
	require.NoError(t, store.Save(ctx, Session{AccessToken: "tok", ExpiresAt: &expiry}))

	_, ok, err := store.CurrentToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.CurrentToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_RejectsEmptyToken(t *testing.T) {
	assert.Error(t, newStore(t).Save(context.Background(), Session{}))
}

func TestOAuth2Store_StaticSource(t *testing.T) {
	store := NewOAuth2Store(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "oa"}), logging.Discard())
	token, ok, err := store.CurrentToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "oa", token)
}

func TestNewRefreshingStore_PersistsRefreshedToken(t *testing.T) {
	var grants atomic.Int32
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "stale-refresh", r.Form.Get("refresh_token"))
		grants.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","refresh_token":"new-refresh","expires_in":3600}`))
	}))
	defer idp.Close()

	ctx := context.Background()
	sessions := newStore(t)
	expired := time.Now().Add(-time.Hour)
	require.NoError(t, sessions.Save(ctx, Session{AccessToken: "old", RefreshToken: "stale-refresh", ExpiresAt: &expired}))

	store, err := NewRefreshingStore(ctx, RefreshConfig{TokenURL: idp.URL, ClientID: "cli"}, sessions, logging.Discard())
	require.NoError(t, err)

	token, ok, err := store.CurrentToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fresh", token)

	// Cached until expiry.
	_, _, err = store.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), grants.Load())

	persisted, err := sessions.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", persisted.AccessToken)
	assert.Equal(t, "new-refresh", persisted.RefreshToken)
	require.NotNil(t, persisted.ExpiresAt)
	assert.True(t, persisted.ExpiresAt.After(time.Now()))
}

func TestNewRefreshingStore_RequiresConfigAndRefreshToken(t *testing.T) {
	ctx := context.Background()
	sessions := newStore(t)

	_, err := NewRefreshingStore(ctx, RefreshConfig{}, sessions, logging.Discard())
	assert.Error(t, err)

	require.NoError(t, sessions.Save(ctx, Session{AccessToken: "only-access"}))
	_, err = NewRefreshingStore(ctx, RefreshConfig{TokenURL: "http://idp", ClientID: "cli"}, sessions, logging.Discard())
	assert.Error(t, err)
}
