package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/internal/session"
	"github.com/fastygo/blogclient/repository/memory"
)

func mint(t *testing.T, ttl time.Duration) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(ttl).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestSessionWatchdog_KeepsValidSession(t *testing.T) {
	store := session.NewStore(memory.NewStorageRepository(), nil)
	require.NoError(t, store.Login(context.Background(), &domain.Identity{ID: 1, Username: "alice"}, mint(t, time.Hour)))

	w := NewSessionWatchdog(store, nil, WatchdogConfig{Interval: time.Minute})
	assert.True(t, w.Check(context.Background()))
	assert.True(t, store.IsAuthenticated())
}

func TestSessionWatchdog_ClearsExpiredSession(t *testing.T) {
	exp := time.Now().Unix() + 1
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp}).SignedString([]byte("secret"))
	require.NoError(t, err)

	storage := memory.NewStorageRepository()
	store := session.NewStore(storage, nil)
	require.NoError(t, store.Initialize(context.Background()))
	require.NoError(t, store.Login(context.Background(), &domain.Identity{ID: 1, Username: "alice"}, tok))

	time.Sleep(time.Until(time.Unix(exp, 0)) + 50*time.Millisecond)

	w := NewSessionWatchdog(store, nil, WatchdogConfig{})
	assert.False(t, w.Check(context.Background()))
	assert.Empty(t, store.Token())

	left, err := storage.Load(context.Background(), domain.StorageKeyToken, domain.StorageKeyUser)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSessionWatchdog_AnonymousIsFine(t *testing.T) {
	store := session.NewStore(memory.NewStorageRepository(), nil)
	w := NewSessionWatchdog(store, nil, WatchdogConfig{})
	assert.True(t, w.Check(context.Background()))
	assert.True(t, store.Initialized())
}

func TestSessionWatchdog_StartStop(t *testing.T) {
	w := NewSessionWatchdog(session.NewStore(memory.NewStorageRepository(), nil), nil, WatchdogConfig{Interval: time.Second})
	w.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Stop(ctx)
	assert.Equal(t, time.Second, w.cfg.Interval)
}

func TestSessionWatchdog_NilSafe(t *testing.T) {
	var w *SessionWatchdog
	w.Start()
	w.Stop(context.Background())
	assert.True(t, w.Check(context.Background()))
}
