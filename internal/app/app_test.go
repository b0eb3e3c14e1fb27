package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/internal/config"
	"github.com/fastygo/blogclient/internal/infrastructure/boltdb"
	"github.com/fastygo/blogclient/internal/infrastructure/monitor"
	"github.com/fastygo/blogclient/usecase/view"
)

func loadConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", driver)
	t.Setenv("STORAGE_PATH", filepath.Join(t.TempDir(), "session.db"))

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNew_MemoryWiresViews(t *testing.T) {
	a, err := New(context.Background(), loadConfig(t, config.StorageMemory), nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.True(t, a.Session.Initialized())
	assert.False(t, a.Session.IsAuthenticated())
	assert.ElementsMatch(t, []string{
		view.Home, view.Login, view.Register, view.Article,
		view.Create, view.Edit, view.User, view.Admin,
	}, a.Dispatcher.Queries())
	assert.Contains(t, a.Lifecycle.Components(), "http_client")
}

func TestNew_BoltPersistsAcrossRuns(t *testing.T) {
	cfg := loadConfig(t, config.StorageBolt)

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	_, ok := a.Storage.(*boltdb.Store)
	assert.True(t, ok)
	require.NoError(t, a.Storage.Save(context.Background(), map[string]string{domain.StorageKeyUser: `{"id":1,"username":"alice"}`}))
	require.NoError(t, a.Close(context.Background()))

	b, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer b.Close(context.Background())

	// A user without a credential is discarded on restore.
	values, err := b.Storage.Load(context.Background(), domain.StorageKeyUser)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())

	a, err := New(context.Background(), loadConfig(t, config.StorageRedis), nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	require.NoError(t, a.Storage.Save(context.Background(), map[string]string{"probe": "1"}))
	assert.True(t, mr.Exists("blogclient:probe"))
	assert.Contains(t, a.Lifecycle.Components(), "redis")
}

func TestNew_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	mr.Close()

	_, err := New(context.Background(), loadConfig(t, config.StorageRedis), nil)
	assert.Error(t, err)
}

func TestHandler_ServesHealth(t *testing.T) {
	a, err := New(context.Background(), loadConfig(t, config.StorageMemory), nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	mon := monitor.New(a.API, a.Storage, a.Config.Storage.Driver, a.Session, time.Minute, nil)
	handler := a.Handler(mon)

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/health")
	handler(&ctx)
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())

	ctx.Request.SetRequestURI("/create")
	handler(&ctx)
	assert.Equal(t, fasthttp.StatusFound, ctx.Response.StatusCode())
}
