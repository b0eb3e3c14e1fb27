package session

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/internal/infrastructure/boltdb"
	"github.com/fastygo/blogclient/repository"
	"github.com/fastygo/blogclient/repository/memory"
)

func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

func alice() *domain.Identity {
	return &domain.Identity{ID: 1, Username: "alice", Role: domain.RoleUser, Email: "alice@example.com"}
}

func storedValues(t *testing.T, storage repository.ClientStorage) map[string]string {
	t.Helper()
	values, err := storage.Load(context.Background(), domain.StorageKeyUser, domain.StorageKeyToken)
	require.NoError(t, err)
	return values
}

type flakyStorage struct {
	repository.ClientStorage
	failSave   bool
	failRemove bool
	failLoad   bool
}

func (f *flakyStorage) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	if f.failLoad {
		return nil, errors.New("load failed")
	}
	return f.ClientStorage.Load(ctx, keys...)
}

func (f *flakyStorage) Save(ctx context.Context, entries map[string]string) error {
	if f.failSave {
		return errors.New("save failed")
	}
	return f.ClientStorage.Save(ctx, entries)
}

func (f *flakyStorage) Remove(ctx context.Context, keys ...string) error {
	if f.failRemove {
		return errors.New("remove failed")
	}
	return f.ClientStorage.Remove(ctx, keys...)
}

func TestIsAuthenticated_Table(t *testing.T) {
	valid := mintToken(t, time.Now().Add(time.Hour))
	expired := mintToken(t, time.Now().Add(-time.Hour))

	cases := []struct {
		name     string
		token    string
		user     *domain.Identity
		expected bool
	}{
		{"token and user, valid", valid, alice(), true},
		{"token and user, expired", expired, alice(), false},
		{"token only, valid", valid, nil, false},
		{"token only, expired", expired, nil, false},
		{"user only", "", alice(), false},
		{"nothing", "", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewStore(memory.NewStorageRepository(), nil)
			store.user = tc.user
			store.token = tc.token
			assert.Equal(t, tc.expected, store.IsAuthenticated())
		})
	}
}

func TestLogin_Success(t *testing.T) {
	storage := memory.NewStorageRepository()
	store := NewStore(storage, nil)
	credential := mintToken(t, time.Now().Add(time.Hour))

	require.NoError(t, store.Login(context.Background(), alice(), credential))

	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, credential, store.Token())
	assert.Equal(t, "alice", store.CurrentUser().Username)

	values := storedValues(t, storage)
	assert.Equal(t, credential, values[domain.StorageKeyToken])
	var persisted domain.Identity
	require.NoError(t, json.Unmarshal([]byte(values[domain.StorageKeyUser]), &persisted))
	assert.Equal(t, *alice(), persisted)
}

func TestLogin_InvalidInputLeavesStateUnchanged(t *testing.T) {
	valid := mintToken(t, time.Now().Add(time.Hour))
	cases := []struct {
		name       string
		identity   *domain.Identity
		credential string
		code       domain.ErrorCode
	}{
		{"missing id", &domain.Identity{Username: "bob"}, valid, domain.ErrCodeValidation},
		{"missing username", &domain.Identity{ID: 2}, valid, domain.ErrCodeValidation},
		{"nil identity", nil, valid, domain.ErrCodeValidation},
		{"missing credential", &domain.Identity{ID: 2, Username: "bob"}, "", domain.ErrCodeValidation},
		{"expired credential", &domain.Identity{ID: 2, Username: "bob"}, mintToken(t, time.Now().Add(-time.Minute)), domain.ErrCodeUnauthorized},
		{"malformed credential", &domain.Identity{ID: 2, Username: "bob"}, "not-a-token", domain.ErrCodeUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			storage := memory.NewStorageRepository()
			store := NewStore(storage, nil)
			ctx := context.Background()
			require.NoError(t, store.Login(ctx, alice(), valid))
			before := store.Snapshot()
			stored := storedValues(t, storage)

			err := store.Login(ctx, tc.identity, tc.credential)
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, tc.code))

			// repeated failures keep producing the same untouched state
			require.Error(t, store.Login(ctx, tc.identity, tc.credential))
			assert.Equal(t, before, store.Snapshot())
			assert.Equal(t, stored, storedValues(t, storage))
		})
	}
}

func TestLogin_StorageFailureLeavesMemoryUntouched(t *testing.T) {
	storage := &flakyStorage{ClientStorage: memory.NewStorageRepository(), failSave: true}
	store := NewStore(storage, nil)

	err := store.Login(context.Background(), alice(), mintToken(t, time.Now().Add(time.Hour)))
	require.Error(t, err)
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.CurrentUser())
	assert.Empty(t, store.Token())
}

func TestLogout_Idempotent(t *testing.T) {
	storage := memory.NewStorageRepository()
	store := NewStore(storage, nil)
	ctx := context.Background()
	require.NoError(t, store.Login(ctx, alice(), mintToken(t, time.Now().Add(time.Hour))))

	require.NoError(t, store.Logout(ctx))
	require.NoError(t, store.Logout(ctx))

	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.CurrentUser())
	assert.Empty(t, storedValues(t, storage))
}

func TestLogout_StorageFailureStillClearsMemory(t *testing.T) {
	storage := &flakyStorage{ClientStorage: memory.NewStorageRepository()}
	store := NewStore(storage, nil)
	ctx := context.Background()
	require.NoError(t, store.Login(ctx, alice(), mintToken(t, time.Now().Add(time.Hour))))

	storage.failRemove = true
	assert.Error(t, store.Logout(ctx))
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Token())
}

func TestInitialize_RestoresAfterReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()
	credential := mintToken(t, time.Now().Add(time.Hour))

	first, err := boltdb.Open(path, "")
	require.NoError(t, err)
	store := NewStore(first, nil)
	require.NoError(t, store.Login(ctx, alice(), credential))
	before := store.Snapshot()
	require.NoError(t, first.Close())

	second, err := boltdb.Open(path, "")
	require.NoError(t, err)
	defer second.Close()

	reloaded := NewStore(second, nil)
	require.NoError(t, reloaded.Initialize(ctx))

	after := reloaded.Snapshot()
	assert.True(t, after.Initialized)
	assert.Equal(t, before.User, after.User)
	assert.Equal(t, before.Token, after.Token)
	assert.True(t, reloaded.IsAuthenticated())
}

func TestInitialize_DiscardsInvalidData(t *testing.T) {
	valid := mintToken(t, time.Now().Add(time.Hour))
	cases := map[string]map[string]string{
		"expired token":    {domain.StorageKeyUser: `{"id":1,"username":"alice"}`, domain.StorageKeyToken: mintToken(t, time.Now().Add(-time.Hour))},
		"user without id":  {domain.StorageKeyUser: `{"username":"alice"}`, domain.StorageKeyToken: valid},
		"user not json":    {domain.StorageKeyUser: `{{{`, domain.StorageKeyToken: valid},
		"token only":       {domain.StorageKeyToken: valid},
		"user only":        {domain.StorageKeyUser: `{"id":1,"username":"alice"}`},
		"malformed token":  {domain.StorageKeyUser: `{"id":1,"username":"alice"}`, domain.StorageKeyToken: "garbage"},
	}

	for name, seed := range cases {
		t.Run(name, func(t *testing.T) {
			storage := memory.NewStorageRepository()
			ctx := context.Background()
			require.NoError(t, storage.Save(ctx, seed))

			store := NewStore(storage, nil)
			require.NoError(t, store.Initialize(ctx))

			assert.True(t, store.Initialized())
			assert.False(t, store.IsAuthenticated())
			assert.Nil(t, store.CurrentUser())
			assert.Empty(t, store.Token())
			assert.Empty(t, storedValues(t, storage))
		})
	}
}

func TestInitialize_IdempotentAndLoadFailure(t *testing.T) {
	storage := &flakyStorage{ClientStorage: memory.NewStorageRepository(), failLoad: true}
	store := NewStore(storage, nil)
	ctx := context.Background()

	assert.Error(t, store.Initialize(ctx))
	assert.True(t, store.Initialized())
	assert.False(t, store.IsAuthenticated())

	storage.failLoad = false
	require.NoError(t, storage.Save(ctx, map[string]string{
		domain.StorageKeyUser:  `{"id":1,"username":"alice"}`,
		domain.StorageKeyToken: mintToken(t, time.Now().Add(time.Hour)),
	}))
	require.NoError(t, store.Initialize(ctx))
	first := store.Snapshot()
	require.NoError(t, store.Initialize(ctx))
	assert.Equal(t, first, store.Snapshot())
	assert.True(t, store.IsAuthenticated())
}

func TestCheckAndRepair_ExpiredToken(t *testing.T) {
	storage := memory.NewStorageRepository()
	store := NewStore(storage, nil)
	ctx := context.Background()

	credential := mintToken(t, time.Now().Add(time.Minute))
	require.NoError(t, store.Login(ctx, alice(), credential))
	require.NoError(t, store.Initialize(ctx))

	store.now = func() time.Time { return time.Now().Add(time.Hour) }

	assert.False(t, store.CheckAndRepair(ctx))
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Token())
	assert.Empty(t, storedValues(t, storage))

	assert.True(t, store.CheckAndRepair(ctx))
}

func TestCheckAndRepair_TokenWithoutUser(t *testing.T) {
	storage := memory.NewStorageRepository()
	store := NewStore(storage, nil)
	store.initialized = true
	store.token = mintToken(t, time.Now().Add(time.Hour))

	assert.False(t, store.CheckAndRepair(context.Background()))
	assert.Empty(t, store.Token())
}

func TestCheckAndRepair_InitializesLazily(t *testing.T) {
	storage := memory.NewStorageRepository()
	ctx := context.Background()
	require.NoError(t, storage.Save(ctx, map[string]string{
		domain.StorageKeyUser:  `{"id":1,"username":"alice","role":"ROLE_ADMIN"}`,
		domain.StorageKeyToken: mintToken(t, time.Now().Add(time.Hour)),
	}))

	store := NewStore(storage, nil)
	assert.False(t, store.Initialized())
	assert.True(t, store.CheckAndRepair(ctx))
	assert.True(t, store.Initialized())
	assert.True(t, store.IsAuthenticated())
	assert.True(t, store.IsAdmin())
}

func TestCheckAndRepair_Anonymous(t *testing.T) {
	store := NewStore(memory.NewStorageRepository(), nil)
	assert.True(t, store.CheckAndRepair(context.Background()))
	assert.False(t, store.IsAuthenticated())
}

func TestUpdateAvatar(t *testing.T) {
	storage := memory.NewStorageRepository()
	store := NewStore(storage, nil)
	ctx := context.Background()

	// no user: no-op
	require.NoError(t, store.UpdateAvatar(ctx, "/a.png"))
	assert.Empty(t, storedValues(t, storage))
	assert.Equal(t, domain.DefaultAvatar, store.UserAvatar())

	require.NoError(t, store.Login(ctx, alice(), mintToken(t, time.Now().Add(time.Hour))))
	require.NoError(t, store.UpdateAvatar(ctx, "/uploads/avatars/a.png"))
	assert.Equal(t, "/uploads/avatars/a.png", store.UserAvatar())

	var persisted domain.Identity
	require.NoError(t, json.Unmarshal([]byte(storedValues(t, storage)[domain.StorageKeyUser]), &persisted))
	assert.Equal(t, "/uploads/avatars/a.png", persisted.Avatar)
	assert.Equal(t, "alice@example.com", persisted.Email)

	require.NoError(t, store.UpdateAvatar(ctx, ""))
	assert.Equal(t, domain.DefaultAvatar, store.CurrentUser().Avatar)
}

func TestUpdateAvatar_StorageFailure(t *testing.T) {
	storage := &flakyStorage{ClientStorage: memory.NewStorageRepository()}
	store := NewStore(storage, nil)
	ctx := context.Background()
	require.NoError(t, store.Login(ctx, alice(), mintToken(t, time.Now().Add(time.Hour))))

	storage.failSave = true
	assert.Error(t, store.UpdateAvatar(ctx, "/new.png"))
	assert.Equal(t, domain.DefaultAvatar, store.UserAvatar())
}

func TestCurrentUser_ReturnsCopy(t *testing.T) {
	store := NewStore(memory.NewStorageRepository(), nil)
	require.NoError(t, store.Login(context.Background(), alice(), mintToken(t, time.Now().Add(time.Hour))))

	u := store.CurrentUser()
	u.Username = "mallory"
	assert.Equal(t, "alice", store.CurrentUser().Username)
}

func TestConcurrentLogout(t *testing.T) {
	store := NewStore(memory.NewStorageRepository(), nil)
	ctx := context.Background()
	require.NoError(t, store.Login(ctx, alice(), mintToken(t, time.Now().Add(time.Hour))))

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- store.Logout(ctx) }()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-done)
	}
	assert.False(t, store.IsAuthenticated())
}
