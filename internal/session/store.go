// Package session keeps the client-side authentication state (identity and
// bearer credential) consistent between memory and durable storage.
//
// Every mutating operation writes through to storage before it returns, and
// on failure either clears both copies or leaves both untouched.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/internal/token"
	"github.com/fastygo/blogclient/repository"
)

var storageKeys = []string{domain.StorageKeyUser, domain.StorageKeyToken}

// Store holds the current session.
type Store struct {
	storage repository.ClientStorage
	logger  *zap.Logger
	now     func() time.Time

	mu          sync.RWMutex
	user        *domain.Identity
	token       string
	initialized bool
}

// NewStore creates an uninitialized store; call Initialize to hydrate it.
func NewStore(storage repository.ClientStorage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Initialize loads the session from durable storage. Incomplete, corrupt or
// expired data is cleared from both storage and memory. The store is marked
// initialized whatever the outcome.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(ctx)
}

func (s *Store) initializeLocked(ctx context.Context) error {
	defer func() { s.initialized = true }()

	values, err := s.storage.Load(ctx, storageKeys...)
	if err != nil {
		s.logger.Error("session storage load failed", zap.Error(err))
		s.clearLocked(ctx)
		return domain.WrapError(domain.ErrCodeUnknown, "读取登录状态失败", err)
	}

	rawUser, credential := values[domain.StorageKeyUser], values[domain.StorageKeyToken]
	if rawUser == "" || credential == "" || token.IsExpiredAt(credential, s.now()) {
		if rawUser != "" || credential != "" {
			s.logger.Warn("discarding stored session", zap.Bool("has_user", rawUser != ""), zap.Bool("has_token", credential != ""))
		}
		s.clearLocked(ctx)
		return nil
	}

	var user domain.Identity
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || !user.Valid() {
		s.logger.Warn("discarding corrupt stored user", zap.Error(err))
		s.clearLocked(ctx)
		return nil
	}

	s.user = &user
	s.token = credential
	return nil
}

// Login stores a freshly issued identity and credential. Invalid input fails
// without touching any state.
func (s *Store) Login(ctx context.Context, identity *domain.Identity, credential string) error {
	if !identity.Valid() || credential == "" {
		s.logger.Warn("rejecting incomplete login", zap.Bool("valid_user", identity.Valid()), zap.Bool("has_token", credential != ""))
		return domain.ErrIncompleteLogin
	}
	if token.IsExpiredAt(credential, s.now()) {
		s.logger.Warn("rejecting expired credential", zap.String("username", identity.Username))
		return domain.ErrCredentialExpiry
	}

	user := identity.Clone()
	payload, err := json.Marshal(user)
	if err != nil {
		return domain.WrapError(domain.ErrCodeValidation, domain.ErrIncompleteLogin.Message, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Save(ctx, map[string]string{
		domain.StorageKeyUser:  string(payload),
		domain.StorageKeyToken: credential,
	}); err != nil {
		s.logger.Error("session storage save failed", zap.Error(err))
		return domain.WrapError(domain.ErrCodeUnknown, "保存登录状态失败", err)
	}

	s.user = user
	s.token = credential
	s.logger.Info("session started", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

// Logout clears the session. It is idempotent; memory is always cleared and
// a storage failure is reported to the caller.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	hadSession := s.token != "" || s.user != nil
	s.user = nil
	s.token = ""

	if err := s.storage.Remove(ctx, storageKeys...); err != nil {
		s.logger.Error("session storage clear failed", zap.Error(err))
		return domain.WrapError(domain.ErrCodeUnknown, "清除登录状态失败", err)
	}
	if hadSession {
		s.logger.Info("session cleared")
	}
	return nil
}

// UpdateAvatar replaces the avatar of the current user. Without a user it
// does nothing.
func (s *Store) UpdateAvatar(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}
	if url == "" {
		url = domain.DefaultAvatar
	}

	updated := s.user.Clone()
	updated.Avatar = url
	payload, err := json.Marshal(updated)
	if err != nil {
		return domain.WrapError(domain.ErrCodeUnknown, "保存头像失败", err)
	}
	if err := s.storage.Save(ctx, map[string]string{domain.StorageKeyUser: string(payload)}); err != nil {
		s.logger.Error("session storage save failed", zap.Error(err))
		return domain.WrapError(domain.ErrCodeUnknown, "保存头像失败", err)
	}
	s.user = updated
	return nil
}

// CheckAndRepair makes sure the store is initialized and consistent. It logs
// out and returns false when a held credential is expired or is not paired
// with a valid user.
func (s *Store) CheckAndRepair(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		_ = s.initializeLocked(ctx)
	}
	if s.token == "" {
		return true
	}
	if token.IsExpiredAt(s.token, s.now()) {
		s.logger.Warn("credential expired, clearing session")
		_ = s.clearLocked(ctx)
		return false
	}
	if !s.user.Valid() {
		s.logger.Warn("session user inconsistent, clearing session")
		_ = s.clearLocked(ctx)
		return false
	}
	return true
}

// IsAuthenticated holds iff a credential and a user are present and the
// credential has not expired.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil && !token.IsExpiredAt(s.token, s.now())
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

// CurrentUser returns a copy of the current identity or nil.
func (s *Store) CurrentUser() *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

func (s *Store) UserAvatar() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.AvatarOrDefault()
}

// Token returns the held credential, expired or not.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Snapshot returns a consistent copy of the whole session.
func (s *Store) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Session{
		User:        s.user.Clone(),
		Token:       s.token,
		Initialized: s.initialized,
	}
}
