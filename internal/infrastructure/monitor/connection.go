package monitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/blogclient/api/transport"
	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/repository"
	"github.com/fastygo/blogclient/usecase"
)

// SessionProbe reports the authentication state.
type SessionProbe interface {
	IsAuthenticated() bool
}

type Monitor struct {
	api     usecase.Requester
	storage repository.ClientStorage
	driver  string
	session SessionProbe

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(api usecase.Requester, storage repository.ClientStorage, driver string, session SessionProbe, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		api:      api,
		storage:  storage,
		driver:   driver,
		session:  session,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether both the API and the storage answered the last check.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.API && m.status.Storage
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	apiOK, latency := m.checkAPI()
	status := Status{
		API:           apiOK,
		APILatency:    latency,
		Storage:       m.checkStorage(),
		StorageDriver: m.driver,
		Authenticated: m.session != nil && m.session.IsAuthenticated(),
		LastCheck:     time.Now(),
	}

	m.mu.Lock()
	changed := m.status.API != status.API || m.status.Storage != status.Storage
	m.status = status
	m.mu.Unlock()

	if changed {
		m.logger.Info("connectivity changed", zap.Bool("api", status.API), zap.Bool("storage", status.Storage))
	}
}

// checkAPI probes the home endpoint. Any response, even an error status,
// proves the server is reachable; only network failures count as offline.
func (m *Monitor) checkAPI() (bool, time.Duration) {
	if m.api == nil {
		return false, 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	_, err := m.api.Do(ctx, transport.Request{Method: http.MethodGet, URL: "/home"})
	latency := time.Since(start)
	if err == nil {
		return true, latency
	}
	if dErr, ok := domain.AsError(err); ok && dErr.StatusCode() != 0 {
		return true, latency
	}
	m.logger.Debug("api probe failed", zap.Error(err))
	return false, latency
}

func (m *Monitor) checkStorage() bool {
	if m.storage == nil {
		return false
	}
	pinger, ok := m.storage.(repository.Pinger)
	if !ok {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pinger.Ping(ctx); err != nil {
		m.logger.Warn("storage ping failed", zap.String("driver", m.driver), zap.Error(err))
		return false
	}
	return true
}
