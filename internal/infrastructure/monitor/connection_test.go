package monitor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fastygo/blogclient/api/transport"
	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/repository"
	"github.com/fastygo/blogclient/repository/memory"
)

type probe struct {
	last transport.Request
	err  error
}

func (p *probe) Do(_ context.Context, req transport.Request) (*transport.Response, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &transport.Response{Shape: transport.ShapeRaw}, nil
}

type pingStorage struct {
	repository.ClientStorage
	err error
}

func (s pingStorage) Ping(context.Context) error { return s.err }

type authState bool

func (a authState) IsAuthenticated() bool { return bool(a) }

func TestRefresh_AllHealthy(t *testing.T) {
	api := &probe{}
	m := New(api, pingStorage{ClientStorage: memory.NewStorageRepository()}, "bolt", authState(true), time.Second, nil)

	m.refresh()
	status := m.GetStatus()
	assert.True(t, status.API)
	assert.True(t, status.Storage)
	assert.True(t, status.Authenticated)
	assert.Equal(t, "bolt", status.StorageDriver)
	assert.False(t, status.LastCheck.IsZero())
	assert.True(t, m.IsOnline())

	assert.Equal(t, http.MethodGet, api.last.Method)
	assert.Equal(t, "/home", api.last.URL)
}

func TestRefresh_HTTPErrorStillReachable(t *testing.T) {
	api := &probe{err: &domain.Error{
		Code:     domain.ErrCodeNotFound,
		Response: &domain.RawResponse{StatusCode: http.StatusNotFound},
	}}
	m := New(api, memory.NewStorageRepository(), "memory", nil, time.Second, nil)

	m.refresh()
	assert.True(t, m.GetStatus().API)
	assert.True(t, m.GetStatus().Storage)
	assert.False(t, m.GetStatus().Authenticated)
}

func TestRefresh_NetworkFailure(t *testing.T) {
	m := New(&probe{err: domain.NewError(domain.ErrCodeNetwork, "网络错误")}, memory.NewStorageRepository(), "memory", nil, time.Second, nil)

	m.refresh()
	assert.False(t, m.GetStatus().API)
	assert.False(t, m.IsOnline())
}

func TestRefresh_StoragePingFailure(t *testing.T) {
	storage := pingStorage{ClientStorage: memory.NewStorageRepository(), err: errors.New("closed")}
	m := New(&probe{}, storage, "redis", nil, time.Second, nil)

	m.refresh()
	assert.True(t, m.GetStatus().API)
	assert.False(t, m.GetStatus().Storage)
	assert.False(t, m.IsOnline())
}

func TestStartStop(t *testing.T) {
	m := New(&probe{}, memory.NewStorageRepository(), "memory", nil, 10*time.Millisecond, nil)
	m.Start()

	assert.Eventually(t, func() bool { return !m.GetStatus().LastCheck.IsZero() }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()
}
