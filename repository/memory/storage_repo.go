package memory

import (
	"context"
	"sync"

	"github.com/fastygo/blogclient/repository"
)

type storageRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStorageRepository returns a process-local storage, lost on exit.
func NewStorageRepository() repository.ClientStorage {
	return &storageRepository{values: make(map[string]string)}
}

func (r *storageRepository) Load(_ context.Context, keys ...string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := r.values[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

func (r *storageRepository) Save(_ context.Context, entries map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range entries {
		r.values[k] = v
	}
	return nil
}

func (r *storageRepository) Remove(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		delete(r.values, key)
	}
	return nil
}
