package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/fastygo/blogclient/domain"
)

// Params carries route and query parameters to a query handler.
type Params map[string]string

type QueryHandler func(ctx context.Context, params Params) (any, error)

// Dispatcher resolves named read models. The preview server and the CLI
// share the same registrations.
type Dispatcher struct {
	qryHandlers map[string]QueryHandler
	mu          sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		qryHandlers: make(map[string]QueryHandler),
	}
}

func (d *Dispatcher) RegisterQuery(name string, handler QueryHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.qryHandlers[name] = handler
}

func (d *Dispatcher) ExecuteQuery(ctx context.Context, name string, params Params) (any, error) {
	d.mu.RLock()
	handler, ok := d.qryHandlers[name]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.NewError(domain.ErrCodeNotFound, "未知视图: "+name)
	}
	if params == nil {
		params = Params{}
	}
	return handler(ctx, params)
}

// Queries lists registered names in order.
func (d *Dispatcher) Queries() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.qryHandlers))
	for name := range d.qryHandlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
