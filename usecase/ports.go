package usecase

import (
	"context"

	"github.com/fastygo/blogclient/api/transport"
	"github.com/fastygo/blogclient/domain"
)

// Requester abstracts the request pipeline so use cases stay transport-agnostic.
type Requester interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// SessionWriter is the subset of the session store mutated by API calls.
type SessionWriter interface {
	Login(ctx context.Context, identity *domain.Identity, credential string) error
	Logout(ctx context.Context) error
	UpdateAvatar(ctx context.Context, url string) error
	CurrentUser() *domain.Identity
}
