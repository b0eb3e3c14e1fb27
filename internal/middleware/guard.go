package middleware

import (
	"context"
	"net/url"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/pkg/httpcontext"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Route describes the access requirements of a navigable view.
type Route struct {
	Name          string
	Path          string
	RequiresAuth  bool
	RequiresAdmin bool
}

// SessionView is what the guard reads from the session store.
type SessionView interface {
	CheckAndRepair(ctx context.Context) bool
	IsAuthenticated() bool
	IsAdmin() bool
}

// Decision is the outcome of a navigation check. An empty Redirect means
// proceed.
type Decision struct {
	Redirect string
}

func (d Decision) Proceed() bool {
	return d.Redirect == ""
}

type Guard struct {
	session SessionView
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func NewGuard(session SessionView, adapter *httpcontext.Adapter, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{session: session, adapter: adapter, logger: logger}
}

// Resolve decides a navigation to route. fullPath is the requested path with
// its query and is echoed in the login redirect.
func (g *Guard) Resolve(ctx context.Context, route Route, fullPath string) Decision {
	g.session.CheckAndRepair(ctx)
	authenticated := g.session.IsAuthenticated()

	switch {
	case route.RequiresAuth && !authenticated:
		return Decision{Redirect: LoginPath + "?redirect=" + url.QueryEscape(fullPath)}
	case route.Path == LoginPath && authenticated:
		return Decision{Redirect: HomePath}
	case route.RequiresAdmin && !g.session.IsAdmin():
		return Decision{Redirect: HomePath}
	}
	return Decision{}
}

// Middleware applies Resolve before next and answers redirects with 302.
func (g *Guard) Middleware(route Route) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			stdCtx, cancel := g.requestContext(ctx)
			decision := g.Resolve(stdCtx, route, string(ctx.RequestURI()))
			cancel()

			if !decision.Proceed() {
				g.logger.Debug("navigation redirected",
					zap.String("route", route.Name),
					zap.ByteString("uri", ctx.RequestURI()),
					zap.String("location", decision.Redirect))
				ctx.Response.Header.Set(fasthttp.HeaderLocation, decision.Redirect)
				ctx.SetStatusCode(fasthttp.StatusFound)
				return
			}
			next(ctx)
		}
	}
}

func (g *Guard) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if g.adapter != nil {
		return g.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}
