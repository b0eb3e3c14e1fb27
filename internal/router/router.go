package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/blogclient/api/handler"
	"github.com/fastygo/blogclient/internal/middleware"
	"github.com/fastygo/blogclient/usecase/view"
)

// Routes is the navigable page table. Names match the registered views.
var Routes = []middleware.Route{
	{Name: view.Home, Path: "/"},
	{Name: view.Login, Path: "/login"},
	{Name: view.Register, Path: "/register"},
	{Name: view.Article, Path: "/article/{id}"},
	{Name: view.Create, Path: "/create", RequiresAuth: true},
	{Name: view.Edit, Path: "/edit/{id}", RequiresAuth: true},
	{Name: view.User, Path: "/user", RequiresAuth: true},
	{Name: view.Admin, Path: "/admin", RequiresAuth: true, RequiresAdmin: true},
}

// Lookup returns the route registered under name.
func Lookup(name string) (middleware.Route, bool) {
	for _, route := range Routes {
		if route.Name == name {
			return route, true
		}
	}
	return middleware.Route{}, false
}

type Handlers struct {
	View   *apiHandler.ViewHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, guard *middleware.Guard) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	for _, route := range Routes {
		var handler fasthttp.RequestHandler = handlers.View.Serve(route.Name)
		if guard != nil {
			handler = guard.Middleware(route)(handler)
		}
		r.GET(route.Path, handler)
	}

	r.NotFound = handlers.View.NotFound
	return r
}
