package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

type fakeSession struct {
	authenticated bool
	admin         bool
	checks        int
	repairTo      *bool
}

func (f *fakeSession) CheckAndRepair(context.Context) bool {
	f.checks++
	if f.repairTo != nil {
		f.authenticated = *f.repairTo
		f.admin = f.admin && f.authenticated
	}
	return true
}

func (f *fakeSession) IsAuthenticated() bool { return f.authenticated }
func (f *fakeSession) IsAdmin() bool         { return f.admin }

var (
	home   = Route{Name: "home", Path: "/"}
	login  = Route{Name: "login", Path: "/login"}
	create = Route{Name: "create", Path: "/create", RequiresAuth: true}
	admin  = Route{Name: "admin", Path: "/admin", RequiresAuth: true, RequiresAdmin: true}
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name     string
		session  fakeSession
		route    Route
		fullPath string
		redirect string
	}{
		{"public route anonymous", fakeSession{}, home, "/", ""},
		{"protected route anonymous", fakeSession{}, create, "/create", "/login?redirect=%2Fcreate"},
		{"protected route keeps query", fakeSession{}, Route{Path: "/edit/{id}", RequiresAuth: true}, "/edit/3?from=list", "/login?redirect=%2Fedit%2F3%3Ffrom%3Dlist"},
		{"protected route authenticated", fakeSession{authenticated: true}, create, "/create", ""},
		{"login while authenticated", fakeSession{authenticated: true}, login, "/login", "/"},
		{"login anonymous", fakeSession{}, login, "/login", ""},
		{"admin as user", fakeSession{authenticated: true}, admin, "/admin", "/"},
		{"admin as admin", fakeSession{authenticated: true, admin: true}, admin, "/admin", ""},
		{"admin anonymous goes to login", fakeSession{}, admin, "/admin", "/login?redirect=%2Fadmin"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := tc.session
			g := NewGuard(&session, nil, nil)
			decision := g.Resolve(context.Background(), tc.route, tc.fullPath)
			assert.Equal(t, tc.redirect, decision.Redirect)
			assert.Equal(t, tc.redirect == "", decision.Proceed())
			assert.Equal(t, 1, session.checks)
		})
	}
}

func TestResolve_RepairsBeforeDeciding(t *testing.T) {
	expired := false
	session := &fakeSession{authenticated: true, repairTo: &expired}
	g := NewGuard(session, nil, nil)

	decision := g.Resolve(context.Background(), create, "/create")
	assert.Equal(t, "/login?redirect=%2Fcreate", decision.Redirect)
}

func TestMiddleware(t *testing.T) {
	session := &fakeSession{}
	g := NewGuard(session, nil, nil)

	called := false
	handler := g.Middleware(create)(func(ctx *fasthttp.RequestCtx) {
		called = true
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	var rc fasthttp.RequestCtx
	rc.Request.SetRequestURI("/create?draft=1")
	handler(&rc)

	assert.False(t, called)
	assert.Equal(t, fasthttp.StatusFound, rc.Response.StatusCode())
	assert.Equal(t, "/login?redirect=%2Fcreate%3Fdraft%3D1", string(rc.Response.Header.Peek(fasthttp.HeaderLocation)))

	session.authenticated = true
	var ok fasthttp.RequestCtx
	ok.Request.SetRequestURI("/create")
	handler(&ok)

	assert.True(t, called)
	assert.Equal(t, fasthttp.StatusOK, ok.Response.StatusCode())
}
