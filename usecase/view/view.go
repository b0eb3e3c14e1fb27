// Package view builds the JSON view-models served by the preview server and
// printed by the CLI. Each view is registered on a usecase.Dispatcher under
// its route name.
package view

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/usecase"
	"github.com/fastygo/blogclient/usecase/admin"
	"github.com/fastygo/blogclient/usecase/article"
	"github.com/fastygo/blogclient/usecase/user"
)

// Route names; they double as query names.
const (
	Home     = "home"
	Login    = "login"
	Register = "register"
	Article  = "article"
	Create   = "create"
	Edit     = "edit"
	User     = "user"
	Admin    = "admin"
)

const MsgCannotEdit = "您没有权限编辑此文章"

// SessionReader is the read side of the session store.
type SessionReader interface {
	IsAuthenticated() bool
	IsAdmin() bool
	CurrentUser() *domain.Identity
	UserAvatar() string
}

type Deps struct {
	Session  SessionReader
	Articles *article.UseCase
	Users    *user.UseCase
	Admin    *admin.UseCase
	Logger   *zap.Logger
}

type Session struct {
	Authenticated bool             `json:"authenticated"`
	Admin         bool             `json:"admin"`
	User          *domain.Identity `json:"user,omitempty"`
	Avatar        string           `json:"avatar"`
}

type HomeView struct {
	Session       Session          `json:"session"`
	Articles      []domain.Article `json:"articles"`
	TotalElements int64            `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
	CurrentPage   int              `json:"currentPage"`
}

type ArticleView struct {
	Session   Session         `json:"session"`
	Article   *domain.Article `json:"article"`
	CanManage bool            `json:"canManage"`
}

type EditorView struct {
	Session    Session         `json:"session"`
	Article    *domain.Article `json:"article,omitempty"`
	Categories []string        `json:"categories"`
	Tags       []string        `json:"tags"`
}

type UserView struct {
	Session  Session          `json:"session"`
	Profile  *domain.Identity `json:"profile"`
	Articles []domain.Article `json:"articles"`
}

type AdminView struct {
	Session Session           `json:"session"`
	Users   []domain.Identity `json:"users"`
}

type builder struct {
	Deps
}

// RegisterAll installs every view on d.
func RegisterAll(d *usecase.Dispatcher, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	b := builder{deps}
	d.RegisterQuery(Home, b.home)
	d.RegisterQuery(Login, b.sessionOnly)
	d.RegisterQuery(Register, b.sessionOnly)
	d.RegisterQuery(Article, b.article)
	d.RegisterQuery(Create, b.create)
	d.RegisterQuery(Edit, b.edit)
	d.RegisterQuery(User, b.user)
	d.RegisterQuery(Admin, b.admin)
}

func (b builder) session() Session {
	return Session{
		Authenticated: b.Session.IsAuthenticated(),
		Admin:         b.Session.IsAdmin(),
		User:          b.Session.CurrentUser(),
		Avatar:        b.Session.UserAvatar(),
	}
}

func (b builder) sessionOnly(context.Context, usecase.Params) (any, error) {
	return b.session(), nil
}

func (b builder) home(ctx context.Context, p usecase.Params) (any, error) {
	q := article.ListQuery{
		Page:     atoi(p["page"]),
		Size:     atoi(p["size"]),
		Type:     p["type"],
		Category: p["category"],
		Tag:      p["tag"],
	}
	page, err := b.Articles.List(ctx, q)
	if err != nil {
		return nil, err
	}
	articles, err := page.Articles()
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
	}
	return HomeView{
		Session:       b.session(),
		Articles:      articles,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		CurrentPage:   page.CurrentPage,
	}, nil
}

func (b builder) article(ctx context.Context, p usecase.Params) (any, error) {
	a, err := b.Articles.Get(ctx, parseID(p["id"]))
	if err != nil {
		return nil, err
	}
	return ArticleView{
		Session:   b.session(),
		Article:   a,
		CanManage: b.Articles.CanManage(b.Session.CurrentUser(), a),
	}, nil
}

func (b builder) create(ctx context.Context, _ usecase.Params) (any, error) {
	return b.editor(ctx, nil)
}

func (b builder) edit(ctx context.Context, p usecase.Params) (any, error) {
	a, err := b.Articles.Get(ctx, parseID(p["id"]))
	if err != nil {
		return nil, err
	}
	if !b.Articles.CanManage(b.Session.CurrentUser(), a) {
		return nil, domain.NewError(domain.ErrCodeForbidden, MsgCannotEdit)
	}
	return b.editor(ctx, a)
}

// editor tolerates missing categories and tags; the form still renders.
func (b builder) editor(ctx context.Context, a *domain.Article) (any, error) {
	categories, err := b.Articles.Categories(ctx)
	if err != nil {
		b.Logger.Warn("categories unavailable", zap.Error(err))
		categories = []string{}
	}
	tags, err := b.Articles.Tags(ctx)
	if err != nil {
		b.Logger.Warn("tags unavailable", zap.Error(err))
		tags = []string{}
	}
	return EditorView{Session: b.session(), Article: a, Categories: categories, Tags: tags}, nil
}

func (b builder) user(ctx context.Context, _ usecase.Params) (any, error) {
	profile, err := b.Users.Profile(ctx)
	if err != nil {
		return nil, err
	}
	articles, err := b.Articles.Mine(ctx)
	if err != nil {
		return nil, err
	}
	return UserView{Session: b.session(), Profile: profile, Articles: articles}, nil
}

func (b builder) admin(ctx context.Context, _ usecase.Params) (any, error) {
	users, err := b.Admin.Users(ctx)
	if err != nil {
		return nil, err
	}
	return AdminView{Session: b.session(), Users: users}, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}
