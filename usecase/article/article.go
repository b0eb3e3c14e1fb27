package article

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/api/transport"
	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/usecase"
)

const (
	MsgListFailed      = "获取文章列表失败"
	MsgListLogin       = "请先登录后再查看文章"
	MsgDeleteFailed    = "删除文章失败"
	MsgArticleRequired = "标题和内容不能为空"
	MsgInvalidID       = "文章ID无效"

	defaultPageSize = 10
)

type UseCase struct {
	requester usecase.Requester
	logger    *zap.Logger
}

func New(requester usecase.Requester, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		requester: requester,
		logger:    logger,
	}
}

// ListQuery filters the public article list. Zero Page and Size fall back to
// the first page of ten.
type ListQuery struct {
	Page     int
	Size     int
	Type     string
	Category string
	Tag      string
}

func (q ListQuery) params() url.Values {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 {
		q.Size = defaultPageSize
	}
	return url.Values{
		"page":     {strconv.Itoa(q.Page)},
		"size":     {strconv.Itoa(q.Size)},
		"type":     {q.Type},
		"category": {q.Category},
		"tag":      {q.Tag},
	}
}

// List returns one page of articles. A bare array payload is wrapped into a
// single page.
func (uc *UseCase) List(ctx context.Context, q ListQuery) (*domain.Page, error) {
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     "/articles",
		Headers: map[string]string{"Accept": "application/json"},
		Params:  q.params(),
	})
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Shape == transport.ShapePage:
		return resp.Page, nil
	case firstByte(resp.Value) == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(resp.Value, &items); err != nil {
			return nil, domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
		}
		return &domain.Page{Content: items, TotalElements: int64(len(items)), First: true, Last: true}, nil
	}
	uc.logger.Warn("unexpected article list shape", zap.Stringer("shape", resp.Shape))
	return &domain.Page{}, nil
}

func (uc *UseCase) Categories(ctx context.Context) ([]string, error) {
	return uc.stringList(ctx, "/categories")
}

func (uc *UseCase) Tags(ctx context.Context) ([]string, error) {
	return uc.stringList(ctx, "/tags")
}

func (uc *UseCase) stringList(ctx context.Context, path string) ([]string, error) {
	resp, err := uc.requester.Do(ctx, transport.Request{Method: http.MethodGet, URL: path})
	if err != nil {
		return nil, err
	}
	if resp.Shape == transport.ShapeRaw {
		return []string{}, nil
	}
	var out []string
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Mine returns the articles of the current user. The endpoint has answered
// with a bare array, a `data` array, a page, or an object keyed by id; all
// are accepted.
func (uc *UseCase) Mine(ctx context.Context) ([]domain.Article, error) {
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     "/articles/user",
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, mineError(err)
	}

	var items []json.RawMessage
	switch {
	case resp.Shape == transport.ShapePage:
		items = resp.Page.Content
	case firstByte(resp.Value) == '[':
		if err := json.Unmarshal(resp.Value, &items); err != nil {
			return nil, domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
		}
	case firstByte(resp.Value) == '{':
		items = objectValues(resp.Value)
	}
	if len(items) == 0 && resp.Shape != transport.ShapeValue && resp.Shape != transport.ShapePage {
		uc.logger.Warn("unexpected user article shape", zap.Stringer("shape", resp.Shape))
	}

	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		var a domain.Article
		if err := json.Unmarshal(item, &a); err != nil {
			uc.logger.Warn("skipping undecodable article", zap.Error(err))
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func mineError(err error) error {
	dErr, ok := domain.AsError(err)
	if !ok {
		return err
	}
	if dErr.StatusCode() == http.StatusUnauthorized {
		return dErr.WithMessage(MsgListLogin)
	}
	if msg := transport.ServerMessage(dErr.Response); msg != "" {
		return dErr.WithMessage(msg)
	}
	return dErr.WithMessage(MsgListFailed)
}

// objectValues collects the object-valued fields of a JSON object, ordered by
// key.
func objectValues(raw json.RawMessage) []json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if firstByte(v) == '{' {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		out = append(out, fields[k])
	}
	return out
}

func (uc *UseCase) Get(ctx context.Context, id int64) (*domain.Article, error) {
	if id <= 0 {
		return nil, domain.NewError(domain.ErrCodeValidation, MsgInvalidID)
	}
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method:  http.MethodGet,
		URL:     "/articles/" + strconv.FormatInt(id, 10),
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, err
	}
	var a domain.Article
	if err := resp.Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Input is the body of a new article.
type Input struct {
	Title          string `json:"title"`
	Content        string `json:"content"`
	Category       string `json:"category"`
	Tags           string `json:"tags"`
	IsPrivate      bool   `json:"isPrivate"`
	IsDownloadable bool   `json:"isDownloadable"`
}

func (in Input) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required),
		validation.Field(&in.Content, validation.Required),
	)
	if err != nil {
		return domain.WrapError(domain.ErrCodeValidation, MsgArticleRequired, err)
	}
	return nil
}

func (uc *UseCase) Create(ctx context.Context, in Input) (*domain.Article, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Category) == "" {
		in.Category = domain.DefaultCategory
	}

	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    "/articles",
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: in,
	})
	if err != nil {
		uc.logger.Warn("create article failed", zap.String("title", in.Title), zap.Error(err))
		return nil, err
	}
	return decodeOptional(resp)
}

// Update carries the fields an author may change after publishing.
type Update struct {
	Category       string `json:"category"`
	Tags           string `json:"tags"`
	IsPrivate      bool   `json:"isPrivate"`
	IsDownloadable bool   `json:"isDownloadable"`
}

func (uc *UseCase) Update(ctx context.Context, id int64, upd Update) (*domain.Article, error) {
	if id <= 0 {
		return nil, domain.NewError(domain.ErrCodeValidation, MsgInvalidID)
	}
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPut,
		URL:    "/articles/" + strconv.FormatInt(id, 10),
		Body:   upd,
	})
	if err != nil {
		return nil, err
	}
	return decodeOptional(resp)
}

func (uc *UseCase) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.NewError(domain.ErrCodeValidation, MsgInvalidID)
	}
	_, err := uc.requester.Do(ctx, transport.Request{
		Method:  http.MethodDelete,
		URL:     "/articles/" + strconv.FormatInt(id, 10),
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		dErr, ok := domain.AsError(err)
		if !ok {
			return err
		}
		if msg := transport.ServerMessage(dErr.Response); msg != "" {
			return dErr.WithMessage(msg)
		}
		if dErr.Response != nil {
			return dErr.WithMessage(MsgDeleteFailed)
		}
		return dErr
	}
	uc.logger.Info("article deleted", zap.Int64("article_id", id))
	return nil
}

// Download is an exported article file.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (uc *UseCase) Download(ctx context.Context, id int64) (*Download, error) {
	if id <= 0 {
		return nil, domain.NewError(domain.ErrCodeValidation, MsgInvalidID)
	}
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method:       http.MethodGet,
		URL:          "/articles/" + strconv.FormatInt(id, 10) + "/download",
		Headers:      map[string]string{"Accept": "application/octet-stream"},
		ResponseType: transport.ResponseBinary,
	})
	if err != nil {
		return nil, err
	}

	filename := "article-" + strconv.FormatInt(id, 10) + ".md"
	if cd := resp.Raw.HeaderValue("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			filename = params["filename"]
		}
	}
	return &Download{
		Filename:    filename,
		ContentType: resp.Raw.HeaderValue("Content-Type"),
		Data:        resp.Raw.Body,
	}, nil
}

// CanManage reports whether the user may edit or delete the article.
func (uc *UseCase) CanManage(user *domain.Identity, a *domain.Article) bool {
	return domain.CanManageArticle(user, a)
}

func decodeOptional(resp *transport.Response) (*domain.Article, error) {
	if !resp.IsObject() {
		return nil, nil
	}
	var a domain.Article
	if err := resp.Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func firstByte(b []byte) byte {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0
	}
	return s[0]
}
