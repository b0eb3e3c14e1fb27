// Package transport is the request pipeline every API call goes through. It
// prepares outbound requests (base URL, credentials, endpoint header
// policies), sends them with fasthttp, normalizes the response shapes the
// server produces and classifies failures into display-ready errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/pkg/logger"
)

// Doer sends a request; *fasthttp.Client satisfies it.
type Doer interface {
	DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error
}

// SessionState is the part of the session store the pipeline relies on.
type SessionState interface {
	Token() string
	Logout(ctx context.Context) error
}

// Config controls the pipeline defaults.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Policies []HeaderPolicy
}

// Pipeline wraps every outbound call.
type Pipeline struct {
	client   Doer
	session  SessionState
	baseURL  string
	timeout  time.Duration
	policies []HeaderPolicy
	logger   *zap.Logger

	cookieMu sync.Mutex
	cookies  map[string]string
}

// New builds a pipeline. A nil session sends every request anonymously.
func New(client Doer, session SessionState, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Policies == nil {
		cfg.Policies = DefaultPolicies
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		client:   client,
		session:  session,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		timeout:  cfg.Timeout,
		policies: cfg.Policies,
		logger:   logger,
		cookies:  make(map[string]string),
	}
}

// NewHTTPClient returns the fasthttp client used in production.
func NewHTTPClient(name string, maxConns int, timeout time.Duration) *fasthttp.Client {
	if maxConns <= 0 {
		maxConns = fasthttp.DefaultMaxConnsPerHost
	}
	return &fasthttp.Client{
		Name:                name,
		MaxConnsPerHost:     maxConns,
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxIdleConnDuration: time.Minute,
	}
}

// Prepare runs the outbound phase and returns the descriptor that would be
// sent.
func (p *Pipeline) Prepare(ctx context.Context, req Request) (*Descriptor, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, MsgRequestBuilding)
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = fasthttp.MethodGet
	}

	path, params, err := splitURL(req.URL, req.Params)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeValidation, MsgRequestBuilding, err)
	}

	d := &Descriptor{
		Method:       method,
		BaseURL:      p.baseURL,
		Path:         path,
		Params:       params,
		Headers:      Header{},
		Body:         req.Body,
		Files:        req.Files,
		ResponseType: req.ResponseType,
	}
	for k, v := range defaultHeaders {
		d.Headers.Set(k, v)
	}
	for k, v := range req.Headers {
		d.Headers.Set(k, v)
	}

	if p.session != nil && !isPublicEndpoint(path) {
		if tok := p.session.Token(); tok != "" {
			d.Headers.Set("Authorization", "Bearer "+tok)
		}
	}

	if policy, ok := resolvePolicy(p.policies, d); ok {
		policy.Apply(d)
	}

	if d.Headers.Get("Accept") == "" {
		d.Headers.Set("Accept", mimeJSON)
	}
	d.WithCredentials = true

	reqID := logger.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	d.Headers.Set("X-Request-ID", reqID)

	return d, nil
}

// Do sends the request and returns its normalized response. Every error is a
// *domain.Error.
func (p *Pipeline) Do(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := p.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	log := logger.WithRequestID(ctx, p.logger).With(
		zap.String("method", d.Method),
		zap.String("path", d.Path),
	)

	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(freq)
	defer fasthttp.ReleaseResponse(fresp)

	if err := p.encode(d, freq); err != nil {
		log.Warn("request encoding failed", zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeValidation, MsgRequestBuilding, err)
	}

	deadline := time.Now().Add(p.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	start := time.Now()
	log.Debug("sending request", zap.String("url", d.FullURL()))
	if err := p.client.DoDeadline(freq, fresp, deadline); err != nil {
		log.Warn("request failed before a response arrived", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, networkError(err)
	}

	raw := rawResponse(fresp)
	p.rememberCookies(fresp)
	log.Debug("response received", zap.Int("status", raw.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if raw.StatusCode >= fasthttp.StatusBadRequest {
		return nil, p.fail(ctx, log, raw)
	}

	resp, err := Normalize(d, raw)
	if err != nil {
		log.Warn("server reported failure", zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, raw *domain.RawResponse) error {
	c := classifyStatus(raw)
	if c.forceLogout && p.session != nil {
		if err := p.session.Logout(ctx); err != nil {
			log.Error("forced logout failed", zap.Error(err))
		} else {
			log.Info("session cleared after auth failure", zap.Int("status", raw.StatusCode))
		}
	}
	log.Warn("request rejected",
		zap.Int("status", raw.StatusCode),
		zap.String("code", string(c.err.Code)),
		zap.String("message", c.err.Message))
	return c.err
}

func (p *Pipeline) encode(d *Descriptor, freq *fasthttp.Request) error {
	freq.Header.SetMethod(d.Method)
	freq.SetRequestURI(d.FullURL())
	freq.Header.SetNoDefaultContentType(true)
	for k, v := range d.Headers {
		freq.Header.Set(k, v)
	}

	if d.WithCredentials {
		p.cookieMu.Lock()
		for k, v := range p.cookies {
			freq.Header.SetCookie(k, v)
		}
		p.cookieMu.Unlock()
	}

	if len(d.Files) > 0 {
		body, contentType, err := encodeMultipart(d.Files, d.Body)
		if err != nil {
			return err
		}
		freq.Header.SetContentType(contentType)
		freq.SetBody(body)
		return nil
	}

	switch body := d.Body.(type) {
	case nil:
		return nil
	case []byte:
		freq.SetBody(body)
	case string:
		freq.SetBodyString(body)
	default:
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		freq.SetBody(payload)
	}
	return nil
}

// encodeMultipart writes the files plus any string fields of body. The
// boundary-carrying content type is set on the wire request only.
func encodeMultipart(files []File, fields any) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if values, ok := fields.(map[string]string); ok {
		for k, v := range values {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}

	for _, f := range files {
		field := f.Field
		if field == "" {
			field = "file"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (p *Pipeline) rememberCookies(fresp *fasthttp.Response) {
	p.cookieMu.Lock()
	defer p.cookieMu.Unlock()
	fresp.Header.VisitAllCookie(func(_, value []byte) {
		c := fasthttp.AcquireCookie()
		defer fasthttp.ReleaseCookie(c)
		if err := c.ParseBytes(value); err != nil {
			return
		}
		name := string(c.Key())
		if len(c.Value()) == 0 || c.MaxAge() < 0 {
			delete(p.cookies, name)
			return
		}
		p.cookies[name] = string(c.Value())
	})
}

func rawResponse(fresp *fasthttp.Response) *domain.RawResponse {
	header := make(map[string]string)
	fresp.Header.VisitAll(func(k, v []byte) {
		header[string(k)] = string(v)
	})
	return &domain.RawResponse{
		StatusCode: fresp.StatusCode(),
		Header:     header,
		Body:       append([]byte(nil), fresp.Body()...),
	}
}

// splitURL separates an inline query from the path and merges it with the
// explicit params; explicit params win.
func splitURL(raw string, params url.Values) (string, url.Values, error) {
	path, query, _ := strings.Cut(raw, "?")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	merged := url.Values{}
	if query != "" {
		parsed, err := url.ParseQuery(query)
		if err != nil {
			return "", nil, err
		}
		for k, v := range parsed {
			merged[k] = v
		}
	}
	for k, v := range params {
		merged[k] = v
	}
	if len(merged) == 0 {
		merged = nil
	}
	return path, merged, nil
}
