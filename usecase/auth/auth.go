package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/api/transport"
	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/usecase"
)

// Messages specific to the authentication endpoints.
const (
	MsgLoginFailed        = "登录失败，请稍后重试"
	MsgLoginMalformed     = "登录失败，服务器响应异常"
	MsgLoginBadRequest    = "用户名或密码错误"
	MsgLoginUnauthorized  = "登录失败，请检查用户名和密码"
	MsgLoginRateLimited   = "登录尝试次数过多，请稍后再试"
	MsgRegisterIncomplete = "注册信息不完整"
	MsgRegisterEmail      = "邮箱格式不正确"
	MsgRegisterInvalid    = "注册信息有误"
	MsgUsernameTaken      = "用户名已被使用"
	MsgEmailTaken         = "邮箱已被注册"
	MsgCaptchaMissingID   = "验证码响应缺少ID"
	MsgCaptchaBadType     = "验证码响应类型错误"
	MsgCaptchaEmpty       = "验证码响应格式错误"
	MsgCaptchaNotAccepted = "服务器不支持当前请求格式，请联系管理员"
)

type UseCase struct {
	requester usecase.Requester
	session   usecase.SessionWriter
	logger    *zap.Logger
	now       func() time.Time
}

func New(requester usecase.Requester, session usecase.SessionWriter, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		requester: requester,
		session:   session,
		logger:    logger,
		now:       time.Now,
	}
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the login payload, either bare or wrapped in `data`.
type LoginResult struct {
	Token string           `json:"token"`
	User  *domain.Identity `json:"user"`
}

// Login authenticates and starts the session.
func (uc *UseCase) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    "/auth/login",
		Body:   creds,
	})
	if err != nil {
		uc.logger.Warn("login failed", zap.String("username", creds.Username), zap.Error(err))
		return nil, loginError(err)
	}

	if resp.Shape == transport.ShapePage || !resp.IsObject() {
		return nil, domain.NewError(domain.ErrCodeResponseFormat, MsgLoginFailed)
	}

	var result LoginResult
	if err := resp.Decode(&result); err != nil || result.Token == "" || result.User == nil {
		return nil, domain.NewError(domain.ErrCodeResponseFormat, MsgLoginMalformed)
	}

	if err := uc.session.Login(ctx, result.User, result.Token); err != nil {
		return nil, err
	}
	uc.logger.Info("logged in", zap.String("username", result.User.Username))
	return &result, nil
}

func loginError(err error) error {
	dErr, ok := domain.AsError(err)
	if !ok {
		return err
	}
	serverMsg := transport.ServerMessage(dErr.Response)
	switch dErr.StatusCode() {
	case http.StatusBadRequest:
		return dErr.WithMessage(orDefault(serverMsg, MsgLoginBadRequest))
	case http.StatusUnauthorized:
		return dErr.WithMessage(orDefault(serverMsg, MsgLoginUnauthorized))
	case http.StatusTooManyRequests:
		return dErr.WithMessage(MsgLoginRateLimited)
	}
	return dErr
}

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Captcha   string `json:"captcha"`
	CaptchaID string `json:"-"`
}

func (in RegisterInput) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
		validation.Field(&in.Captcha, validation.Required),
		validation.Field(&in.CaptchaID, validation.Required),
	)
	if err != nil {
		return domain.WrapError(domain.ErrCodeValidation, MsgRegisterIncomplete, err)
	}
	if err := validation.Validate(strings.TrimSpace(in.Email), is.Email); err != nil {
		return domain.WrapError(domain.ErrCodeValidation, MsgRegisterEmail, err)
	}
	return nil
}

type RegisterResult struct {
	Message string           `json:"message"`
	User    *domain.Identity `json:"user,omitempty"`
}

// Register creates an account. It does not start a session.
func (uc *UseCase) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    "/auth/register",
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Captcha-ID": in.CaptchaID,
		},
		Body: RegisterInput{
			Username: strings.TrimSpace(in.Username),
			Email:    strings.TrimSpace(in.Email),
			Password: in.Password,
			Captcha:  strings.TrimSpace(in.Captcha),
		},
	})
	if err != nil {
		uc.logger.Warn("register failed", zap.String("username", in.Username), zap.Error(err))
		return nil, registerError(err)
	}

	var result RegisterResult
	if resp.IsObject() {
		if err := resp.Decode(&result); err != nil {
			return nil, err
		}
	} else if resp.Shape == transport.ShapeText {
		result.Message = resp.Text
	}
	return &result, nil
}

func registerError(err error) error {
	dErr, ok := domain.AsError(err)
	if !ok {
		return err
	}
	serverMsg := transport.ServerMessage(dErr.Response)
	switch dErr.StatusCode() {
	case http.StatusBadRequest:
		switch {
		case strings.Contains(serverMsg, "验证码"):
			return dErr.WithMessage(transport.MsgCaptchaInvalid)
		case strings.Contains(serverMsg, "用户名"):
			return dErr.WithMessage(MsgUsernameTaken)
		case strings.Contains(serverMsg, "邮箱"):
			return dErr.WithMessage(MsgEmailTaken)
		default:
			return dErr.WithMessage(orDefault(serverMsg, MsgRegisterInvalid))
		}
	case http.StatusTooManyRequests:
		return dErr.WithMessage(transport.MsgRateLimited)
	}
	return dErr
}

// UsernameCheck reports whether a username is already registered.
type UsernameCheck struct {
	Exists bool             `json:"exists"`
	User   *domain.Identity `json:"user,omitempty"`
}

func (uc *UseCase) CheckUsername(ctx context.Context, username string) (*UsernameCheck, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "用户名不能为空")
	}
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    "/auth/check/" + username,
	})
	if err != nil {
		return nil, err
	}
	var check UsernameCheck
	if err := resp.Decode(&check); err != nil {
		return nil, err
	}
	return &check, nil
}

// Captcha is a challenge image and the id the register call must echo.
type Captcha struct {
	ID          string
	ContentType string
	Image       []byte
}

func (uc *UseCase) Captcha(ctx context.Context) (*Captcha, error) {
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method:       http.MethodGet,
		URL:          "/auth/captcha?t=" + strconv.FormatInt(uc.now().UnixMilli(), 10),
		ResponseType: transport.ResponseBinary,
	})
	if err != nil {
		if dErr, ok := domain.AsError(err); ok && dErr.StatusCode() == http.StatusNotAcceptable {
			return nil, dErr.WithMessage(MsgCaptchaNotAccepted)
		}
		return nil, err
	}

	raw := resp.Raw
	id := raw.HeaderValue("X-Captcha-ID")
	if id == "" {
		return nil, &domain.Error{Code: domain.ErrCodeResponseFormat, Message: MsgCaptchaMissingID, Response: raw}
	}
	contentType := raw.HeaderValue("Content-Type")
	if !strings.Contains(contentType, "image/") {
		return nil, &domain.Error{Code: domain.ErrCodeResponseFormat, Message: MsgCaptchaBadType, Response: raw}
	}
	if len(raw.Body) == 0 {
		return nil, &domain.Error{Code: domain.ErrCodeResponseFormat, Message: MsgCaptchaEmpty, Response: raw}
	}
	return &Captcha{ID: id, ContentType: contentType, Image: raw.Body}, nil
}

// Logout ends the local session; the server keeps no session state.
func (uc *UseCase) Logout(ctx context.Context) error {
	if err := uc.session.Logout(ctx); err != nil {
		return err
	}
	uc.logger.Info("logged out")
	return nil
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
