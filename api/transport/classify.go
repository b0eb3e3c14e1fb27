package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fastygo/blogclient/domain"
)

// Display messages shown for classified failures.
const (
	MsgCaptchaInvalid  = "验证码错误或已过期，请重新输入"
	MsgBadRequest      = "请求参数有误，请检查输入"
	MsgLoginRequired   = "请先登录后再操作"
	MsgForbidden       = "您没有权限执行此操作"
	MsgNotFound        = "请求的资源不存在"
	MsgRateLimited     = "请求过于频繁，请稍后再试"
	MsgServerError     = "服务器出现错误，请稍后重试"
	MsgRequestFailed   = "请求失败，请稍后重试"
	MsgNetworkError    = "无法连接到服务器，请检查网络连接"
	MsgRequestBuilding = "请求发生错误，请稍后重试"
)

// classification is the outcome of mapping a failed response.
type classification struct {
	err         *domain.Error
	forceLogout bool
}

// classifyStatus maps a non-2xx response to a display-ready error. Server
// supplied messages win over the defaults except for rate limiting and the
// captcha wording.
func classifyStatus(raw *domain.RawResponse) classification {
	serverMsg := ServerMessage(raw)
	withDefault := func(fallback string) string {
		if serverMsg != "" {
			return serverMsg
		}
		return fallback
	}
	newErr := func(code domain.ErrorCode, message string) *domain.Error {
		return &domain.Error{Code: code, Message: message, Response: raw}
	}

	switch status := raw.StatusCode; {
	case status == http.StatusBadRequest:
		if strings.Contains(serverMsg, "验证码") {
			return classification{err: newErr(domain.ErrCodeValidation, MsgCaptchaInvalid)}
		}
		return classification{err: newErr(domain.ErrCodeValidation, withDefault(MsgBadRequest))}
	case status == http.StatusUnauthorized:
		return classification{err: newErr(domain.ErrCodeUnauthorized, withDefault(MsgLoginRequired)), forceLogout: true}
	case status == http.StatusForbidden:
		return classification{
			err:         newErr(domain.ErrCodeForbidden, withDefault(MsgForbidden)),
			forceLogout: strings.Contains(serverMsg, "token"),
		}
	case status == http.StatusNotFound:
		return classification{err: newErr(domain.ErrCodeNotFound, withDefault(MsgNotFound))}
	case status == http.StatusConflict:
		return classification{err: newErr(domain.ErrCodeConflict, withDefault(MsgRequestFailed))}
	case status == http.StatusTooManyRequests:
		return classification{err: newErr(domain.ErrCodeRateLimited, MsgRateLimited)}
	case status == http.StatusInternalServerError:
		return classification{err: newErr(domain.ErrCodeServer, withDefault(MsgServerError))}
	case status > http.StatusInternalServerError:
		return classification{err: newErr(domain.ErrCodeServer, withDefault(MsgRequestFailed))}
	default:
		return classification{err: newErr(domain.ErrCodeUnknown, withDefault(MsgRequestFailed))}
	}
}

// networkError classifies a request that never received a response.
func networkError(err error) *domain.Error {
	return domain.WrapError(domain.ErrCodeNetwork, MsgNetworkError, err)
}

// ServerMessage extracts the `message` field of a JSON object body.
func ServerMessage(raw *domain.RawResponse) string {
	if raw == nil || firstByte(raw.Body) != '{' {
		return ""
	}
	var body struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(raw.Body, &body); err != nil {
		return ""
	}
	if s, ok := body.Message.(string); ok {
		return s
	}
	return ""
}
