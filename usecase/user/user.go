package user

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/api/transport"
	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/usecase"
)

const (
	MsgProfileMalformed = "获取用户信息失败：响应格式错误"
	MsgUpdateMalformed  = "更新用户信息失败：响应格式错误"
	MsgPasswordMissing  = "请填写完整的密码信息"
	MsgPasswordMismatch = "两次输入的密码不一致"
	MsgPasswordRequired = "请输入密码"
	MsgNoFile           = "请选择要上传的文件"
	MsgImageOnly        = "只能上传图片文件"
	MsgAvatarTooLarge   = "文件大小不能超过2MB"
	MsgUploadMalformed  = "上传失败，服务器响应异常"
	MsgInvalidUserID    = "用户ID无效"

	maxAvatarBytes = 2 << 20
)

type UseCase struct {
	requester usecase.Requester
	session   usecase.SessionWriter
	logger    *zap.Logger
}

func New(requester usecase.Requester, session usecase.SessionWriter, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		requester: requester,
		session:   session,
		logger:    logger,
	}
}

func (uc *UseCase) Profile(ctx context.Context) (*domain.Identity, error) {
	resp, err := uc.requester.Do(ctx, transport.Request{Method: http.MethodGet, URL: "/users/profile"})
	if err != nil {
		return nil, err
	}
	return decodeIdentity(resp, MsgProfileMalformed)
}

// ProfileUpdate holds the only profile fields the server accepts.
type ProfileUpdate struct {
	Email  string `json:"email"`
	Bio    string `json:"bio"`
	Avatar string `json:"avatar"`
}

func (uc *UseCase) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*domain.Identity, error) {
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPut,
		URL:    "/users/profile",
		Body:   upd,
	})
	if err != nil {
		return nil, err
	}
	return decodeIdentity(resp, MsgUpdateMalformed)
}

func decodeIdentity(resp *transport.Response, malformed string) (*domain.Identity, error) {
	if !resp.IsObject() {
		return nil, &domain.Error{Code: domain.ErrCodeResponseFormat, Message: malformed, Response: resp.Raw}
	}
	var identity domain.Identity
	if err := resp.Decode(&identity); err != nil {
		return nil, &domain.Error{Code: domain.ErrCodeResponseFormat, Message: malformed, Response: resp.Raw, Err: err}
	}
	return &identity, nil
}

type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (p PasswordChange) validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.CurrentPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required),
		validation.Field(&p.ConfirmPassword, validation.Required),
	)
	if err != nil {
		return domain.WrapError(domain.ErrCodeValidation, MsgPasswordMissing, err)
	}
	if p.NewPassword != p.ConfirmPassword {
		return domain.NewError(domain.ErrCodeValidation, MsgPasswordMismatch)
	}
	return nil
}

// ChangePassword returns the server confirmation message.
func (uc *UseCase) ChangePassword(ctx context.Context, change PasswordChange) (string, error) {
	if err := change.validate(); err != nil {
		return "", err
	}
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPut,
		URL:    "/users/password",
		Body:   change,
	})
	if err != nil {
		return "", err
	}
	return message(resp), nil
}

func (uc *UseCase) Follow(ctx context.Context, userID int64) (string, error) {
	return uc.follow(ctx, userID, "follow")
}

func (uc *UseCase) Unfollow(ctx context.Context, userID int64) (string, error) {
	return uc.follow(ctx, userID, "unfollow")
}

func (uc *UseCase) follow(ctx context.Context, userID int64, action string) (string, error) {
	if userID <= 0 {
		return "", domain.NewError(domain.ErrCodeValidation, MsgInvalidUserID)
	}
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    "/users/" + strconv.FormatInt(userID, 10) + "/" + action,
	})
	if err != nil {
		return "", err
	}
	return message(resp), nil
}

func (uc *UseCase) IsFollowing(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, domain.NewError(domain.ErrCodeValidation, MsgInvalidUserID)
	}
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    "/users/" + strconv.FormatInt(userID, 10) + "/following",
	})
	if err != nil {
		return false, err
	}
	var state struct {
		Following bool `json:"following"`
	}
	if err := resp.Decode(&state); err != nil {
		return false, err
	}
	return state.Following, nil
}

// DeleteAccount removes the account and ends the local session.
func (uc *UseCase) DeleteAccount(ctx context.Context, password string) error {
	if password == "" {
		return domain.NewError(domain.ErrCodeValidation, MsgPasswordRequired)
	}
	_, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		URL:    "/users/account",
		Body:   map[string]string{"password": password},
	})
	if err != nil {
		return err
	}
	uc.logger.Info("account deleted")
	return uc.session.Logout(ctx)
}

// UploadAvatar uploads an image and makes it the session avatar. It returns
// the stored URL.
func (uc *UseCase) UploadAvatar(ctx context.Context, file transport.File) (string, error) {
	if len(file.Data) == 0 {
		return "", domain.NewError(domain.ErrCodeValidation, MsgNoFile)
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return "", domain.NewError(domain.ErrCodeValidation, MsgImageOnly)
	}
	if len(file.Data) > maxAvatarBytes {
		return "", domain.NewError(domain.ErrCodeValidation, MsgAvatarTooLarge)
	}
	file.Field = "file"

	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    "/upload/avatar",
		Files:  []transport.File{file},
	})
	if err != nil {
		return "", err
	}

	var url string
	if resp.Shape != transport.ShapeData || resp.Decode(&url) != nil || url == "" {
		return "", &domain.Error{Code: domain.ErrCodeResponseFormat, Message: MsgUploadMalformed, Response: resp.Raw}
	}
	if err := uc.session.UpdateAvatar(ctx, url); err != nil {
		return url, err
	}
	uc.logger.Info("avatar updated", zap.String("url", url))
	return url, nil
}

// UploadImages uploads article images and returns their URLs in order.
func (uc *UseCase) UploadImages(ctx context.Context, files []transport.File) ([]string, error) {
	if len(files) == 0 {
		return nil, domain.NewError(domain.ErrCodeValidation, MsgNoFile)
	}
	parts := make([]transport.File, len(files))
	for i, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return nil, domain.NewError(domain.ErrCodeValidation, MsgImageOnly)
		}
		f.Field = "files[]"
		parts[i] = f
	}

	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    "/upload/image",
		Files:  parts,
	})
	if err != nil {
		return nil, err
	}
	var result struct {
		URLs []string `json:"urls"`
	}
	if !resp.IsObject() || resp.Decode(&result) != nil {
		return nil, &domain.Error{Code: domain.ErrCodeResponseFormat, Message: MsgUploadMalformed, Response: resp.Raw}
	}
	return result.URLs, nil
}

// message extracts a confirmation message from a text or object payload.
func message(resp *transport.Response) string {
	if resp.Shape == transport.ShapeText {
		return resp.Text
	}
	if resp.IsObject() {
		var body struct {
			Message string `json:"message"`
		}
		if err := resp.Decode(&body); err == nil {
			return body.Message
		}
	}
	return ""
}
