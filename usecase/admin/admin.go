package admin

import (
	"context"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/api/transport"
	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/usecase"
)

const (
	MsgInvalidUserID = "用户ID无效"
	MsgInvalidRole   = "无效的用户角色"
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

func (uc *UseCase) Users(ctx context.Context) ([]domain.Identity, error) {
	resp, err := uc.requester.Do(ctx, transport.Request{Method: http.MethodGet, URL: "/admin/users"})
	if err != nil {
		return nil, err
	}
	if resp.Shape == transport.ShapeRaw {
		return []domain.Identity{}, nil
	}
	var users []domain.Identity
	if err := resp.Decode(&users); err != nil {
		return nil, err
	}
	return users, nil
}

func (uc *UseCase) DeleteUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return domain.NewError(domain.ErrCodeValidation, MsgInvalidUserID)
	}
	if _, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		URL:    userPath(userID),
	}); err != nil {
		return err
	}
	uc.logger.Info("user deleted", zap.Int64("user_id", userID))
	return nil
}

// UserUpdate lists the fields an administrator may change; empty fields are
// left untouched by the server.
type UserUpdate struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// UpdateUser returns the saved user when the server echoes it.
func (uc *UseCase) UpdateUser(ctx context.Context, userID int64, upd UserUpdate) (*domain.Identity, error) {
	if userID <= 0 {
		return nil, domain.NewError(domain.ErrCodeValidation, MsgInvalidUserID)
	}
	if upd.Role != "" {
		if err := validateRole(upd.Role); err != nil {
			return nil, err
		}
	}
	resp, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPut,
		URL:    userPath(userID),
		Body:   upd,
	})
	if err != nil {
		return nil, err
	}
	var result struct {
		User *domain.Identity `json:"user"`
	}
	if resp.IsObject() {
		if err := resp.Decode(&result); err != nil {
			return nil, err
		}
	}
	return result.User, nil
}

func (uc *UseCase) ChangeRole(ctx context.Context, userID int64, role string) error {
	if userID <= 0 {
		return domain.NewError(domain.ErrCodeValidation, MsgInvalidUserID)
	}
	if err := validateRole(role); err != nil {
		return err
	}
	if _, err := uc.requester.Do(ctx, transport.Request{
		Method: http.MethodPut,
		URL:    userPath(userID) + "/role",
		Body:   map[string]string{"role": role},
	}); err != nil {
		return err
	}
	uc.logger.Info("user role changed", zap.Int64("user_id", userID), zap.String("role", role))
	return nil
}

func validateRole(role string) error {
	if err := validation.Validate(role, validation.Required, validation.In(domain.RoleAdmin, domain.RoleUser)); err != nil {
		return domain.WrapError(domain.ErrCodeValidation, MsgInvalidRole, err)
	}
	return nil
}

func userPath(userID int64) string {
	return "/admin/users/" + strconv.FormatInt(userID, 10)
}
