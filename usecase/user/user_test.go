package user

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/blogclient/api/transport"
	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/internal/session"
	"github.com/fastygo/blogclient/repository/memory"
)

type stubRequester struct {
	last  transport.Request
	calls int
	body  string
	err   error
}

func (s *stubRequester) Do(_ context.Context, req transport.Request) (*transport.Response, error) {
	s.last = req
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	raw := &domain.RawResponse{StatusCode: http.StatusOK, Body: []byte(s.body)}
	return transport.Normalize(&transport.Descriptor{ResponseType: req.ResponseType}, raw)
}

func loggedInStore(t *testing.T) *session.Store {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	store := session.NewStore(memory.NewStorageRepository(), nil)
	require.NoError(t, store.Login(context.Background(), &domain.Identity{ID: 1, Username: "alice"}, tok))
	return store
}

func TestProfile(t *testing.T) {
	uc := New(&stubRequester{body: `{"id":1,"username":"alice","email":"a@example.com","bio":"hi"}`}, nil, nil)

	profile, err := uc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", profile.Email)
	assert.Equal(t, "hi", profile.Bio)

	uc = New(&stubRequester{body: `ok`}, nil, nil)
	_, err = uc.Profile(context.Background())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeResponseFormat))
	assert.Equal(t, MsgProfileMalformed, domain.DisplayMessage(err))
}

func TestUpdateProfile_SendsAllowedFields(t *testing.T) {
	req := &stubRequester{body: `{"id":1,"username":"alice","bio":"new"}`}
	uc := New(req, nil, nil)

	updated, err := uc.UpdateProfile(context.Background(), ProfileUpdate{Email: "a@example.com", Bio: "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Bio)
	assert.Equal(t, http.MethodPut, req.last.Method)

	payload, err := json.Marshal(req.last.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@example.com","bio":"new","avatar":""}`, string(payload))
}

func TestChangePassword(t *testing.T) {
	req := &stubRequester{body: `{"message":"密码修改成功"}`}
	uc := New(req, nil, nil)

	msg, err := uc.ChangePassword(context.Background(), PasswordChange{CurrentPassword: "old", NewPassword: "new", ConfirmPassword: "new"})
	require.NoError(t, err)
	assert.Equal(t, "密码修改成功", msg)
	assert.Equal(t, "/users/password", req.last.URL)

	_, err = uc.ChangePassword(context.Background(), PasswordChange{CurrentPassword: "old", NewPassword: "new", ConfirmPassword: "other"})
	assert.Equal(t, MsgPasswordMismatch, domain.DisplayMessage(err))

	_, err = uc.ChangePassword(context.Background(), PasswordChange{NewPassword: "new", ConfirmPassword: "new"})
	assert.Equal(t, MsgPasswordMissing, domain.DisplayMessage(err))
	assert.Equal(t, 1, req.calls)
}

func TestFollowing(t *testing.T) {
	req := &stubRequester{body: `{"message":"关注成功"}`}
	uc := New(req, nil, nil)

	msg, err := uc.Follow(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "关注成功", msg)
	assert.Equal(t, "/users/7/follow", req.last.URL)

	_, err = uc.Unfollow(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "/users/7/unfollow", req.last.URL)
	assert.Equal(t, http.MethodPost, req.last.Method)

	req.body = `{"following":true}`
	following, err := uc.IsFollowing(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, following)
	assert.Equal(t, "/users/7/following", req.last.URL)

	_, err = uc.Follow(context.Background(), 0)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestDeleteAccount_LogsOut(t *testing.T) {
	store := loggedInStore(t)
	req := &stubRequester{body: `{"message":"账户已成功注销"}`}
	uc := New(req, store, nil)

	require.NoError(t, uc.DeleteAccount(context.Background(), "pw"))
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, http.MethodDelete, req.last.Method)
	assert.Equal(t, map[string]string{"password": "pw"}, req.last.Body)
}

func TestDeleteAccount_FailureKeepsSession(t *testing.T) {
	store := loggedInStore(t)
	uc := New(&stubRequester{err: domain.NewError(domain.ErrCodeValidation, "密码错误")}, store, nil)

	err := uc.DeleteAccount(context.Background(), "bad")
	assert.Equal(t, "密码错误", domain.DisplayMessage(err))
	assert.True(t, store.IsAuthenticated())
}

func TestUploadAvatar_UpdatesSession(t *testing.T) {
	store := loggedInStore(t)
	req := &stubRequester{body: `{"code":200,"message":"上传成功","data":"/uploads/avatars/a.png"}`}
	uc := New(req, store, nil)

	url, err := uc.UploadAvatar(context.Background(), transport.File{Name: "a.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/a.png", url)
	assert.Equal(t, url, store.UserAvatar())

	require.Len(t, req.last.Files, 1)
	assert.Equal(t, "file", req.last.Files[0].Field)
	assert.Equal(t, "/upload/avatar", req.last.URL)
}

func TestUploadAvatar_Validation(t *testing.T) {
	req := &stubRequester{}
	uc := New(req, nil, nil)

	_, err := uc.UploadAvatar(context.Background(), transport.File{ContentType: "image/png"})
	assert.Equal(t, MsgNoFile, domain.DisplayMessage(err))

	_, err = uc.UploadAvatar(context.Background(), transport.File{ContentType: "text/plain", Data: []byte("x")})
	assert.Equal(t, MsgImageOnly, domain.DisplayMessage(err))

	_, err = uc.UploadAvatar(context.Background(), transport.File{ContentType: "image/png", Data: make([]byte, maxAvatarBytes+1)})
	assert.Equal(t, MsgAvatarTooLarge, domain.DisplayMessage(err))

	assert.Zero(t, req.calls)
}

func TestUploadAvatar_MalformedResponse(t *testing.T) {
	store := loggedInStore(t)
	uc := New(&stubRequester{body: `{"message":"上传成功"}`}, store, nil)

	_, err := uc.UploadAvatar(context.Background(), transport.File{ContentType: "image/png", Data: []byte("png")})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeResponseFormat))
	assert.Equal(t, domain.DefaultAvatar, store.UserAvatar())
}

func TestUploadImages(t *testing.T) {
	req := &stubRequester{body: `{"urls":["/uploads/1.png","/uploads/2.png"]}`}
	uc := New(req, nil, nil)

	urls, err := uc.UploadImages(context.Background(), []transport.File{
		{Name: "1.png", ContentType: "image/png", Data: []byte("1")},
		{Name: "2.png", ContentType: "image/png", Data: []byte("2")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/1.png", "/uploads/2.png"}, urls)
	for _, f := range req.last.Files {
		assert.Equal(t, "files[]", f.Field)
	}

	_, err = uc.UploadImages(context.Background(), nil)
	assert.Equal(t, MsgNoFile, domain.DisplayMessage(err))
}
