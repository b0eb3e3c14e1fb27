package domain

const (
	RoleAdmin = "ROLE_ADMIN"
	RoleUser  = "ROLE_USER"

	DefaultAvatar = "/default-avatar.png"
)

// Identity is the authenticated user's profile as issued by the server.
type Identity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Bio       string `json:"bio,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Valid reports whether the identity carries the fields a session needs.
func (u *Identity) Valid() bool {
	return u != nil && u.ID != 0 && u.Username != ""
}

func (u *Identity) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// AvatarOrDefault falls back to the placeholder avatar path.
func (u *Identity) AvatarOrDefault() string {
	if u == nil || u.Avatar == "" {
		return DefaultAvatar
	}
	return u.Avatar
}

// Clone returns an independent copy.
func (u *Identity) Clone() *Identity {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
