package domain

// Storage keys used by every durable client storage backend.
const (
	StorageKeyUser  = "user"
	StorageKeyToken = "token"
)

// Session is a point-in-time view of the client-held authentication state.
type Session struct {
	User        *Identity `json:"user,omitempty"`
	Token       string    `json:"-"`
	Initialized bool      `json:"initialized"`
}

// HasToken reports whether a credential is held, regardless of its expiry.
func (s Session) HasToken() bool {
	return s.Token != ""
}
