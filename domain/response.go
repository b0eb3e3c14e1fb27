package domain

import "strings"

// RawResponse is the transport-level response as received from the server.
type RawResponse struct {
	StatusCode int               `json:"status"`
	Header     map[string]string `json:"header,omitempty"`
	Body       []byte            `json:"-"`
}

// HeaderValue performs a case-insensitive header lookup.
func (r *RawResponse) HeaderValue(name string) string {
	if r == nil {
		return ""
	}
	if v, ok := r.Header[name]; ok {
		return v
	}
	for k, v := range r.Header {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
