package transport

import (
	"net/http"
	"strings"
)

const (
	mimeJSON = "application/json"
	mimeAny  = "*/*"
)

// defaultHeaders are applied to every request before caller headers.
var defaultHeaders = map[string]string{
	"Content-Type":     mimeJSON,
	"Accept":           mimeJSON,
	"X-Requested-With": "XMLHttpRequest",
}

// publicEndpoints never carry the bearer credential.
var publicEndpoints = []string{"/auth/login", "/auth/register"}

// HeaderPolicy rewrites the headers of requests in one endpoint category.
type HeaderPolicy struct {
	Name  string
	Match func(d *Descriptor) bool
	Apply func(d *Descriptor)
}

// DefaultPolicies is ordered from the most specific category to the least;
// the first matching policy is the only one applied.
var DefaultPolicies = []HeaderPolicy{
	{
		Name:  "upload",
		Match: pathContains("/upload/"),
		Apply: func(d *Descriptor) {
			d.Headers.Del("Content-Type")
			d.Headers.Set("Accept", mimeAny)
		},
	},
	{
		Name:  "captcha",
		Match: pathContains("/auth/captcha"),
		Apply: func(d *Descriptor) {
			d.Headers.Set("Accept", "image/*")
			d.Headers.Set("Cache-Control", "no-cache")
			d.Headers.Set("Pragma", "no-cache")
			if d.ResponseType == ResponseBinary {
				d.Headers.Del("Content-Type")
			}
		},
	},
	{
		Name: "json-body",
		Match: func(d *Descriptor) bool {
			return d.Method == http.MethodPost || d.Method == http.MethodPut
		},
		Apply: func(d *Descriptor) {
			d.Headers.Set("Content-Type", mimeJSON)
		},
	},
}

// resolvePolicy returns the first policy matching the descriptor.
func resolvePolicy(policies []HeaderPolicy, d *Descriptor) (HeaderPolicy, bool) {
	for _, p := range policies {
		if p.Match != nil && p.Match(d) {
			return p, true
		}
	}
	return HeaderPolicy{}, false
}

func pathContains(fragment string) func(d *Descriptor) bool {
	return func(d *Descriptor) bool {
		return strings.Contains(d.Path, fragment)
	}
}

func isPublicEndpoint(path string) bool {
	for _, p := range publicEndpoints {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
