package transport

import (
	"net/http"
	"net/url"
	"strings"
)

// ResponseType selects how the inbound payload is treated.
type ResponseType int

const (
	// ResponseJSON payloads are normalized into a Response shape.
	ResponseJSON ResponseType = iota
	// ResponseBinary payloads are returned untouched as ShapeRaw.
	ResponseBinary
)

// File is one part of a multipart upload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Request is what API modules hand to the pipeline.
type Request struct {
	Method       string
	URL          string
	Headers      map[string]string
	Params       url.Values
	Body         any
	Files        []File
	ResponseType ResponseType
}

// Descriptor is the fully prepared outbound request, one per call.
type Descriptor struct {
	Method          string
	BaseURL         string
	Path            string
	Params          url.Values
	Headers         Header
	Body            any
	Files           []File
	ResponseType    ResponseType
	WithCredentials bool
}

// FullURL joins base URL, path and query parameters.
func (d *Descriptor) FullURL() string {
	full := d.BaseURL + d.Path
	if len(d.Params) == 0 {
		return full
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + d.Params.Encode()
}

// Header is a canonical-key header set.
type Header map[string]string

func (h Header) Set(key, value string) {
	h[http.CanonicalHeaderKey(key)] = value
}

func (h Header) Get(key string) string {
	return h[http.CanonicalHeaderKey(key)]
}

func (h Header) Has(key string) bool {
	_, ok := h[http.CanonicalHeaderKey(key)]
	return ok
}

func (h Header) Del(key string) {
	delete(h, http.CanonicalHeaderKey(key))
}
