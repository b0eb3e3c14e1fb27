package transport

import (
	"encoding/json"
	"fmt"

	"github.com/fastygo/blogclient/domain"
)

// Shape tags the variant held by a Response.
type Shape int

const (
	// ShapeRaw is the untouched transport response (binary, empty or non-2xx
	// non-error statuses).
	ShapeRaw Shape = iota
	// ShapeText is a plain string payload.
	ShapeText
	// ShapePage is a paginated envelope with authors backfilled.
	ShapePage
	// ShapeData is the unwrapped `data` field of an object payload.
	ShapeData
	// ShapeValue is any other JSON payload returned whole.
	ShapeValue
)

func (s Shape) String() string {
	switch s {
	case ShapeRaw:
		return "raw"
	case ShapeText:
		return "text"
	case ShapePage:
		return "page"
	case ShapeData:
		return "data"
	case ShapeValue:
		return "value"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Response is the normalized result of a call. Raw is always set; exactly one
// of Text, Page or Value carries the payload for the other shapes.
type Response struct {
	Shape Shape
	Raw   *domain.RawResponse
	Text  string
	Page  *domain.Page
	Value json.RawMessage
}

// Decode unmarshals the payload into v. Text decodes into *string; Raw
// decodes its body when it holds JSON.
func (r *Response) Decode(v any) error {
	if r == nil {
		return domain.NewError(domain.ErrCodeResponseFormat, "响应为空")
	}
	var payload []byte
	switch r.Shape {
	case ShapeData, ShapeValue:
		payload = r.Value
	case ShapePage:
		payload = r.Value
		if len(payload) == 0 {
			b, err := json.Marshal(r.Page)
			if err != nil {
				return domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
			}
			payload = b
		}
	case ShapeText:
		if s, ok := v.(*string); ok {
			*s = r.Text
			return nil
		}
		payload = []byte(r.Text)
	case ShapeRaw:
		if r.Raw != nil {
			payload = r.Raw.Body
		}
	}
	if len(payload) == 0 {
		return domain.NewError(domain.ErrCodeResponseFormat, "响应内容为空")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
	}
	return nil
}

// IsObject reports whether the payload is a JSON object.
func (r *Response) IsObject() bool {
	if r == nil {
		return false
	}
	switch r.Shape {
	case ShapePage:
		return true
	case ShapeData, ShapeValue:
		return firstByte(r.Value) == '{'
	default:
		return false
	}
}

func firstByte(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return c
	}
	return 0
}
