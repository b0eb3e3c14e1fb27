package transport

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fastygo/blogclient/domain"
)

// failure markers looked for in plain-text payloads
var textFailureMarkers = []string{"error", "失败"}

var unknownAuthor = json.RawMessage(`{"username":"` + domain.UnknownAuthor + `"}`)

// Normalize turns a successful transport response into a Response shape, or
// into a REJECTED error when the payload itself reports a failure.
func Normalize(d *Descriptor, raw *domain.RawResponse) (*Response, error) {
	if d != nil && d.ResponseType == ResponseBinary {
		return &Response{Shape: ShapeRaw, Raw: raw}, nil
	}

	body := bytes.TrimSpace(raw.Body)
	if len(body) == 0 {
		return &Response{Shape: ShapeRaw, Raw: raw}, nil
	}

	if !json.Valid(body) {
		return normalizeText(string(body), raw)
	}

	switch body[0] {
	case 'n', 'f':
		// null or false
		return &Response{Shape: ShapeRaw, Raw: raw}, nil
	case '"':
		var text string
		if err := json.Unmarshal(body, &text); err != nil {
			return nil, domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
		}
		if text == "" {
			return &Response{Shape: ShapeRaw, Raw: raw}, nil
		}
		return normalizeText(text, raw)
	case '{':
		return normalizeObject(body, raw)
	}

	if !isSuccess(raw.StatusCode) {
		return &Response{Shape: ShapeRaw, Raw: raw}, nil
	}
	return &Response{Shape: ShapeValue, Raw: raw, Value: json.RawMessage(body)}, nil
}

func normalizeText(text string, raw *domain.RawResponse) (*Response, error) {
	for _, marker := range textFailureMarkers {
		if strings.Contains(text, marker) {
			return nil, &domain.Error{Code: domain.ErrCodeRejected, Message: text, Response: raw}
		}
	}
	return &Response{Shape: ShapeText, Raw: raw, Text: text}, nil
}

func normalizeObject(body []byte, raw *domain.RawResponse) (*Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
	}

	if truthy(fields["error"]) || stringField(fields, "code") == "ERROR" {
		message := stringField(fields, "message")
		if message == "" {
			message = "请求失败"
		}
		return nil, &domain.Error{Code: domain.ErrCodeRejected, Message: message, Response: raw}
	}

	if !isSuccess(raw.StatusCode) {
		return &Response{Shape: ShapeRaw, Raw: raw}, nil
	}

	_, hasContent := fields["content"]
	_, hasTotal := fields["totalElements"]
	if hasContent || hasTotal {
		return normalizePage(fields, raw)
	}

	if data, ok := fields["data"]; ok {
		return &Response{Shape: ShapeData, Raw: raw, Value: data}, nil
	}
	return &Response{Shape: ShapeValue, Raw: raw, Value: json.RawMessage(body)}, nil
}

// normalizePage returns the whole object, with a placeholder author on every
// content item that lacks one. Objects whose content is not a list (a single
// article has a text `content`) are returned as ShapeValue.
func normalizePage(fields map[string]json.RawMessage, raw *domain.RawResponse) (*Response, error) {
	var items []json.RawMessage
	content, hasContent := fields["content"]
	if hasContent && firstByte(content) == '[' {
		if err := json.Unmarshal(content, &items); err != nil {
			return nil, domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
		}
		for i, item := range items {
			items[i] = backfillAuthor(item)
		}
		patched, err := json.Marshal(items)
		if err != nil {
			return nil, domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
		}
		fields["content"] = patched
	}

	whole, err := json.Marshal(fields)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeResponseFormat, "响应格式错误", err)
	}

	if hasContent && firstByte(content) != '[' && !isNull(content) {
		return &Response{Shape: ShapeValue, Raw: raw, Value: whole}, nil
	}

	var page domain.Page
	if err := json.Unmarshal(whole, &page); err != nil {
		return &Response{Shape: ShapeValue, Raw: raw, Value: whole}, nil
	}
	return &Response{Shape: ShapePage, Raw: raw, Page: &page, Value: whole}, nil
}

func backfillAuthor(item json.RawMessage) json.RawMessage {
	if firstByte(item) != '{' {
		return item
	}
	var article map[string]json.RawMessage
	if err := json.Unmarshal(item, &article); err != nil {
		return item
	}
	if truthy(article["author"]) {
		return item
	}
	article["author"] = unknownAuthor
	patched, err := json.Marshal(article)
	if err != nil {
		return item
	}
	return patched
}

// truthy mirrors loose truthiness of a JSON value: absent, null, false, 0 and
// "" are false.
func truthy(v json.RawMessage) bool {
	s := strings.TrimSpace(string(v))
	switch s {
	case "", "null", "false", `""`:
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return true
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
