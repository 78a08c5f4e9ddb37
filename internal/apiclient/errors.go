package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is any non-2xx response from the API.
type APIError struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status=%d", e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a response.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func isUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// messageFrom extracts a readable message from the API's error bodies:
// {"message": ...}, {"detail": ...} or DRF field errors {"field": ["..."]}.
func messageFrom(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}

	for _, key := range []string{"message", "detail"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}

	return FieldMessages(obj)
}

// FieldMessages renders DRF-style field errors as "field: msg, msg" lines.
func FieldMessages(obj map[string]any) string {
	fields := make([]string, 0, len(obj))
	for k := range obj {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var lines []string
	for _, field := range fields {
		switch v := obj[field].(type) {
		case string:
			lines = append(lines, field+": "+v)
		case []any:
			msgs := make([]string, 0, len(v))
			for _, m := range v {
				msgs = append(msgs, fmt.Sprint(m))
			}
			lines = append(lines, field+": "+strings.Join(msgs, ", "))
		}
	}
	return strings.Join(lines, "\n")
}
