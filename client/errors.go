package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the conversation service.
type APIError struct {
	Status int
	// Body is the server's detail normalized to one display string.
	Body string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// Detail returns the server-reported reason, if any.
func (e *APIError) Detail() string { return e.Body }

// parseDetail extracts the "detail" field of an error body. A list of parts
// (validation errors) is joined with spaces; objects contribute their "msg".
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(envelope.Detail, &parts); err != nil {
		return ""
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		var str string
		if err := json.Unmarshal(p, &str); err == nil {
			out = append(out, str)
			continue
		}
		var obj struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(p, &obj); err == nil && obj.Msg != "" {
			out = append(out, obj.Msg)
		}
	}
	return strings.Join(out, " ")
}
