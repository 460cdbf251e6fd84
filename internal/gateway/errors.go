package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTransport matches any APIError where no response reached the client.
var ErrTransport = errors.New("transport-error")

// APIError is the single failure type surfaced by Client.Do.
type APIError struct {
	// Status is the HTTP status, 0 for transport failures.
	Status    int
	Message   string
	Transport bool
	RequestID string
	Err       error
}

func (e *APIError) Error() string {
	if e.Transport {
		return e.Message
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTransport) classify transport failures.
func (e *APIError) Is(target error) bool {
	return target == ErrTransport && e.Transport
}

// StatusOf returns the HTTP status carried by err, 0 when none.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports a rejected or missing credential.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsForbidden reports a valid credential without the admin role.
func IsForbidden(err error) bool {
	return StatusOf(err) == http.StatusForbidden
}

// IsNotFound reports a missing resource.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsTransport reports a failure where no response arrived.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

func transportError(requestID string, cause error) *APIError {
	return &APIError{
		Message:   "transport-error: " + cause.Error(),
		Transport: true,
		RequestID: requestID,
		Err:       cause,
	}
}

// protocolError builds an APIError from a non-2xx body. The message prefers
// the backend's detail field, then error/message, then the body text, then
// the status text.
func protocolError(status int, requestID string, body []byte) *APIError {
	return &APIError{
		Status:    status,
		Message:   errorMessage(status, body),
		RequestID: requestID,
	}
}

func errorMessage(status int, body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			raw, ok := payload[key]
			if !ok {
				continue
			}
			if msg := describe(raw); msg != "" {
				return msg
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return fmt.Sprintf("unexpected status %d", status)
}

// describe flattens a detail value: a plain string, or a list of validation
// issues of the form {"loc":[...],"msg":"..."}.
func describe(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var issues []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &issues); err == nil && len(issues) > 0 {
		parts := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg == "" {
				continue
			}
			if field := locField(issue.Loc); field != "" {
				parts = append(parts, field+": "+issue.Msg)
			} else {
				parts = append(parts, issue.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if msg, ok := obj["message"].(string); ok {
			return msg
		}
	}
	return ""
}

func locField(loc []any) string {
	parts := make([]string, 0, len(loc))
	for _, item := range loc {
		switch v := item.(type) {
		case string:
			if v == "body" || v == "query" || v == "path" {
				continue
			}
			parts = append(parts, v)
		case float64:
			parts = append(parts, fmt.Sprintf("%.0f", v))
		}
	}
	return strings.Join(parts, ".")
}
