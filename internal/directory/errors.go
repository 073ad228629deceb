package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies where a failed call broke down.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindDecode    Kind = "decode"
)

// Error is returned by every Client operation. Error() yields only the
// human-readable message so it can be shown to a user as-is.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err, or "" if err did not come from a Client.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func transportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: err.Error(), Err: err}
}

func decodeError(op string, err error) *Error {
	return &Error{
		Kind:    KindDecode,
		Op:      op,
		Message: fmt.Sprintf("%s: malformed response: %v", op, err),
		Err:     err,
	}
}

// statusError builds a KindStatus error. When the body is a {"detail": "..."}
// document the detail becomes the message; validation errors carry a list
// under detail and fall back to the generic text.
func statusError(op string, code int, body []byte) *Error {
	msg := fmt.Sprintf("%s: unexpected status %d", op, code)
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
			msg = detail
		}
	}
	return &Error{Kind: KindStatus, Op: op, StatusCode: code, Message: msg}
}
