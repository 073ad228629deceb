package appointments

import (
	"errors"
	"strings"

	"github.com/Deathstroke97/idoc/internal/directory"
)

// FallbackMessage is shown when a failure carries no description of its own.
const FallbackMessage = "Something went wrong."

// ErrorKind mirrors directory.Kind, plus unknown for errors that did not come
// from the directory client.
type ErrorKind string

const (
	ErrorTransport ErrorKind = "transport"
	ErrorStatus    ErrorKind = "status"
	ErrorDecode    ErrorKind = "decode"
	ErrorUnknown   ErrorKind = "unknown"
)

// ViewError is the single user-facing failure held in State.
type ViewError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ViewError) Error() string { return e.Message }

// ReloadError is returned by Cancel when the backend accepted the cancel but
// the refresh that follows it failed.
type ReloadError struct {
	ID  int64
	Err *ViewError
}

func (e *ReloadError) Error() string { return e.Err.Message }

func (e *ReloadError) Unwrap() error { return e.Err }

func newViewError(err error) *ViewError {
	ve := &ViewError{Kind: ErrorUnknown, Message: FallbackMessage}
	if err == nil {
		return ve
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		ve.Message = msg
	}
	var de *directory.Error
	if errors.As(err, &de) {
		switch de.Kind {
		case directory.KindTransport:
			ve.Kind = ErrorTransport
		case directory.KindStatus:
			ve.Kind = ErrorStatus
		case directory.KindDecode:
			ve.Kind = ErrorDecode
		}
	}
	return ve
}

// State is an immutable snapshot of the view. The controller never edits a
// published State; it builds a new one and swaps it in.
//
// Version increases each time the three collections are replaced and is the
// key the derived Index is memoized on.
type State struct {
	PhoneFilter  string                  `json:"phone_filter"`
	Loading      bool                    `json:"loading"`
	Err          *ViewError              `json:"error,omitempty"`
	Appointments []directory.Appointment `json:"appointments"`
	Clinics      []directory.Clinic      `json:"clinics"`
	Doctors      []directory.Doctor      `json:"doctors"`
	Version      uint64                  `json:"version"`
}

// Empty reports whether there is nothing to list.
func (s State) Empty() bool {
	return len(s.Appointments) == 0
}
