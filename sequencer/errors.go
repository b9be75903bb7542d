package sequencer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrRowLengthMismatch = errors.New("row length mismatch")
	ErrRowCountMismatch  = errors.New("row count mismatch")
	ErrGridShapeMismatch = errors.New("grid shape mismatch")
	ErrAlreadyRunning    = errors.New("transport already running")
	ErrNotRunning        = errors.New("transport not running")
)

// DispatchErrorKind classifies a failed trigger.
type DispatchErrorKind int

const (
	TargetUnavailable  DispatchErrorKind = iota // sound for the voice is not loaded/bound
	InvalidVoice                                // voice index outside the binding table
	BackendUnavailable                          // output port/socket closed or missing
)

func (k DispatchErrorKind) String() string {
	switch k {
	case TargetUnavailable:
		return "target unavailable"
	case InvalidVoice:
		return "invalid voice"
	case BackendUnavailable:
		return "backend unavailable"
	default:
		return "unknown"
	}
}

// DispatchError is returned by a SoundDispatcher. It is never fatal to the
// scheduler.
type DispatchError struct {
	Kind  DispatchErrorKind
	Voice int
	Err   error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dispatch voice %d: %s: %v", e.Voice, e.Kind, e.Err)
	}
	return fmt.Sprintf("dispatch voice %d: %s", e.Voice, e.Kind)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NewDispatchError builds a DispatchError, keeping a stack on the cause.
func NewDispatchError(kind DispatchErrorKind, voice int, cause error) *DispatchError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &DispatchError{Kind: kind, Voice: voice, Err: cause}
}

// IsDispatchKind reports whether err is a DispatchError of the given kind.
func IsDispatchKind(err error, kind DispatchErrorKind) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
