package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a render failure for clients and logs.
type Kind string

const (
	KindResourceMissing     Kind = "ResourceMissing"
	KindEngineLaunchFailure Kind = "EngineLaunchFailure"
	KindReadinessTimeout    Kind = "ReadinessTimeout"
	KindCaptureFailure      Kind = "CaptureFailure"
)

// Kinds lists every failure kind.
var Kinds = []Kind{KindResourceMissing, KindEngineLaunchFailure, KindReadinessTimeout, KindCaptureFailure}

var (
	// ErrResourceMissing signals that a required local file (the font) is absent or unusable.
	ErrResourceMissing = errors.New("required resource missing")
	// ErrEngineLaunchFailure signals that the browser process could not be started.
	ErrEngineLaunchFailure = errors.New("rendering engine failed to launch")
	// ErrReadinessTimeout signals that fonts/images never reported ready in time.
	ErrReadinessTimeout = errors.New("visual dependencies not ready before timeout")
	// ErrCaptureFailure covers every other failure while loading or printing the page.
	ErrCaptureFailure = errors.New("page capture failed")
)

var sentinels = map[Kind]error{
	KindResourceMissing:     ErrResourceMissing,
	KindEngineLaunchFailure: ErrEngineLaunchFailure,
	KindReadinessTimeout:    ErrReadinessTimeout,
	KindCaptureFailure:      ErrCaptureFailure,
}

// Error is a classified render failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError wraps err with a kind and the operation that failed.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, sentinels[e.Kind])
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel error of the same kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of err. Unclassified errors are capture failures.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for kind, s := range sentinels {
		if errors.Is(err, s) {
			return kind
		}
	}
	return KindCaptureFailure
}
