package types

import (
	"errors"
	"fmt"
)

// Stage kinds. Every pipeline failure wraps exactly one of these.
var (
	ErrLocate    = errors.New("locate")
	ErrFetch     = errors.New("fetch")
	ErrTranscode = errors.New("transcode")
	ErrTrim      = errors.New("trim")
	ErrMerge     = errors.New("merge")
	ErrPackage   = errors.New("package")
	ErrDelivery  = errors.New("delivery")
)

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInsufficientCandidates = errors.New("insufficient candidates")
	ErrMissingSegment         = errors.New("missing segment")
	ErrDurationCeiling        = errors.New("source exceeds duration ceiling")
)

// Error is a stage failure. Index is the 1-based item index for per-item
// stages and 0 for run-level stages.
type Error struct {
	Kind  error
	Index int
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	prefix := e.Kind.Error()
	if e.Index > 0 {
		prefix = fmt.Sprintf("%s item %d", prefix, e.Index)
	}
	if e.Err == nil {
		return prefix + " failed"
	}
	return prefix + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func LocateError(err error) error { return &Error{Kind: ErrLocate, Err: err} }

func FetchError(index int, err error) error {
	return &Error{Kind: ErrFetch, Index: index, Err: err}
}

func TranscodeError(index int, err error) error {
	return &Error{Kind: ErrTranscode, Index: index, Err: err}
}

func TrimError(index int, err error) error {
	return &Error{Kind: ErrTrim, Index: index, Err: err}
}

func MergeError(err error) error    { return &Error{Kind: ErrMerge, Err: err} }
func PackageError(err error) error  { return &Error{Kind: ErrPackage, Err: err} }
func DeliveryError(err error) error { return &Error{Kind: ErrDelivery, Err: err} }

// Stage reports the kind and item index of a pipeline error.
func Stage(err error) (kind error, index int, ok bool) {
	var se *Error
	if !errors.As(err, &se) {
		return nil, 0, false
	}
	return se.Kind, se.Index, true
}
