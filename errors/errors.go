package errors

import (
	"errors"
	"fmt"
)

// Status mirrors the codec library's status vocabulary.  The numeric values
// are stable so results can be compared against the library's own codes.
type Status int

const (
	StatusOK Status = iota
	StatusOutOfMemory
	StatusInvalidParam
	StatusBitstreamError
	StatusUnsupportedFeature
	StatusSuspended
	StatusUserAbort
	StatusNotEnoughData
)

var statusNames = [...]string{
	StatusOK:                 "ok",
	StatusOutOfMemory:        "out_of_memory",
	StatusInvalidParam:       "invalid_param",
	StatusBitstreamError:     "bitstream_error",
	StatusUnsupportedFeature: "unsupported_feature",
	StatusSuspended:          "suspended",
	StatusUserAbort:          "user_abort",
	StatusNotEnoughData:      "not_enough_data",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Kind folds a Status into the four error kinds callers branch on.
type Kind string

const (
	KindOK               Kind = "ok"
	KindInvalidParameter Kind = "invalid_parameter"
	KindOutOfMemory      Kind = "out_of_memory"
	KindCodec            Kind = "codec"
)

// Kind reports the error kind of s.
func (s Status) Kind() Kind {
	switch s {
	case StatusOK:
		return KindOK
	case StatusOutOfMemory:
		return KindOutOfMemory
	case StatusInvalidParam:
		return KindInvalidParameter
	default:
		return KindCodec
	}
}

// BridgeError is the structured error type used throughout the module.
type BridgeError struct {
	Status Status
	Op     string // operation name
	Err    error
}

func (e *BridgeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Status, e.Op)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Status, e.Op, e.Err)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// New creates a BridgeError carrying status.
func New(status Status, op string, err error) *BridgeError {
	if err == nil {
		err = sentinelFor(status)
	}
	return &BridgeError{Status: status, Op: op, Err: err}
}

// Wrap wraps an existing error with an operation name.  A status already
// carried by err is kept, so a codec failure is never downgraded; other
// errors are reported with the fallback status.
func Wrap(fallback Status, op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BridgeError
	if errors.As(err, &be) {
		return &BridgeError{Status: be.Status, Op: op, Err: err}
	}
	return New(fallback, op, err)
}

// StatusOf returns the most specific status carried by err.  A nil error is
// StatusOK; an error without a status is reported as a bitstream error.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Status
	}
	return StatusBitstreamError
}

// KindOf is shorthand for StatusOf(err).Kind().
func KindOf(err error) Kind { return StatusOf(err).Kind() }

// IsKind reports whether err belongs to the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func sentinelFor(s Status) error {
	switch s {
	case StatusOutOfMemory:
		return ErrOutOfMemory
	case StatusInvalidParam:
		return ErrInvalidParam
	case StatusBitstreamError:
		return ErrBitstream
	case StatusUnsupportedFeature:
		return ErrUnsupported
	case StatusNotEnoughData:
		return ErrNotEnoughData
	}
	return nil
}

// Sentinel errors for common failure modes.
var (
	ErrInvalidParam   = errors.New("invalid parameter")
	ErrOutOfMemory    = errors.New("out of memory")
	ErrBitstream      = errors.New("bitstream error")
	ErrUnsupported    = errors.New("unsupported feature")
	ErrNotEnoughData  = errors.New("not enough data")
	ErrEncodeFailed   = errors.New("encode failed")
	ErrEmptyInput     = errors.New("empty input")
	ErrUnknownHandle  = errors.New("unknown options handle")
	ErrWorkerPoolFull = errors.New("worker pool queue full")
)
