package tablecodec

import (
	"errors"
	"fmt"
)

// Kind classifies a failed Read or Write.
type Kind uint8

const (
	KindMissingFile Kind = iota + 1
	KindIOFailure
	KindMapFailure
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindMissingFile:
		return "missing_file"
	case KindIOFailure:
		return "io_failure"
	case KindMapFailure:
		return "map_failure"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per Kind. Use errors.Is.
var (
	ErrMissingFile = errors.New("tablecodec: file not found")
	ErrIO          = errors.New("tablecodec: i/o failure")
	ErrMapFailure  = errors.New("tablecodec: mapping function failed")
	ErrCanceled    = errors.New("tablecodec: canceled")

	ErrNoDecoder = errors.New("tablecodec: decode function is required for Read")
	ErrNoEncoder = errors.New("tablecodec: encode function is required for Write")

	errIsDirectory = errors.New("is a directory")
)

func (k Kind) sentinel() error {
	switch k {
	case KindMissingFile:
		return ErrMissingFile
	case KindIOFailure:
		return ErrIO
	case KindMapFailure:
		return ErrMapFailure
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// Error is returned by Read and Write. Records is the number of records
// produced (read) or written (write) before the failure.
type Error struct {
	Op      string // "read" or "write"
	Path    string
	Kind    Kind
	Records int
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingFile:
		return fmt.Sprintf("tablecodec: csv file not found at %s", e.Path)
	case KindMapFailure:
		return fmt.Sprintf("tablecodec: %s %s: mapping failed after %d records: %v", e.Op, e.Path, e.Records, e.Err)
	default:
		return fmt.Sprintf("tablecodec: %s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
}

// Unwrap exposes both the Kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the Kind carried by err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
