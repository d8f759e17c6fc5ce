package tablecodec

import (
	"context"
	"errors"
	"os"

	"golang.org/x/text/encoding"
)

// DecodeFunc maps the fields of one line to a record. It is called with
// whatever the split produced: no field count or content validation happens.
type DecodeFunc[T any] func(fields []string) T

// EncodeFunc maps one record to the fields of one output line.
type EncodeFunc[T any] func(record T) []string

// Table reads and writes delimited text files of records T.
// Implementations hold no per-call state and are safe for concurrent use;
// concurrent calls on the same path are not coordinated.
type Table[T any] interface {
	// Read returns the records of path in line order. On failure it returns
	// the records accumulated so far (possibly none) and an *Error.
	Read(ctx context.Context, path string) ([]T, error)
	// Write creates or truncates path and writes one line per record.
	Write(ctx context.Context, path string, records []T) error
}

// Options configure a Table. Decode or Encode is required; the rest have defaults.
type Options[T any] struct {
	Decode DecodeFunc[T] // needed by Read
	Encode EncodeFunc[T] // needed by Write

	// Delimiter splits and joins fields. On Read, 0 => sniff from the first
	// line. On Write, 0 => ';' regardless of what was read.
	Delimiter rune

	NoHeader bool     // default false => Read discards the first line unconditionally
	Header   []string // written as the first line when non-nil; Write emits no header otherwise

	Encoding    encoding.Encoding // nil => UTF-8 (BOM stripped on read, none written)
	UseCRLF     bool              // default false => lines end with "\n"
	FileMode    os.FileMode       // 0 => 0644
	MaxLineSize int               // 0 => 16MiB; longer lines fail the read
	Sniffer     Sniffer           // nil => Sniff

	Logger Logger // if nil, messages go to slog.Default(); NopLogger silences them
	Hooks  Hooks  // if nil, NopHooks is used
}

func New[T any](opts Options[T]) (Table[T], error) {
	return newTable[T](opts)
}

// ReadFile reads path with a default Table. delimiter 0 means sniff.
func ReadFile[T any](path string, decode DecodeFunc[T], delimiter rune) ([]T, error) {
	t, err := newTable[T](Options[T]{Decode: decode, Delimiter: delimiter})
	if err != nil {
		return []T{}, err
	}
	return t.Read(context.Background(), path)
}

// WriteFile writes records to path with a default Table. delimiter 0 means ';'.
func WriteFile[T any](path string, records []T, encode EncodeFunc[T], delimiter rune) error {
	t, err := newTable[T](Options[T]{Encode: encode, Delimiter: delimiter})
	if err != nil {
		return err
	}
	return t.Write(context.Background(), path, records)
}

var (
	errBadDelimiter = errors.New("tablecodec: delimiter must not be a line terminator or U+FFFD")
	errBadMaxLine   = errors.New("tablecodec: MaxLineSize must not be negative")
)
