package tablecodec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
)

type table[T any] struct {
	decode   DecodeFunc[T]
	encode   EncodeFunc[T]
	delim    rune
	noHeader bool
	header   []string
	enc      encoding.Encoding
	crlf     bool
	mode     os.FileMode
	maxLine  int
	sniff    Sniffer
	log      Logger
	hooks    Hooks
}

var _ Table[struct{}] = (*table[struct{}])(nil)

func newTable[T any](opts Options[T]) (*table[T], error) {
	if opts.Decode == nil && opts.Encode == nil {
		return nil, fmt.Errorf("tablecodec: decode or encode function is required")
	}
	switch opts.Delimiter {
	case '\r', '\n', utf8.RuneError:
		return nil, errBadDelimiter
	}
	if opts.MaxLineSize < 0 {
		return nil, errBadMaxLine
	}

	t := &table[T]{
		decode:   opts.Decode,
		encode:   opts.Encode,
		delim:    opts.Delimiter,
		noHeader: opts.NoHeader,
		header:   opts.Header,
		enc:      opts.Encoding,
		crlf:     opts.UseCRLF,
	}

	// defaults
	t.mode = coalesce[os.FileMode](opts.FileMode, defaultFileMode)
	t.maxLine = coalesce[int](opts.MaxLineSize, defaultMaxLine)
	t.log = coalesce[Logger](opts.Logger, defaultLogger{})
	t.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.Sniffer != nil {
		t.sniff = opts.Sniffer
	} else {
		t.sniff = Sniff
	}
	return t, nil
}

func (t *table[T]) Read(ctx context.Context, path string) (records []T, err error) {
	records = make([]T, 0)
	if t.decode == nil {
		return records, ErrNoDecoder
	}
	if cerr := ctx.Err(); cerr != nil {
		return records, t.readFailed(path, KindCanceled, 0, cerr)
	}

	f, oerr := os.Open(path)
	if oerr != nil {
		if errors.Is(oerr, fs.ErrNotExist) {
			return records, t.readFailed(path, KindMissingFile, 0, oerr)
		}
		return records, t.readFailed(path, KindIOFailure, 0, oerr)
	}
	// a directory is reported like an absent file
	if fi, serr := f.Stat(); serr == nil && fi.IsDir() {
		_ = f.Close()
		return records, t.readFailed(path, KindMissingFile, 0, &fs.PathError{Op: "open", Path: path, Err: errIsDirectory})
	}
	lines, rerr := readLines(f, t.enc, t.maxLine)
	_ = f.Close()
	if rerr != nil {
		return records, t.readFailed(path, KindIOFailure, 0, rerr)
	}

	det := t.delimiterFor(lines)
	t.hooks.DelimiterSniffed(path, det)
	t.log.Debug("delimiter selected", Fields{
		"path":       path,
		"delimiter":  string(det.Delimiter),
		"confidence": det.Confidence.String(),
	})

	body := lines
	if !t.noHeader && len(body) > 0 {
		body = body[1:] // header, whatever it holds
	}

	defer func() {
		if r := recover(); r != nil {
			err = t.readFailed(path, KindMapFailure, len(records), fmt.Errorf("decode panic on line %d: %v", len(records)+1, r))
		}
	}()

	sep := string(det.Delimiter)
	for i, line := range body {
		if i > 0 && i%ContextCheckInterval == 0 {
			if cerr := ctx.Err(); cerr != nil {
				return records, t.readFailed(path, KindCanceled, len(records), cerr)
			}
		}
		records = append(records, t.decode(strings.Split(line, sep)))
	}
	return records, nil
}

func (t *table[T]) Write(ctx context.Context, path string, records []T) (err error) {
	if t.encode == nil {
		return ErrNoEncoder
	}
	if cerr := ctx.Err(); cerr != nil {
		return t.writeFailed(path, KindCanceled, 0, cerr)
	}

	f, oerr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, t.mode)
	if oerr != nil {
		return t.writeFailed(path, KindIOFailure, 0, oerr)
	}
	lw := newLineWriter(f, t.enc, coalesce[rune](t.delim, defaultWriteDelimiter), t.crlf)

	var (
		written int
		kind    Kind
		cause   error
	)
	defer func() {
		if r := recover(); r != nil {
			kind, cause = KindMapFailure, fmt.Errorf("encode panic on record %d: %v", written+1, r)
		}
		// flush and close on every path; a partial file keeps what was buffered
		if ferr := lw.flush(); ferr != nil && cause == nil {
			kind, cause = KindIOFailure, ferr
		}
		if cerr := f.Close(); cerr != nil && cause == nil {
			kind, cause = KindIOFailure, cerr
		}
		if cause != nil {
			err = t.writeFailed(path, kind, written, cause)
		}
	}()

	if t.header != nil {
		if werr := lw.writeFields(t.header); werr != nil {
			kind, cause = KindIOFailure, werr
			return nil
		}
	}
	for i, rec := range records {
		if i > 0 && i%ContextCheckInterval == 0 {
			if cerr := ctx.Err(); cerr != nil {
				kind, cause = KindCanceled, cerr
				return nil
			}
		}
		if werr := lw.writeFields(t.encode(rec)); werr != nil {
			kind, cause = KindIOFailure, werr
			return nil
		}
		written++
	}
	return nil
}

func (t *table[T]) delimiterFor(lines []string) Detection {
	if t.delim != 0 {
		return Detection{Delimiter: t.delim, Confidence: ConfidenceExplicit}
	}
	return t.sniff(lines)
}

func (t *table[T]) readFailed(path string, kind Kind, n int, cause error) error {
	e := &Error{Op: "read", Path: path, Kind: kind, Records: n, Err: cause}
	if kind == KindMissingFile {
		if abs, err := filepath.Abs(path); err == nil {
			e.Path = abs
		}
		t.log.Error("csv file not found", Fields{"path": e.Path})
	} else {
		t.log.Error("error reading csv file", Fields{
			"path":    path,
			"kind":    kind.String(),
			"records": n,
			"err":     cause,
		})
	}
	t.hooks.ReadFailed(path, kind, n, e)
	return e
}

func (t *table[T]) writeFailed(path string, kind Kind, n int, cause error) error {
	e := &Error{Op: "write", Path: path, Kind: kind, Records: n, Err: cause}
	t.log.Error("error writing to csv file", Fields{
		"path":    path,
		"kind":    kind.String(),
		"records": n,
		"err":     cause,
	})
	t.hooks.WriteFailed(path, kind, n, e)
	return e
}
