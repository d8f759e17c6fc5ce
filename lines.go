package tablecodec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// defaultEncoding strips a leading BOM and replaces invalid UTF-8 with U+FFFD.
var defaultEncoding encoding.Encoding = unicode.UTF8BOM

// readLines decodes r and returns every line without its terminator.
// "\n", "\r\n" and a lone "\r" all end a line; a trailing terminator
// does not produce an extra empty line.
func readLines(r io.Reader, enc encoding.Encoding, maxLine int) ([]string, error) {
	if enc == nil {
		enc = defaultEncoding
	}
	dec := transform.NewReader(r, enc.NewDecoder())

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	sc.Split(scanLines)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	return lines, nil
}

// scanLines is bufio.ScanLines extended with lone-CR terminators.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// '\r': need one more byte to tell CR from CRLF.
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// lineWriter joins fields and terminates lines on top of a buffered,
// optionally transcoding, destination.
type lineWriter struct {
	buf   *bufio.Writer
	tr    io.WriteCloser // nil when no encoder is configured
	delim string
	eol   string
}

func newLineWriter(w io.Writer, enc encoding.Encoding, delim rune, crlf bool) *lineWriter {
	lw := &lineWriter{delim: string(delim), eol: "\n"}
	if crlf {
		lw.eol = "\r\n"
	}
	if enc != nil {
		lw.tr = transform.NewWriter(w, enc.NewEncoder())
		w = lw.tr
	}
	lw.buf = bufio.NewWriterSize(w, 64*1024)
	return lw
}

func (lw *lineWriter) writeFields(fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := lw.buf.WriteString(lw.delim); err != nil {
				return err
			}
		}
		if _, err := lw.buf.WriteString(f); err != nil {
			return err
		}
	}
	_, err := lw.buf.WriteString(lw.eol)
	return err
}

// flush pushes buffered bytes through the encoder to the destination.
func (lw *lineWriter) flush() error {
	if err := lw.buf.Flush(); err != nil {
		return err
	}
	if lw.tr != nil {
		return lw.tr.Close()
	}
	return nil
}
