package codec

import (
	"errors"
	"strings"
)

// Lines stores a []string snapshot as newline-joined text. It fits tables
// read with an identity decoder, where each record is one raw line.
// Records must not contain '\n'; lines produced by tablecodec never do.
type Lines struct{}

var _ Codec[[]string] = Lines{}

var errLineBreak = errors.New("codec: line contains a newline")

// Encode prefixes a marker byte so an empty table and a table holding
// one empty line stay distinct.
func (Lines) Encode(v []string) ([]byte, error) {
	var b strings.Builder
	b.WriteByte('L')
	for i, s := range v {
		if strings.IndexByte(s, '\n') >= 0 {
			return nil, errLineBreak
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}
	if len(v) == 0 {
		return []byte{'E'}, nil
	}
	return []byte(b.String()), nil
}

func (Lines) Decode(b []byte) ([]string, error) {
	if len(b) == 0 {
		return nil, errors.New("codec: empty lines payload")
	}
	switch b[0] {
	case 'E':
		return []string{}, nil
	case 'L':
		return strings.Split(string(b[1:]), "\n"), nil
	default:
		return nil, errors.New("codec: bad lines marker")
	}
}
