// Package wire frames a cached table snapshot with the metadata needed to
// decide whether it is still valid.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version      byte = 1
	kindSnapshot byte = 1
	headerLen         = 4 + 1 + 1 + 8 + 8 + 8 + 4
)

var (
	ErrCorrupt = errors.New("tablecache: corrupt snapshot entry")
	magic4     = [...]byte{'T', 'B', 'L', 'C'}
)

// Entry is one cached table.
// Size and ModUnixNano are the source file's stat at the time it was read.
type Entry struct {
	Gen         uint64
	Size        int64
	ModUnixNano int64
	Payload     []byte
}

// Encode lays out:
//
//	magic(4) | ver(1) | kind(1) | gen(u64 be) | size(u64 be) | mtime(u64 be) | plen(u32 be) | payload(plen)
func Encode(e Entry) []byte {
	var buf bytes.Buffer
	buf.Grow(headerLen + len(e.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindSnapshot)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], e.Gen)
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(e.Size))
	buf.Write(u8[:])
	binary.BigEndian.PutUint64(u8[:], uint64(e.ModUnixNano))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])

	buf.Write(e.Payload)
	return buf.Bytes()
}

// Decode validates the frame. The returned Payload aliases b.
func Decode(b []byte) (Entry, error) {
	if len(b) < headerLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version || b[5] != kindSnapshot {
		return Entry{}, ErrCorrupt
	}

	off := 6
	var e Entry
	e.Gen = binary.BigEndian.Uint64(b[off:])
	off += 8
	e.Size = int64(binary.BigEndian.Uint64(b[off:]))
	off += 8
	e.ModUnixNano = int64(binary.BigEndian.Uint64(b[off:]))
	off += 8

	plen := int(binary.BigEndian.Uint32(b[off:]))
	off += 4
	if plen != len(b)-off {
		return Entry{}, ErrCorrupt
	}
	e.Payload = b[off:]
	return e, nil
}
