package codec

import (
	"errors"
	"fmt"
)

// ErrTooLarge is returned by Limit when a stored snapshot exceeds MaxDecode.
var ErrTooLarge = errors.New("codec: snapshot too large")

// Limit wraps another codec and refuses to decode snapshots larger than
// MaxDecode bytes. Encode is forwarded unchanged.
// If MaxDecode <= 0, size limiting is disabled.
//
// Useful when the provider is shared (redis) and a huge table would
// otherwise be pulled into memory on every hit.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
