package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack is a Codec that serializes snapshots using vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Use `msgpack:"fieldName"` tags if the record's field names must not change
// the stored form.
type Msgpack[V any] struct{}

var _ Codec[[]struct{}] = Msgpack[[]struct{}]{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}
func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
