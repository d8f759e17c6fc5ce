package codec

import "encoding/json"

// JSON encodes snapshots with encoding/json. Record types need exported
// fields (or json tags) to survive the round trip.
type JSON[V any] struct{}

var _ Codec[[]struct{}] = JSON[[]struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
