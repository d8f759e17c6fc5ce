// Package codec serializes decoded table snapshots for storage in a
// provider.Provider. A snapshot is the []T a tablecodec.Table returned,
// so V is usually a slice type.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
