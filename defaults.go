package tablecodec

import "os"

const (
	defaultWriteDelimiter = ';'
	defaultFileMode       = os.FileMode(0o644)
	defaultMaxLine        = 16 << 20

	// ContextCheckInterval is how often (in lines) Read and Write poll ctx.
	ContextCheckInterval = 100
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
