package tablecodec

// Hooks are lightweight callbacks for read/write events.
// Implementations MUST be cheap and non-blocking; wrap slow ones with hooks/async.
type Hooks interface {
	// The effective delimiter for a read was chosen.
	// Explicit delimiters are reported with ConfidenceExplicit.
	DelimiterSniffed(path string, d Detection)

	// A read failed. records is how many records were returned alongside the error.
	ReadFailed(path string, kind Kind, records int, err error)

	// A write failed. written is how many records reached the file before the failure.
	WriteFailed(path string, kind Kind, written int, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) DelimiterSniffed(string, Detection)    {}
func (NopHooks) ReadFailed(string, Kind, int, error)  {}
func (NopHooks) WriteFailed(string, Kind, int, error) {}
