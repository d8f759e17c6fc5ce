// Package sloghooks reports tablecodec hook events through log/slog.
package sloghooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/tablecodec"
)

type Options struct {
	// Sampling for delimiter events to avoid floods; 0/1 = log all.
	SniffEvery uint64
	// Optional path redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
	// Log raw paths instead of redacting them.
	PlainPaths bool
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	sniffCtr atomic.Uint64
}

var _ tablecodec.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(p string) string {
	if h.opts.PlainPaths {
		return p
	}
	if h.opts.Redact != nil {
		return h.opts.Redact(p)
	}
	sum := sha256.Sum256([]byte(p))
	return hex.EncodeToString(sum[:8])
}

// cause returns err with every path-bearing layer removed, unless paths
// are logged in plain text anyway.
func (h *Hooks) cause(err error) any {
	if err == nil {
		return nil
	}
	if h.opts.PlainPaths {
		return err
	}
	var te *tablecodec.Error
	if errors.As(err, &te) {
		if te.Err == nil {
			return te.Kind.String()
		}
		err = te.Err
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return err.Error()
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) DelimiterSniffed(path string, d tablecodec.Detection) {
	if h.l == nil || !sample(h.opts.SniffEvery, &h.sniffCtr) {
		return
	}
	lvl := slog.LevelDebug
	if d.Confidence == tablecodec.ConfidenceGuess || d.Confidence == tablecodec.ConfidenceAmbiguous {
		lvl = slog.LevelInfo
	}
	h.l.Log(context.Background(), lvl, "tablecodec.delimiter_sniffed",
		"path", h.redact(path),
		"delimiter", string(d.Delimiter),
		"confidence", d.Confidence.String())
}

func (h *Hooks) ReadFailed(path string, kind tablecodec.Kind, records int, err error) {
	if h.l == nil {
		return
	}
	// partial reads are easy to mistake for short files
	if records > 0 {
		h.l.Error("tablecodec.read_truncated",
			"path", h.redact(path),
			"kind", kind.String(),
			"records", records,
			"err", h.cause(err))
		return
	}
	h.l.Warn("tablecodec.read_failed",
		"path", h.redact(path),
		"kind", kind.String(),
		"err", h.cause(err))
}

func (h *Hooks) WriteFailed(path string, kind tablecodec.Kind, written int, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("tablecodec.write_failed",
		"path", h.redact(path),
		"kind", kind.String(),
		"written", written,
		"err", h.cause(err))
}
