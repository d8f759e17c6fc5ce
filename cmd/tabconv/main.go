// Command tabconv rewrites a delimited text file with another delimiter.
//
//	tabconv -in sales.csv -out sales.tsv -out-delim '\t'
//
// Every line, header included, is carried over. TABCONV_IN_DELIM,
// TABCONV_OUT_DELIM and TABCONV_LOGGER set flag defaults and may come
// from a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdslog "log/slog"
	"os"
	"os/signal"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/unkn0wn-root/tablecodec"
	asynchook "github.com/unkn0wn-root/tablecodec/hooks/async"
	tlogrus "github.com/unkn0wn-root/tablecodec/log/logrus"
	tslog "github.com/unkn0wn-root/tablecodec/log/slog"
	tzap "github.com/unkn0wn-root/tablecodec/log/zap"
	"github.com/unkn0wn-root/tablecodec/sloghooks"
)

type config struct {
	in, out  string
	inDelim  rune
	outDelim rune
	enc      encoding.Encoding
	logger   string
	events   bool
}

func main() {
	// .env is optional; real environment wins
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Getenv, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, getenv func(string) string, stderr io.Writer) int {
	cfg, err := parseConfig(args, getenv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "tabconv: %v\n", err)
		return 1
	}

	log, sync, err := newLogger(cfg.logger, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "tabconv: %v\n", err)
		return 1
	}
	defer sync()

	var hooks tablecodec.Hooks = tablecodec.NopHooks{}
	if cfg.events {
		h := asynchook.New(sloghooks.New(stdslog.New(stdslog.NewTextHandler(stderr, nil)), sloghooks.Options{PlainPaths: true}), 1, 64)
		defer h.Close()
		hooks = h
	}

	n, err := convert(ctx, cfg, log, hooks)
	if err != nil {
		fmt.Fprintf(stderr, "tabconv: %v\n", err)
		return 1
	}
	log.Info("converted", tablecodec.Fields{"in": cfg.in, "out": cfg.out, "lines": n})
	return 0
}

func parseConfig(args []string, getenv func(string) string, stderr io.Writer) (config, error) {
	fs := flag.NewFlagSet("tabconv", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		in       = fs.String("in", "", "input file (required)")
		out      = fs.String("out", "", "output file (required)")
		inDelim  = fs.String("in-delim", getenv("TABCONV_IN_DELIM"), `input delimiter; empty sniffs ',' ';' or '\t' from the first line`)
		outDelim = fs.String("out-delim", getenv("TABCONV_OUT_DELIM"), "output delimiter; empty writes ';'")
		encName  = fs.String("encoding", "utf8", "file encoding: utf8, latin1 or windows1252")
		logger   = fs.String("logger", orDefault(getenv("TABCONV_LOGGER"), "slog"), "diagnostics: slog, zap or logrus")
		events   = fs.Bool("events", false, "also log delimiter and failure events")
	)
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg := config{in: *in, out: *out, logger: *logger, events: *events}
	if cfg.in == "" || cfg.out == "" {
		return config{}, errors.New("-in and -out are required")
	}
	var err error
	if cfg.inDelim, err = parseDelim(*inDelim); err != nil {
		return config{}, fmt.Errorf("-in-delim: %w", err)
	}
	if cfg.outDelim, err = parseDelim(*outDelim); err != nil {
		return config{}, fmt.Errorf("-out-delim: %w", err)
	}
	if cfg.enc, err = lookupEncoding(*encName); err != nil {
		return config{}, err
	}
	return cfg, nil
}

// parseDelim accepts one character, or the escapes `\t` and "tab".
// Empty returns 0.
func parseDelim(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, fmt.Errorf("want a single character, got %q", s)
	}
	return r, nil
}

// lookupEncoding returns nil for UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "", "utf8":
		return nil, nil
	case "latin1", "iso88591":
		return charmap.ISO8859_1, nil
	case "windows1252", "cp1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}

func newLogger(name string, w io.Writer) (tablecodec.Logger, func(), error) {
	switch name {
	case "slog":
		return tslog.Logger{L: stdslog.New(stdslog.NewTextHandler(w, nil))}, func() {}, nil
	case "zap":
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			zap.InfoLevel,
		)
		z := zap.New(core)
		return tzap.ZapLogger{L: z}, func() { _ = z.Sync() }, nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		return tlogrus.LogrusLogger{E: logrus.NewEntry(l)}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown logger %q", name)
}

func convert(ctx context.Context, cfg config, log tablecodec.Logger, hooks tablecodec.Hooks) (int, error) {
	src, err := tablecodec.New[[]string](tablecodec.Options[[]string]{
		Decode:    identity,
		Delimiter: cfg.inDelim,
		NoHeader:  true,
		Encoding:  cfg.enc,
		Logger:    log,
		Hooks:     hooks,
	})
	if err != nil {
		return 0, err
	}
	lines, err := src.Read(ctx, cfg.in)
	if err != nil {
		return 0, err
	}

	dst, err := tablecodec.New[[]string](tablecodec.Options[[]string]{
		Encode:    identity,
		Delimiter: cfg.outDelim,
		Encoding:  cfg.enc,
		Logger:    log,
		Hooks:     hooks,
	})
	if err != nil {
		return 0, err
	}
	return len(lines), dst.Write(ctx, cfg.out, lines)
}

func identity(fields []string) []string { return fields }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
