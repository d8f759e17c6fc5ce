package tablecodec

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

type sale struct {
	Region string
	Units  string
	Amount string
}

func decodeSale(f []string) sale {
	s := sale{}
	if len(f) > 0 {
		s.Region = f[0]
	}
	if len(f) > 1 {
		s.Units = f[1]
	}
	if len(f) > 2 {
		s.Amount = f[2]
	}
	return s
}

func encodeSale(s sale) []string { return []string{s.Region, s.Units, s.Amount} }

func identity(f []string) []string { return f }

// recLogger records every side-channel message.
type recLogger struct {
	mu   sync.Mutex
	msgs []string
	last Fields
}

func (l *recLogger) add(level, msg string, f Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, level+":"+msg)
	l.last = f
}

func (l *recLogger) Debug(msg string, f Fields) { l.add("debug", msg, f) }
func (l *recLogger) Info(msg string, f Fields)  { l.add("info", msg, f) }
func (l *recLogger) Warn(msg string, f Fields)  { l.add("warn", msg, f) }
func (l *recLogger) Error(msg string, f Fields) { l.add("error", msg, f) }

type recHooks struct {
	sniffed   []Detection
	readKinds []Kind
	readN     []int
	writeKind []Kind
	writeN    []int
}

func (h *recHooks) DelimiterSniffed(_ string, d Detection) { h.sniffed = append(h.sniffed, d) }
func (h *recHooks) ReadFailed(_ string, k Kind, n int, _ error) {
	h.readKinds = append(h.readKinds, k)
	h.readN = append(h.readN, n)
}
func (h *recHooks) WriteFailed(_ string, k Kind, n int, _ error) {
	h.writeKind = append(h.writeKind, k)
	h.writeN = append(h.writeN, n)
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func newTestTable[T any](t *testing.T, opts Options[T]) Table[T] {
	t.Helper()
	tbl, err := New[T](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

// ==============================
// Read
// ==============================

func TestReadSniffsCommaAndSkipsHeader(t *testing.T) {
	p := writeTemp(t, "in.csv", "a,b,c\n1,2,3\n4,5,6\n")
	h := &recHooks{}
	tbl := newTestTable(t, Options[[]string]{Decode: identity, Hooks: h})

	got, err := tbl.Read(context.Background(), p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := [][]string{{"1", "2", "3"}, {"4", "5", "6"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
	if len(h.sniffed) != 1 || h.sniffed[0] != (Detection{',', ConfidenceCertain}) {
		t.Fatalf("sniff hook = %+v", h.sniffed)
	}
}

func TestReadFileSniffedSemicolonAndTab(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []sale
	}{
		{"semicolon", "r;u;a\nnorth;3;12.5\n", []sale{{"north", "3", "12.5"}}},
		{"tab", "r\tu\ta\nsouth\t1\t2\n", []sale{{"south", "1", "2"}}},
		{"pipe misdetected as comma", "r|u|a\nwest|1|2\n", []sale{{"west|1|2", "", ""}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeTemp(t, "in.csv", tc.input)
			got, err := ReadFile(p, decodeSale, 0)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ReadFile = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestReadExplicitDelimiterOverridesSniff(t *testing.T) {
	// header says comma, body is pipe-delimited
	p := writeTemp(t, "in.csv", "a,b\n1|2\n")
	h := &recHooks{}
	tbl := newTestTable(t, Options[[]string]{Decode: identity, Delimiter: '|', Hooks: h})

	got, err := tbl.Read(context.Background(), p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := [][]string{{"1", "2"}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
	if h.sniffed[0].Confidence != ConfidenceExplicit {
		t.Fatalf("expected explicit confidence, got %v", h.sniffed[0].Confidence)
	}
}

func TestReadDiscardsFirstLineRegardlessOfContent(t *testing.T) {
	// no real header: the first data row is lost
	p := writeTemp(t, "in.csv", "1,2\n3,4\n")
	got, err := ReadFile(p, identity, 0)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if want := [][]string{{"3", "4"}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadFile = %q, want %q", got, want)
	}
}

func TestReadNoHeaderKeepsFirstLine(t *testing.T) {
	p := writeTemp(t, "in.csv", "1,2\n3,4\n")
	tbl := newTestTable(t, Options[[]string]{Decode: identity, NoHeader: true})
	got, err := tbl.Read(context.Background(), p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := [][]string{{"1", "2"}, {"3", "4"}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
}

func TestReadEmptyAndHeaderOnly(t *testing.T) {
	for name, content := range map[string]string{
		"empty":        "",
		"header only":  "a;b;c\n",
		"header noeol": "a;b;c",
	} {
		t.Run(name, func(t *testing.T) {
			p := writeTemp(t, "in.csv", content)
			got, err := ReadFile(p, identity, 0)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Fatalf("expected empty non-nil slice, got %#v", got)
			}
		})
	}
}

func TestReadBlankLinesReachDecoder(t *testing.T) {
	p := writeTemp(t, "in.csv", "h;h\r\n1;2\r\n\r\n3;4\r\n")
	got, err := ReadFile(p, identity, 0)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := [][]string{{"1", "2"}, {""}, {"3", "4"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadFile = %q, want %q", got, want)
	}
}

func TestReadMissingFile(t *testing.T) {
	log := &recLogger{}
	h := &recHooks{}
	tbl := newTestTable(t, Options[sale]{Decode: decodeSale, Logger: log, Hooks: h})

	missing := filepath.Join(t.TempDir(), "nope.csv")
	got, err := tbl.Read(context.Background(), missing)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected cause fs.ErrNotExist, got %v", err)
	}
	if KindOf(err) != KindMissingFile {
		t.Fatalf("KindOf = %v", KindOf(err))
	}
	if !strings.Contains(err.Error(), "csv file not found at "+missing) {
		t.Fatalf("message should name the absolute path: %q", err.Error())
	}
	if len(log.msgs) != 1 || log.msgs[0] != "error:csv file not found" {
		t.Fatalf("side channel = %q", log.msgs)
	}
	if len(h.readKinds) != 1 || h.readKinds[0] != KindMissingFile {
		t.Fatalf("ReadFailed hook = %v", h.readKinds)
	}
}

func TestReadDirectoryIsMissingFile(t *testing.T) {
	dir := t.TempDir()
	h := &recHooks{}
	tbl := newTestTable(t, Options[[]string]{Decode: identity, Logger: NopLogger{}, Hooks: h})
	got, err := tbl.Read(context.Background(), dir)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	if KindOf(err) != KindMissingFile || !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected MissingFile, got %v", err)
	}
	var pe *fs.PathError
	if !errors.As(err, &pe) || pe.Path != dir {
		t.Fatalf("expected *fs.PathError for %s, got %v", dir, err)
	}
	if len(h.readKinds) != 1 || h.readKinds[0] != KindMissingFile {
		t.Fatalf("ReadFailed hook = %v", h.readKinds)
	}
}

// captureDefaultLog redirects slog.Default() into a buffer for the test.
func captureDefaultLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestDefaultLoggerReportsToSlogDefault(t *testing.T) {
	buf := captureDefaultLog(t)
	missing := filepath.Join(t.TempDir(), "nope.csv")

	if _, err := ReadFile(missing, identity, 0); KindOf(err) != KindMissingFile {
		t.Fatalf("expected MissingFile, got %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "csv file not found") || !strings.Contains(out, missing) {
		t.Fatalf("missing-file read not reported: %q", out)
	}

	buf.Reset()
	bad := filepath.Join(t.TempDir(), "no-such-dir", "out.csv")
	if err := WriteFile(bad, [][]string{{"a"}}, identity, 0); KindOf(err) != KindIOFailure {
		t.Fatalf("expected IOFailure, got %v", err)
	}
	if !strings.Contains(buf.String(), "error writing to csv file") {
		t.Fatalf("write failure not reported: %q", buf.String())
	}
}

func TestNopLoggerSilencesDefault(t *testing.T) {
	buf := captureDefaultLog(t)
	tbl := newTestTable(t, Options[[]string]{Decode: identity, Logger: NopLogger{}})
	_, _ = tbl.Read(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	if buf.Len() != 0 {
		t.Fatalf("NopLogger still logged: %q", buf.String())
	}
}

func TestReadDecodePanicTruncates(t *testing.T) {
	p := writeTemp(t, "in.csv", "h\n1\n2\nboom\n4\n")
	h := &recHooks{}
	tbl := newTestTable(t, Options[int]{
		Decode: func(f []string) int {
			if f[0] == "boom" {
				panic("bad row")
			}
			return len(f[0])
		},
		Hooks: h,
	})

	got, err := tbl.Read(context.Background(), p)
	if want := []int{1, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("partial = %v, want %v", got, want)
	}
	var te *Error
	if !errors.As(err, &te) || te.Kind != KindMapFailure || te.Records != 2 {
		t.Fatalf("expected MapFailure after 2 records, got %#v", err)
	}
	if len(h.readN) != 1 || h.readN[0] != 2 {
		t.Fatalf("ReadFailed count = %v", h.readN)
	}
}

func TestReadCanceled(t *testing.T) {
	p := writeTemp(t, "in.csv", "h\n1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tbl := newTestTable(t, Options[[]string]{Decode: identity})
	got, err := tbl.Read(ctx, p)
	if len(got) != 0 || !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestReadCustomSnifferAndEncoding(t *testing.T) {
	raw := []byte("h|h\ncaf\xe9|1\n")
	p := writeTemp(t, "in.csv", string(raw))
	tbl := newTestTable(t, Options[[]string]{
		Decode:   identity,
		Encoding: charmap.ISO8859_1,
		Sniffer: func([]string) Detection {
			return Detection{Delimiter: '|', Confidence: ConfidenceCertain}
		},
	})
	got, err := tbl.Read(context.Background(), p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := [][]string{{"café", "1"}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
}

func TestReadWithoutDecoder(t *testing.T) {
	tbl := newTestTable(t, Options[sale]{Encode: encodeSale})
	if _, err := tbl.Read(context.Background(), "x"); !errors.Is(err, ErrNoDecoder) {
		t.Fatalf("expected ErrNoDecoder, got %v", err)
	}
}

// ==============================
// Write
// ==============================

func TestWriteDefaultSemicolonNoHeader(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.csv")
	err := WriteFile(p, [][]string{{"x", "y"}, {"p", "q"}}, identity, 0)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, _ := os.ReadFile(p)
	if got, want := string(b), "x;y\np;q\n"; got != want {
		t.Fatalf("file = %q, want %q", got, want)
	}
}

func TestWriteOverwritesAndHonoursOptions(t *testing.T) {
	p := writeTemp(t, "out.csv", "stale content that is longer than the new one\n")
	tbl := newTestTable(t, Options[sale]{
		Encode:    encodeSale,
		Delimiter: '\t',
		Header:    []string{"region", "units", "amount"},
		UseCRLF:   true,
	})
	if err := tbl.Write(context.Background(), p, []sale{{"north", "1", "2"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, _ := os.ReadFile(p)
	if got, want := string(b), "region\tunits\tamount\r\nnorth\t1\t2\r\n"; got != want {
		t.Fatalf("file = %q, want %q", got, want)
	}
}

func TestWriteEmptyRecordsTruncates(t *testing.T) {
	p := writeTemp(t, "out.csv", "old\n")
	if err := WriteFile(p, nil, identity, 0); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if fi, _ := os.Stat(p); fi.Size() != 0 {
		t.Fatalf("expected empty file, size=%d", fi.Size())
	}
}

func TestWriteOpenFailure(t *testing.T) {
	log := &recLogger{}
	h := &recHooks{}
	tbl := newTestTable(t, Options[sale]{Encode: encodeSale, Logger: log, Hooks: h})
	p := filepath.Join(t.TempDir(), "missing-dir", "out.csv")

	err := tbl.Write(context.Background(), p, []sale{{"a", "b", "c"}})
	if KindOf(err) != KindIOFailure || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected IOFailure wrapping ErrNotExist, got %v", err)
	}
	if len(log.msgs) != 1 || log.msgs[0] != "error:error writing to csv file" {
		t.Fatalf("side channel = %q", log.msgs)
	}
	if len(h.writeKind) != 1 || h.writeKind[0] != KindIOFailure {
		t.Fatalf("WriteFailed hook = %v", h.writeKind)
	}
}

func TestWriteEncodePanicLeavesPartialFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.csv")
	h := &recHooks{}
	tbl := newTestTable(t, Options[int]{
		Encode: func(n int) []string {
			if n == 3 {
				panic("cannot encode")
			}
			return []string{"n", strings.Repeat("x", n)}
		},
		Hooks: h,
	})

	err := tbl.Write(context.Background(), p, []int{1, 2, 3, 4})
	var te *Error
	if !errors.As(err, &te) || te.Kind != KindMapFailure || te.Records != 2 {
		t.Fatalf("expected MapFailure after 2 records, got %#v", err)
	}
	b, _ := os.ReadFile(p)
	if got, want := string(b), "n;x\nn;xx\n"; got != want {
		t.Fatalf("partial file = %q, want %q", got, want)
	}
	if len(h.writeN) != 1 || h.writeN[0] != 2 {
		t.Fatalf("WriteFailed written = %v", h.writeN)
	}
}

func TestWriteCanceledMidway(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.csv")
	ctx, cancel := context.WithCancel(context.Background())
	recs := make([]int, ContextCheckInterval*2)
	// cancel once the first batch is handed over
	calls := 0
	tbl := newTestTable(t, Options[int]{
		Encode: func(int) []string {
			calls++
			if calls == ContextCheckInterval {
				cancel()
			}
			return []string{"r"}
		},
	})
	err := tbl.Write(ctx, p, recs)
	var te *Error
	if !errors.As(err, &te) || te.Kind != KindCanceled || te.Records != ContextCheckInterval {
		t.Fatalf("expected Canceled after %d records, got %#v", ContextCheckInterval, err)
	}
	b, _ := os.ReadFile(p)
	if got := strings.Count(string(b), "\n"); got != ContextCheckInterval {
		t.Fatalf("partial file has %d lines, want %d", got, ContextCheckInterval)
	}
}

func TestWriteWithoutEncoder(t *testing.T) {
	tbl := newTestTable(t, Options[sale]{Decode: decodeSale})
	if err := tbl.Write(context.Background(), "x", nil); !errors.Is(err, ErrNoEncoder) {
		t.Fatalf("expected ErrNoEncoder, got %v", err)
	}
}

// ==============================
// Round trip and construction
// ==============================

func TestRoundTripSameExplicitDelimiter(t *testing.T) {
	recs := []sale{{"north", "3", "12.50"}, {"south", "", "7"}, {"", "", ""}}
	for _, d := range []rune{',', ';', '\t', '|'} {
		t.Run(string(d), func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "rt.csv")
			tbl := newTestTable(t, Options[sale]{
				Decode:    decodeSale,
				Encode:    encodeSale,
				Delimiter: d,
				Header:    []string{"region", "units", "amount"},
			})
			if err := tbl.Write(context.Background(), p, recs); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := tbl.Read(context.Background(), p)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !reflect.DeepEqual(got, recs) {
				t.Fatalf("round trip = %+v, want %+v", got, recs)
			}
		})
	}
}

func TestRoundTripLatin1(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rt.csv")
	tbl := newTestTable(t, Options[[]string]{
		Decode:   identity,
		Encode:   identity,
		Encoding: charmap.ISO8859_1,
		NoHeader: true,
	})
	in := [][]string{{"Zürich", "café"}}
	if err := tbl.Write(context.Background(), p, in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := tbl.Read(context.Background(), p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("got %q, want %q", got, in)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New[sale](Options[sale]{}); err == nil {
		t.Fatalf("expected error without mapping functions")
	}
	for _, d := range []rune{'\n', '\r', '\uFFFD'} {
		if _, err := New[sale](Options[sale]{Decode: decodeSale, Delimiter: d}); !errors.Is(err, errBadDelimiter) {
			t.Fatalf("delimiter %q: expected errBadDelimiter, got %v", d, err)
		}
	}
	if _, err := New[sale](Options[sale]{Decode: decodeSale, MaxLineSize: -1}); !errors.Is(err, errBadMaxLine) {
		t.Fatalf("negative MaxLineSize: expected errBadMaxLine, got %v", err)
	}
}

func TestConcurrentReadsShareTable(t *testing.T) {
	p := writeTemp(t, "in.csv", "h,h\n1,2\n3,4\n")
	tbl := newTestTable(t, Options[[]string]{Decode: identity})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := tbl.Read(context.Background(), p)
			if err == nil && len(got) != 2 {
				err = errors.New("unexpected record count")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Read: %v", err)
		}
	}
}
