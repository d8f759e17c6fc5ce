// Package tablecodec reads and writes flat delimited text files as typed records.
// Records are built and flattened by caller-supplied mapping functions; the
// package knows nothing about their shape.
//
// Format:
//
//	one record per line, fields split on a single delimiter rune
//	no quoting, no escaping, no multi-line fields
//	the first line of every read is a header and is discarded (Options.NoHeader disables this)
//
// Delimiter sniffing looks at the first line only, in fixed priority:
//
//	',' then ';' then '\t'  - first one contained wins
//	none of them            - ','
//	empty file              - ';'
//
// Writes default to ';' no matter which delimiter a file was read with.
//
// Failures never panic. Read returns whatever records it accumulated plus an
// *Error (Kind MissingFile, IOFailure, MapFailure or Canceled); the same event is
// reported to the configured Logger (slog.Default() when none is set) and Hooks:
//
//	tbl, _ := tablecodec.New[Sale](tablecodec.Options[Sale]{
//	    Decode: func(f []string) Sale { return Sale{Region: f[0], Amount: f[1]} },
//	    Encode: func(s Sale) []string { return []string{s.Region, s.Amount} },
//	    Logger: tslog.Logger{L: slog.Default()},
//	})
//	sales, err := tbl.Read(ctx, "sales.csv")
//	if tablecodec.KindOf(err) == tablecodec.KindMissingFile { ... }
//	_ = tbl.Write(ctx, "report.csv", sales) // "north;120\n..."
//
// Package tablecache wraps a Table so repeated reads of an unchanged file are
// served from a decoded snapshot in memory or Redis.
package tablecodec
