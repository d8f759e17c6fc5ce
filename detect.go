package tablecodec

import "strings"

// Confidence grades a delimiter Detection.
type Confidence uint8

const (
	// ConfidenceNone: no lines to inspect; the ';' fallback was used.
	ConfidenceNone Confidence = iota
	// ConfidenceGuess: the first line has no candidate; ',' was assumed.
	ConfidenceGuess
	// ConfidenceAmbiguous: several candidates are present; priority order decided.
	ConfidenceAmbiguous
	// ConfidenceCertain: exactly one candidate is present.
	ConfidenceCertain
	// ConfidenceExplicit: the caller supplied the delimiter.
	ConfidenceExplicit
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceNone:
		return "none"
	case ConfidenceGuess:
		return "guess"
	case ConfidenceAmbiguous:
		return "ambiguous"
	case ConfidenceCertain:
		return "certain"
	case ConfidenceExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// Detection is the outcome of delimiter sniffing.
type Detection struct {
	Delimiter  rune
	Confidence Confidence
}

// Sniffer picks the delimiter for a set of input lines.
type Sniffer func(lines []string) Detection

// candidates in priority order.
var candidates = [...]rune{',', ';', '\t'}

// Sniff inspects only the first line and returns the first of ',', ';', '\t'
// it contains. It is a containment test, not a frequency count: a line
// holding both ',' and ';' yields ','. No candidate yields ','; no lines
// at all yields ';'.
func Sniff(lines []string) Detection {
	if len(lines) == 0 {
		return Detection{Delimiter: ';', Confidence: ConfidenceNone}
	}
	first := lines[0]

	var (
		found rune
		n     int
	)
	for _, c := range candidates {
		if strings.ContainsRune(first, c) {
			if n == 0 {
				found = c
			}
			n++
		}
	}
	switch n {
	case 0:
		return Detection{Delimiter: ',', Confidence: ConfidenceGuess}
	case 1:
		return Detection{Delimiter: found, Confidence: ConfidenceCertain}
	default:
		return Detection{Delimiter: found, Confidence: ConfidenceAmbiguous}
	}
}

// DetectDelimiter is Sniff without the confidence.
func DetectDelimiter(lines []string) rune {
	return Sniff(lines).Delimiter
}
