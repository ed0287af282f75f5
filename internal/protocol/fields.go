package protocol

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Delimiters of the positional payload grammar, outermost first.
const (
	FieldSep    = ";"
	ItemSep     = "|"
	SubItemSep  = ","
	QuestionSep = "^"
	AttemptSep  = "~"
)

// Fields is a positional record. Reads past the end return "" so short
// payloads decode with empty trailing fields.
type Fields []string

// Split separates s on sep. An empty string yields no fields.
func Split(s, sep string) Fields {
	if s == "" {
		return Fields{}
	}
	return strings.Split(s, sep)
}

// SplitN is Split bounded to n fields; the last field keeps any further
// separators, for free text such as answers or chat content.
func SplitN(s, sep string, n int) Fields {
	if s == "" {
		return Fields{}
	}
	return strings.SplitN(s, sep, n)
}

func (f Fields) Get(i int) string {
	if i < 0 || i >= len(f) {
		return ""
	}
	return f[i]
}

// Int parses field i, returning 0 for missing or non-numeric values.
func (f Fields) Int(i int) int {
	n, err := strconv.Atoi(strings.TrimSpace(f.Get(i)))
	if err != nil {
		return 0
	}
	return n
}

func (f Fields) Int64(i int) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(f.Get(i)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (f Fields) Float(i int) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(f.Get(i)), 64)
	if err != nil {
		return 0
	}
	return v
}

// Join is the inverse of Split.
func Join(sep string, parts ...string) string {
	return strings.Join(parts, sep)
}

// CountedList renders "n;r1;r2;..." as used by every list reply.
func CountedList(records []string) string {
	if len(records) == 0 {
		return "0"
	}
	return strconv.Itoa(len(records)) + FieldSep + strings.Join(records, FieldSep)
}

// ParseCountedList is the inverse of CountedList. The count prefix is
// advisory; the records present are returned.
func ParseCountedList(s string) []string {
	f := Split(s, FieldSep)
	if len(f) <= 1 {
		return nil
	}
	return f[1:]
}

// FormatScore renders a score with at most two decimals ("7.5", "10").
func FormatScore(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// TimeLayout is how timestamps travel inside payloads.
const TimeLayout = "2006-01-02 15:04:05"

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

var replacements = map[string]string{
	FieldSep:    ",",
	ItemSep:     "/",
	QuestionSep: " ",
	AttemptSep:  "-",
	SubItemSep:  " ",
	"\n":        " ",
}

// Scrub replaces the given delimiters inside a value so the value cannot
// shift positional fields. Replacements apply in argument order.
func Scrub(s string, seps ...string) string {
	for _, sep := range seps {
		if strings.Contains(s, sep) {
			s = strings.ReplaceAll(s, sep, replacements[sep])
		}
	}
	return s
}

func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
