package redact

import (
	"regexp"
	"sort"
	"strings"
)

// Placeholder replaces every scrubbed span.
const Placeholder = "[REDACTED]"

// Identifier patterns that may appear in free-text record fields.
var identifierPatterns = []struct {
	re     *regexp.Regexp
	detail string
}{
	{regexp.MustCompile(`\b\d{3}[-\s]\d{2}[-\s]\d{4}\b`), "national id"},
	{regexp.MustCompile(`\b4\d{3}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "card number"},
	{regexp.MustCompile(`\b5[1-5]\d{2}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "card number"},
	{regexp.MustCompile(`\b3[47]\d{2}[-\s]?\d{6}[-\s]?\d{5}\b`), "card number"},
	{regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`), "email address"},
	{regexp.MustCompile(`(\+1[-\s]?)?\(?\b\d{3}\)?[-\s.]?\d{3}[-\s.]?\d{4}\b`), "phone number"},
	{regexp.MustCompile(`\+\d{1,3}[-\s]?\d{1,4}[-\s]?\d{3,4}[-\s]?\d{3,4}\b`), "phone number"},
}

// identityKeys are the identity fields whose values are masked wherever they
// reappear in free text.
var identityKeys = []string{"id", "first_name", "last_name", "dob"}

// Scrubber masks a subject's own identifiers and common identifier
// patterns inside record values.
type Scrubber struct {
	literal *regexp.Regexp // nil when the identity has no usable values
	hits    map[string]int
}

// NewScrubber builds a scrubber for one subject's identity record.
func NewScrubber(identity map[string]any) *Scrubber {
	var words []string
	for _, key := range identityKeys {
		s, ok := identity[key].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if len(s) < 2 {
			continue
		}
		words = append(words, regexp.QuoteMeta(s))
	}

	sc := &Scrubber{hits: make(map[string]int)}
	if len(words) > 0 {
		// Longest first so "Ann-Marie" wins over "Ann".
		sort.Slice(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
		sc.literal = regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
	}
	return sc
}

// Scrub returns a copy of v with identifiers masked in every string. Maps
// and slices are copied; other values are returned as they are.
func (sc *Scrubber) Scrub(v any) any {
	switch t := v.(type) {
	case string:
		return sc.scrubString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = sc.Scrub(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sc.Scrub(val)
		}
		return out
	default:
		return v
	}
}

// Hits reports how many spans were masked, by kind.
func (sc *Scrubber) Hits() map[string]int {
	out := make(map[string]int, len(sc.hits))
	for k, n := range sc.hits {
		out[k] = n
	}
	return out
}

func (sc *Scrubber) scrubString(s string) string {
	if sc.literal != nil {
		s = sc.replace(sc.literal, s, "identity")
	}
	for _, p := range identifierPatterns {
		s = sc.replace(p.re, s, p.detail)
	}
	return s
}

func (sc *Scrubber) replace(re *regexp.Regexp, s, detail string) string {
	n := len(re.FindAllStringIndex(s, -1))
	if n == 0 {
		return s
	}
	sc.hits[detail] += n
	return re.ReplaceAllLiteralString(s, Placeholder)
}
