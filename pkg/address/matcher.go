package address

import "strings"

// Matcher tests encoded addresses against a prefix/suffix constraint.
// The prefix anchors at position 0 and the suffix at the end; an empty
// affix always matches.
//
// When case sensitivity is off, both the address and the affixes are
// compared on case-folded copies. Base58 is itself case-sensitive (its
// alphabet already omits the ambiguous 0, O, I and l), so insensitive
// mode is a strictly looser match: "cmyk" will also accept "CMyk". The
// affixes must still be spelled in base58 characters.
type Matcher struct {
	prefix        string
	suffix        string
	caseSensitive bool
}

// NewMatcher creates a matcher for the given affixes.
func NewMatcher(prefix, suffix string, caseSensitive bool) *Matcher {
	if !caseSensitive {
		prefix = strings.ToLower(prefix)
		suffix = strings.ToLower(suffix)
	}
	return &Matcher{
		prefix:        prefix,
		suffix:        suffix,
		caseSensitive: caseSensitive,
	}
}

// Matches reports whether addr satisfies the affix constraint.
func (m *Matcher) Matches(addr string) bool {
	if !m.caseSensitive {
		addr = strings.ToLower(addr)
	}
	if m.prefix != "" && !strings.HasPrefix(addr, m.prefix) {
		return false
	}
	if m.suffix != "" && !strings.HasSuffix(addr, m.suffix) {
		return false
	}
	return true
}

// Prefix returns the configured prefix as it will be compared.
func (m *Matcher) Prefix() string { return m.prefix }

// Suffix returns the configured suffix as it will be compared.
func (m *Matcher) Suffix() string { return m.suffix }

// CaseSensitive reports whether matching is exact or case-folded.
func (m *Matcher) CaseSensitive() bool { return m.caseSensitive }
