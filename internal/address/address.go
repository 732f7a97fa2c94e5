// Package address generates candidate corporate mailbox addresses for a
// person and validates their syntax.
package address

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/leadagent/mailfinder/internal/domain"
)

// rule builds the local part of an address from the normalized first and last
// name and their initials.
type rule struct {
	name  string
	local func(first, last, f, l string) string
}

// rules are ordered by how common the pattern is across companies. The index
// of a rule is the rank of the candidate it produces.
var rules = []rule{
	{"first.last", func(first, last, _, _ string) string { return first + "." + last }},
	{"flast", func(_, last, f, _ string) string { return f + last }},
	{"firstlast", func(first, last, _, _ string) string { return first + last }},
	{"first", func(first, _, _, _ string) string { return first }},
	{"firstl", func(first, _, _, l string) string { return first + l }},
	{"f.last", func(_, last, f, _ string) string { return f + "." + last }},
	{"lastf", func(_, last, f, _ string) string { return last + f }},
	{"first.l", func(first, _, _, l string) string { return first + "." + l }},
	{"first_last", func(first, last, _, _ string) string { return first + "_" + last }},
	{"last.first", func(first, last, _, _ string) string { return last + "." + first }},
	{"first-last", func(first, last, _, _ string) string { return first + "-" + last }},
}

// PatternCount is the number of candidates Generate produces for valid input.
var PatternCount = len(rules)

// Generate returns one candidate per pattern rule, in priority order. Inputs
// are trimmed and lower-cased. Duplicates are kept so that ranks always match
// rule positions. It returns nil when either name is empty.
func Generate(firstName, lastName, mailDomain string) []domain.Candidate {
	first, last, dom := normalize(firstName), normalize(lastName), normalize(mailDomain)
	if first == "" || last == "" {
		return nil
	}
	f, l := initial(first), initial(last)

	candidates := make([]domain.Candidate, 0, len(rules))
	for i, r := range rules {
		candidates = append(candidates, domain.Candidate{
			Address: r.local(first, last, f, l) + "@" + dom,
			Rank:    i,
		})
	}
	return candidates
}

// LocalPattern reports the name of the first rule that produces addr for the
// given person, or "" when none does.
func LocalPattern(addr, firstName, lastName string) string {
	local, _, ok := strings.Cut(strings.ToLower(strings.TrimSpace(addr)), "@")
	if !ok {
		return ""
	}
	first, last := normalize(firstName), normalize(lastName)
	if first == "" || last == "" {
		return ""
	}
	f, l := initial(first), initial(last)
	for _, r := range rules {
		if r.local(first, last, f, l) == local {
			return r.name
		}
	}
	return ""
}

var formatRegexp = regexp.MustCompile(
	"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?)*$",
)

// IsValidFormat reports whether addr is a syntactically acceptable address:
// a non-empty local part of letters, digits and the usual specials, a single
// "@", and one or more dot-separated DNS labels that neither start nor end
// with a hyphen.
func IsValidFormat(addr string) bool {
	return formatRegexp.MatchString(addr)
}

// NormalizeDomain reduces a company website or domain as typed by a user to a
// bare lower-case host: scheme, "www.", port, path, query and trailing dot
// are removed.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if i := strings.LastIndex(d, ":"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimSuffix(d, ".")
	d = strings.TrimPrefix(d, "www.")
	return d
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// initial returns the first rune of s as a string.
func initial(s string) string {
	_, size := utf8.DecodeRuneInString(s)
	return s[:size]
}
