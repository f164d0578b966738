// Package match decides whether fetched page text still references a
// subject's name. Four heuristics run in a fixed order, loosest last, and
// the first one satisfied wins.
package match

import (
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Reason identifies the heuristic that accepted (or, ReasonNone, that none
// accepted) a page.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonExact
	ReasonSurname
	ReasonFuzzy
	ReasonToken
)

func (r Reason) String() string {
	switch r {
	case ReasonExact:
		return "exact"
	case ReasonSurname:
		return "surname"
	case ReasonFuzzy:
		return "fuzzy"
	case ReasonToken:
		return "token"
	default:
		return "none"
	}
}

// fuzzyThreshold is the minimum partial-ratio score (0..100) for the fuzzy
// heuristic; 100 is equivalent to an exact substring hit.
const fuzzyThreshold = 75

type heuristic struct {
	reason Reason
	accept func(name, text string) bool
}

// Ordered strictly loosest-last. Both arguments are pre-normalized and the
// name is non-empty by the time these run.
var cascade = []heuristic{
	{ReasonExact, exactSubstring},
	{ReasonSurname, surnameSubstring},
	{ReasonFuzzy, fuzzyPartial},
	{ReasonToken, anyTokenWord},
}

// Normalize collapses whitespace runs to single spaces and lower-cases s.
// Every comparison in the cascade runs over normalized inputs.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Name reports whether text still references name, and which heuristic
// decided it. An empty or whitespace-only name never matches.
func Name(name, text string) (bool, Reason) {
	normName := Normalize(name)
	if normName == "" {
		return false, ReasonNone
	}
	normText := Normalize(text)
	for _, h := range cascade {
		if h.accept(normName, normText) {
			return true, h.reason
		}
	}
	return false, ReasonNone
}

func exactSubstring(name, text string) bool {
	return strings.Contains(text, name)
}

func surnameSubstring(name, text string) bool {
	tokens := strings.Fields(name)
	return strings.Contains(text, tokens[len(tokens)-1])
}

// fuzzyPartial absorbs OCR noise, punctuation, and minor spelling variants
// that the substring heuristics miss.
func fuzzyPartial(name, text string) bool {
	if text == "" {
		return false
	}
	return fuzzy.PartialRatio(name, text) >= fuzzyThreshold
}

// anyTokenWord is the last-resort recall heuristic: any single name token
// appearing as a whole word counts. Short common tokens can over-match
// here; that looseness is inherited behavior, not an oversight to patch.
func anyTokenWord(name, text string) bool {
	tokens := strings.Fields(name)
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = regexp.QuoteMeta(tok)
	}
	re, err := regexp.Compile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
