package question

import "strings"

// NormaliseAnswer lower-cases s, trims it and collapses inner whitespace.
func NormaliseAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MatchAnswer reports whether given equals any accepted answer after
// normalisation.
func MatchAnswer(given string, accepted []string) bool {
	g := NormaliseAnswer(given)
	if g == "" {
		return false
	}
	for _, a := range accepted {
		if NormaliseAnswer(a) == g {
			return true
		}
	}
	return false
}
