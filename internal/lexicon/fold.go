package lexicon

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Fold lower-cases text, strips diacritics and collapses everything that is
// not a letter or digit into single spaces: "Amélie (2001)" -> "amelie 2001".
func Fold(raw string) string {
	return strings.Join(Tokens(raw), " ")
}

// Tokens returns the folded word tokens of raw.
func Tokens(raw string) []string {
	input := strings.TrimSpace(raw)
	if input == "" {
		return nil
	}
	input = stripMarks(strings.ToLower(input))
	return tokenPattern.FindAllString(input, -1)
}

func stripMarks(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, input)
	if err != nil {
		return input
	}
	return out
}

// TokenSimilarity is the Dice coefficient over folded token sets, in [0,1].
func TokenSimilarity(left, right string) float64 {
	leftTokens := Tokens(left)
	rightTokens := Tokens(right)
	if len(leftTokens) == 0 || len(rightTokens) == 0 {
		return 0
	}
	leftSet := make(map[string]struct{}, len(leftTokens))
	for _, token := range leftTokens {
		leftSet[token] = struct{}{}
	}
	rightSet := make(map[string]struct{}, len(rightTokens))
	for _, token := range rightTokens {
		rightSet[token] = struct{}{}
	}
	shared := 0
	for token := range leftSet {
		if _, ok := rightSet[token]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(leftSet)+len(rightSet))
}
