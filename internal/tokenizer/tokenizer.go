package tokenizer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinTokenLength is the shortest token that survives tokenization.
const MinTokenLength = 3

// separatorRegex matches runs of whitespace and the punctuation that separates words.
var separatorRegex = regexp.MustCompile(`[\s.,!?;:()\[\]{}"']+`)

// numericRegex matches tokens that are purely numeric, including signed and exponent forms.
var numericRegex = regexp.MustCompile(`^[+-]?[0-9]+([eE][+-]?[0-9]+)?$`)

// Tokenize converts a string into the ordered slice of comparable tokens.
// It lowercases the text, splits on whitespace and punctuation, and drops
// tokens shorter than MinTokenLength runes as well as purely numeric ones.
func Tokenize(text string) []string {
	lowerText := strings.ToLower(text)

	split := separatorRegex.Split(lowerText, -1)

	tokens := make([]string, 0, len(split))
	for _, s := range split {
		if s == "" {
			continue
		}
		if utf8.RuneCountInString(s) < MinTokenLength {
			continue
		}
		if IsNumeric(s) {
			continue
		}
		tokens = append(tokens, s)
	}
	return tokens
}

// IsNumeric reports whether the token consists only of a number.
func IsNumeric(token string) bool {
	return numericRegex.MatchString(token)
}

// TermFrequencies builds a term-frequency vector: each token's count divided
// by the total number of tokens. An empty token slice yields an empty map.
func TermFrequencies(tokens []string) map[string]float64 {
	vector := make(map[string]float64, len(tokens))
	if len(tokens) == 0 {
		return vector
	}

	for _, token := range tokens {
		vector[token]++
	}

	total := float64(len(tokens))
	for term, count := range vector {
		vector[term] = count / total
	}
	return vector
}

// Set collapses tokens into a set.
func Set(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
