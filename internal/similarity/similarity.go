// Package similarity scores how alike two normalized texts are.
//
// Two independent measures are computed over the tokens produced by the
// tokenizer package: cosine similarity of term-frequency vectors and Jaccard
// similarity of token sets. They are blended into a single combined score.
// Every function returns 0 for empty operands; nothing here returns an error.
package similarity

import (
	"math"
	"sort"

	"github.com/gcbaptista/go-document-repository/internal/tokenizer"
)

// Weights controls how cosine and Jaccard scores are blended.
type Weights struct {
	Cosine  float64 `json:"cosine" yaml:"cosine"`
	Jaccard float64 `json:"jaccard" yaml:"jaccard"`
}

// DefaultWeights favours term distribution over raw vocabulary overlap.
var DefaultWeights = Weights{Cosine: 0.7, Jaccard: 0.3}

// Scores is the full breakdown of a comparison between two texts.
type Scores struct {
	Cosine     float64 `json:"cosine"`
	Jaccard    float64 `json:"jaccard"`
	Combined   float64 `json:"combined"`
	Percentage float64 `json:"percentage"`
}

// Calculator computes combined similarity with a fixed set of weights.
// The zero value uses DefaultWeights.
type Calculator struct {
	Weights Weights
}

// NewCalculator creates a calculator with the given weights.
func NewCalculator(weights Weights) *Calculator {
	return &Calculator{Weights: weights}
}

func (c *Calculator) weights() Weights {
	if c == nil || (c.Weights.Cosine == 0 && c.Weights.Jaccard == 0) {
		return DefaultWeights
	}
	return c.Weights
}

// Combined returns the weighted blend of cosine and Jaccard similarity.
func (c *Calculator) Combined(textA, textB string) float64 {
	return c.Breakdown(textA, textB).Combined
}

// Percentage returns Combined scaled to [0,100].
func (c *Calculator) Percentage(textA, textB string) float64 {
	return c.Combined(textA, textB) * 100
}

// Breakdown tokenizes both texts once and returns every score.
func (c *Calculator) Breakdown(textA, textB string) Scores {
	tokensA := tokenizer.Tokenize(textA)
	tokensB := tokenizer.Tokenize(textB)

	w := c.weights()
	cosine := cosineOfTokens(tokensA, tokensB)
	jaccard := jaccardOfTokens(tokensA, tokensB)
	combined := w.Cosine*cosine + w.Jaccard*jaccard

	return Scores{
		Cosine:     cosine,
		Jaccard:    jaccard,
		Combined:   combined,
		Percentage: combined * 100,
	}
}

// Cosine returns the cosine of the angle between the term-frequency vectors of the two texts.
func Cosine(textA, textB string) float64 {
	return cosineOfTokens(tokenizer.Tokenize(textA), tokenizer.Tokenize(textB))
}

// Jaccard returns |intersection| / |union| of the token sets of the two texts.
func Jaccard(textA, textB string) float64 {
	return jaccardOfTokens(tokenizer.Tokenize(textA), tokenizer.Tokenize(textB))
}

// Combined blends cosine and Jaccard similarity with the given weights.
func Combined(textA, textB string, weights Weights) float64 {
	return NewCalculator(weights).Combined(textA, textB)
}

// Percentage returns the default-weighted combined similarity scaled to [0,100].
func Percentage(textA, textB string) float64 {
	return Combined(textA, textB, DefaultWeights) * 100
}

// Breakdown returns every default-weighted score for the two texts.
func Breakdown(textA, textB string) Scores {
	return NewCalculator(DefaultWeights).Breakdown(textA, textB)
}

func cosineOfTokens(tokensA, tokensB []string) float64 {
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	vectorA := tokenizer.TermFrequencies(tokensA)
	vectorB := tokenizer.TermFrequencies(tokensB)

	// Sorted union keeps the float summation order independent of argument order.
	terms := make([]string, 0, len(vectorA)+len(vectorB))
	for term := range vectorA {
		terms = append(terms, term)
	}
	for term := range vectorB {
		if _, ok := vectorA[term]; !ok {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)

	a := make([]float64, len(terms))
	b := make([]float64, len(terms))
	for i, term := range terms {
		a[i] = vectorA[term]
		b[i] = vectorB[term]
	}

	return cosine(a, b)
}

// cosine computes dot(a,b) / (|a|·|b|) over equal-length vectors.
func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

func jaccardOfTokens(tokensA, tokensB []string) float64 {
	setA := tokenizer.Set(tokensA)
	setB := tokenizer.Set(tokensB)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}
