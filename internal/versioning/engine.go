// Package versioning decides whether an upload is a new version of one of the
// uploading user's existing documents or a new document.
//
// The engine is a pure function of its inputs. Callers supply candidates that
// are already scoped to the uploading user and ordered newest first, and they
// persist the decision themselves.
package versioning

import (
	"math"
	"sort"
	"strings"

	"github.com/gcbaptista/go-document-repository/config"
	"github.com/gcbaptista/go-document-repository/internal/similarity"
	"github.com/gcbaptista/go-document-repository/model"
)

// Scorer returns the similarity of two texts as a percentage in [0,100].
type Scorer func(textA, textB string) float64

// Engine applies the version-detection policy.
type Engine struct {
	settings config.VersioningSettings
	score    Scorer
}

// NewEngine creates an engine scoring with the similarity calculator
// configured by the settings' cosine and Jaccard weights.
func NewEngine(settings config.VersioningSettings) *Engine {
	settings.ApplyDefaults()
	calc := similarity.NewCalculator(similarity.Weights{
		Cosine:  settings.CosineWeight,
		Jaccard: settings.JaccardWeight,
	})
	return &Engine{settings: settings, score: calc.Percentage}
}

// NewEngineWithScorer creates an engine with a custom scorer.
func NewEngineWithScorer(settings config.VersioningSettings, scorer Scorer) *Engine {
	settings.ApplyDefaults()
	if scorer == nil {
		scorer = similarity.Percentage
	}
	return &Engine{settings: settings, score: scorer}
}

// Settings returns the effective policy.
func (e *Engine) Settings() config.VersioningSettings {
	return e.settings
}

// Decide picks the best-matching candidate and applies the threshold.
//
// Empty newText or no candidate with extracted text yields a new document
// with score 0. Among candidates the highest combined score wins and ties keep
// the first one supplied. A best score at or above the threshold makes the
// upload version LatestVersion+1 of that candidate. The reported score is
// rounded to one decimal in both outcomes.
func (e *Engine) Decide(newText, newTitle string, candidates []model.Candidate) model.Decision {
	decision := model.Decision{
		Kind:      model.DecisionNewDocument,
		Threshold: e.settings.Threshold,
	}
	if isBlank(newText) {
		return decision
	}

	title := strings.ToLower(newTitle)

	var best *model.Candidate
	var bestContent, bestTitle, bestCombined float64
	for i := range candidates {
		c := &candidates[i]
		if isBlank(c.ExtractedText) {
			continue
		}
		content, titleScore, combined := e.scoreCandidate(newText, title, c)
		if combined > bestCombined {
			best = c
			bestContent, bestTitle, bestCombined = content, titleScore, combined
		}
	}

	if best == nil {
		return decision
	}

	decision.Score = round1(bestCombined)
	decision.ContentScore = round1(bestContent)
	decision.TitleScore = round1(bestTitle)

	if bestCombined >= e.settings.Threshold {
		decision.Kind = model.DecisionNewVersion
		decision.TargetDocumentID = best.DocumentID
		decision.NextVersion = best.LatestVersion + 1
	}
	return decision
}

// Rank scores every candidate with extracted text and returns them ordered by
// descending combined score. Equal scores keep the supplied order.
func (e *Engine) Rank(newText, newTitle string, candidates []model.Candidate) []model.Match {
	matches := make([]model.Match, 0, len(candidates))
	if isBlank(newText) {
		return matches
	}

	title := strings.ToLower(newTitle)
	combinedScores := make([]float64, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		if isBlank(c.ExtractedText) {
			continue
		}
		content, titleScore, combined := e.scoreCandidate(newText, title, c)
		matches = append(matches, model.Match{
			DocumentID:    c.DocumentID,
			Title:         c.Title,
			LatestVersion: c.LatestVersion,
			ContentScore:  round1(content),
			TitleScore:    round1(titleScore),
			Score:         round1(combined),
		})
		combinedScores = append(combinedScores, combined)
	}

	order := make([]int, len(matches))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return combinedScores[order[a]] > combinedScores[order[b]]
	})

	ranked := make([]model.Match, len(matches))
	for i, idx := range order {
		ranked[i] = matches[idx]
	}
	return ranked
}

func (e *Engine) scoreCandidate(newText, lowerTitle string, c *model.Candidate) (content, title, combined float64) {
	content = e.score(newText, c.ExtractedText)
	title = e.score(lowerTitle, strings.ToLower(c.Title))
	combined = e.settings.ContentWeight*content + e.settings.TitleWeight*title
	return content, title, combined
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
