// Package config provides configuration structures for the document repository.
// It defines the version-detection policy and the application settings loaded
// from YAML and the environment.
package config

import (
	"fmt"
)

const (
	// DefaultVersionThreshold is the combined score (percent) at or above which
	// an upload is filed as a new version of the best match.
	DefaultVersionThreshold = 85.0
	DefaultContentWeight    = 0.8
	DefaultTitleWeight      = 0.2
	DefaultCosineWeight     = 0.7
	DefaultJaccardWeight    = 0.3
)

// VersioningSettings contains the policy used to decide whether an upload is a
// new version of an existing document.
//
// The combined score for a candidate is
//
//	ContentWeight*content% + TitleWeight*title%
//
// where each percentage is itself CosineWeight*cosine + JaccardWeight*jaccard, scaled by 100.
type VersioningSettings struct {
	Threshold     float64 `json:"threshold" yaml:"threshold"`           // Inclusive lower bound for a new version, in percent
	ContentWeight float64 `json:"content_weight" yaml:"content_weight"` // Weight of extracted-text similarity
	TitleWeight   float64 `json:"title_weight" yaml:"title_weight"`     // Weight of title similarity
	CosineWeight  float64 `json:"cosine_weight" yaml:"cosine_weight"`   // Weight of term-frequency cosine similarity
	JaccardWeight float64 `json:"jaccard_weight" yaml:"jaccard_weight"` // Weight of vocabulary (Jaccard) similarity
}

// DefaultVersioningSettings returns the stock policy.
func DefaultVersioningSettings() VersioningSettings {
	return VersioningSettings{
		Threshold:     DefaultVersionThreshold,
		ContentWeight: DefaultContentWeight,
		TitleWeight:   DefaultTitleWeight,
		CosineWeight:  DefaultCosineWeight,
		JaccardWeight: DefaultJaccardWeight,
	}
}

// ApplyDefaults fills unset values. A weight pair is considered unset only when
// both of its weights are zero, so a single weight may be disabled explicitly.
func (s *VersioningSettings) ApplyDefaults() {
	if s.Threshold == 0 {
		s.Threshold = DefaultVersionThreshold
	}
	if s.ContentWeight == 0 && s.TitleWeight == 0 {
		s.ContentWeight = DefaultContentWeight
		s.TitleWeight = DefaultTitleWeight
	}
	if s.CosineWeight == 0 && s.JaccardWeight == 0 {
		s.CosineWeight = DefaultCosineWeight
		s.JaccardWeight = DefaultJaccardWeight
	}
}

// Validate returns a list of problems with the settings; an empty list means valid.
func (s *VersioningSettings) Validate() []string {
	var problems []string

	if s.Threshold <= 0 || s.Threshold > 100 {
		problems = append(problems, fmt.Sprintf("threshold must be in (0, 100], got %g", s.Threshold))
	}

	weights := []struct {
		name  string
		value float64
	}{
		{"content_weight", s.ContentWeight},
		{"title_weight", s.TitleWeight},
		{"cosine_weight", s.CosineWeight},
		{"jaccard_weight", s.JaccardWeight},
	}
	for _, w := range weights {
		if w.value < 0 {
			problems = append(problems, fmt.Sprintf("%s cannot be negative, got %g", w.name, w.value))
		}
	}

	if s.ContentWeight+s.TitleWeight <= 0 {
		problems = append(problems, "content_weight and title_weight cannot both be zero")
	}
	if s.CosineWeight+s.JaccardWeight <= 0 {
		problems = append(problems, "cosine_weight and jaccard_weight cannot both be zero")
	}

	return problems
}
