package config

import (
	"strings"
	"testing"
)

func TestVersioningSettings_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name     string
		settings VersioningSettings
		expected VersioningSettings
	}{
		{
			name:     "empty settings get the stock policy",
			settings: VersioningSettings{},
			expected: DefaultVersioningSettings(),
		},
		{
			name:     "custom threshold is kept",
			settings: VersioningSettings{Threshold: 90},
			expected: VersioningSettings{Threshold: 90, ContentWeight: 0.8, TitleWeight: 0.2, CosineWeight: 0.7, JaccardWeight: 0.3},
		},
		{
			name:     "single zero weight is an explicit choice",
			settings: VersioningSettings{Threshold: 85, ContentWeight: 1, TitleWeight: 0},
			expected: VersioningSettings{Threshold: 85, ContentWeight: 1, TitleWeight: 0, CosineWeight: 0.7, JaccardWeight: 0.3},
		},
		{
			name:     "similarity weights are kept when one is set",
			settings: VersioningSettings{CosineWeight: 0.5, JaccardWeight: 0.5},
			expected: VersioningSettings{Threshold: 85, ContentWeight: 0.8, TitleWeight: 0.2, CosineWeight: 0.5, JaccardWeight: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.settings
			s.ApplyDefaults()
			if s != tt.expected {
				t.Errorf("ApplyDefaults() = %+v, expected %+v", s, tt.expected)
			}
		})
	}
}

func TestVersioningSettings_Validate(t *testing.T) {
	tests := []struct {
		name           string
		settings       VersioningSettings
		expectedErrors int
		contains       string
	}{
		{
			name:           "defaults are valid",
			settings:       DefaultVersioningSettings(),
			expectedErrors: 0,
		},
		{
			name:           "threshold of exactly 100 is valid",
			settings:       VersioningSettings{Threshold: 100, ContentWeight: 1, CosineWeight: 1},
			expectedErrors: 0,
		},
		{
			name:           "threshold above 100",
			settings:       VersioningSettings{Threshold: 101, ContentWeight: 0.8, TitleWeight: 0.2, CosineWeight: 0.7, JaccardWeight: 0.3},
			expectedErrors: 1,
			contains:       "threshold",
		},
		{
			name:           "zero threshold",
			settings:       VersioningSettings{Threshold: 0, ContentWeight: 0.8, TitleWeight: 0.2, CosineWeight: 0.7, JaccardWeight: 0.3},
			expectedErrors: 1,
			contains:       "threshold",
		},
		{
			name:           "negative weight",
			settings:       VersioningSettings{Threshold: 85, ContentWeight: -0.1, TitleWeight: 0.2, CosineWeight: 0.7, JaccardWeight: 0.3},
			expectedErrors: 1,
			contains:       "content_weight cannot be negative",
		},
		{
			name:           "both similarity weights zero",
			settings:       VersioningSettings{Threshold: 85, ContentWeight: 0.8, TitleWeight: 0.2},
			expectedErrors: 1,
			contains:       "cosine_weight and jaccard_weight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := tt.settings.Validate()
			if len(problems) != tt.expectedErrors {
				t.Fatalf("Validate() returned %d problems, expected %d: %v", len(problems), tt.expectedErrors, problems)
			}
			if tt.contains != "" && !strings.Contains(problems[0], tt.contains) {
				t.Errorf("expected problem containing %q, got %q", tt.contains, problems[0])
			}
		})
	}
}
