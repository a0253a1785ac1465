package model

import "fmt"

// DecisionKind tells whether an upload starts a new document or extends an existing one.
type DecisionKind string

const (
	DecisionNewDocument DecisionKind = "new_document"
	DecisionNewVersion  DecisionKind = "new_version"
)

// Decision is the outcome of version detection for one upload.
// TargetDocumentID and NextVersion are only set for DecisionNewVersion.
// Score is the best combined score found, rounded to one decimal.
type Decision struct {
	Kind             DecisionKind `json:"kind"`
	TargetDocumentID string       `json:"target_document_id,omitempty"`
	NextVersion      int          `json:"next_version,omitempty"`
	Score            float64      `json:"score"`
	ContentScore     float64      `json:"content_score"`
	TitleScore       float64      `json:"title_score"`
	Threshold        float64      `json:"threshold"`
}

// IsNewVersion reports whether the upload was classified as a new version.
func (d Decision) IsNewVersion() bool {
	return d.Kind == DecisionNewVersion
}

// Message renders the feedback line shown to the uploading user.
func (d Decision) Message() string {
	if d.IsNewVersion() {
		return fmt.Sprintf("Stored as new version (Version %d) - %.1f%% similarity detected with existing document.", d.NextVersion, d.Score)
	}
	if d.Score > 0 {
		return fmt.Sprintf("Stored as new document - %.1f%% similarity detected but below %g%% threshold.", d.Score, d.Threshold)
	}
	return "Document uploaded successfully as new document!"
}

// Match is a candidate together with its similarity scores against an upload.
type Match struct {
	DocumentID    string  `json:"document_id"`
	Title         string  `json:"title"`
	LatestVersion int     `json:"latest_version"`
	ContentScore  float64 `json:"content_score"`
	TitleScore    float64 `json:"title_score"`
	Score         float64 `json:"score"`
}
