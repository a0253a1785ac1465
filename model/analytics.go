package model

import "time"

// UploadEvent records the outcome of one upload for analytics
type UploadEvent struct {
	OwnerID        string        `json:"owner_id"`
	DocumentID     string        `json:"document_id"`
	Format         Format        `json:"format"`
	Extracted      bool          `json:"extracted"` // false when extraction produced no text
	Decision       DecisionKind  `json:"decision"`
	Score          float64       `json:"score"`
	CandidateCount int           `json:"candidate_count"`
	ProcessingTime time.Duration `json:"processing_time"`
	Timestamp      time.Time     `json:"timestamp"`
}

// ScoreDistribution buckets the best similarity score of each upload
type ScoreDistribution struct {
	Bucket0To25   int `json:"bucket_0_25"`
	Bucket25To50  int `json:"bucket_25_50"`
	Bucket50To85  int `json:"bucket_50_85"`
	Bucket85To100 int `json:"bucket_85_100"`
}

// FormatStats reports extraction coverage for one format
type FormatStats struct {
	Format      Format  `json:"format"`
	Uploads     int     `json:"uploads"`
	Extracted   int     `json:"extracted"`
	SuccessRate float64 `json:"success_rate_percent"`
}

// UserActivity represents upload counts for one user
type UserActivity struct {
	OwnerID     string `json:"owner_id"`
	Uploads     int    `json:"uploads"`
	NewVersions int    `json:"new_versions"`
}

// AnalyticsDashboard represents the complete analytics dashboard data
type AnalyticsDashboard struct {
	TotalUploads      int               `json:"total_uploads"`
	NewDocuments      int               `json:"new_documents"`
	NewVersions       int               `json:"new_versions"`
	VersionRate       float64           `json:"version_rate_percent"`
	AvgScore          float64           `json:"avg_score"`
	AvgProcessingTime int64             `json:"avg_processing_time"` // in milliseconds
	Uploads24h        int               `json:"uploads_24h"`
	ScoreDistribution ScoreDistribution `json:"score_distribution"`
	Formats           []FormatStats     `json:"formats"`
	TopUploaders      []UserActivity    `json:"top_uploaders"`
}
