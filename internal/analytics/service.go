package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gcbaptista/go-document-repository/internal/persistence"
	"github.com/gcbaptista/go-document-repository/model"
)

const (
	// DataFile is the analytics file name inside the data directory.
	DataFile        = "analytics.json"
	maxEventsToKeep = 10000 // Keep last 10k events for performance
	topUploaders    = 5
)

// Service implements upload analytics tracking and reporting
type Service struct {
	mutex        sync.RWMutex
	saveMutex    sync.Mutex
	events       []model.UploadEvent
	dataFilePath string
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates an analytics service persisted at dataFilePath.
// An empty path keeps events in memory only.
func NewService(dataFilePath string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	service := &Service{
		events:       make([]model.UploadEvent, 0),
		dataFilePath: dataFilePath,
		logger:       logger,
		now:          time.Now,
	}

	if err := service.loadData(); err != nil {
		logger.Warn("failed to load analytics data", "path", dataFilePath, "error", err)
	}

	return service
}

// TrackUploadEvent records the outcome of one upload. Saves are serialized
// with the append so the file always holds the newest snapshot.
func (s *Service) TrackUploadEvent(event model.UploadEvent) error {
	s.saveMutex.Lock()
	defer s.saveMutex.Unlock()

	s.mutex.Lock()
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events = append(s.events, event)

	// Keep only the latest events to prevent unbounded growth
	if len(s.events) > maxEventsToKeep {
		s.events = s.events[len(s.events)-maxEventsToKeep:]
	}
	snapshot := make([]model.UploadEvent, len(s.events))
	copy(snapshot, s.events)
	s.mutex.Unlock()

	return s.saveData(snapshot)
}

// EventCount returns the number of retained events
func (s *Service) EventCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.events)
}

// GetDashboardData returns complete analytics dashboard data
func (s *Service) GetDashboardData() (model.AnalyticsDashboard, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	yesterday := s.now().Add(-24 * time.Hour)

	dashboard := model.AnalyticsDashboard{
		TotalUploads:      len(s.events),
		AvgScore:          s.calculateAvgScore(s.events),
		AvgProcessingTime: s.calculateAvgProcessingTime(s.events),
		Uploads24h:        len(s.filterEventsByTime(s.events, yesterday)),
		ScoreDistribution: s.getScoreDistribution(s.events),
		Formats:           s.getFormatStats(s.events),
		TopUploaders:      s.getTopUploaders(s.events),
	}

	for _, event := range s.events {
		if event.Decision == model.DecisionNewVersion {
			dashboard.NewVersions++
		} else {
			dashboard.NewDocuments++
		}
	}
	if dashboard.TotalUploads > 0 {
		dashboard.VersionRate = float64(dashboard.NewVersions) / float64(dashboard.TotalUploads) * 100
	}

	return dashboard, nil
}

// filterEventsByTime returns events after the given time
func (s *Service) filterEventsByTime(events []model.UploadEvent, after time.Time) []model.UploadEvent {
	var filtered []model.UploadEvent
	for _, event := range events {
		if event.Timestamp.After(after) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func (s *Service) calculateAvgScore(events []model.UploadEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var total float64
	for _, event := range events {
		total += event.Score
	}
	return total / float64(len(events))
}

// calculateAvgProcessingTime calculates average processing time in milliseconds
func (s *Service) calculateAvgProcessingTime(events []model.UploadEvent) int64 {
	if len(events) == 0 {
		return 0
	}

	var total time.Duration
	for _, event := range events {
		total += event.ProcessingTime
	}
	avgDuration := total / time.Duration(len(events))
	return avgDuration.Milliseconds()
}

func (s *Service) getScoreDistribution(events []model.UploadEvent) model.ScoreDistribution {
	dist := model.ScoreDistribution{}
	for _, event := range events {
		switch {
		case event.Score < 25:
			dist.Bucket0To25++
		case event.Score < 50:
			dist.Bucket25To50++
		case event.Score < 85:
			dist.Bucket50To85++
		default:
			dist.Bucket85To100++
		}
	}
	return dist
}

// getFormatStats reports how often extraction produced text, per format
func (s *Service) getFormatStats(events []model.UploadEvent) []model.FormatStats {
	byFormat := make(map[model.Format]*model.FormatStats)
	for _, event := range events {
		stats, ok := byFormat[event.Format]
		if !ok {
			stats = &model.FormatStats{Format: event.Format}
			byFormat[event.Format] = stats
		}
		stats.Uploads++
		if event.Extracted {
			stats.Extracted++
		}
	}

	formats := make([]model.FormatStats, 0, len(byFormat))
	for _, stats := range byFormat {
		stats.SuccessRate = float64(stats.Extracted) / float64(stats.Uploads) * 100
		formats = append(formats, *stats)
	}
	sort.Slice(formats, func(i, j int) bool {
		return formats[i].Format < formats[j].Format
	})
	return formats
}

// getTopUploaders returns the most active users
func (s *Service) getTopUploaders(events []model.UploadEvent) []model.UserActivity {
	byOwner := make(map[string]*model.UserActivity)
	for _, event := range events {
		activity, ok := byOwner[event.OwnerID]
		if !ok {
			activity = &model.UserActivity{OwnerID: event.OwnerID}
			byOwner[event.OwnerID] = activity
		}
		activity.Uploads++
		if event.Decision == model.DecisionNewVersion {
			activity.NewVersions++
		}
	}

	users := make([]model.UserActivity, 0, len(byOwner))
	for _, activity := range byOwner {
		users = append(users, *activity)
	}
	// Sort by uploads descending
	sort.Slice(users, func(i, j int) bool {
		if users[i].Uploads != users[j].Uploads {
			return users[i].Uploads > users[j].Uploads
		}
		return users[i].OwnerID < users[j].OwnerID
	})

	if len(users) > topUploaders {
		users = users[:topUploaders]
	}
	return users
}

// loadData loads analytics data from file
func (s *Service) loadData() error {
	if s.dataFilePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.dataFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // File doesn't exist yet, that's okay
		}
		return fmt.Errorf("failed to read analytics file: %w", err)
	}

	var events []model.UploadEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return fmt.Errorf("failed to unmarshal analytics data: %w", err)
	}
	s.events = events
	return nil
}

// saveData writes events to the data file. Callers hold saveMutex.
func (s *Service) saveData(events []model.UploadEvent) error {
	if s.dataFilePath == "" {
		return nil
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal analytics data: %w", err)
	}

	err = persistence.WriteAtomic(s.dataFilePath, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write analytics file: %w", err)
	}
	return nil
}
