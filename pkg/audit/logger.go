// Package audit keeps a local record of what each run submitted to the
// Dashboard, one JSON object per line in a daily file.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDir is where activity files are written on an EasyEngine host.
const DefaultDir = "/opt/easyengine/logs/ee-dash"

// ActivityType represents the type of activity
type ActivityType string

const (
	ActivityRunStarted       ActivityType = "run.started"
	ActivityRunCompleted     ActivityType = "run.completed"
	ActivityRunFailed        ActivityType = "run.failed"
	ActivityServerRegistered ActivityType = "server.registered"
	ActivityServerSkipped    ActivityType = "server.skipped"
	ActivityServerFailed     ActivityType = "server.failed"
	ActivityServerPlanned    ActivityType = "server.planned"
	ActivitySiteRegistered   ActivityType = "site.registered"
	ActivitySiteSkipped      ActivityType = "site.skipped"
	ActivitySiteFailed       ActivityType = "site.failed"
	ActivitySitePlanned      ActivityType = "site.planned"
)

// Activity represents a logged activity
type Activity struct {
	ID           string         `json:"id"`
	RunID        string         `json:"run_id"`
	Type         ActivityType   `json:"type"`
	Organization string         `json:"organization"`
	Server       string         `json:"server,omitempty"`
	Resource     string         `json:"resource,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Error        string         `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Logger defines the interface for activity logging
type Logger interface {
	Log(activity *Activity) error
	Close() error
}

// FileLogger logs activities to daily JSON lines files
type FileLogger struct {
	basePath string
	mu       sync.Mutex
	enabled  bool
}

// NewFileLogger creates the directory at basePath and returns a logger
// writing into it. An empty basePath selects DefaultDir.
func NewFileLogger(basePath string) (*FileLogger, error) {
	if basePath == "" {
		basePath = DefaultDir
	}

	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &FileLogger{
		basePath: basePath,
		enabled:  true,
	}, nil
}

// Log appends activity to the file for its day. ID and Timestamp are filled
// in when empty.
func (l *FileLogger) Log(activity *Activity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return nil
	}

	if activity.ID == "" {
		activity.ID = GenerateID()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now().UTC()
	}

	fileName := filepath.Join(
		l.basePath,
		activity.Timestamp.Format("2006-01-02")+".jsonl",
	)

	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(activity); err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}

	return nil
}

// Close stops further writes
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
	return nil
}

// NoOpLogger is a logger that does nothing
type NoOpLogger struct{}

// NewNoOpLogger creates a no-op logger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Log does nothing
func (n *NoOpLogger) Log(activity *Activity) error {
	return nil
}

// Close does nothing
func (n *NoOpLogger) Close() error {
	return nil
}

// GenerateID returns a random activity or run identifier
func GenerateID() string {
	return uuid.NewString()
}
