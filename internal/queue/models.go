package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued call.
type Status string

const (
	StatusPending       Status = "pending"
	StatusPreprocessing Status = "preprocessing"
	StatusPreprocessed  Status = "preprocessed"
	StatusTranscribing  Status = "transcribing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusReview        Status = "review"
)

var allStatuses = []Status{
	StatusPending,
	StatusPreprocessing,
	StatusPreprocessed,
	StatusTranscribing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusPreprocessing: {},
	StatusTranscribing:  {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions return in-flight items to the status that restarts
// their interrupted stage after an unclean shutdown.
var stageRollbackTransitions = []statusTransition{
	{from: StatusPreprocessing, to: StatusPending},
	{from: StatusTranscribing, to: StatusPreprocessed},
}

// Call represents a queued call recording persisted in SQLite.
type Call struct {
	ID              int64
	CallUUID        string
	SourcePath      string
	Title           string
	Status          Status
	NormalizedPath  string
	TranscriptJSON  string
	QualityJSON     string
	DetectedLang    string
	Confidence      float64
	FallbackUsed    bool
	ErrorMessage    string
	NeedsReview     bool
	ReviewReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (c Call) IsProcessing() bool {
	_, ok := processingStatuses[c.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// InitProgress resets progress fields for a new stage.
func (c *Call) InitProgress(stage, message string) {
	if c.ProgressStage == "" {
		c.ProgressStage = stage
	}
	c.ProgressMessage = message
	c.ProgressPercent = 0
	c.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (c *Call) SetProgress(stage, message string, percent float64) {
	c.ProgressStage = stage
	c.ProgressMessage = message
	c.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (c *Call) SetProgressComplete(stage, message string) {
	c.SetProgress(stage, message, 100)
}

// SetFailed marks the call as failed with the given error message.
func (c *Call) SetFailed(message string) {
	c.Status = StatusFailed
	c.ErrorMessage = message
	c.ProgressPercent = 0
	c.ProgressMessage = message
	c.ProgressStage = "Failed"
}

// HealthSummary describes aggregated queue counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}
