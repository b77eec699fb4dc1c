package decision

import (
	"time"

	"github.com/eleven-am/vlm-docking/internal/control"
)

// Record is one completed inference request and what the core did with it.
type Record struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	CycleID     string    `gorm:"not null;index" json:"cycle_id"`
	CameraID    string    `gorm:"not null;index" json:"camera_id"`
	Command     string    `gorm:"not null" json:"command"`
	Action      string    `json:"action,omitempty"`
	Confidence  float64   `json:"confidence"`
	Outcome     string    `gorm:"not null;index" json:"outcome"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	LatencyMs   int64     `json:"latency_ms"`
	Late        bool      `json:"late,omitempty"`
	DecidedAt   time.Time `gorm:"not null;index" json:"decided_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Record) TableName() string {
	return "decisions"
}

func FromDecision(d control.Decision) *Record {
	return &Record{
		CycleID:     d.CycleID,
		CameraID:    string(d.CameraID),
		Command:     d.Command,
		Action:      d.Action,
		Confidence:  d.Confidence,
		Outcome:     d.Outcome,
		FailureKind: string(d.FailureKind),
		Error:       d.Error,
		LatencyMs:   d.LatencyMs,
		Late:        d.Late,
		DecidedAt:   d.At,
	}
}

type Filter struct {
	CameraID string
	Outcome  string
	Limit    int
}
