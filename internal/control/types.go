package control

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/vlm-docking/internal/action"
	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/vehicle"
	"github.com/eleven-am/vlm-docking/internal/vision"
)

var (
	ErrAlreadyRunning = errors.New("control loop already running")
	ErrMissingDep     = errors.New("control loop dependency missing")
)

type State string

const (
	StateIdle              State = "idle"
	StateCapturing         State = "capturing"
	StateAwaitingResponses State = "awaiting_responses"
)

// Outcomes recorded for completions that never reach the translator.
const (
	OutcomeFailed = "failed"
	OutcomeStale  = "stale"
)

type Sender interface {
	Send(ctx context.Context, img vision.EncodedImage, command string, onComplete func(vision.Result))
}

type FrameEncoder interface {
	Encode(frame *camera.Frame) (vision.EncodedImage, error)
}

type CommandReader interface {
	Get() string
}

// Vehicle is the actuated body plus a handle naming its current generation.
type Vehicle interface {
	action.Vehicle
	Handle() vehicle.Handle
}

type DecisionObserver interface {
	ObserveDecision(d Decision)
}

type SampleObserver interface {
	ObserveSample(img vision.EncodedImage, command string)
}

type Config struct {
	Period     time.Duration
	RearmDelay time.Duration
	// StaleAfter is how old an in-flight cycle must be before a periodic
	// tick starts a new one anyway. Defaults to Period. Responses from the
	// replaced cycle are still applied when they arrive.
	StaleAfter time.Duration

	Sources    []*camera.Source
	Encoder    FrameEncoder
	Sender     Sender
	Translator *action.Translator
	Commands   CommandReader
	Vehicle    Vehicle
	Dock       action.DockingReference

	Observers []DecisionObserver
	Samples   SampleObserver

	Clock  clock.Clock
	Logger *slog.Logger
}

// Decision is the record of one completed request. Late marks a response
// that arrived after a periodic tick superseded its cycle.
type Decision struct {
	CycleID     string             `json:"cycle_id"`
	CameraID    camera.ID          `json:"camera_id"`
	Command     string             `json:"command"`
	Action      string             `json:"action,omitempty"`
	Confidence  float64            `json:"confidence"`
	Outcome     string             `json:"outcome"`
	FailureKind vision.FailureKind `json:"failure_kind,omitempty"`
	Error       string             `json:"error,omitempty"`
	LatencyMs   int64              `json:"latency_ms"`
	Late        bool               `json:"late,omitempty"`
	At          time.Time          `json:"at"`
}

type Status struct {
	Running       bool                   `json:"running"`
	State         State                  `json:"state"`
	CycleID       string                 `json:"cycle_id,omitempty"`
	Cycles        uint64                 `json:"cycles"`
	Skipped       uint64                 `json:"skipped"`
	Outstanding   int                    `json:"outstanding"`
	Command       string                 `json:"command"`
	LastCycleAt   time.Time              `json:"last_cycle_at,omitempty"`
	LastDecisions map[camera.ID]Decision `json:"last_decisions"`
}
