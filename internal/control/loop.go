package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/vlm-docking/internal/action"
	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/vehicle"
	"github.com/eleven-am/vlm-docking/internal/vision"
	"github.com/google/uuid"
)

const completionBuffer = 64

type trigger string

const (
	triggerPeriodic trigger = "periodic"
	triggerRearm    trigger = "rearm"
	triggerManual   trigger = "manual"
)

type completion struct {
	cycleID string
	handle  vehicle.Handle
	result  vision.Result
}

// Loop drives capture, inference and actuation. All vehicle and translator
// access happens on the goroutine running Run (or Step).
type Loop struct {
	cfg    Config
	clock  clock.Clock
	logger *slog.Logger

	requests    chan struct{}
	completions chan completion
	done        chan struct{}
	running     atomic.Bool

	// owned by the control goroutine
	cycleID     string
	cycleStart  time.Time
	outstanding int
	rearm       *clock.Timer

	mu     sync.RWMutex
	status Status
}

func NewLoop(cfg Config) (*Loop, error) {
	switch {
	case cfg.Encoder == nil:
		return nil, fmt.Errorf("%w: encoder", ErrMissingDep)
	case cfg.Sender == nil:
		return nil, fmt.Errorf("%w: sender", ErrMissingDep)
	case cfg.Translator == nil:
		return nil, fmt.Errorf("%w: translator", ErrMissingDep)
	case cfg.Commands == nil:
		return nil, fmt.Errorf("%w: commands", ErrMissingDep)
	case cfg.Vehicle == nil:
		return nil, fmt.Errorf("%w: vehicle", ErrMissingDep)
	}

	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.RearmDelay <= 0 {
		cfg.RearmDelay = time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = cfg.Period
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Loop{
		cfg:         cfg,
		clock:       cfg.Clock,
		logger:      cfg.Logger.With("component", "control-loop"),
		requests:    make(chan struct{}, 1),
		completions: make(chan completion, completionBuffer),
		done:        make(chan struct{}),
		status: Status{
			State:         StateIdle,
			LastDecisions: make(map[camera.ID]Decision),
		},
	}, nil
}

// Run blocks until ctx is cancelled. It can be called once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(l.done)

	ticker := l.clock.Ticker(l.cfg.Period)
	defer ticker.Stop()
	defer l.stopRearm()

	l.updateStatus(func(s *Status) { s.Running = true })
	defer l.updateStatus(func(s *Status) { s.Running = false })

	l.logger.Info("control loop started",
		"period", l.cfg.Period,
		"rearm_delay", l.cfg.RearmDelay,
		"cameras", len(l.cfg.Sources))

	for {
		var rearmC <-chan time.Time
		if l.rearm != nil {
			rearmC = l.rearm.C
		}

		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopped", "outstanding", l.outstanding)
			return nil
		case <-ticker.C:
			l.onTrigger(ctx, triggerPeriodic)
		case <-rearmC:
			l.rearm = nil
			l.onTrigger(ctx, triggerRearm)
		case <-l.requests:
			l.onTrigger(ctx, triggerManual)
		case c := <-l.completions:
			l.handleCompletion(c)
		}
	}
}

// Step runs one full cycle on the caller and returns once every request it
// sent has completed. It must not be used while Run is active.
func (l *Loop) Step(ctx context.Context) error {
	if l.running.Load() {
		return ErrAlreadyRunning
	}

	l.startCycle(ctx, triggerManual)
	defer l.stopRearm()

	for l.outstanding > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-l.completions:
			l.handleCompletion(c)
		}
	}
	return nil
}

// RequestCycle asks the running loop for a cycle as soon as nothing is in
// flight. Requests made while one is already queued are merged.
func (l *Loop) RequestCycle() bool {
	select {
	case l.requests <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := l.status
	s.Command = l.cfg.Commands.Get()
	s.LastDecisions = make(map[camera.ID]Decision, len(l.status.LastDecisions))
	for id, d := range l.status.LastDecisions {
		s.LastDecisions[id] = d
	}
	return s
}

func (l *Loop) onTrigger(ctx context.Context, t trigger) {
	if l.outstanding > 0 {
		age := l.clock.Since(l.cycleStart)
		if t != triggerPeriodic || age < l.cfg.StaleAfter {
			l.logger.Debug("cycle skipped, requests outstanding",
				"trigger", t,
				"cycle_id", l.cycleID,
				"outstanding", l.outstanding)
			l.updateStatus(func(s *Status) { s.Skipped++ })
			return
		}
		l.logger.Warn("superseding stalled cycle",
			"cycle_id", l.cycleID,
			"outstanding", l.outstanding,
			"age", age)
	}

	l.startCycle(ctx, t)
}

// startCycle is the one fan-out over the camera list: capture, encode and send
// for every camera that has a frame this cycle.
func (l *Loop) startCycle(ctx context.Context, t trigger) {
	l.stopRearm()

	l.cycleID = uuid.NewString()
	l.cycleStart = l.clock.Now()
	l.outstanding = 0
	l.setState(StateCapturing)

	handle := l.cfg.Vehicle.Handle()
	sendCtx := context.WithoutCancel(ctx)

	for _, src := range l.cfg.Sources {
		frame, err := src.Capture(ctx)
		if err != nil {
			l.logger.Debug("camera skipped", "camera_id", src.ID(), "error", err)
			continue
		}

		img, err := l.cfg.Encoder.Encode(frame)
		if err != nil {
			l.logger.Warn("encode failed", "camera_id", src.ID(), "error", err)
			continue
		}

		cmd := l.cfg.Commands.Get()
		if l.cfg.Samples != nil {
			l.cfg.Samples.ObserveSample(img, cmd)
		}

		l.outstanding++
		l.cfg.Sender.Send(sendCtx, img, cmd, l.completer(l.cycleID, handle))
	}

	next := StateAwaitingResponses
	if l.outstanding == 0 {
		next = StateIdle
	}
	l.setState(next)

	l.updateStatus(func(s *Status) {
		s.CycleID = l.cycleID
		s.Cycles++
		s.Outstanding = l.outstanding
		s.LastCycleAt = l.cycleStart
	})

	l.logger.Debug("cycle started",
		"cycle_id", l.cycleID,
		"trigger", t,
		"requests", l.outstanding)
}

func (l *Loop) completer(cycleID string, handle vehicle.Handle) func(vision.Result) {
	return func(r vision.Result) {
		select {
		case l.completions <- completion{cycleID: cycleID, handle: handle, result: r}:
		case <-l.done:
		}
	}
}

func (l *Loop) handleCompletion(c completion) {
	r := c.result
	d := Decision{
		CycleID:   c.cycleID,
		CameraID:  r.CameraID,
		Command:   r.Command,
		LatencyMs: r.Latency.Milliseconds(),
		At:        l.clock.Now(),
	}

	// A superseded cycle no longer gates new cycles, but its responses are
	// still applied.
	if c.cycleID == l.cycleID {
		l.outstanding--
		if l.outstanding == 0 {
			l.setState(StateIdle)
		}
		l.updateStatus(func(s *Status) { s.Outstanding = l.outstanding })
	} else {
		d.Late = true
		l.logger.Debug("completion from superseded cycle",
			"cycle_id", c.cycleID,
			"camera_id", r.CameraID)
	}

	if !c.handle.Alive() {
		d.Outcome = OutcomeStale
		l.logger.Debug("vehicle gone, completion dropped",
			"camera_id", r.CameraID,
			"generation", c.handle.Generation())
		l.record(d)
		return
	}

	if r.Err != nil || r.Response == nil {
		err := r.Err
		if err == nil {
			err = errors.New("empty response")
		}
		d.Outcome = OutcomeFailed
		d.FailureKind = vision.KindOf(err)
		d.Error = err.Error()
		l.logger.Warn("inference failed",
			"camera_id", r.CameraID,
			"kind", d.FailureKind,
			"error", err)
		l.record(d)
		return
	}

	res := l.cfg.Translator.Apply(r.Response.Action, r.Response.Confidence, l.cfg.Vehicle, l.cfg.Dock)
	d.Action = res.Raw
	d.Confidence = res.Confidence
	d.Outcome = string(res.Outcome)

	switch res.Outcome {
	case action.OutcomeUnrecognized:
		l.logger.Info("unrecognized action ignored",
			"camera_id", r.CameraID,
			"action", res.Raw)
	default:
		l.logger.Debug("action applied",
			"camera_id", r.CameraID,
			"action", res.Action,
			"confidence", res.Confidence,
			"outcome", res.Outcome)
	}

	l.armRearm()
	l.record(d)
}

func (l *Loop) armRearm() {
	if l.rearm != nil {
		return
	}
	l.rearm = l.clock.Timer(l.cfg.RearmDelay)
}

func (l *Loop) stopRearm() {
	if l.rearm == nil {
		return
	}
	l.rearm.Stop()
	l.rearm = nil
}

func (l *Loop) record(d Decision) {
	l.updateStatus(func(s *Status) { s.LastDecisions[d.CameraID] = d })
	for _, o := range l.cfg.Observers {
		o.ObserveDecision(d)
	}
}

func (l *Loop) setState(st State) {
	l.updateStatus(func(s *Status) { s.State = st })
}

func (l *Loop) updateStatus(fn func(s *Status)) {
	l.mu.Lock()
	fn(&l.status)
	l.mu.Unlock()
}
