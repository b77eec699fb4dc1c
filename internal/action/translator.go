package action

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/vlm-docking/internal/motion"
	"github.com/golang/geo/r3"
)

const minAlignDistance = 1e-6

type Vehicle interface {
	Pose() motion.Pose
	Translate(delta r3.Vector)
	SetRotation(rot motion.Rotator)
}

// DockingReference is the optional pose "align" turns toward.
type DockingReference interface {
	Position() (r3.Vector, bool)
}

type Config struct {
	Step             float64
	YawStep          float64
	PitchStep        float64
	TurnRate         float64
	AlignInitialStep time.Duration
	AlignMaxStep     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Step:             10,
		YawStep:          5,
		PitchStep:        5,
		TurnRate:         45,
		AlignInitialStep: time.Second,
		AlignMaxStep:     2 * time.Second,
	}
}

type Result struct {
	Raw        string
	Action     Action
	Confidence float64
	Outcome    Outcome
}

// Translator turns decisions into vehicle motion. It keeps the time of the last
// align and is meant to be driven from one goroutine.
type Translator struct {
	cfg       Config
	clock     clock.Clock
	logger    *slog.Logger
	lastAlign time.Time
}

func NewTranslator(cfg Config, clk clock.Clock, logger *slog.Logger) *Translator {
	def := DefaultConfig()
	if cfg.Step == 0 {
		cfg.Step = def.Step
	}
	if cfg.YawStep == 0 {
		cfg.YawStep = def.YawStep
	}
	if cfg.PitchStep == 0 {
		cfg.PitchStep = def.PitchStep
	}
	if cfg.TurnRate == 0 {
		cfg.TurnRate = def.TurnRate
	}
	if cfg.AlignInitialStep == 0 {
		cfg.AlignInitialStep = def.AlignInitialStep
	}
	if cfg.AlignMaxStep == 0 {
		cfg.AlignMaxStep = def.AlignMaxStep
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Translator{
		cfg:    cfg,
		clock:  clk,
		logger: logger.With("component", "action-translator"),
	}
}

func (t *Translator) Config() Config {
	return t.cfg
}

// Apply performs the effect of raw on v. Confidence is carried into the
// result and never changes what is applied.
func (t *Translator) Apply(raw string, confidence float64, v Vehicle, dock DockingReference) Result {
	res := Result{Raw: raw, Confidence: confidence}

	a, ok := Parse(raw)
	if !ok {
		res.Outcome = OutcomeUnrecognized
		return res
	}
	res.Action = a
	res.Outcome = OutcomeApplied

	switch a {
	case Forward:
		t.translate(v, motion.AxisForward)
	case Backward:
		t.translate(v, motion.AxisForward.Mul(-1))
	case Right:
		t.translate(v, motion.AxisRight)
	case Left:
		t.translate(v, motion.AxisRight.Mul(-1))
	case Up:
		t.translate(v, motion.AxisUp)
	case Down:
		t.translate(v, motion.AxisUp.Mul(-1))
	case RotateCW:
		t.rotate(v, motion.Rotator{Yaw: t.cfg.YawStep})
	case RotateCCW:
		t.rotate(v, motion.Rotator{Yaw: -t.cfg.YawStep})
	case PitchUp:
		t.rotate(v, motion.Rotator{Pitch: t.cfg.PitchStep})
	case PitchDown:
		t.rotate(v, motion.Rotator{Pitch: -t.cfg.PitchStep})
	case Align:
		res.Outcome = t.align(v, dock)
	case Hold:
		res.Outcome = OutcomeHold
	}

	return res
}

func (t *Translator) translate(v Vehicle, axis r3.Vector) {
	pose := v.Pose()
	v.Translate(pose.Rotation.Rotate(axis.Mul(t.cfg.Step)))
}

func (t *Translator) rotate(v Vehicle, delta motion.Rotator) {
	v.SetRotation(v.Pose().Rotation.Add(delta))
}

func (t *Translator) align(v Vehicle, dock DockingReference) Outcome {
	if dock == nil {
		return OutcomeNoReference
	}
	target, ok := dock.Position()
	if !ok {
		return OutcomeNoReference
	}

	pose := v.Pose()
	offset := target.Sub(pose.Position)
	if offset.Norm() < minAlignDistance {
		return OutcomeNoReference
	}

	now := t.clock.Now()
	elapsed := t.cfg.AlignInitialStep
	if !t.lastAlign.IsZero() {
		elapsed = now.Sub(t.lastAlign)
		if elapsed > t.cfg.AlignMaxStep {
			elapsed = t.cfg.AlignMaxStep
		}
	}
	t.lastAlign = now

	goal := motion.LookAt(offset.Normalize())
	step := t.cfg.TurnRate * elapsed.Seconds()
	v.SetRotation(motion.StepToward(pose.Rotation, goal, step))

	t.logger.Debug("align step",
		"remaining_deg", motion.AngleBetween(pose.Rotation, goal),
		"step_deg", step)

	return OutcomeApplied
}
