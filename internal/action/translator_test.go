package action

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/vlm-docking/internal/motion"
	"github.com/golang/geo/r3"
)

type fakeVehicle struct {
	pose         motion.Pose
	translations int
	rotations    int
}

func (v *fakeVehicle) Pose() motion.Pose { return v.pose }

func (v *fakeVehicle) Translate(delta r3.Vector) {
	v.pose.Position = v.pose.Position.Add(delta)
	v.translations++
}

func (v *fakeVehicle) SetRotation(rot motion.Rotator) {
	v.pose.Rotation = rot
	v.rotations++
}

type fixedDock struct {
	pos r3.Vector
	ok  bool
}

func (d fixedDock) Position() (r3.Vector, bool) { return d.pos, d.ok }

func newTestTranslator() (*Translator, *clock.Mock) {
	mock := clock.NewMock()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTranslator(DefaultConfig(), mock, logger), mock
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func vecNear(a, b r3.Vector) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

func TestParse(t *testing.T) {
	for _, a := range Vocabulary {
		got, ok := Parse(string(a))
		if !ok || got != a {
			t.Errorf("Parse(%s): expected %s, got %s (%v)", a, a, got, ok)
		}
	}
	if got, ok := Parse("  hold\n"); !ok || got != Hold {
		t.Errorf("expected surrounding space to be trimmed, got %s (%v)", got, ok)
	}
	for _, s := range []string{"", "FORWARD", "strafe", "dock"} {
		if _, ok := Parse(s); ok {
			t.Errorf("Parse(%q): expected unrecognized", s)
		}
	}
}

func TestNewTranslator_Defaults(t *testing.T) {
	tr := NewTranslator(Config{}, nil, nil)
	if tr.Config() != DefaultConfig() {
		t.Errorf("expected defaults, got %+v", tr.Config())
	}
	if tr.clock == nil || tr.logger == nil {
		t.Error("expected clock and logger defaults")
	}
}

func TestTranslator_Translations(t *testing.T) {
	cases := map[Action]r3.Vector{
		Forward:  {X: 10},
		Backward: {X: -10},
		Right:    {Y: 10},
		Left:     {Y: -10},
		Up:       {Z: 10},
		Down:     {Z: -10},
	}
	for a, want := range cases {
		tr, _ := newTestTranslator()
		v := &fakeVehicle{}
		res := tr.Apply(string(a), 0.5, v, nil)
		if res.Outcome != OutcomeApplied {
			t.Errorf("%s: expected applied, got %s", a, res.Outcome)
		}
		if !vecNear(v.pose.Position, want) {
			t.Errorf("%s: expected position %v, got %v", a, want, v.pose.Position)
		}
		if v.translations != 1 || v.rotations != 0 {
			t.Errorf("%s: expected one translation and no rotation, got %d/%d", a, v.translations, v.rotations)
		}
	}
}

func TestTranslator_TranslationFollowsBodyAxis(t *testing.T) {
	tr, _ := newTestTranslator()
	v := &fakeVehicle{pose: motion.Pose{Rotation: motion.Rotator{Yaw: 90}}}

	tr.Apply("forward", 1, v, nil)
	if !vecNear(v.pose.Position, r3.Vector{Y: 10}) {
		t.Errorf("expected forward along +Y after yaw 90, got %v", v.pose.Position)
	}
}

func TestTranslator_Rotations(t *testing.T) {
	cases := map[Action]motion.Rotator{
		RotateCW:  {Yaw: 5},
		RotateCCW: {Yaw: -5},
		PitchUp:   {Pitch: 5},
		PitchDown: {Pitch: -5},
	}
	for a, want := range cases {
		tr, _ := newTestTranslator()
		v := &fakeVehicle{}
		tr.Apply(string(a), 0.5, v, nil)
		if v.pose.Rotation != want {
			t.Errorf("%s: expected %+v, got %+v", a, want, v.pose.Rotation)
		}
		if v.translations != 0 || v.rotations != 1 {
			t.Errorf("%s: expected one rotation only, got %d/%d", a, v.translations, v.rotations)
		}
	}
}

func TestTranslator_ForwardLowConfidence(t *testing.T) {
	tr, _ := newTestTranslator()
	v := &fakeVehicle{}

	res := tr.Apply("forward", 0.1, v, nil)
	if res.Confidence != 0.1 {
		t.Errorf("expected confidence recorded as 0.1, got %v", res.Confidence)
	}
	if v.translations != 1 {
		t.Errorf("expected exactly one translation, got %d", v.translations)
	}
	if !vecNear(v.pose.Position, r3.Vector{X: 10}) {
		t.Errorf("expected forward by 10, got %v", v.pose.Position)
	}
}

func TestTranslator_RotateCWHighConfidence(t *testing.T) {
	tr, _ := newTestTranslator()
	v := &fakeVehicle{pose: motion.Pose{Rotation: motion.Rotator{Yaw: 30}}}

	tr.Apply("rotate_cw", 0.9, v, nil)
	if !near(v.pose.Rotation.Yaw, 35) {
		t.Errorf("expected yaw 35, got %v", v.pose.Rotation.Yaw)
	}
}

func TestTranslator_ConfidenceNeverGates(t *testing.T) {
	for _, c := range []float64{0, 0.1, 0.5, 1, -3, 7, math.NaN()} {
		tr, _ := newTestTranslator()
		v := &fakeVehicle{}
		res := tr.Apply("up", c, v, nil)
		if res.Outcome != OutcomeApplied || v.translations != 1 {
			t.Errorf("confidence %v: expected action applied once, got %s/%d", c, res.Outcome, v.translations)
		}
	}
}

func TestTranslator_HoldAndUnrecognized(t *testing.T) {
	tr, _ := newTestTranslator()
	v := &fakeVehicle{pose: motion.Pose{Position: r3.Vector{X: 1}, Rotation: motion.Rotator{Yaw: 3}}}
	before := v.pose

	if res := tr.Apply("hold", 1, v, nil); res.Outcome != OutcomeHold {
		t.Errorf("expected hold outcome, got %s", res.Outcome)
	}
	if res := tr.Apply("barrel_roll", 1, v, nil); res.Outcome != OutcomeUnrecognized {
		t.Errorf("expected unrecognized outcome, got %s", res.Outcome)
	}

	if v.pose != before || v.translations != 0 || v.rotations != 0 {
		t.Errorf("expected no mutation, got %+v (%d/%d)", v.pose, v.translations, v.rotations)
	}
}

func TestTranslator_AlignWithoutReference(t *testing.T) {
	tr, _ := newTestTranslator()
	v := &fakeVehicle{}

	if res := tr.Apply("align", 1, v, nil); res.Outcome != OutcomeNoReference {
		t.Errorf("expected no_reference, got %s", res.Outcome)
	}
	if res := tr.Apply("align", 1, v, fixedDock{}); res.Outcome != OutcomeNoReference {
		t.Errorf("expected no_reference for absent dock, got %s", res.Outcome)
	}
	if res := tr.Apply("align", 1, v, fixedDock{ok: true}); res.Outcome != OutcomeNoReference {
		t.Errorf("expected no_reference for coincident dock, got %s", res.Outcome)
	}
	if v.rotations != 0 {
		t.Errorf("expected no rotation, got %d", v.rotations)
	}
}

func TestTranslator_AlignFirstStepUsesInitialStep(t *testing.T) {
	tr, _ := newTestTranslator()
	v := &fakeVehicle{}
	dock := fixedDock{pos: r3.Vector{Y: 100}, ok: true}

	tr.Apply("align", 0.8, v, dock)
	if !near(v.pose.Rotation.Yaw, 45) {
		t.Errorf("expected yaw 45 after one second at 45deg/s, got %+v", v.pose.Rotation)
	}
}

func TestTranslator_AlignScalesWithElapsed(t *testing.T) {
	tr, mock := newTestTranslator()
	v := &fakeVehicle{}
	dock := fixedDock{pos: r3.Vector{X: -100, Y: 1}, ok: true}

	tr.Apply("align", 1, v, dock)
	mock.Add(200 * time.Millisecond)
	tr.Apply("align", 1, v, dock)

	if !near(v.pose.Rotation.Yaw, 54) {
		t.Errorf("expected yaw 45+9, got %+v", v.pose.Rotation)
	}
}

func TestTranslator_AlignClampsElapsed(t *testing.T) {
	tr, mock := newTestTranslator()
	v := &fakeVehicle{}
	dock := fixedDock{pos: r3.Vector{X: -100, Y: 1}, ok: true}

	tr.Apply("align", 1, v, dock)
	mock.Add(time.Minute)
	tr.Apply("align", 1, v, dock)

	if !near(v.pose.Rotation.Yaw, 135) {
		t.Errorf("expected yaw 45+90 with elapsed clamped to 2s, got %+v", v.pose.Rotation)
	}
}

func TestTranslator_AlignConvergesWithoutOvershoot(t *testing.T) {
	tr, mock := newTestTranslator()
	v := &fakeVehicle{pose: motion.Pose{Position: r3.Vector{X: 5, Y: -3, Z: 2}, Rotation: motion.Rotator{Yaw: -120, Pitch: 10}}}
	dockPos := r3.Vector{X: 40, Y: 80, Z: -30}
	dock := fixedDock{pos: dockPos, ok: true}
	goal := motion.LookAt(dockPos.Sub(v.pose.Position).Normalize())

	prev := motion.AngleBetween(v.pose.Rotation, goal)
	for i := 0; i < 20; i++ {
		before := v.pose.Rotation
		tr.Apply("align", 0.5, v, dock)
		remaining := motion.AngleBetween(v.pose.Rotation, goal)
		moved := motion.AngleBetween(before, v.pose.Rotation)

		if remaining > prev+1e-6 {
			t.Fatalf("step %d moved away from the dock: %v -> %v", i, prev, remaining)
		}
		if moved > prev+1e-3 {
			t.Fatalf("step %d overshot: moved %v with %v remaining", i, moved, prev)
		}
		prev = remaining
		mock.Add(500 * time.Millisecond)
	}

	if prev > 1e-3 {
		t.Errorf("expected to face the dock, %v degrees left", prev)
	}
	if v.translations != 0 {
		t.Errorf("align must not translate, got %d", v.translations)
	}
}
