package action

import "strings"

type Action string

const (
	Forward   Action = "forward"
	Backward  Action = "backward"
	Right     Action = "right"
	Left      Action = "left"
	Up        Action = "up"
	Down      Action = "down"
	RotateCW  Action = "rotate_cw"
	RotateCCW Action = "rotate_ccw"
	PitchUp   Action = "pitch_up"
	PitchDown Action = "pitch_down"
	Align     Action = "align"
	Hold      Action = "hold"
)

var Vocabulary = []Action{
	Forward, Backward, Right, Left, Up, Down,
	RotateCW, RotateCCW, PitchUp, PitchDown,
	Align, Hold,
}

var known = func() map[Action]bool {
	m := make(map[Action]bool, len(Vocabulary))
	for _, a := range Vocabulary {
		m[a] = true
	}
	return m
}()

// Parse matches s against the vocabulary after trimming surrounding space.
func Parse(s string) (Action, bool) {
	a := Action(strings.TrimSpace(s))
	if !known[a] {
		return "", false
	}
	return a, true
}

type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeHold         Outcome = "hold"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeNoReference  Outcome = "no_reference"
)
