package command

import (
	"errors"
	"strings"
	"sync"
	"time"
)

const DefaultCommand = "align with port"

var ErrUnknownCommand = errors.New("unknown command")

type Trigger string

const (
	TriggerForward   Trigger = "forward"
	TriggerBackward  Trigger = "backward"
	TriggerRight     Trigger = "right"
	TriggerLeft      Trigger = "left"
	TriggerUp        Trigger = "up"
	TriggerDown      Trigger = "down"
	TriggerRotateCW  Trigger = "rotate_cw"
	TriggerRotateCCW Trigger = "rotate_ccw"
	TriggerPitchUp   Trigger = "pitch_up"
	TriggerPitchDown Trigger = "pitch_down"
	TriggerAlign     Trigger = "align"
	TriggerHold      Trigger = "hold"
)

var Triggers = []Trigger{
	TriggerForward, TriggerBackward, TriggerRight, TriggerLeft,
	TriggerUp, TriggerDown, TriggerRotateCW, TriggerRotateCCW,
	TriggerPitchUp, TriggerPitchDown, TriggerAlign, TriggerHold,
}

// DefaultKeymap is the operator key layout, one key per trigger.
var DefaultKeymap = map[string]Trigger{
	"1": TriggerForward,
	"2": TriggerBackward,
	"3": TriggerRight,
	"4": TriggerLeft,
	"5": TriggerUp,
	"6": TriggerDown,
	"7": TriggerRotateCW,
	"8": TriggerRotateCCW,
	"9": TriggerPitchUp,
	"0": TriggerPitchDown,
	"-": TriggerAlign,
	"=": TriggerHold,
}

// Command returns the command string the trigger writes.
func (t Trigger) Command() string {
	return string(t)
}

func (t Trigger) Valid() bool {
	for _, known := range Triggers {
		if t == known {
			return true
		}
	}
	return false
}

// ResolveTrigger accepts a trigger name or a key from DefaultKeymap.
func ResolveTrigger(s string) (Trigger, bool) {
	s = strings.TrimSpace(s)
	if t, ok := DefaultKeymap[s]; ok {
		return t, true
	}
	t := Trigger(strings.ToLower(s))
	if !t.Valid() {
		return "", false
	}
	return t, true
}

type Snapshot struct {
	Command   string    `json:"command"`
	Revision  uint64    `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State holds the command text sent with every inference request. Writes
// replace the value; readers always see the latest write.
type State struct {
	mu        sync.RWMutex
	command   string
	revision  uint64
	updatedAt time.Time
}

func NewState() *State {
	return &State{command: DefaultCommand, updatedAt: time.Now()}
}

func (s *State) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.command
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Command: s.command, Revision: s.revision, UpdatedAt: s.updatedAt}
}

func (s *State) Fire(t Trigger) error {
	if !t.Valid() {
		return ErrUnknownCommand
	}
	s.write(t.Command())
	return nil
}

func (s *State) Set(cmd string) error {
	if cmd != DefaultCommand && !Trigger(cmd).Valid() {
		return ErrUnknownCommand
	}
	s.write(cmd)
	return nil
}

func (s *State) write(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.command = cmd
	s.revision++
	s.updatedAt = time.Now()
}
