package gesture

import (
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/pose_bridge/internal/keys"
	"github.com/relabs-tech/pose_bridge/internal/orientation"
)

// Kind is the gesture currently claiming the status.
type Kind int

const (
	StatusNone Kind = iota
	StatusPipboy
	StatusMenu
	StatusHolding
)

// Status is the per-iteration gesture state. Hotkey is set for StatusHolding.
type Status struct {
	Kind   Kind
	Hotkey int
}

func (s Status) String() string {
	switch s.Kind {
	case StatusPipboy:
		return "PIPBOY"
	case StatusMenu:
		return "MENU"
	case StatusHolding:
		return fmt.Sprintf("HOLDING %d", s.Hotkey)
	default:
		return "NONE"
	}
}

// HotkeyTracker keeps press/release state for the eight hotkey slots.
type HotkeyTracker struct {
	held [NumHotkeys]bool
}

// Update emits a press on each match edge and a release on each mismatch
// edge. It returns the first held hotkey (1..8) or 0.
func (h *HotkeyTracker) Update(matched [NumHotkeys]bool, sink keys.Sink) int {
	first := 0
	for i := 0; i < NumHotkeys; i++ {
		k, _ := keys.Hotkey(i + 1)
		switch {
		case matched[i] && !h.held[i]:
			if err := sink.Press(k); err != nil {
				log.Printf("gesture: hotkey %s press error: %v", k, err)
			}
			h.held[i] = true
			log.Printf("gesture: hotkey %s DOWN", k)
		case !matched[i] && h.held[i]:
			if err := sink.Release(k); err != nil {
				log.Printf("gesture: hotkey %s release error: %v", k, err)
			}
			h.held[i] = false
			log.Printf("gesture: hotkey %s UP", k)
		}
		if h.held[i] && first == 0 {
			first = i + 1
		}
	}
	return first
}

// Held reports whether hotkey n (1..8) is down.
func (h *HotkeyTracker) Held(n int) bool {
	if n < 1 || n > NumHotkeys {
		return false
	}
	return h.held[n-1]
}

// ReleaseAll releases every held hotkey. Used on shutdown.
func (h *HotkeyTracker) ReleaseAll(sink keys.Sink) {
	var none [NumHotkeys]bool
	h.Update(none, sink)
}

// Engine evaluates the secondary device against all targets and runs
// the timed sequences. It is owned by the sampling loop.
type Engine struct {
	Targets   [NumSlots]Target
	Tolerance Tolerance

	Pipboy  *PipboySequence
	Menu    *MenuSequence
	Hotkeys HotkeyTracker
	Trigger Smoother

	sink   keys.Sink
	status Status
}

// NewEngine returns an engine with default timings and tolerance.
func NewEngine(targets [NumSlots]Target, sink keys.Sink) *Engine {
	return &Engine{
		Targets:   targets,
		Tolerance: DefaultTolerance,
		Pipboy:    NewPipboySequence(),
		Menu:      NewMenuSequence(),
		Trigger:   Smoother{Rate: DefaultTriggerRate},
		sink:      sink,
	}
}

func (e *Engine) Status() Status { return e.status }

// SequenceActive is true while either sequence runs.
func (e *Engine) SequenceActive() bool {
	return e.Pipboy.Active() || e.Menu.Active()
}

func (e *Engine) matches(s Slot, pose orientation.Transform) bool {
	return e.Targets[s].Matches(pose.Position, pose.Rotation(), e.Tolerance)
}

// Evaluate matches the secondary pose against every target, starting
// sequences and updating hotkeys. Priority: pipboy > menu > hotkeys.
func (e *Engine) Evaluate(now time.Time, pose orientation.Transform) {
	switch {
	case e.matches(SlotPipboy, pose):
		e.status = Status{Kind: StatusPipboy}
		if !e.SequenceActive() && e.Pipboy.CanStart(now) {
			e.Pipboy.Start(now)
		}
	case e.matches(SlotMenu, pose):
		e.status = Status{Kind: StatusMenu}
		if !e.SequenceActive() && e.Menu.CanStart(now) {
			e.Menu.Start(now)
		}
	default:
		e.status = Status{}
	}

	var matched [NumHotkeys]bool
	for i := 0; i < NumHotkeys; i++ {
		matched[i] = e.matches(HotkeySlot(i+1), pose)
	}
	first := e.Hotkeys.Update(matched, e.sink)

	if first > 0 && e.status.Kind == StatusNone && !e.SequenceActive() {
		e.status = Status{Kind: StatusHolding, Hotkey: first}
	}
}

// Skip records an iteration without a usable secondary pose. Held
// hotkeys stay held until the next real evaluation.
func (e *Engine) Skip() {
	e.status = Status{}
}

// Advance runs the timed sequence steps and the trigger smoothing.
// It returns the smoothed trigger value.
func (e *Engine) Advance(now time.Time, dt float64) float64 {
	e.Pipboy.Update(now, e.sink)
	e.Menu.Update(now, e.sink)
	return e.Trigger.Step(e.Pipboy.TriggerTarget(), dt)
}

// Shutdown releases any keys the engine is holding.
func (e *Engine) Shutdown() {
	e.Hotkeys.ReleaseAll(e.sink)
	e.Pipboy.Abort(e.sink)
	e.Menu.Abort(e.sink)
}
