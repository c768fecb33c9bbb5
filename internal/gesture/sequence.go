package gesture

import (
	"log"
	"time"

	"github.com/relabs-tech/pose_bridge/internal/keys"
)

// Pipboy sequence timing.
const (
	DefaultActivationDuration = 2200 * time.Millisecond
	DefaultPipboyCooldown     = 2000 * time.Millisecond
	DefaultTabDelay           = 1000 * time.Millisecond
	DefaultTabHold            = 50 * time.Millisecond
)

// Menu sequence timing.
const (
	DefaultMenuCooldown = 2000 * time.Millisecond
	DefaultEscHold      = 100 * time.Millisecond
)

// PipboySequence drives the trigger toward 1 for ActivationDuration and
// taps Tab once TabDelay after it starts. Tab stays down for at least
// TabHold and is released by a later Update.
type PipboySequence struct {
	ActivationDuration time.Duration
	Cooldown           time.Duration
	TabDelay           time.Duration
	TabHold            time.Duration

	active       bool
	started      bool
	startedAt    time.Time
	tabFired     bool
	tabDown      bool
	tabPressedAt time.Time
}

// NewPipboySequence returns a sequence with the default timings.
func NewPipboySequence() *PipboySequence {
	return &PipboySequence{
		ActivationDuration: DefaultActivationDuration,
		Cooldown:           DefaultPipboyCooldown,
		TabDelay:           DefaultTabDelay,
		TabHold:            DefaultTabHold,
	}
}

func (p *PipboySequence) Active() bool { return p.active }

// CanStart is true when idle and the cooldown since the previous start elapsed.
func (p *PipboySequence) CanStart(now time.Time) bool {
	if p.active {
		return false
	}
	return !p.started || now.Sub(p.startedAt) >= p.ActivationDuration+p.Cooldown
}

// Start enters the active state.
func (p *PipboySequence) Start(now time.Time) {
	p.active = true
	p.started = true
	p.startedAt = now
	p.tabFired = false
	log.Println("gesture: pipboy sequence started")
}

// Update runs the timed steps of an active sequence.
func (p *PipboySequence) Update(now time.Time, sink keys.Sink) {
	if !p.active {
		return
	}

	elapsed := now.Sub(p.startedAt)
	switch {
	case elapsed >= p.TabDelay && !p.tabFired:
		if err := sink.Press(keys.KeyTab); err != nil {
			log.Printf("gesture: pipboy Tab press error: %v", err)
		}
		p.tabFired = true
		p.tabDown = true
		p.tabPressedAt = now
	case p.tabDown && now.Sub(p.tabPressedAt) >= p.TabHold:
		p.releaseTab(sink)
	}

	if elapsed >= p.ActivationDuration {
		p.releaseTab(sink)
		p.active = false
		log.Println("gesture: pipboy sequence ended")
	}
}

func (p *PipboySequence) releaseTab(sink keys.Sink) {
	if !p.tabDown {
		return
	}
	if err := sink.Release(keys.KeyTab); err != nil {
		log.Printf("gesture: pipboy Tab release error: %v", err)
	}
	p.tabDown = false
}

// Abort releases Tab if it is down and ends the sequence.
func (p *PipboySequence) Abort(sink keys.Sink) {
	p.releaseTab(sink)
	p.active = false
}

// TriggerTarget is the value the smoothed trigger moves toward.
func (p *PipboySequence) TriggerTarget() float64 {
	if p.active {
		return 1.0
	}
	return 0.0
}

// CooldownRemaining is the time until the sequence may start again.
func (p *PipboySequence) CooldownRemaining(now time.Time) time.Duration {
	if !p.started || p.active {
		return 0
	}
	rem := p.ActivationDuration + p.Cooldown - now.Sub(p.startedAt)
	if rem < 0 {
		return 0
	}
	return rem
}

// MenuSequence presses Esc on start and releases it after EscHold.
type MenuSequence struct {
	Cooldown time.Duration
	EscHold  time.Duration

	active     bool
	started    bool
	startedAt  time.Time
	escPressed bool
}

// NewMenuSequence returns a sequence with the default timings.
func NewMenuSequence() *MenuSequence {
	return &MenuSequence{Cooldown: DefaultMenuCooldown, EscHold: DefaultEscHold}
}

func (m *MenuSequence) Active() bool { return m.active }

func (m *MenuSequence) CanStart(now time.Time) bool {
	if m.active {
		return false
	}
	return !m.started || now.Sub(m.startedAt) >= m.Cooldown
}

func (m *MenuSequence) Start(now time.Time) {
	m.active = true
	m.started = true
	m.startedAt = now
	m.escPressed = false
	log.Println("gesture: menu sequence started")
}

func (m *MenuSequence) Update(now time.Time, sink keys.Sink) {
	if !m.active {
		return
	}

	if !m.escPressed {
		if err := sink.Press(keys.KeyEsc); err != nil {
			log.Printf("gesture: menu Esc press error: %v", err)
		}
		m.escPressed = true
	}

	if now.Sub(m.startedAt) >= m.EscHold {
		if err := sink.Release(keys.KeyEsc); err != nil {
			log.Printf("gesture: menu Esc release error: %v", err)
		}
		m.active = false
		log.Println("gesture: menu sequence ended")
	}
}

// Abort releases Esc if it is down and ends the sequence.
func (m *MenuSequence) Abort(sink keys.Sink) {
	if m.active && m.escPressed {
		if err := sink.Release(keys.KeyEsc); err != nil {
			log.Printf("gesture: menu Esc release error: %v", err)
		}
	}
	m.active = false
}

// Smoother moves a value toward a target by min(1, Rate·dt) of the gap each step.
type Smoother struct {
	Rate  float64
	Value float64
}

// DefaultTriggerRate is the pipboy trigger smoothing rate per second.
const DefaultTriggerRate = 8.0

func (s *Smoother) Step(target, dt float64) float64 {
	step := s.Rate * dt
	if step > 1 {
		step = 1
	}
	if step < 0 {
		step = 0
	}
	s.Value += (target - s.Value) * step
	return s.Value
}
