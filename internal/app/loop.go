// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/relabs-tech/pose_bridge/internal/config"
	"github.com/relabs-tech/pose_bridge/internal/gesture"
	"github.com/relabs-tech/pose_bridge/internal/ipc"
	"github.com/relabs-tech/pose_bridge/internal/keys"
	"github.com/relabs-tech/pose_bridge/internal/offset"
	"github.com/relabs-tech/pose_bridge/internal/orientation"
	"github.com/relabs-tech/pose_bridge/internal/tracking"
)

// Command actions accepted by the loop.
const (
	ActionSetTarget      = "set_target"
	ActionResetTarget    = "reset_target"
	ActionResetOffsets   = "reset_offsets"
	ActionCyclePrimary   = "cycle_primary"
	ActionCycleSecondary = "cycle_secondary"
	ActionSetHolster     = "set_holster"
	ActionSetTolerance   = "set_tolerance"
)

const commandQueueSize = 16

var (
	ErrQueueFull     = errors.New("tracker: command queue full")
	ErrNoSecondary   = errors.New("tracker: no secondary controller selected")
	ErrUnknownAction = errors.New("tracker: unknown action")
)

// Command is an operator request applied by the loop between iterations.
type Command struct {
	Action       string  `json:"action"`
	Slot         string  `json:"slot,omitempty"`
	Value        float64 `json:"value,omitempty"`
	PosTolerance float64 `json:"pos_tolerance,omitempty"`
	RotTolerance float64 `json:"rot_tolerance,omitempty"`

	reply chan error
}

// Snapshot is a copy of the loop state taken at the end of an iteration.
type Snapshot struct {
	Time           time.Time             `json:"time"`
	Controllers    int                   `json:"controllers"`
	PrimaryRole    string                `json:"primary_role"`
	SecondaryRole  string                `json:"secondary_role"`
	PrimaryValid   bool                  `json:"primary_valid"`
	SecondaryValid bool                  `json:"secondary_valid"`
	Primary        orientation.Transform `json:"primary"`
	Secondary      orientation.Transform `json:"secondary"`
	Status         string                `json:"status"`
	PipboyActive   bool                  `json:"pipboy_active"`
	MenuActive     bool                  `json:"menu_active"`
	Cooldown       float64               `json:"pipboy_cooldown_s"`
	Trigger        float64               `json:"trigger"`
	Holstered      bool                  `json:"holstered"`
	HolsterCutoff  float64               `json:"holster_cutoff"`
	Tolerance      gesture.Tolerance     `json:"tolerance"`
	Offsets        offset.Accumulator    `json:"offsets"`
	Payload        string                `json:"payload"`
	Published      uint64                `json:"published"`
	Dropped        uint64                `json:"dropped"`
}

// Observer receives a snapshot at the end of every iteration, on the
// loop goroutine. It must not block.
type Observer func(Snapshot)

// LoopOptions wires a Loop to its collaborators.
type LoopOptions struct {
	Source    tracking.Source
	Sink      keys.Sink
	Modifier  keys.Modifier
	Store     *config.TargetStore
	Publisher *ipc.Publisher
	Interval  time.Duration
	Tolerance gesture.Tolerance
}

// Loop samples the tracking source, runs gesture detection and
// publishes frames. All state is owned by the goroutine running Run.
type Loop struct {
	src       tracking.Source
	mod       keys.Modifier
	store     *config.TargetStore
	pub       *ipc.Publisher
	interval  time.Duration
	observers []Observer
	cmds      chan Command

	engine *gesture.Engine
	enc    ipc.Encoder
	sel    tracking.Selection
	drag   offset.Drag
	acc    offset.Accumulator

	last           time.Time
	controllers    []tracking.Controller
	primary        orientation.Transform
	secondary      orientation.Transform
	primaryValid   bool
	secondaryValid bool
	trigger        float64
	payload        string
	sourceFailing  bool
}

// NewLoop builds a loop. Targets and the holster cutoff come from the store.
func NewLoop(opts LoopOptions) *Loop {
	if opts.Modifier == nil {
		opts.Modifier = keys.NoModifier{}
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Millisecond
	}

	engine := gesture.NewEngine(opts.Store.Targets(), opts.Sink)
	if opts.Tolerance.Position > 0 && opts.Tolerance.Rotation > 0 {
		engine.Tolerance = opts.Tolerance
	}

	return &Loop{
		src:      opts.Source,
		mod:      opts.Modifier,
		store:    opts.Store,
		pub:      opts.Publisher,
		interval: opts.Interval,
		cmds:     make(chan Command, commandQueueSize),
		engine:   engine,
		enc:      ipc.Encoder{HolsterCutoff: opts.Store.HolsterCutoff()},
		sel:      tracking.NewSelection(),
	}
}

// AddObserver registers an observer. Call before Run.
func (l *Loop) AddObserver(o Observer) {
	l.observers = append(l.observers, o)
}

// Submit queues a command for the next iteration boundary. The returned
// channel receives the result once applied.
func (l *Loop) Submit(cmd Command) <-chan error {
	reply := make(chan error, 1)
	cmd.reply = reply
	select {
	case l.cmds <- cmd:
	default:
		reply <- ErrQueueFull
	}
	return reply
}

// Run drives the loop until ctx is cancelled. Held keys are released on
// exit; the IPC file is left as is.
func (l *Loop) Run(ctx context.Context) error {
	log.Printf("tracker: loop started, interval %s, ipc dir %s", l.interval, l.pub.Dir())
	defer l.engine.Shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Println("tracker: loop stopped")
			return nil
		default:
		}

		l.safeStep(time.Now())

		select {
		case <-ctx.Done():
		case <-time.After(l.interval):
		}
	}
}

func (l *Loop) safeStep(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("tracker: iteration panic: %v", r)
		}
	}()
	l.step(now)
}

// step runs one iteration.
func (l *Loop) step(now time.Time) {
	l.drainCommands()

	var dt float64
	if !l.last.IsZero() {
		dt = now.Sub(l.last).Seconds()
	}
	l.last = now

	frame, err := l.src.Sample()
	if err != nil {
		if !l.sourceFailing {
			log.Printf("tracker: pose source error: %v", err)
		}
		l.sourceFailing = true
		frame = tracking.Frame{}
	} else if l.sourceFailing {
		log.Println("tracker: pose source recovered")
		l.sourceFailing = false
	}
	l.controllers = frame.Controllers

	// A singular HMD matrix is treated like an invalid HMD pose.
	var hmdInv mat.Matrix
	hmdOK := false
	if frame.HMD.Valid {
		if inv, err := orientation.Invert(frame.HMD.Matrix); err == nil {
			hmdInv, hmdOK = inv, true
		}
	}

	// Primary: frozen when invalid.
	l.primaryValid = false
	if c, ok := tracking.Pick(frame.Controllers, l.sel.Primary); ok && hmdOK && c.Pose.Valid {
		l.primary = orientation.RelativeWithInverse(hmdInv, c.Pose.Matrix)
		l.primaryValid = true
	}

	var dragPose *orientation.Transform
	if l.primaryValid {
		p := l.primary
		dragPose = &p
	}
	l.drag.Update(now, l.mod.Held(), dragPose, &l.acc)

	// Secondary: frozen when invalid, evaluation skipped.
	l.secondaryValid = false
	if c, ok := tracking.Pick(frame.Controllers, l.sel.Secondary); ok && hmdOK && c.Pose.Valid {
		l.secondary = orientation.RelativeWithInverse(hmdInv, c.Pose.Matrix)
		l.secondaryValid = true
	}
	if l.secondaryValid {
		l.engine.Evaluate(now, l.secondary)
	} else {
		l.engine.Skip()
	}

	l.trigger = l.engine.Advance(now, dt)

	if l.primaryValid {
		l.payload = l.enc.Encode(l.primary, l.secondary, l.acc, l.trigger).Payload()
		// Failures are counted by the publisher and retried next iteration.
		_ = l.pub.Publish(l.payload)
	}

	l.notify(now)
}

func (l *Loop) drainCommands() {
	for {
		select {
		case cmd := <-l.cmds:
			err := l.apply(cmd)
			if err != nil {
				log.Printf("tracker: command %s failed: %v", cmd.Action, err)
			}
			if cmd.reply != nil {
				cmd.reply <- err
			}
		default:
			return
		}
	}
}

func (l *Loop) apply(cmd Command) error {
	switch cmd.Action {
	case ActionSetTarget:
		slot, err := gesture.ParseSlot(cmd.Slot)
		if err != nil {
			return err
		}
		if l.sel.Secondary == tracking.NoDevice {
			return ErrNoSecondary
		}
		t := gesture.Target{Position: l.secondary.Position, Rotation: l.secondary.Rotation()}
		l.engine.Targets[slot] = t
		return l.store.Set(slot, t)

	case ActionResetTarget:
		slot, err := gesture.ParseSlot(cmd.Slot)
		if err != nil {
			return err
		}
		l.engine.Targets[slot] = config.DefaultTarget(slot)
		return l.store.Reset(slot)

	case ActionResetOffsets:
		l.acc.Reset()
		log.Println("tracker: offsets reset")
		return nil

	case ActionCyclePrimary:
		l.sel.CyclePrimary(len(l.controllers))
		log.Printf("tracker: primary is now %s", tracking.RoleName(l.controllers, l.sel.Primary))
		return nil

	case ActionCycleSecondary:
		l.sel.CycleSecondary(len(l.controllers))
		log.Printf("tracker: secondary is now %s", tracking.RoleName(l.controllers, l.sel.Secondary))
		return nil

	case ActionSetHolster:
		l.enc.HolsterCutoff = cmd.Value
		return l.store.SetHolsterCutoff(cmd.Value)

	case ActionSetTolerance:
		if cmd.PosTolerance <= 0 || cmd.RotTolerance <= 0 {
			return fmt.Errorf("tolerances must be positive, got pos=%v rot=%v", cmd.PosTolerance, cmd.RotTolerance)
		}
		l.engine.Tolerance = gesture.Tolerance{Position: cmd.PosTolerance, Rotation: cmd.RotTolerance}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}

func (l *Loop) snapshot(now time.Time) Snapshot {
	published, dropped := l.pub.Stats()
	return Snapshot{
		Time:           now,
		Controllers:    len(l.controllers),
		PrimaryRole:    tracking.RoleName(l.controllers, l.sel.Primary),
		SecondaryRole:  tracking.RoleName(l.controllers, l.sel.Secondary),
		PrimaryValid:   l.primaryValid,
		SecondaryValid: l.secondaryValid,
		Primary:        l.primary,
		Secondary:      l.secondary,
		Status:         l.engine.Status().String(),
		PipboyActive:   l.engine.Pipboy.Active(),
		MenuActive:     l.engine.Menu.Active(),
		Cooldown:       l.engine.Pipboy.CooldownRemaining(now).Seconds(),
		Trigger:        l.trigger,
		Holstered:      l.primaryValid && l.enc.Holstered(l.primary),
		HolsterCutoff:  l.enc.HolsterCutoff,
		Tolerance:      l.engine.Tolerance,
		Offsets:        l.acc,
		Payload:        l.payload,
		Published:      published,
		Dropped:        dropped,
	}
}

func (l *Loop) notify(now time.Time) {
	if len(l.observers) == 0 {
		return
	}
	snap := l.snapshot(now)
	for _, o := range l.observers {
		o(snap)
	}
}
