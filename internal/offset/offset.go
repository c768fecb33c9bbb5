// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package offset

import (
	"log"
	"time"

	"github.com/relabs-tech/pose_bridge/internal/orientation"
)

const (
	// PositionScale converts metres of drag into output units.
	PositionScale = 100.0
	// DoubleTapWindow is the longest gap between two modifier presses that resets the offsets.
	DoubleTapWindow = time.Second
)

// Accumulator is the operator correction applied to the primary output.
// It has a single writer, the sampling loop.
type Accumulator struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Reset zeroes all six fields.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// Drag implements hold-to-drag on the primary device: while the modifier
// is held, pose movement since the previous iteration is added to the
// accumulator. Two presses within DoubleTapWindow reset it instead.
type Drag struct {
	anchor    *orientation.Transform
	wasHeld   bool
	lastPress time.Time
}

// Update advances the drag by one iteration. pose is nil when the
// primary device has no valid pose this iteration.
func (d *Drag) Update(now time.Time, held bool, pose *orientation.Transform, acc *Accumulator) {
	rising := held && !d.wasHeld
	d.wasHeld = held

	if !held {
		d.anchor = nil
		return
	}

	if rising {
		if !d.lastPress.IsZero() && now.Sub(d.lastPress) < DoubleTapWindow {
			acc.Reset()
			d.lastPress = time.Time{}
			d.anchor = nil
			log.Println("offset: double tap, offsets reset")
			return
		}
		d.lastPress = now
	}

	if pose == nil {
		return
	}

	if d.anchor == nil {
		snap := *pose
		d.anchor = &snap
		return
	}

	acc.X += (pose.Position[0] - d.anchor.Position[0]) * PositionScale
	acc.Y += (pose.Position[1] - d.anchor.Position[1]) * PositionScale
	acc.Z += (pose.Position[2] - d.anchor.Position[2]) * PositionScale
	acc.Yaw += pose.Yaw - d.anchor.Yaw
	acc.Pitch += pose.Pitch - d.anchor.Pitch
	acc.Roll += pose.Roll - d.anchor.Roll

	snap := *pose
	d.anchor = &snap
}

// Anchored reports whether an anchor snapshot is held.
func (d *Drag) Anchored() bool { return d.anchor != nil }
