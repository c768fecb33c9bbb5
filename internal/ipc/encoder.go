// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ipc

import (
	"strconv"
	"strings"

	"github.com/relabs-tech/pose_bridge/internal/offset"
	"github.com/relabs-tech/pose_bridge/internal/orientation"
)

// Scale and bias of the game-side coordinate frame.
const (
	ScaleX = 85.0
	ScaleY = 45.0
	ScaleZ = 70.0

	BiasX     = -2.0
	BiasY     = 0.0
	BiasZ     = -5.42
	BiasPitch = -4.0
	BiasYaw   = 4.0
	BiasRoll  = 0.0

	// OutputYShift and the rotation shifts are applied after the axis swap.
	OutputYShift     = -10.0
	OutputPitchShift = -60.0
	OutputYawShift   = -10.0
)

// DefaultHolsterCutoff is the raw primary Z below which the holster pose is published.
const DefaultHolsterCutoff = -0.55

// Pose published while the primary device is holstered.
var (
	HolsterPosition = [3]float64{-0.4, 0.1, -0.17}
	HolsterRotation = [3]float64{5, 40, 0}
)

// NumFields is the number of values in one frame.
const NumFields = 13

// Record is one encoded frame: primary X, Y, Z, Xr, Yr, Zr, trigger,
// then secondary X, Y, Z, Xr, Yr, Zr.
type Record [NumFields]float64

// Payload formats the record as the filename the game polls for.
func (r Record) Payload() string {
	parts := make([]string, NumFields)
	for i, v := range r {
		parts[i] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	return strings.Join(parts, "_")
}

// Encoder maps relative device transforms into game coordinates.
type Encoder struct {
	HolsterCutoff float64
}

// NewEncoder returns an encoder with the default holster cutoff.
func NewEncoder() Encoder {
	return Encoder{HolsterCutoff: DefaultHolsterCutoff}
}

// Holstered reports whether the raw primary pose is below the cutoff.
func (e Encoder) Holstered(primary orientation.Transform) bool {
	return primary.Position[2] < e.HolsterCutoff
}

// Encode builds the record. Offsets and the holster override only
// apply to the primary device.
func (e Encoder) Encode(primary, secondary orientation.Transform, acc offset.Accumulator, trigger float64) Record {
	pos := primary.Position
	rot := primary.Rotation()
	if e.Holstered(primary) {
		pos = HolsterPosition
		rot = HolsterRotation
	}

	var r Record
	p := encodeDevice(pos, rot, acc)
	copy(r[0:6], p[:])
	r[6] = trigger
	s := encodeDevice(secondary.Position, secondary.Rotation(), offset.Accumulator{})
	copy(r[7:13], s[:])
	return r
}

// encodeDevice scales, biases and swaps axes for one device. rot is
// (yaw, pitch, roll).
func encodeDevice(pos, rot [3]float64, acc offset.Accumulator) [6]float64 {
	adjX := pos[0]*ScaleX + acc.X + BiasX
	adjY := pos[1]*ScaleY + acc.Y + BiasY
	adjZ := pos[2]*ScaleZ + acc.Z + BiasZ

	pitch := rot[1] + acc.Pitch + BiasPitch
	yaw := rot[0] + acc.Yaw + BiasYaw
	roll := rot[2] + acc.Roll + BiasRoll

	return [6]float64{
		adjY,
		-adjX + OutputYShift,
		adjZ,
		pitch + OutputPitchShift,
		roll,
		yaw + OutputYawShift,
	}
}
