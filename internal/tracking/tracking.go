// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import (
	"github.com/relabs-tech/pose_bridge/internal/orientation"
)

// Role is the hand a controller is assigned to by the runtime.
type Role string

const (
	RoleLeft  Role = "Left"
	RoleRight Role = "Right"
)

// DevicePose is one sampled absolute pose in the standing tracking origin.
type DevicePose struct {
	Valid  bool             `json:"valid"`
	Matrix orientation.Mat4 `json:"m"`
}

// Controller is a tracked hand device reported by the source.
type Controller struct {
	Index int        `json:"index"`
	Role  Role       `json:"role"`
	Pose  DevicePose `json:"pose"`
}

// Frame is everything sampled in one loop iteration.
type Frame struct {
	HMD         DevicePose   `json:"hmd"`
	Controllers []Controller `json:"controllers"`
}

// Source is anything that can provide tracking frames over time:
// mock source, replay file, or a runtime bridge.
type Source interface {
	Sample() (Frame, error)
}

// absentSource reports no devices. Used when the runtime failed to initialize.
type absentSource struct{}

// NewAbsentSource returns a Source whose frames never carry a valid pose.
func NewAbsentSource() Source { return absentSource{} }

func (absentSource) Sample() (Frame, error) { return Frame{}, nil }
