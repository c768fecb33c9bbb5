// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracking

import (
	"math"
	"time"

	"github.com/relabs-tech/pose_bridge/internal/orientation"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock tracking source with a standing HMD and
// two controllers that sway smoothly in front of it.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Sample() (Frame, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	hmd := orientation.FromRotationTranslation(
		orientation.RotationFromEuler(0, 5*math.Sin(elapsed*0.3), 0),
		[3]float64{0, 1.7, 0},
	)

	left := orientation.FromRotationTranslation(
		orientation.RotationFromEuler(20*math.Sin(elapsed), 15*math.Cos(elapsed*0.7), 0),
		[3]float64{-0.25, 1.2 + 0.1*math.Sin(elapsed), -0.3},
	)

	right := orientation.FromRotationTranslation(
		orientation.RotationFromEuler(-10, math.Mod(elapsed*30, 360), 10*math.Cos(elapsed)),
		[3]float64{0.25, 1.25, -0.35 + 0.05*math.Cos(elapsed*1.3)},
	)

	return Frame{
		HMD: DevicePose{Valid: true, Matrix: hmd},
		Controllers: []Controller{
			{Index: 1, Role: RoleLeft, Pose: DevicePose{Valid: true, Matrix: left}},
			{Index: 2, Role: RoleRight, Pose: DevicePose{Valid: true, Matrix: right}},
		},
	}, nil
}
