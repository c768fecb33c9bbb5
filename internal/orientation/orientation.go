// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// singularThreshold is the first-column magnitude below which the
// decomposition falls back to the two-angle form.
const singularThreshold = 1e-6

// rollPivot is the pitch around which the roll correction rotates.
const rollPivot = 45.0

// ErrSingularHMD is returned when the HMD pose cannot be inverted.
var ErrSingularHMD = errors.New("orientation: HMD matrix is not invertible")

// Mat4 is a 4×4 rigid transform stored row-major.
type Mat4 [16]float64

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromRotationTranslation builds a transform from a row-major 3×3
// rotation and a translation.
func FromRotationTranslation(r [9]float64, t [3]float64) Mat4 {
	return Mat4{
		r[0], r[1], r[2], t[0],
		r[3], r[4], r[5], t[1],
		r[6], r[7], r[8], t[2],
		0, 0, 0, 1,
	}
}

// Rotation returns the upper-left 3×3 block.
func (m Mat4) Rotation() [9]float64 {
	return [9]float64{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
}

// Translation returns the translation column.
func (m Mat4) Translation() [3]float64 {
	return [3]float64{m[3], m[7], m[11]}
}

// Transform is a device pose expressed relative to the HMD.
// Position is in output axis order (z, x, y of the HMD frame); angles are degrees.
type Transform struct {
	Position [3]float64 `json:"pos"`
	Yaw      float64    `json:"yaw"`
	Pitch    float64    `json:"pitch"`
	Roll     float64    `json:"roll"`
}

// Rotation returns (yaw, pitch, roll) as an array.
func (t Transform) Rotation() [3]float64 {
	return [3]float64{t.Yaw, t.Pitch, t.Roll}
}

// EulerFromRotation decomposes a row-major rotation matrix into
// angles (x, y, z) in degrees, such that R = Rz(z)·Ry(y)·Rx(x).
// Near the gimbal singularity z is forced to zero.
func EulerFromRotation(r [9]float64) (x, y, z float64) {
	sy := math.Sqrt(r[0]*r[0] + r[3]*r[3])

	if sy >= singularThreshold {
		x = math.Atan2(r[7], r[8])
		y = math.Atan2(-r[6], sy)
		z = math.Atan2(r[3], r[0])
	} else {
		x = math.Atan2(-r[5], r[4])
		y = math.Atan2(-r[6], sy)
		z = 0
	}

	return rad2deg(x), rad2deg(y), rad2deg(z)
}

// RotationFromEuler composes Rz(z)·Ry(y)·Rx(x) from degrees.
func RotationFromEuler(x, y, z float64) [9]float64 {
	cx, sx := math.Cos(deg2rad(x)), math.Sin(deg2rad(x))
	cy, sy := math.Cos(deg2rad(y)), math.Sin(deg2rad(y))
	cz, sz := math.Cos(deg2rad(z)), math.Sin(deg2rad(z))

	return [9]float64{
		cz * cy, cz*sy*sx - sz*cx, cz*sy*cx + sz*sx,
		sz * cy, sz*sy*sx + cz*cx, sz*sy*cx - cz*sx,
		-sy, cy * sx, cy * cx,
	}
}

// CorrectRoll rotates the (yaw, pitch−45) pair by the roll angle and
// restores the 45° pitch pivot. Roll passes through.
func CorrectRoll(yaw, pitch, roll float64) (float64, float64, float64) {
	p := pitch - rollPivot
	r := deg2rad(roll)
	cosR, sinR := math.Cos(r), math.Sin(r)

	newPitch := p*cosR - yaw*sinR
	newYaw := p*sinR + yaw*cosR

	return newYaw, newPitch + rollPivot, roll
}

// Relative computes inverse(hmd) × device and returns the roll-corrected
// relative transform.
func Relative(hmd, device Mat4) (Transform, error) {
	inv, err := Invert(hmd)
	if err != nil {
		return Transform{}, err
	}
	return RelativeWithInverse(inv, device), nil
}

// Invert returns the inverse of an HMD pose for reuse across devices
// sampled in the same frame.
func Invert(hmd Mat4) (mat.Matrix, error) {
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(4, 4, hmd[:])); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularHMD, err)
	}
	return &inv, nil
}

// RelativeWithInverse is Relative with a precomputed HMD inverse.
func RelativeWithInverse(hmdInv mat.Matrix, device Mat4) Transform {
	var rel mat.Dense
	rel.Mul(hmdInv, mat.NewDense(4, 4, device[:]))

	var m Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[r*4+c] = rel.At(r, c)
		}
	}

	pos := m.Translation()
	x, y, z := EulerFromRotation(m.Rotation())
	yaw, pitch, roll := CorrectRoll(y, x, z)

	return Transform{
		Position: [3]float64{pos[2], pos[0], pos[1]},
		Yaw:      yaw,
		Pitch:    pitch,
		Roll:     roll,
	}
}

func deg2rad(d float64) float64 { return d * math.Pi / 180.0 }
func rad2deg(r float64) float64 { return r * 180.0 / math.Pi }
