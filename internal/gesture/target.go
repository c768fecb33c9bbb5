package gesture

import (
	"fmt"
	"math"
)

// Slot is one of the fixed gesture targets.
type Slot int

const (
	SlotPipboy Slot = iota
	SlotMenu
	SlotHotkey1
	SlotHotkey2
	SlotHotkey3
	SlotHotkey4
	SlotHotkey5
	SlotHotkey6
	SlotHotkey7
	SlotHotkey8

	NumSlots
)

// NumHotkeys is the number of hotkey slots.
const NumHotkeys = 8

// Name is the configuration key of the slot: "pipboy", "menu", "1".."8".
func (s Slot) Name() string {
	switch {
	case s == SlotPipboy:
		return "pipboy"
	case s == SlotMenu:
		return "menu"
	case s >= SlotHotkey1 && s <= SlotHotkey8:
		return fmt.Sprintf("%d", s.Hotkey())
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Hotkey returns 1..8 for hotkey slots and 0 otherwise.
func (s Slot) Hotkey() int {
	if s < SlotHotkey1 || s > SlotHotkey8 {
		return 0
	}
	return int(s-SlotHotkey1) + 1
}

// HotkeySlot returns the slot of hotkey n (1..8).
func HotkeySlot(n int) Slot {
	return SlotHotkey1 + Slot(n-1)
}

// ParseSlot maps a configuration key back to its slot.
func ParseSlot(name string) (Slot, error) {
	for s := Slot(0); s < NumSlots; s++ {
		if s.Name() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown gesture target %q", name)
}

// Target is a configured pose the secondary device can be parked in.
// Rotation is (yaw, pitch, roll) in degrees.
type Target struct {
	Position [3]float64 `json:"pos"`
	Rotation [3]float64 `json:"rot"`
}

// Tolerance bounds how far a pose may be from a target and still match.
type Tolerance struct {
	Position float64 `json:"pos"` // metres, Euclidean
	Rotation float64 `json:"rot"` // degrees, per axis
}

// DefaultTolerance is 0.15 m and 40°.
var DefaultTolerance = Tolerance{Position: 0.15, Rotation: 40.0}

// IsMatch reports whether the current pose lies within tolerance of the target.
func IsMatch(curPos, curRot, tgtPos, tgtRot [3]float64, posTol, rotTol float64) bool {
	var sum float64
	for i := 0; i < 3; i++ {
		d := curPos[i] - tgtPos[i]
		sum += d * d
	}
	if math.Sqrt(sum) > posTol {
		return false
	}

	for i := 0; i < 3; i++ {
		if AngleDiff(curRot[i], tgtRot[i]) > rotTol {
			return false
		}
	}
	return true
}

// Matches is IsMatch against this target.
func (t Target) Matches(pos, rot [3]float64, tol Tolerance) bool {
	return IsMatch(pos, rot, t.Position, t.Rotation, tol.Position, tol.Rotation)
}

// AngleDiff is the wrapped difference min(|a-b|, 360-|a-b|).
func AngleDiff(a, b float64) float64 {
	d := math.Abs(a - b)
	return math.Min(d, 360-d)
}
