package offset

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/pose_bridge/internal/orientation"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func tick(i int) time.Time { return t0.Add(time.Duration(i) * 10 * time.Millisecond) }

func pose(x, y, z, yaw, pitch, roll float64) *orientation.Transform {
	return &orientation.Transform{Position: [3]float64{x, y, z}, Yaw: yaw, Pitch: pitch, Roll: roll}
}

func TestDragAddsScaledDelta(t *testing.T) {
	t.Parallel()

	var d Drag
	var acc Accumulator

	d.Update(tick(0), true, pose(0.2, 0.1, -0.3, 10, 20, 30), &acc)
	assert.True(t, d.Anchored())
	assert.Equal(t, Accumulator{}, acc, "first held iteration only anchors")

	d.Update(tick(1), true, pose(0.21, 0.1, -0.3, 10, 20, 30), &acc)
	d.Update(tick(2), false, pose(0.5, 0.5, 0.5, 90, 90, 90), &acc)
	assert.False(t, d.Anchored())

	want := Accumulator{X: 1.0}
	opt := cmpopts.EquateApprox(0, 1e-9)
	if diff := cmp.Diff(want, acc, opt); diff != "" {
		t.Errorf("accumulator mismatch (-want +got):\n%s", diff)
	}

	for i := 3; i < 50; i++ {
		d.Update(tick(i), false, pose(float64(i), 0, 0, 0, 0, 0), &acc)
	}
	if diff := cmp.Diff(want, acc, opt); diff != "" {
		t.Errorf("accumulator drifted (-want +got):\n%s", diff)
	}
}

func TestDragIsIncremental(t *testing.T) {
	t.Parallel()

	var d Drag
	var acc Accumulator

	d.Update(tick(0), true, pose(0, 0, 0, 0, 0, 0), &acc)
	d.Update(tick(1), true, pose(0.01, 0.02, 0, 5, -2, 1), &acc)
	d.Update(tick(2), true, pose(0.03, 0.02, -0.01, 7, -2, 0), &acc)

	assert.InDelta(t, 3.0, acc.X, 1e-9)
	assert.InDelta(t, 2.0, acc.Y, 1e-9)
	assert.InDelta(t, -1.0, acc.Z, 1e-9)
	assert.InDelta(t, 7.0, acc.Yaw, 1e-9, "rotation is not scaled")
	assert.InDelta(t, -2.0, acc.Pitch, 1e-9)
	assert.InDelta(t, 0.0, acc.Roll, 1e-9)
}

func TestDragDoubleTapResets(t *testing.T) {
	t.Parallel()

	var d Drag
	acc := Accumulator{X: 1, Y: 2, Z: 3, Yaw: 4, Pitch: 5, Roll: 6}
	p := pose(0, 0, 0, 0, 0, 0)

	d.Update(tick(0), true, p, &acc)
	d.Update(tick(10), false, p, &acc)
	d.Update(tick(50), true, p, &acc)

	assert.Equal(t, Accumulator{}, acc)
	assert.False(t, d.Anchored(), "reset edge skips anchor capture")

	d.Update(tick(51), true, p, &acc)
	assert.True(t, d.Anchored(), "anchor captured on the next held iteration")

	acc.X = 9
	d.Update(tick(60), false, p, &acc)
	d.Update(tick(70), true, p, &acc)
	assert.Equal(t, 9.0, acc.X, "a third tap does not reset again")
}

func TestDragSlowTapsDoNotReset(t *testing.T) {
	t.Parallel()

	var d Drag
	acc := Accumulator{X: 1}
	p := pose(0, 0, 0, 0, 0, 0)

	d.Update(tick(0), true, p, &acc)
	d.Update(tick(10), false, p, &acc)
	d.Update(tick(100), true, p, &acc)
	assert.Equal(t, 1.0, acc.X)
}

func TestDragWithoutPose(t *testing.T) {
	t.Parallel()

	var d Drag
	var acc Accumulator

	d.Update(tick(0), true, nil, &acc)
	assert.False(t, d.Anchored())
	d.Update(tick(1), true, pose(0.1, 0, 0, 0, 0, 0), &acc)
	assert.True(t, d.Anchored())
	d.Update(tick(2), true, nil, &acc)
	d.Update(tick(3), true, pose(0.2, 0, 0, 0, 0, 0), &acc)
	assert.InDelta(t, 10.0, acc.X, 1e-9, "anchor survives an invalid frame")
}
