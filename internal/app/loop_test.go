package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/pose_bridge/internal/config"
	"github.com/relabs-tech/pose_bridge/internal/gesture"
	"github.com/relabs-tech/pose_bridge/internal/ipc"
	"github.com/relabs-tech/pose_bridge/internal/keys"
	"github.com/relabs-tech/pose_bridge/internal/orientation"
	"github.com/relabs-tech/pose_bridge/internal/tracking"
)

type fakeSource struct {
	frame  tracking.Frame
	err    error
	panics bool
}

func (f *fakeSource) Sample() (tracking.Frame, error) {
	if f.panics {
		panic("boom")
	}
	return f.frame, f.err
}

type fakeModifier struct{ held bool }

func (m *fakeModifier) Held() bool { return m.held }

type keyEvent struct {
	key  keys.Key
	down bool
}

type recordingSink struct{ events []keyEvent }

func (r *recordingSink) Press(k keys.Key) error {
	r.events = append(r.events, keyEvent{k, true})
	return nil
}

func (r *recordingSink) Release(k keys.Key) error {
	r.events = append(r.events, keyEvent{k, false})
	return nil
}

func controllerAt(idx int, role tracking.Role, t [3]float64) tracking.Controller {
	return tracking.Controller{
		Index: idx,
		Role:  role,
		Pose: tracking.DevicePose{
			Valid:  true,
			Matrix: orientation.FromRotationTranslation(orientation.Identity().Rotation(), t),
		},
	}
}

func twoControllers(left, right [3]float64) tracking.Frame {
	return tracking.Frame{
		HMD: tracking.DevicePose{Valid: true, Matrix: orientation.Identity()},
		Controllers: []tracking.Controller{
			controllerAt(1, tracking.RoleLeft, left),
			controllerAt(2, tracking.RoleRight, right),
		},
	}
}

type loopFixture struct {
	loop   *Loop
	src    *fakeSource
	sink   *recordingSink
	mod    *fakeModifier
	store  *config.TargetStore
	pub    *ipc.Publisher
	snaps  []Snapshot
	target string
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()

	root := t.TempDir()
	store, err := config.OpenTargetStore(filepath.Join(root, "targets.json"), ipc.DefaultHolsterCutoff)
	require.NoError(t, err)

	f := &loopFixture{
		src:    &fakeSource{frame: twoControllers([3]float64{0, 0, 0}, [3]float64{0.5, 0, 0})},
		sink:   &recordingSink{},
		mod:    &fakeModifier{},
		store:  store,
		pub:    ipc.NewPublisher(ipc.OSFileSystem{}, root),
		target: filepath.Join(root, "targets.json"),
	}
	f.loop = NewLoop(LoopOptions{
		Source:    f.src,
		Sink:      f.sink,
		Modifier:  f.mod,
		Store:     store,
		Publisher: f.pub,
	})
	f.loop.AddObserver(func(s Snapshot) { f.snaps = append(f.snaps, s) })
	return f
}

func (f *loopFixture) last() Snapshot { return f.snaps[len(f.snaps)-1] }

func (f *loopFixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.pub.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func tick(i int) time.Time { return t0.Add(time.Duration(i) * 10 * time.Millisecond) }

func TestLoopPublishesPrimary(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t)
	f.src.frame.Controllers[0] = controllerAt(1, tracking.RoleLeft, [3]float64{0.1, 0.2, 0.3})
	f.loop.step(tick(0))

	s := f.last()
	require.True(t, s.PrimaryValid)
	assert.Equal(t, "Left", s.PrimaryRole)
	assert.Equal(t, "None", s.SecondaryRole)
	assert.InDeltaSlice(t, []float64{0.3, 0.1, 0.2}, s.Primary.Position[:], 1e-12, "position swizzled to (z, x, y)")
	assert.Equal(t, "NONE", s.Status)

	want := ipc.NewEncoder().Encode(s.Primary, orientation.Transform{}, s.Offsets, 0).Payload()
	assert.Equal(t, want, s.Payload)
	assert.Equal(t, []string{want}, f.files(t))
	assert.Equal(t, uint64(1), s.Published)
}

func TestLoopFreezesInvalidPrimary(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t)
	f.src.frame.Controllers[0] = controllerAt(1, tracking.RoleLeft, [3]float64{0, 0, 0.2})
	f.loop.step(tick(0))
	before := f.last()

	f.src.frame.Controllers[0].Pose.Valid = false
	f.loop.step(tick(1))
	after := f.last()

	assert.False(t, after.PrimaryValid)
	assert.Equal(t, before.Primary, after.Primary)
	assert.Equal(t, before.Payload, after.Payload)
	assert.Equal(t, before.Published, after.Published, "no publish while invalid")

	f.src.frame.HMD.Valid = false
	f.src.frame.Controllers[0].Pose.Valid = true
	f.loop.step(tick(2))
	assert.False(t, f.last().PrimaryValid, "invalid HMD invalidates every device")

	f.src.frame.HMD = tracking.DevicePose{Valid: true}
	f.loop.step(tick(3))
	assert.False(t, f.last().PrimaryValid, "singular HMD is treated as invalid")
}

// apply submits cmd and runs one iteration so it is drained.
func (f *loopFixture) apply(t *testing.T, now time.Time, cmd Command) error {
	t.Helper()
	reply := f.loop.Submit(cmd)
	f.loop.step(now)
	select {
	case err := <-reply:
		return err
	default:
		t.Fatalf("command %s was not applied", cmd.Action)
		return nil
	}
}

func TestLoopMenuGestureFromStoredTarget(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t)
	f.loop.step(tick(0))

	assert.ErrorIs(t, f.apply(t, tick(1), Command{Action: ActionSetTarget, Slot: "menu"}), ErrNoSecondary)

	require.NoError(t, f.apply(t, tick(2), Command{Action: ActionCycleSecondary}))
	assert.Equal(t, "Left", f.last().SecondaryRole)
	require.NoError(t, f.apply(t, tick(3), Command{Action: ActionCycleSecondary}))
	assert.Equal(t, "Right", f.last().SecondaryRole)
	require.True(t, f.last().SecondaryValid)
	secondary := f.last().Secondary
	assert.Empty(t, f.sink.events)

	require.NoError(t, f.apply(t, tick(4), Command{Action: ActionSetTarget, Slot: "menu"}))
	s := f.last()
	assert.Equal(t, "MENU", s.Status)
	assert.True(t, s.MenuActive)
	assert.Equal(t, []keyEvent{{keys.KeyEsc, true}}, f.sink.events, "Esc pressed in the matching iteration")

	f.loop.step(tick(15))
	assert.Equal(t, []keyEvent{{keys.KeyEsc, true}, {keys.KeyEsc, false}}, f.sink.events)

	reopened, err := config.OpenTargetStore(f.target, ipc.DefaultHolsterCutoff)
	require.NoError(t, err)
	assert.Equal(t, gesture.Target{Position: secondary.Position, Rotation: secondary.Rotation()}, reopened.Target(gesture.SlotMenu))

	require.NoError(t, f.apply(t, tick(300), Command{Action: ActionResetTarget, Slot: "menu"}))
	assert.Equal(t, "NONE", f.last().Status)
	reopened, err = config.OpenTargetStore(f.target, ipc.DefaultHolsterCutoff)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMenuTarget, reopened.Target(gesture.SlotMenu))
}

func TestLoopInvalidSecondaryKeepsHotkeys(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t)
	f.loop.step(tick(0))
	require.NoError(t, f.apply(t, tick(1), Command{Action: ActionCycleSecondary}))
	require.NoError(t, f.apply(t, tick(2), Command{Action: ActionCycleSecondary}))
	require.NoError(t, f.apply(t, tick(3), Command{Action: ActionSetTarget, Slot: "4"}))

	s := f.last()
	assert.Equal(t, "HOLDING 4", s.Status)
	assert.Equal(t, []keyEvent{{keys.Key4, true}}, f.sink.events)

	f.src.frame.Controllers[1].Pose.Valid = false
	f.loop.step(tick(4))
	assert.False(t, f.last().SecondaryValid)
	assert.Equal(t, "NONE", f.last().Status)
	assert.Equal(t, s.Secondary, f.last().Secondary, "secondary transform frozen")
	assert.Len(t, f.sink.events, 1, "no release while the secondary is invalid")

	f.src.frame.Controllers[1] = controllerAt(2, tracking.RoleRight, [3]float64{0, 0, 0.9})
	f.loop.step(tick(5))
	assert.Equal(t, []keyEvent{{keys.Key4, true}, {keys.Key4, false}}, f.sink.events)
}

func TestLoopOffsetDrag(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t)
	f.mod.held = true
	f.loop.step(tick(0))

	// Device z becomes relative X.
	f.src.frame.Controllers[0] = controllerAt(1, tracking.RoleLeft, [3]float64{0, 0, 0.01})
	f.loop.step(tick(1))

	f.mod.held = false
	for i := 2; i < 10; i++ {
		f.loop.step(tick(i))
	}
	s := f.last()
	assert.InDelta(t, 1.0, s.Offsets.X, 1e-9)
	assert.InDelta(t, 0.0, s.Offsets.Y, 1e-9)

	want := ipc.NewEncoder().Encode(s.Primary, orientation.Transform{}, s.Offsets, s.Trigger).Payload()
	assert.Equal(t, want, s.Payload, "offsets flow into the payload")

	require.NoError(t, f.apply(t, tick(10), Command{Action: ActionResetOffsets}))
	assert.Zero(t, f.last().Offsets)
}

func TestLoopHolsterAndTolerance(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t)
	// Device y becomes relative Z.
	f.src.frame.Controllers[0] = controllerAt(1, tracking.RoleLeft, [3]float64{0, -0.6, 0})
	f.loop.step(tick(0))
	assert.True(t, f.last().Holstered)

	require.NoError(t, f.apply(t, tick(1), Command{Action: ActionSetHolster, Value: -0.8}))
	assert.False(t, f.last().Holstered)
	assert.Equal(t, -0.8, f.last().HolsterCutoff)

	assert.Error(t, f.apply(t, tick(2), Command{Action: ActionSetTolerance, PosTolerance: 0, RotTolerance: 10}))
	require.NoError(t, f.apply(t, tick(3), Command{Action: ActionSetTolerance, PosTolerance: 0.3, RotTolerance: 25}))
	assert.Equal(t, gesture.Tolerance{Position: 0.3, Rotation: 25}, f.last().Tolerance)

	assert.ErrorIs(t, f.apply(t, tick(4), Command{Action: "dance"}), ErrUnknownAction)
}

func TestLoopCommandQueueFull(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t)
	for i := 0; i < commandQueueSize; i++ {
		f.loop.Submit(Command{Action: ActionResetOffsets})
	}
	select {
	case err := <-f.loop.Submit(Command{Action: ActionResetOffsets}):
		assert.ErrorIs(t, err, ErrQueueFull)
	default:
		t.Fatal("expected an immediate rejection")
	}
}

func TestLoopSurvivesSourceFailures(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t)
	f.src.err = assert.AnError
	f.loop.step(tick(0))
	assert.False(t, f.last().PrimaryValid)
	assert.Zero(t, f.last().Controllers)

	f.src.err = nil
	f.src.panics = true
	assert.NotPanics(t, func() { f.loop.safeStep(tick(1)) })
	assert.Len(t, f.snaps, 1, "panicking iteration is skipped")

	f.src.panics = false
	f.loop.safeStep(tick(2))
	assert.True(t, f.last().PrimaryValid)
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	f := newLoopFixture(t)
	f.loop.interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, f.loop.Run(ctx))
	assert.NotEmpty(t, f.snaps)
	published, _ := f.pub.Stats()
	assert.NotZero(t, published)
	assert.Len(t, f.files(t), 1)
}
