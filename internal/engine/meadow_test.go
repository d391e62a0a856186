package engine

import (
	"testing"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/camera"
	"Meadow3D/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentSink struct {
	plays int
}

func (s *silentSink) Play(*asset.AudioClip, bool) error {
	s.plays++
	return nil
}

func (s *silentSink) Stop() {}

func newMeadow(t *testing.T, variant config.Variant) (*Meadow, *fakeLocker) {
	t.Helper()
	cfg := config.Default()
	cfg.Variant = variant
	cfg.Assets.Root = t.TempDir()
	cfg.Panel.Enabled = false

	m := NewMeadow(cfg, &silentSink{})
	t.Cleanup(m.Pool.Close)

	locker := &fakeLocker{}
	require.NoError(t, m.Compose(locker, 16.0/9.0))
	return m, locker
}

func TestComposeRegistersBehaviours(t *testing.T) {
	m, _ := newMeadow(t, config.VariantLookout)

	assert.Equal(t, []string{"effects", "audio"}, m.Behaviours.Names())
	assert.IsType(t, &camera.PointerLockController{}, m.Controller())
	assert.InDelta(t, 16.0/9.0, m.Controller().Camera().AspectRatio, 1e-6)
}

func TestComposeUnknownVariant(t *testing.T) {
	cfg := config.Default()
	cfg.Variant = "meadow"
	m := NewMeadow(cfg, nil)
	t.Cleanup(m.Pool.Close)

	assert.Error(t, m.Compose(&fakeLocker{}, 1))
	assert.Nil(t, m.Controller())
}

func TestFirstClickRequestsLockOnce(t *testing.T) {
	m, locker := newMeadow(t, config.VariantLookout)
	h := m.Handlers(nil)

	h.PointerButton(mouseButtonLeft, true)
	h.PointerButton(mouseButtonLeft, false)

	assert.Equal(t, 1, locker.requests)
	assert.True(t, m.Gate.Fired())
	assert.True(t, m.Player.Unlocked())

	// Already locked: later clicks do not ask again.
	for i := 0; i < 4; i++ {
		h.PointerButton(mouseButtonLeft, true)
	}
	assert.Equal(t, 1, locker.requests)
}

func TestDeniedLockRetriesOnNextClick(t *testing.T) {
	m, locker := newMeadow(t, config.VariantLookout)
	locker.deny = true
	h := m.Handlers(nil)

	h.PointerButton(mouseButtonLeft, true)
	assert.Equal(t, 1, locker.requests)
	ctrl := m.Controller().(*camera.PointerLockController)
	assert.False(t, ctrl.Locked())

	locker.deny = false
	h.PointerButton(mouseButtonLeft, true)
	assert.Equal(t, 2, locker.requests)
	assert.True(t, ctrl.Locked())
}

func TestDeniedLockRetriesOnAnyButton(t *testing.T) {
	m, locker := newMeadow(t, config.VariantLookout)
	locker.deny = true
	h := m.Handlers(nil)

	h.PointerButton(mouseButtonLeft, true)
	require.Equal(t, 1, locker.requests)

	locker.deny = false
	h.PointerButton(1, true)
	assert.Equal(t, 2, locker.requests)
	assert.True(t, m.Controller().(*camera.PointerLockController).Locked())

	h.PointerButton(2, true)
	assert.Equal(t, 2, locker.requests)
}

func TestLockLostUnlocksController(t *testing.T) {
	m, locker := newMeadow(t, config.VariantLookout)
	h := m.Handlers(nil)
	h.PointerButton(mouseButtonLeft, true)
	ctrl := m.Controller().(*camera.PointerLockController)
	require.True(t, ctrl.Locked())

	h.LockLost()
	assert.False(t, ctrl.Locked())

	h.PointerButton(mouseButtonLeft, true)
	assert.Equal(t, 2, locker.requests)
}

func TestKeyDownDoesNotOpenGate(t *testing.T) {
	m, locker := newMeadow(t, config.VariantLookout)
	h := m.Handlers(nil)

	h.KeyDown()

	assert.False(t, m.Gate.Fired())
	assert.Equal(t, 0, locker.requests)
}

func TestOrbitFirstClickStartsDrag(t *testing.T) {
	m, locker := newMeadow(t, config.VariantOrbit)
	h := m.Handlers(nil)
	ctrl := m.Controller()
	before := ctrl.Camera().Position

	h.PointerButton(mouseButtonLeft, true)
	h.PointerMoved(120, 0)
	for i := 0; i < 30; i++ {
		ctrl.OnTick(1.0 / 60)
	}

	assert.True(t, m.Gate.Fired())
	assert.Equal(t, 0, locker.requests)
	assert.False(t, before.ApproxEqualThreshold(ctrl.Camera().Position, 1e-4))
}

func TestOrbitIgnoresRightDrag(t *testing.T) {
	m, _ := newMeadow(t, config.VariantOrbit)
	h := m.Handlers(nil)
	ctrl := m.Controller()
	before := ctrl.Camera().Position

	h.PointerButton(1, true)
	h.PointerMoved(120, 0)
	ctrl.OnTick(1.0 / 60)

	assert.True(t, before.ApproxEqualThreshold(ctrl.Camera().Position, 1e-4))
}
