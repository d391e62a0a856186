package panel

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/params"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPanel(t *testing.T) (*FilePanel, *params.Store, *asset.Queue) {
	t.Helper()
	store := params.NewStore()
	require.NoError(t, store.Declare("veil", "uVanish", params.Tunable, params.Float(0.2)))
	require.NoError(t, store.Declare("veil", "uColorA", params.Tunable, params.MustHex("#042c71")))
	require.NoError(t, store.Declare("grass", "uDecay", params.Tunable, params.Float(3)))
	require.NoError(t, store.Declare("grass", "uGradients", params.Static, params.Float(3)))
	require.NoError(t, store.DeclareAnimated("veil", "uTime", nil))
	q := asset.NewQueue()
	return NewFilePanel(filepath.Join(t.TempDir(), "tweaks.toml"), store, q), store, q
}

func TestOptionsClamp(t *testing.T) {
	o := Options{Min: 0, Max: 10, Step: 1}

	assert.Equal(t, float32(0), o.Clamp(-3))
	assert.Equal(t, float32(10), o.Clamp(42))
	assert.Equal(t, float32(4), o.Clamp(3.6))
	assert.Equal(t, float32(3), o.Clamp(3.4))

	free := Options{Min: 0.01, Max: 1}
	assert.InDelta(t, 0.333, free.Clamp(0.333), 1e-6)
	assert.Equal(t, float32(7), Options{}.Clamp(7))
}

func TestBindRefusesNonTunable(t *testing.T) {
	p, _, _ := newPanel(t)

	assert.ErrorIs(t, p.BindFloat("grass", "uGradients", Options{}, nil), params.ErrNotTunable)
	assert.ErrorIs(t, p.BindFloat("veil", "uTime", Options{}, nil), params.ErrNotTunable)
	assert.ErrorIs(t, p.BindFloat("veil", "uMissing", Options{}, nil), params.ErrUnknownParam)
}

func TestBindRejectsWrongKindAndDuplicates(t *testing.T) {
	p, _, _ := newPanel(t)

	assert.ErrorIs(t, p.BindFloat("veil", "uColorA", Options{}, nil), params.ErrKindMismatch)
	assert.ErrorIs(t, p.BindColor("veil", "uVanish", "vanish", nil), params.ErrKindMismatch)
	require.NoError(t, p.BindFloat("veil", "uVanish", Options{Min: 0.01, Max: 1}, nil))
	assert.ErrorIs(t, p.BindFloat("veil", "uVanish", Options{}, nil), ErrAlreadyBound)
}

func TestApplyWritesBetweenTicks(t *testing.T) {
	p, store, q := newPanel(t)
	var seen []float32
	require.NoError(t, p.BindFloat("grass", "uDecay", Options{Min: 0, Max: 10, Step: 1}, func(v float32) {
		seen = append(seen, v)
	}))

	require.NoError(t, p.Apply([]byte("[grass]\nuDecay = 6.7\n")))

	v, _ := store.Float("grass", "uDecay")
	assert.Equal(t, float32(3), v, "write waits for the queue")

	q.Drain()
	v, _ = store.Float("grass", "uDecay")
	assert.Equal(t, float32(7), v)
	assert.Equal(t, []float32{7}, seen)
}

func TestApplyClampsOutOfRange(t *testing.T) {
	p, store, q := newPanel(t)
	require.NoError(t, p.BindFloat("veil", "uVanish", Options{Min: 0.01, Max: 1}, nil))

	require.NoError(t, p.Apply([]byte("[veil]\nuVanish = 5\n")))
	q.Drain()

	v, _ := store.Float("veil", "uVanish")
	assert.Equal(t, float32(1), v)
}

func TestApplyIntegerValue(t *testing.T) {
	p, store, q := newPanel(t)
	require.NoError(t, p.BindFloat("grass", "uDecay", Options{Min: 0, Max: 10, Step: 1}, nil))

	require.NoError(t, p.Apply([]byte("[grass]\nuDecay = 2\n")))
	q.Drain()

	v, _ := store.Float("grass", "uDecay")
	assert.Equal(t, float32(2), v)
}

func TestApplyColor(t *testing.T) {
	p, store, q := newPanel(t)
	var got params.Color
	require.NoError(t, p.BindColor("veil", "uColorA", "color A", func(c params.Color) { got = c }))

	require.NoError(t, p.Apply([]byte("[veil]\nuColorA = \"#f87865\"\n")))
	q.Drain()

	v, _ := store.Get("veil", "uColorA")
	assert.Equal(t, params.MustHex("#f87865"), v)
	assert.Equal(t, params.MustHex("#f87865"), got)
}

func TestApplySkipsBadValuesAndUnknownKeys(t *testing.T) {
	p, store, q := newPanel(t)
	require.NoError(t, p.BindFloat("veil", "uVanish", Options{Min: 0.01, Max: 1}, nil))
	require.NoError(t, p.BindColor("veil", "uColorA", "", nil))

	doc := "[veil]\nuVanish = \"lots\"\nuColorA = \"#nothex\"\nuOther = 1\n[ghost]\nuX = 1\n"
	require.NoError(t, p.Apply([]byte(doc)))
	assert.Zero(t, q.Drain())

	v, _ := store.Float("veil", "uVanish")
	assert.Equal(t, float32(0.2), v)
}

func TestApplyRejectsMalformedTOML(t *testing.T) {
	p, _, _ := newPanel(t)

	assert.Error(t, p.Apply([]byte("[veil\n")))
}

func TestWriteDefaultsThenReload(t *testing.T) {
	p, store, q := newPanel(t)
	require.NoError(t, p.BindFloat("veil", "uVanish", Options{Min: 0.01, Max: 1}, nil))
	require.NoError(t, p.BindColor("veil", "uColorA", "", nil))
	require.NoError(t, p.WriteDefaults())

	require.NoError(t, store.Set(params.Tunable, "veil", "uVanish", params.Float(0.9)))
	require.NoError(t, p.Reload())
	q.Drain()

	v, _ := store.Float("veil", "uVanish")
	assert.InDelta(t, 0.2, v, 1e-6)
	c, _ := store.Get("veil", "uColorA")
	assert.Equal(t, params.MustHex("#042c71"), c)
}

func TestWatchAppliesSavedFile(t *testing.T) {
	p, store, q := newPanel(t)
	require.NoError(t, p.BindFloat("grass", "uDecay", Options{Min: 0, Max: 10, Step: 1}, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Watch(ctx))
	defer p.Close()

	require.NoError(t, os.WriteFile(p.Path(), []byte("[grass]\nuDecay = 9\n"), 0o644))

	assert.Eventually(t, func() bool {
		q.Drain()
		v, _ := store.Float("grass", "uDecay")
		return v == 9
	}, 5*time.Second, 20*time.Millisecond)
}
