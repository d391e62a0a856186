package asset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePool(t *testing.T, d Decoder) (*Pool, *Queue) {
	t.Helper()
	q := NewQueue()
	p := NewPool(q, 2, WithDecoder(Texture, d))
	t.Cleanup(p.Close)
	return p, q
}

func TestQueueDrainRunsInPostOrder(t *testing.T) {
	q := NewQueue()
	var got []int
	for i := 0; i < 3; i++ {
		i := i
		q.Post(func() { got = append(got, i) })
	}

	n := q.Drain()

	assert.Equal(t, 3, n)
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Equal(t, 0, q.Len())
}

func TestQueuePostDuringDrainWaitsForNextDrain(t *testing.T) {
	q := NewQueue()
	ran := false
	q.Post(func() { q.Post(func() { ran = true }) })

	q.Drain()
	assert.False(t, ran)
	assert.Equal(t, 1, q.Len())

	q.Drain()
	assert.True(t, ran)
}

func TestLoadSettlesOnlyOnDrain(t *testing.T) {
	p, q := fakePool(t, DecoderFunc(func(path string) (any, error) {
		return &Image{Name: path, Width: 1, Height: 1}, nil
	}))

	h := p.Load(Texture, "gradient.png")
	assert.Equal(t, Pending, h.State())

	p.Wait()
	assert.Equal(t, Pending, h.State(), "completion must wait for the render thread")

	q.Drain()
	require.Equal(t, Ready, h.State())
	img, ok := h.Asset().(*Image)
	require.True(t, ok)
	assert.Equal(t, "gradient.png", img.Name)
	assert.Same(t, img, h.Texture())
}

func TestThenRunsOnceWithAsset(t *testing.T) {
	p, q := fakePool(t, DecoderFunc(func(string) (any, error) {
		return &Image{Width: 4}, nil
	}))
	calls := 0
	h := p.Load(Texture, "a.png")
	Then(h, func(img *Image) {
		calls++
		assert.Equal(t, 4, img.Width)
	})

	p.Wait()
	q.Drain()
	q.Drain()

	assert.Equal(t, 1, calls)
}

func TestThenAfterReadyRunsOnNextDrain(t *testing.T) {
	p, q := fakePool(t, DecoderFunc(func(string) (any, error) {
		return &Image{}, nil
	}))
	h := p.Load(Texture, "a.png")
	p.Wait()
	q.Drain()
	require.True(t, h.Ready())

	ran := false
	h.Then(func(any) { ran = true })
	assert.False(t, ran)

	q.Drain()
	assert.True(t, ran)
}

func TestFailedLoadLeavesAssetAbsent(t *testing.T) {
	boom := errors.New("boom")
	p, q := fakePool(t, DecoderFunc(func(string) (any, error) {
		return nil, boom
	}))
	var readyCalls int
	var caught error
	h := p.Load(Texture, "missing.png").
		Then(func(any) { readyCalls++ }).
		Catch(func(err error) { caught = err })

	p.Wait()
	q.Drain()

	assert.Equal(t, Failed, h.State())
	assert.Nil(t, h.Asset())
	assert.Nil(t, h.Texture())
	assert.ErrorIs(t, h.Err(), boom)
	assert.ErrorIs(t, caught, boom)
	assert.Zero(t, readyCalls)
}

func TestPanickingDecoderFailsHandle(t *testing.T) {
	p, q := fakePool(t, DecoderFunc(func(string) (any, error) {
		var rows []int
		return rows[3], nil
	}))
	var caught error
	h := p.Load(Texture, "broken.png").Catch(func(err error) { caught = err })

	p.Wait()
	q.Drain()

	assert.Equal(t, Failed, h.State())
	assert.Nil(t, h.Asset())
	require.Error(t, caught)
	assert.Contains(t, caught.Error(), "decoder panic")
}

func TestUnregisteredKindFails(t *testing.T) {
	q := NewQueue()
	p := &Pool{queue: q, decoders: map[Kind]Decoder{}}

	h := p.Load(Audio, "ambience.mp3")
	q.Drain()

	assert.ErrorIs(t, h.Err(), ErrNoDecoder)
}

func TestNeverResolvingLoadStaysPending(t *testing.T) {
	release := make(chan struct{})
	p, q := fakePool(t, DecoderFunc(func(string) (any, error) {
		<-release
		return nil, errors.New("released")
	}))
	defer close(release)

	h := p.Load(Texture, "slow.png")
	for i := 0; i < 10; i++ {
		q.Drain()
	}

	assert.Equal(t, Pending, h.State())
	assert.Nil(t, h.Texture())
}

func TestLoadsAreIndependent(t *testing.T) {
	calls := 0
	q := NewQueue()
	p := NewPool(q, 1, WithDecoder(Texture, DecoderFunc(func(string) (any, error) {
		calls++
		return &Image{}, nil
	})))
	defer p.Close()

	a := p.Load(Texture, "same.png")
	b := p.Load(Texture, "same.png")
	p.Wait()
	q.Drain()

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, calls)
	assert.True(t, a.Ready())
	assert.True(t, b.Ready())
}
