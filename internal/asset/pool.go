package asset

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"Meadow3D/internal/logger"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// Decoder turns a file into a decoded in-memory asset. Decoders run on pool
// workers and must not touch render-thread state.
type Decoder interface {
	Decode(path string) (any, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(path string) (any, error)

func (f DecoderFunc) Decode(path string) (any, error) {
	return f(path)
}

type PoolOption func(*Pool)

// WithDecoder overrides the decoder for one kind.
func WithDecoder(kind Kind, d Decoder) PoolOption {
	return func(p *Pool) {
		p.decoders[kind] = d
	}
}

// WithRoot resolves relative load paths against dir.
func WithRoot(dir string) PoolOption {
	return func(p *Pool) {
		p.root = dir
	}
}

// Pool issues loads. Every Load is independent: no deduplication, no retry,
// no cancellation and no timeout.
type Pool struct {
	queue    *Queue
	workers  pond.Pool
	decoders map[Kind]Decoder
	root     string
	inflight sync.WaitGroup
}

// NewPool creates a pool decoding on at most workers goroutines and
// delivering completions through queue.
func NewPool(queue *Queue, workers int, options ...PoolOption) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		queue:   queue,
		workers: pond.NewPool(workers),
		decoders: map[Kind]Decoder{
			EnvironmentMap: DecoderFunc(DecodeEnvMap),
			Texture:        DecoderFunc(DecodeImage),
			Model:          DecoderFunc(DecodeModel),
			Audio:          DecoderFunc(DecodeAudio),
		},
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Load starts decoding path in the background and returns its handle at
// once. The handle settles on a later queue drain.
func (p *Pool) Load(kind Kind, path string) *Handle {
	h := newHandle(kind, path, p.queue)
	full := path
	if p.root != "" && !filepath.IsAbs(path) {
		full = filepath.Join(p.root, path)
	}

	decoder, ok := p.decoders[kind]
	if !ok {
		err := fmt.Errorf("%s %s: %w", kind, path, ErrNoDecoder)
		p.queue.Post(func() { p.settle(h, nil, err, 0) })
		return h
	}

	p.inflight.Add(1)
	p.workers.Submit(func() {
		defer p.inflight.Done()
		defer func() {
			// A crashing decoder still fails its handle.
			if r := recover(); r != nil {
				err := fmt.Errorf("load %s %s: decoder panic: %v", kind, path, r)
				p.queue.Post(func() { p.settle(h, nil, err, 0) })
			}
		}()
		start := time.Now()
		a, err := decoder.Decode(full)
		if err != nil {
			err = fmt.Errorf("load %s %s: %w", kind, path, err)
		}
		took := time.Since(start)
		p.queue.Post(func() { p.settle(h, a, err, took) })
	})
	return h
}

func (p *Pool) settle(h *Handle, a any, err error, took time.Duration) {
	if err != nil {
		logger.Log.Warn("Asset load failed, continuing without it",
			zap.Stringer("kind", h.kind),
			zap.String("path", h.path),
			zap.Error(err))
	} else {
		logger.Log.Info("Asset loaded",
			zap.Stringer("kind", h.kind),
			zap.String("path", h.path),
			zap.Duration("took", took))
	}
	h.resolve(a, err)
}

// Wait blocks until every decode started so far has posted its completion.
// Completions still need a queue drain to reach their handles.
func (p *Pool) Wait() {
	p.inflight.Wait()
}

// Close stops accepting work and waits for running decodes.
func (p *Pool) Close() {
	p.workers.StopAndWait()
}
