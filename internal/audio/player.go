package audio

import (
	"Meadow3D/internal/asset"
	"Meadow3D/internal/logger"

	"go.uber.org/zap"
)

// Sink plays decoded clips on an output device.
type Sink interface {
	Play(clip *asset.AudioClip, loop bool) error
	Stop()
}

// Player holds background audio until two things happened: the clip has
// loaded and the user has interacted with the window. It starts playback on
// the first tick after both, exactly once.
type Player struct {
	sink Sink
	loop bool

	clip     *asset.AudioClip
	unlocked bool
	started  bool
	failed   bool
}

func NewPlayer(sink Sink, loop bool) *Player {
	return &Player{sink: sink, loop: loop}
}

// SetClip is the loader continuation for the ambience clip.
func (p *Player) SetClip(clip *asset.AudioClip) {
	if p.clip != nil {
		return
	}
	p.clip = clip
}

// Unlock records the first user interaction.
func (p *Player) Unlock() {
	p.unlocked = true
}

func (p *Player) Unlocked() bool {
	return p.unlocked
}

func (p *Player) Playing() bool {
	return p.started
}

// Update is the per-tick hook.
func (p *Player) Update(float64) {
	if p.started || p.failed || !p.unlocked || p.clip == nil {
		return
	}
	if err := p.sink.Play(p.clip, p.loop); err != nil {
		p.failed = true
		logger.Log.Warn("Audio playback unavailable", zap.String("clip", p.clip.Name), zap.Error(err))
		return
	}
	p.started = true
	logger.Log.Info("Ambient audio started", zap.String("clip", p.clip.Name), zap.Bool("loop", p.loop))
}

// Close stops playback if it started.
func (p *Player) Close() {
	if p.started {
		p.sink.Stop()
		p.started = false
	}
}
