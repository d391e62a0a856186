package audio

import (
	"errors"
	"fmt"
	"time"

	"Meadow3D/internal/asset"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
)

var errEmptyClip = errors.New("audio clip is empty")

// Output device calls, replaced in tests.
var (
	speakerInit  = speaker.Init
	speakerPlay  = speaker.Play
	speakerClear = speaker.Clear
	speakerClose = speaker.Close
)

// SpeakerSink plays through the default output device. The device is
// opened lazily at the sample rate of the first clip.
type SpeakerSink struct {
	// Volume is in powers of two, 0 is unchanged.
	Volume float64

	open bool
}

func NewSpeakerSink(volume float64) *SpeakerSink {
	return &SpeakerSink{Volume: volume}
}

func (s *SpeakerSink) Play(clip *asset.AudioClip, loop bool) error {
	if clip == nil || clip.Len() == 0 {
		return errEmptyClip
	}
	if !s.open {
		rate := clip.Format.SampleRate
		if err := speakerInit(rate, rate.N(time.Second/10)); err != nil {
			return fmt.Errorf("open speaker: %w", err)
		}
		s.open = true
	}

	var stream beep.Streamer = clip.Buffer.Streamer(0, clip.Len())
	if loop {
		stream = beep.Loop(-1, clip.Buffer.Streamer(0, clip.Len()))
	}
	speakerPlay(&effects.Volume{Streamer: stream, Base: 2, Volume: s.Volume})
	return nil
}

// Stop silences playback and closes the output device. A later Play opens
// it again.
func (s *SpeakerSink) Stop() {
	if !s.open {
		return
	}
	speakerClear()
	speakerClose()
	s.open = false
}
