package asset

import (
	"bytes"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// AudioClip is a fully decoded sound held in memory so it can loop without
// touching the file again.
type AudioClip struct {
	Name   string
	Format beep.Format
	Buffer *beep.Buffer
}

// Len is the clip length in samples.
func (c *AudioClip) Len() int {
	return c.Buffer.Len()
}

var audioKinds = map[string]bool{
	"wav": true,
	"mp3": true,
}

// DecodeAudio reads a wav or mp3 file into an AudioClip.
func DecodeAudio(path string) (any, error) {
	data, ext, err := sniff(path, audioKinds)
	if err != nil {
		return nil, err
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	if ext == "wav" {
		stream, format, err = wav.Decode(bytes.NewReader(data))
	} else {
		stream, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	}
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	buf := beep.NewBuffer(format)
	buf.Append(stream)
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &AudioClip{Name: path, Format: format, Buffer: buf}, nil
}
