package effect

import (
	"fmt"
	"strconv"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// Easing maps linear progress in [0, 1] to eased progress.
type Easing func(t float32) float32

func Linear(t float32) float32 { return t }

func EaseInOutSine(t float32) float32 {
	return -(math32.Cos(math32.Pi*t) - 1) / 2
}

// Tween interpolates From to To after holding for Delay. Times are seconds
// relative to the tween start.
type Tween struct {
	From     float32
	To       float32
	Delay    float64
	Duration float64
	Ease     Easing
}

func NewTween(from, to float32, delay, duration time.Duration) Tween {
	return Tween{From: from, To: to, Delay: delay.Seconds(), Duration: duration.Seconds(), Ease: Linear}
}

// End is the time at which the tween reaches To.
func (tw Tween) End() float64 {
	return tw.Delay + tw.Duration
}

func (tw Tween) Done(t float64) bool {
	return t >= tw.End()
}

func (tw Tween) Value(t float64) float32 {
	if t <= tw.Delay {
		return tw.From
	}
	if tw.Duration <= 0 || t >= tw.End() {
		return tw.To
	}
	p := float32((t - tw.Delay) / tw.Duration)
	if tw.Ease != nil {
		p = tw.Ease(p)
	}
	return tw.From + (tw.To-tw.From)*p
}

// ParseOverlayColor parses "#rrggbb" or "#rrggbbaa" into linear RGBA.
func ParseOverlayColor(s string) (mgl32.Vec4, error) {
	alpha := float32(1)
	rgb := s
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return mgl32.Vec4{}, fmt.Errorf("parse overlay alpha %q: %w", s, err)
		}
		alpha = float32(a) / 255
		rgb = s[:7]
	}
	c, err := colorful.Hex(rgb)
	if err != nil {
		return mgl32.Vec4{}, fmt.Errorf("parse overlay color %q: %w", s, err)
	}
	return mgl32.Vec4{float32(c.R), float32(c.G), float32(c.B), alpha}, nil
}
