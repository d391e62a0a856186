package panel

import (
	"errors"

	"Meadow3D/internal/params"

	"github.com/chewxy/math32"
)

var ErrAlreadyBound = errors.New("parameter already bound")

// Options describe a numeric control.
type Options struct {
	Label string
	Min   float32
	Max   float32
	Step  float32
}

// Clamp limits v to [Min, Max] and snaps it to the Step grid anchored at
// Min. A zero range leaves v unbounded.
func (o Options) Clamp(v float32) float32 {
	if o.Max <= o.Min {
		return v
	}
	v = math32.Max(o.Min, math32.Min(o.Max, v))
	if o.Step > 0 {
		v = o.Min + math32.Round((v-o.Min)/o.Step)*o.Step
		v = math32.Min(o.Max, v)
	}
	return v
}

// Panel exposes tunable shader parameters for live editing. Only tunable
// parameters can be bound; writes land between ticks.
type Panel interface {
	BindFloat(material, name string, opts Options, onChange func(float32)) error
	BindColor(material, name, label string, onChange func(params.Color)) error
}
