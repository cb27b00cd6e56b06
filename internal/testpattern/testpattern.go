// Package testpattern steps bring-up patterns across a strip, one frame per
// Step call.
package testpattern

import (
	"github.com/coreman2200/arcaluminis-strip/internal/layout"
	"github.com/coreman2200/arcaluminis-strip/internal/led"
	"github.com/coreman2200/arcaluminis-strip/internal/palette"
)

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep"
	RGBTest    Kind = "rgb_channels"
	PlaneZ     Kind = "plane_z"
	ColorWipe  Kind = "color_wipe"
)

// Kinds lists every runnable pattern.
var Kinds = []Kind{IndexSweep, RGBTest, PlaneZ, ColorWipe}

// Parse maps a pattern name to its Kind.
func Parse(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return None, false
}

type Plan struct {
	Kind Kind
	// Color is used by IndexSweep and ColorWipe; zero means palette.White.
	Color palette.Color
}

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner {
	if plan.Color == palette.Black {
		plan.Color = palette.White
	}
	return &Runner{plan: plan}
}

func (r *Runner) Kind() Kind { return r.plan.Kind }

// Step writes the next frame into s; returns false when complete, leaving s
// untouched. Step does not render.
func (r *Runner) Step(l layout.Layout, s led.Strip) bool {
	n := s.Len()
	switch r.plan.Kind {
	case IndexSweep:
		if r.step >= n {
			return false
		}
		s.Clear()
		s.SetPixel(r.step, r.plan.Color)
	case RGBTest:
		if r.step >= 3 {
			return false
		}
		s.Fill([]palette.Color{palette.Red, palette.Green, palette.Blue}[r.step])
	case PlaneZ:
		perPanel := l.Dim.X * l.Dim.Y
		z := r.step
		if z >= l.Dim.Z {
			return false
		}
		s.Clear()
		for i := z * perPanel; i < (z+1)*perPanel; i++ {
			s.SetPixel(i, palette.RGB(0, 255, 255))
		}
	case ColorWipe:
		if r.step >= n {
			return false
		}
		if r.step == 0 {
			s.Clear()
		}
		s.SetPixel(r.step, r.plan.Color)
	default:
		return false
	}
	r.step++
	return true
}
