package testpattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcaluminis-strip/internal/layout"
	"github.com/coreman2200/arcaluminis-strip/internal/led"
	"github.com/coreman2200/arcaluminis-strip/internal/palette"
)

type nopTransport struct{}

func (nopTransport) Write([]byte) error { return nil }

func newStrip(t *testing.T, n int) led.Strip {
	t.Helper()
	fb, err := led.NewFrameBuffer(n, led.DefaultSymbol, 10)
	require.NoError(t, err)
	return led.NewSPIStrip(fb, nopTransport{})
}

func lit(s led.Strip) []int {
	var out []int
	for i, c := range s.Snapshot() {
		if c != palette.Black {
			out = append(out, i)
		}
	}
	return out
}

func TestIndexSweep(t *testing.T) {
	s := newStrip(t, 3)
	r := NewRunner(Plan{Kind: IndexSweep})
	for i := 0; i < 3; i++ {
		require.True(t, r.Step(layout.Strip(3), s))
		assert.Equal(t, []int{i}, lit(s))
		assert.Equal(t, palette.White, s.Snapshot()[i])
	}
	assert.False(t, r.Step(layout.Strip(3), s))
	assert.Equal(t, []int{2}, lit(s), "finished runner leaves the frame alone")
}

func TestRGBTest(t *testing.T) {
	s := newStrip(t, 2)
	r := NewRunner(Plan{Kind: RGBTest})
	for _, want := range []palette.Color{palette.Red, palette.Green, palette.Blue} {
		require.True(t, r.Step(layout.Strip(2), s))
		assert.Equal(t, []palette.Color{want, want}, s.Snapshot())
	}
	assert.False(t, r.Step(layout.Strip(2), s))
}

func TestPlaneZ(t *testing.T) {
	l := layout.Layout{Dim: layout.Dim{X: 2, Y: 1, Z: 3}}
	s := newStrip(t, l.Count())
	r := NewRunner(Plan{Kind: PlaneZ})
	require.True(t, r.Step(l, s))
	assert.Equal(t, []int{0, 1}, lit(s))
	require.True(t, r.Step(l, s))
	assert.Equal(t, []int{2, 3}, lit(s))
	require.True(t, r.Step(l, s))
	require.False(t, r.Step(l, s))
}

func TestColorWipe(t *testing.T) {
	s := newStrip(t, 3)
	s.Fill(palette.Blue)
	r := NewRunner(Plan{Kind: ColorWipe, Color: palette.Red})
	require.True(t, r.Step(layout.Strip(3), s))
	assert.Equal(t, []palette.Color{palette.Red, palette.Black, palette.Black}, s.Snapshot())
	require.True(t, r.Step(layout.Strip(3), s))
	require.True(t, r.Step(layout.Strip(3), s))
	assert.Equal(t, []palette.Color{palette.Red, palette.Red, palette.Red}, s.Snapshot())
	assert.False(t, r.Step(layout.Strip(3), s))
}

func TestParse(t *testing.T) {
	k, ok := Parse("plane_z")
	assert.True(t, ok)
	assert.Equal(t, PlaneZ, k)
	_, ok = Parse("strobe")
	assert.False(t, ok)
	assert.False(t, NewRunner(Plan{}).Step(layout.Strip(1), newStrip(t, 1)))
}
