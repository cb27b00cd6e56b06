package layout

// Dim is the strip folded into rows (X LEDs each), panels (Y rows each) and
// a stack of Z panels. A plain strip is {N, 1, 1}.
type Dim struct{ X, Y, Z int }

type Serpentine struct {
	XFlipEveryRow   bool
	YFlipEveryPanel bool
}

type Layout struct {
	Dim   Dim
	Order Serpentine
}

// Strip returns the layout of an unfolded strip of n LEDs.
func Strip(n int) Layout {
	return Layout{Dim: Dim{X: n, Y: 1, Z: 1}}
}

// Contains reports whether x,y,z addresses an LED.
func (l Layout) Contains(x, y, z int) bool {
	return x >= 0 && x < l.Dim.X && y >= 0 && y < l.Dim.Y && z >= 0 && z < l.Dim.Z
}

// Index maps x,y,z -> linear LED index (0..N-1), or -1 outside the layout.
func (l Layout) Index(x, y, z int) int {
	if !l.Contains(x, y, z) {
		return -1
	}
	yy := y
	xx := x
	if (y%2 == 1) && l.Order.XFlipEveryRow {
		xx = l.Dim.X - 1 - x
	}
	if l.Order.YFlipEveryPanel && (z%2 == 1) {
		yy = l.Dim.Y - 1 - y
	}
	perPanel := l.Dim.X * l.Dim.Y
	return z*perPanel + yy*l.Dim.X + xx
}

// Coord is the inverse of Index for the unflipped raster position of i.
func (l Layout) Coord(i int) (x, y, z int) {
	perPanel := l.Dim.X * l.Dim.Y
	z = i / perPanel
	rem := i % perPanel
	return rem % l.Dim.X, rem / l.Dim.X, z
}

func (l Layout) Count() int {
	return l.Dim.X * l.Dim.Y * l.Dim.Z
}
