package palette

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	RedOffset   uint8 = 0x10
	GreenOffset uint8 = 0x08
	BlueOffset  uint8 = 0x00
)

const (
	Black Color = 0x000000
	// White is the default "white" of the bench tool. Full 0xFFFFFF draws
	// ~60mA per LED, which most bench supplies cannot feed on a long strip.
	White Color = 0x8F8F8F
	Red   Color = 0xFF0000
	Green Color = 0x00FF00
	Blue  Color = 0x0000FF
)

// Color is one LED sample packed as 0xRRGGBB. There is no alpha.
type Color uint32

// Channel names a single color component.
type Channel uint8

const (
	R Channel = iota
	G
	B
)

func (ch Channel) String() string {
	switch ch {
	case R:
		return "red"
	case G:
		return "green"
	case B:
		return "blue"
	}
	return "unknown"
}

// ParseChannel accepts "r", "red", "g", "green", "b" or "blue".
func ParseChannel(s string) (Channel, bool) {
	switch s {
	case "r", "R", "red":
		return R, true
	case "g", "G", "green":
		return G, true
	case "b", "B", "blue":
		return B, true
	}
	return 0, false
}

func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<RedOffset | uint32(g)<<GreenOffset | uint32(b)<<BlueOffset)
}

// FromColor converts any image/color value, dropping alpha after
// un-premultiplying.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB(n.R, n.G, n.B)
}

func setcolor(c Color, n uint8, off uint8) Color {
	mask := Color(0xFF) << off
	return (c &^ mask) | Color(n)<<off
}

func getcolor(c Color, off uint8) uint8 {
	return uint8((c >> off) & 0xFF)
}

func (c Color) R() uint8 { return getcolor(c, RedOffset) }
func (c Color) G() uint8 { return getcolor(c, GreenOffset) }
func (c Color) B() uint8 { return getcolor(c, BlueOffset) }

func (c Color) WithR(v uint8) Color { return setcolor(c, v, RedOffset) }
func (c Color) WithG(v uint8) Color { return setcolor(c, v, GreenOffset) }
func (c Color) WithB(v uint8) Color { return setcolor(c, v, BlueOffset) }

// Get returns the value of a single channel.
func (c Color) Get(ch Channel) uint8 {
	switch ch {
	case R:
		return c.R()
	case G:
		return c.G()
	}
	return c.B()
}

func (c Color) RGB() (r, g, b uint8) {
	return c.R(), c.G(), c.B()
}

// NRGBA implements the conversion used when drawing a strip as an image.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: 255}
}

// RGBA lets Color satisfy color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

// Scale multiplies every channel by brightness/255, truncating.
func (c Color) Scale(brightness uint8) Color {
	if brightness == 255 {
		return c
	}
	s := func(v uint8) uint8 { return uint8(uint16(v) * uint16(brightness) / 255) }
	return RGB(s(c.R()), s(c.G()), s(c.B()))
}

func clamp(v int) uint8 {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}

// Shift pushes the color towards ch: ch gains step, the other two lose
// step/2 each. All channels saturate at 0 and 255.
func (c Color) Shift(ch Channel, step int) Color {
	r, g, b := int(c.R()), int(c.G()), int(c.B())
	half := step / 2
	switch ch {
	case R:
		return RGB(clamp(r+step), clamp(g-half), clamp(b-half))
	case G:
		return RGB(clamp(r-half), clamp(g+step), clamp(b-half))
	default:
		return RGB(clamp(r-half), clamp(g-half), clamp(b+step))
	}
}

// Intensity moves the brightest channel by step (negative dims) and scales
// the other two by the same ratio so the hue is kept. Brightening black
// yields a grey of value step.
func (c Color) Intensity(step int) Color {
	r, g, b := c.RGB()
	peak := r
	if g > peak {
		peak = g
	}
	if b > peak {
		peak = b
	}
	if peak == 0 {
		if step <= 0 {
			return c
		}
		v := clamp(step)
		return RGB(v, v, v)
	}
	next := clamp(int(peak) + step)
	if next == peak {
		return c
	}
	ratio := float64(next) / float64(peak)
	sc := func(v uint8) uint8 { return clamp(int(math.Round(float64(v) * ratio))) }
	return RGB(sc(r), sc(g), sc(b))
}

// WhiteCap limits r+g+b to capFrac*3*255, scaling the channels evenly.
// capFrac outside (0,1) disables the cap.
func (c Color) WhiteCap(capFrac float64) Color {
	if capFrac <= 0 || capFrac >= 1 {
		return c
	}
	limit := capFrac * 3.0 * 255.0
	r, g, b := float64(c.R()), float64(c.G()), float64(c.B())
	s := r + g + b
	if s <= limit {
		return c
	}
	scale := limit / s
	return RGB(uint8(math.Round(r*scale)), uint8(math.Round(g*scale)), uint8(math.Round(b*scale)))
}

// Rainbow returns a fully saturated hue h in [0,1) at value v in [0,1].
func Rainbow(h, v float64) Color {
	h = math.Mod(h, 1.0)
	if h < 0 {
		h += 1.0
	}
	r, g, b := colorful.Hsv(h*360.0, 1.0, v).Clamped().RGB255()
	return RGB(r, g, b)
}
