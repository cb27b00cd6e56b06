package led

import (
	"image"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/arcaluminis-strip/internal/palette"
)

// ConsoleTransport decodes each frame back to colors and draws it as a 1xN
// image, so a preview shows exactly what would have gone on the wire.
type ConsoleTransport struct {
	drawer display.Drawer
	sym    Symbol
	order  Order
	count  int
	img    *image.NRGBA
}

func NewConsoleTransport(d display.Drawer, count int, sym Symbol, order Order) *ConsoleTransport {
	return &ConsoleTransport{
		drawer: d,
		sym:    sym,
		order:  order,
		count:  count,
		img:    image.NewNRGBA(image.Rect(0, 0, count, 1)),
	}
}

// Write draws the frame. Pixels that do not decode are drawn black.
func (c *ConsoleTransport) Write(p []byte) error {
	colors, err := DecodeFrame(p, c.sym, c.order, c.count)
	if err != nil {
		log.Debug().Err(err).Msg("console preview: undecodable pixels drawn black")
	}
	for x := 0; x < c.count; x++ {
		col := palette.Black
		if x < len(colors) {
			col = colors[x]
		}
		c.img.SetNRGBA(x, 0, col.NRGBA())
	}
	return c.drawer.Draw(c.drawer.Bounds(), c.img, image.Point{})
}

func (c *ConsoleTransport) String() string {
	return "console{" + c.drawer.String() + "}"
}

func (c *ConsoleTransport) Close() error {
	return c.drawer.Halt()
}
