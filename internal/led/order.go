package led

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/coreman2200/arcaluminis-strip/internal/palette"
)

// Order is the sequence in which a pixel's channels go on the wire.
type Order [3]palette.Channel

// GRB is what WS2812B parts expect.
var GRB = Order{palette.G, palette.R, palette.B}

// ParseOrder accepts any permutation of "RGB", case insensitive. An empty
// string means GRB.
func ParseOrder(s string) (Order, error) {
	if s == "" {
		return GRB, nil
	}
	if len(s) != 3 {
		return Order{}, errors.Wrapf(ErrConfig, "color order %q", s)
	}
	var o Order
	seen := map[palette.Channel]bool{}
	for i, r := range strings.ToUpper(s) {
		ch, ok := palette.ParseChannel(string(r))
		if !ok || seen[ch] {
			return Order{}, errors.Wrapf(ErrConfig, "color order %q", s)
		}
		seen[ch] = true
		o[i] = ch
	}
	return o, nil
}

func (o Order) String() string {
	var b strings.Builder
	for _, ch := range o {
		b.WriteString(strings.ToUpper(ch.String()[:1]))
	}
	return b.String()
}
