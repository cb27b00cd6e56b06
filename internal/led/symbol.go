package led

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// WS2812B timing, from the datasheet.
const (
	BitPeriod  = 1250 * time.Nanosecond
	T0H        = 400 * time.Nanosecond
	T1H        = 800 * time.Nanosecond
	PulseSlack = 150 * time.Nanosecond
	// ResetLow is the latch time used by default. The datasheet minimum is
	// 280µs; older WS2812 parts latch at 50µs.
	ResetLow = 300 * time.Microsecond
)

// Symbol describes how one logical protocol bit is oversampled into
// transport bits. Each symbol is Width bits long and starts high; a logical
// 0 keeps the line high for ZeroHigh bits, a logical 1 for OneHigh bits.
type Symbol struct {
	Width    uint8
	ZeroHigh uint8
	OneHigh  uint8
}

// DefaultSymbol is the 3x expansion used at 2.4MHz: 0 -> 100, 1 -> 110.
var DefaultSymbol = Symbol{Width: 3, ZeroHigh: 1, OneHigh: 2}

// BlackPattern is EncodeChannel(0x00, DefaultSymbol). Zero bytes are not a
// valid encoding: they hold the line low and read as a reset, not as black.
var BlackPattern = [3]byte{0x92, 0x49, 0x24}

const maxSymbolWidth = 16

// Validate reports whether s can be encoded and told apart on the wire.
func (s Symbol) Validate() error {
	switch {
	case s.Width < 3 || s.Width > maxSymbolWidth:
		return errors.Wrapf(ErrConfig, "symbol width %d outside [3,%d]", s.Width, maxSymbolWidth)
	case s.ZeroHigh == 0:
		return errors.Wrap(ErrConfig, "symbol must start high")
	case s.ZeroHigh >= s.OneHigh || s.OneHigh >= s.Width:
		return errors.Wrapf(ErrConfig, "symbol high times %d/%d do not fit width %d", s.ZeroHigh, s.OneHigh, s.Width)
	}
	return nil
}

// ChannelBytes is the encoded size of one 8 bit channel.
func (s Symbol) ChannelBytes() int {
	return int(s.Width)
}

// Timing ties a Symbol to the transport clock so it can be retuned when the
// SPI rate changes.
type Timing struct {
	Rate      physic.Frequency
	BitPeriod time.Duration
	// Width, when set, fixes the symbol width instead of deriving it from
	// BitPeriod. High counts still come from the rate.
	Width uint8
}

func hertz(f physic.Frequency) float64 {
	return float64(f) / float64(physic.Hertz)
}

// Symbol derives the symbol for t and checks that the resulting high pulses
// fall inside the protocol windows.
func (t Timing) Symbol() (Symbol, error) {
	if t.Rate <= 0 {
		return Symbol{}, errors.Wrapf(ErrConfig, "transport rate %s", t.Rate)
	}
	period := t.BitPeriod
	if period <= 0 {
		period = BitPeriod
	}
	hz := hertz(t.Rate)
	round := func(d time.Duration) int { return int(math.Round(d.Seconds() * hz)) }

	w, zero, one := round(period), round(T0H), round(T1H)
	if t.Width != 0 {
		w = int(t.Width)
	}
	if zero < 1 {
		zero = 1
	}
	if w > maxSymbolWidth || one >= w {
		return Symbol{}, errors.Wrapf(ErrConfig, "rate %s cannot carry a %s bit period", t.Rate, period)
	}
	s := Symbol{Width: uint8(w), ZeroHigh: uint8(zero), OneHigh: uint8(one)}
	if err := s.Validate(); err != nil {
		return Symbol{}, err
	}
	bit := time.Duration(float64(time.Second) / hz)
	if d := time.Duration(zero) * bit; d < T0H-PulseSlack || d > T0H+PulseSlack {
		return Symbol{}, errors.Wrapf(ErrConfig, "rate %s gives T0H %s", t.Rate, d)
	}
	if d := time.Duration(one) * bit; d < T1H-PulseSlack || d > T1H+PulseSlack {
		return Symbol{}, errors.Wrapf(ErrConfig, "rate %s gives T1H %s", t.Rate, d)
	}
	return s, nil
}

// ResetBytes returns how many zero bytes hold the line low for at least
// reset at rate.
func ResetBytes(rate physic.Frequency, reset time.Duration) int {
	hz := int64(rate / physic.Hertz)
	if hz <= 0 || reset <= 0 {
		return 0
	}
	ns := reset.Nanoseconds()
	bits := (ns*hz + int64(time.Second) - 1) / int64(time.Second)
	return int((bits + 7) / 8)
}

// EncodeChannel expands v, most significant bit first, into 8*s.Width
// transport bits packed MSB first.
func EncodeChannel(v uint8, s Symbol) []byte {
	out := make([]byte, s.ChannelBytes())
	EncodeChannelTo(out, v, s)
	return out
}

// EncodeChannelTo writes the encoding of v into dst[:s.Width].
func EncodeChannelTo(dst []byte, v uint8, s Symbol) {
	w := int(s.Width)
	dst = dst[:w]
	for i := range dst {
		dst[i] = 0
	}
	pos := 0
	for b := 7; b >= 0; b-- {
		high := int(s.ZeroHigh)
		if (v>>uint(b))&1 == 1 {
			high = int(s.OneHigh)
		}
		for j := pos; j < pos+high; j++ {
			dst[j/8] |= 0x80 >> uint(j%8)
		}
		pos += w
	}
}

// DecodeChannel is the inverse of EncodeChannel.
func DecodeChannel(src []byte, s Symbol) (uint8, error) {
	w := int(s.Width)
	if len(src) < w {
		return 0, errors.Wrapf(ErrMalformedSymbol, "need %d bytes, have %d", w, len(src))
	}
	bit := func(i int) bool { return src[i/8]&(0x80>>uint(i%8)) != 0 }
	var v uint8
	for n := 0; n < 8; n++ {
		base := n * w
		high := 0
		for high < w && bit(base+high) {
			high++
		}
		for j := high; j < w; j++ {
			if bit(base + j) {
				return 0, errors.Wrapf(ErrMalformedSymbol, "bit %d: pulse restarts", n)
			}
		}
		v <<= 1
		switch high {
		case int(s.ZeroHigh):
		case int(s.OneHigh):
			v |= 1
		default:
			return 0, errors.Wrapf(ErrMalformedSymbol, "bit %d: high for %d of %d", n, high, w)
		}
	}
	return v, nil
}
