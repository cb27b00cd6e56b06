package led

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcaluminis-strip/internal/palette"
)

var (
	zeroSym = []byte{0x92, 0x49, 0x24}
	oneSym  = []byte{0xDB, 0x6D, 0xB6}
)

// captureTransport records every frame it is handed.
type captureTransport struct {
	frames [][]byte
	err    error
}

func (c *captureTransport) Write(p []byte) error {
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, append([]byte{}, p...))
	return nil
}

func newFB(t *testing.T, n, reset int) *FrameBuffer {
	t.Helper()
	fb, err := NewFrameBuffer(n, DefaultSymbol, reset)
	require.NoError(t, err)
	return fb
}

func TestNewFrameBufferSizing(t *testing.T) {
	fb := newFB(t, 186, 100)
	assert.Equal(t, 186, fb.Len())
	assert.Equal(t, 9, fb.Stride())
	assert.Len(t, fb.PixelBytes(), 186*9)
	assert.Len(t, fb.Bytes(), 186*9+100)
	assert.Equal(t, make([]byte, 186*9+100), fb.Bytes(), "zero initialized")

	wide, err := NewFrameBuffer(2, Symbol{Width: 4, ZeroHigh: 1, OneHigh: 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, wide.Stride())
	assert.Len(t, wide.Bytes(), 24)
}

func TestNewFrameBufferConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		sym   Symbol
		reset int
	}{
		{"no pixels", 0, DefaultSymbol, 10},
		{"negative pixels", -3, DefaultSymbol, 10},
		{"negative reset", 3, DefaultSymbol, -1},
		{"bad symbol", 3, Symbol{Width: 3, ZeroHigh: 2, OneHigh: 2}, 10},
		{"overflow", math.MaxInt / 4, DefaultSymbol, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, err := NewFrameBuffer(tt.n, tt.sym, tt.reset)
			assert.Nil(t, fb)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestSetPixelWritesOnlyItsWindow(t *testing.T) {
	const n = 5
	for i := 0; i < n; i++ {
		fb := newFB(t, n, 10)
		before := append([]byte{}, fb.Bytes()...)
		require.True(t, fb.SetPixel(i, 0x12, 0x34, 0x56))
		after := fb.Bytes()
		assert.Equal(t, before[:i*9], after[:i*9], "pixel %d touched bytes before its window", i)
		assert.Equal(t, before[(i+1)*9:], after[(i+1)*9:], "pixel %d touched bytes after its window", i)
		c, err := fb.Pixel(i)
		require.NoError(t, err)
		assert.Equal(t, palette.RGB(0x12, 0x34, 0x56), c)
	}
}

func TestSetPixelOutOfRangeIsIgnored(t *testing.T) {
	fb := newFB(t, 3, 10)
	fb.Clear()
	fb.SetPixel(0, 1, 2, 3)
	before := append([]byte{}, fb.Bytes()...)
	for _, i := range []int{3, 4, 1000, -1, math.MinInt} {
		assert.False(t, fb.SetPixel(i, 0xFF, 0xFF, 0xFF), "index %d", i)
	}
	assert.Equal(t, before, fb.Bytes())
	_, err := fb.Pixel(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSetPixelChannelOrder(t *testing.T) {
	fb := newFB(t, 1, 0)
	fb.SetPixel(0, 0xFF, 0x00, 0x00)
	assert.Equal(t, append(append(append([]byte{}, zeroSym...), oneSym...), zeroSym...), fb.Bytes(), "green goes first")

	o, err := ParseOrder("rgb")
	require.NoError(t, err)
	fb.SetOrder(o)
	fb.SetPixel(0, 0xFF, 0x00, 0x00)
	assert.Equal(t, append(append(append([]byte{}, oneSym...), zeroSym...), zeroSym...), fb.Bytes())
}

func TestClearWritesBlackEncodingAndKeepsTail(t *testing.T) {
	fb := newFB(t, 4, 10)
	fb.SetPixel(2, 0xFF, 0xFF, 0xFF)
	fb.Clear()
	want := bytes.Repeat(EncodeChannel(0, DefaultSymbol), 4*3)
	assert.Equal(t, want, fb.PixelBytes())

	tr := &captureTransport{}
	require.NoError(t, fb.Render(tr))
	require.Len(t, tr.frames, 1)
	assert.Equal(t, want, tr.frames[0][:36])
	assert.Equal(t, make([]byte, 10), tr.frames[0][36:])
}

func TestEndToEndThreePixels(t *testing.T) {
	fb := newFB(t, 3, 10)
	require.True(t, fb.SetPixel(1, 0xFF, 0x00, 0x00))

	buf := fb.Bytes()
	require.Len(t, buf, 37)
	assert.Equal(t, zeroSym, buf[9:12], "green")
	assert.Equal(t, oneSym, buf[12:15], "red")
	assert.Equal(t, zeroSym, buf[15:18], "blue")
	assert.Equal(t, make([]byte, 9), buf[0:9])
	assert.Equal(t, make([]byte, 9), buf[18:27])
	assert.Equal(t, make([]byte, 10), buf[27:])

	tr := &captureTransport{}
	require.NoError(t, fb.Render(tr))
	require.Len(t, tr.frames, 1, "one write per frame")
	assert.Equal(t, buf, tr.frames[0])
}

func TestRenderTransmitError(t *testing.T) {
	fb := newFB(t, 2, 4)
	fb.SetPixel(0, 1, 2, 3)
	before := append([]byte{}, fb.Bytes()...)

	cause := errors.New("bus fault")
	tr := &captureTransport{err: cause}
	err := fb.Render(tr)
	var te *TransmitError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, before, fb.Bytes(), "failed render leaves the buffer alone")

	tr.err = nil
	require.NoError(t, fb.Render(tr))
	assert.Equal(t, before, tr.frames[0], "retry sends the same frame")
}

func TestDecodeFrame(t *testing.T) {
	fb := newFB(t, 3, 0)
	fb.Clear()
	fb.SetPixel(0, 1, 2, 3)
	fb.SetPixel(2, 0xFF, 0x80, 0x00)
	got, err := DecodeFrame(fb.Bytes(), DefaultSymbol, GRB, 3)
	require.NoError(t, err)
	assert.Equal(t, []palette.Color{palette.RGB(1, 2, 3), palette.Black, palette.RGB(0xFF, 0x80, 0x00)}, got)

	_, err = DecodeFrame(fb.Bytes()[:10], DefaultSymbol, GRB, 3)
	assert.ErrorIs(t, err, ErrMalformedSymbol)
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, GRB, o)
	assert.Equal(t, "GRB", o.String())

	o, err = ParseOrder("brg")
	require.NoError(t, err)
	assert.Equal(t, "BRG", o.String())

	for _, bad := range []string{"RRG", "RGBW", "XYZ", "RG"} {
		_, err := ParseOrder(bad)
		assert.ErrorIs(t, err, ErrConfig, bad)
	}
}
