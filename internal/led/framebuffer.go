package led

import (
	"math"

	"github.com/pkg/errors"

	"github.com/coreman2200/arcaluminis-strip/internal/palette"
)

// FrameBuffer holds one encoded frame: count pixels of 3*Width bytes each,
// followed by a tail of zero bytes that holds the line low long enough for
// the strip to latch.
//
// A FrameBuffer has a single owner and is not safe for concurrent use; see
// SPIStrip for a locked wrapper.
type FrameBuffer struct {
	count  int
	sym    Symbol
	order  Order
	stride int
	pixels int
	buf    []byte
	black  []byte
}

// NewFrameBuffer allocates a zeroed buffer for pixelCount pixels plus
// resetBytes of reset tail.
func NewFrameBuffer(pixelCount int, sym Symbol, resetBytes int) (*FrameBuffer, error) {
	if pixelCount <= 0 {
		return nil, errors.Wrapf(ErrConfig, "pixel count %d", pixelCount)
	}
	if resetBytes < 0 {
		return nil, errors.Wrapf(ErrConfig, "reset bytes %d", resetBytes)
	}
	if err := sym.Validate(); err != nil {
		return nil, err
	}
	stride := 3 * sym.ChannelBytes()
	if pixelCount > (math.MaxInt-resetBytes)/stride {
		return nil, errors.Wrapf(ErrConfig, "%d pixels overflow the frame size", pixelCount)
	}
	pixels := pixelCount * stride
	return &FrameBuffer{
		count:  pixelCount,
		sym:    sym,
		order:  GRB,
		stride: stride,
		pixels: pixels,
		buf:    make([]byte, pixels+resetBytes),
		black:  EncodeChannel(0, sym),
	}, nil
}

// Len is the number of pixels.
func (f *FrameBuffer) Len() int { return f.count }

// Stride is the number of encoded bytes per pixel.
func (f *FrameBuffer) Stride() int { return f.stride }

func (f *FrameBuffer) Symbol() Symbol { return f.sym }

func (f *FrameBuffer) Order() Order { return f.order }

// SetOrder changes the channel order used by later SetPixel calls.
func (f *FrameBuffer) SetOrder(o Order) { f.order = o }

// Bytes returns the whole frame, reset tail included. Callers must not
// modify it.
func (f *FrameBuffer) Bytes() []byte { return f.buf }

// PixelBytes returns the pixel region only.
func (f *FrameBuffer) PixelBytes() []byte { return f.buf[:f.pixels] }

// SetPixel encodes one pixel in place. Indexes outside [0, Len()) are
// ignored and reported by returning false; the buffer is not touched.
func (f *FrameBuffer) SetPixel(index int, r, g, b uint8) bool {
	if index < 0 || index >= f.count {
		return false
	}
	var v [3]uint8
	v[palette.R], v[palette.G], v[palette.B] = r, g, b
	w := f.sym.ChannelBytes()
	off := index * f.stride
	for k, ch := range f.order {
		EncodeChannelTo(f.buf[off+k*w:], v[ch], f.sym)
	}
	return true
}

// Clear writes the black encoding into every pixel. The reset tail is left
// alone.
func (f *FrameBuffer) Clear() {
	for off := 0; off < f.pixels; off += len(f.black) {
		copy(f.buf[off:], f.black)
	}
}

// Pixel decodes pixel index back from the buffer.
func (f *FrameBuffer) Pixel(index int) (palette.Color, error) {
	if index < 0 || index >= f.count {
		return palette.Black, ErrIndexOutOfRange
	}
	return decodePixel(f.buf[index*f.stride:], f.sym, f.order)
}

// Render hands the full frame to t in a single write.
func (f *FrameBuffer) Render(t Transport) error {
	if err := t.Write(f.buf); err != nil {
		return &TransmitError{Err: err}
	}
	return nil
}

func decodePixel(src []byte, sym Symbol, order Order) (palette.Color, error) {
	w := sym.ChannelBytes()
	var v [3]uint8
	for k, ch := range order {
		c, err := DecodeChannel(src[k*w:], sym)
		if err != nil {
			return palette.Black, err
		}
		v[ch] = c
	}
	return palette.RGB(v[palette.R], v[palette.G], v[palette.B]), nil
}

// DecodeFrame reads n pixels out of an encoded frame.
func DecodeFrame(frame []byte, sym Symbol, order Order, n int) ([]palette.Color, error) {
	stride := 3 * sym.ChannelBytes()
	if len(frame) < n*stride {
		return nil, errors.Wrapf(ErrMalformedSymbol, "frame of %d bytes holds fewer than %d pixels", len(frame), n)
	}
	out := make([]palette.Color, n)
	for i := range out {
		c, err := decodePixel(frame[i*stride:], sym, order)
		if err != nil {
			return out, errors.Wrapf(err, "pixel %d", i)
		}
		out[i] = c
	}
	return out, nil
}
