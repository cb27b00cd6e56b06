package led

import (
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-strip/internal/palette"
)

// Strip is the logical interface every backend offers: set pixels, then push
// the whole frame with Render. Nothing changes on the LEDs until Render.
type Strip interface {
	Len() int
	SetPixel(index int, c palette.Color) bool
	Fill(c palette.Color)
	Clear()
	// SetBrightness scales later SetPixel/Fill calls linearly by b/255.
	SetBrightness(b uint8)
	// Snapshot returns the colors the next Render will send.
	Snapshot() []palette.Color
	Render() error
	// Close blanks the strip and releases the transport.
	Close() error
}

// SPIStrip pairs a FrameBuffer with the Transport it renders to. All methods
// are serialized, so a render never sends a half-updated frame.
type SPIStrip struct {
	mu         sync.Mutex
	fb         *FrameBuffer
	tr         Transport
	brightness uint8
	closed     bool
}

// NewSPIStrip takes ownership of fb and tr and fills fb with black.
func NewSPIStrip(fb *FrameBuffer, tr Transport) *SPIStrip {
	fb.Clear()
	return &SPIStrip{fb: fb, tr: tr, brightness: 255}
}

func (s *SPIStrip) Len() int { return s.fb.Len() }

func (s *SPIStrip) SetPixel(index int, c palette.Color) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, g, b := c.Scale(s.brightness).RGB()
	return s.fb.SetPixel(index, r, g, b)
}

func (s *SPIStrip) Fill(c palette.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, g, b := c.Scale(s.brightness).RGB()
	for i := 0; i < s.fb.Len(); i++ {
		s.fb.SetPixel(i, r, g, b)
	}
}

func (s *SPIStrip) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fb.Clear()
}

func (s *SPIStrip) SetBrightness(b uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brightness = b
}

func (s *SPIStrip) Snapshot() []palette.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]palette.Color, s.fb.Len())
	for i := range out {
		// Only a caller writing into Bytes() could make this fail.
		out[i], _ = s.fb.Pixel(i)
	}
	return out
}

func (s *SPIStrip) Render() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.fb.Render(s.tr)
}

// Close sends one black frame, then closes the transport if it is an
// io.Closer. Calling Close twice is a no-op.
func (s *SPIStrip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.fb.Clear()
	err := s.fb.Render(s.tr)
	if err != nil {
		log.Warn().Err(err).Msg("blank frame on close failed")
	}
	if c, ok := s.tr.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

var (
	_ Strip     = (*SPIStrip)(nil)
	_ Strip     = (*NRZStrip)(nil)
	_ Transport = (*ConnTransport)(nil)
	_ Transport = (*SpidevTransport)(nil)
	_ Transport = (*ConsoleTransport)(nil)
)
