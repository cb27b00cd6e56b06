package led

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"

	"github.com/coreman2200/arcaluminis-strip/internal/palette"
)

// NRZStrip drives the strip through periph's nrzled driver instead of our
// encoder. It exists so the two can be compared on the same hardware.
type NRZStrip struct {
	mu         sync.Mutex
	dev        *nrzled.Dev
	port       spi.PortCloser
	rgb        []byte
	brightness uint8
	closed     bool
}

// NewNRZStrip opens count pixels on p. ledRate is the NRZ bit rate
// (800kHz for WS2812B), not the SPI clock.
func NewNRZStrip(p spi.PortCloser, count int, ledRate physic.Frequency) (*NRZStrip, error) {
	if count <= 0 {
		return nil, errors.Wrapf(ErrConfig, "pixel count %d", count)
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: count, Channels: 3, Freq: ledRate})
	if err != nil {
		return nil, errors.Wrap(err, "nrzled")
	}
	return &NRZStrip{dev: d, port: p, rgb: make([]byte, count*3), brightness: 255}, nil
}

func (s *NRZStrip) Len() int { return len(s.rgb) / 3 }

func (s *NRZStrip) set(index int, c palette.Color) bool {
	if index < 0 || index >= s.Len() {
		return false
	}
	s.rgb[index*3], s.rgb[index*3+1], s.rgb[index*3+2] = c.Scale(s.brightness).RGB()
	return true
}

func (s *NRZStrip) SetPixel(index int, c palette.Color) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(index, c)
}

func (s *NRZStrip) Fill(c palette.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < s.Len(); i++ {
		s.set(i, c)
	}
}

func (s *NRZStrip) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rgb {
		s.rgb[i] = 0
	}
}

func (s *NRZStrip) SetBrightness(b uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brightness = b
}

func (s *NRZStrip) Snapshot() []palette.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]palette.Color, s.Len())
	for i := range out {
		out[i] = palette.RGB(s.rgb[i*3], s.rgb[i*3+1], s.rgb[i*3+2])
	}
	return out
}

func (s *NRZStrip) Render() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.dev.Write(s.rgb); err != nil {
		return &TransmitError{Err: err}
	}
	return nil
}

func (s *NRZStrip) String() string {
	return s.dev.String()
}

func (s *NRZStrip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.dev.Halt()
	if cerr := s.port.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
