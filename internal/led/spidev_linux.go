//go:build linux

package led

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"unsafe"
)

// Minimal spidev ioctl bindings for boards periph's host drivers do not
// recognise yet (Pi 5 RP1).

const (
	spiIOCWriteMode        = 0x40016b01
	spiIOCWriteBitsPerWord = 0x40016b03
	spiIOCWriteMaxSpeedHz  = 0x40046b04
)

// SpidevTransport writes frames straight to a /dev/spidevB.C node.
type SpidevTransport struct {
	mu      sync.Mutex
	f       *os.File
	dev     string
	speedHz uint32
}

// OpenSpidev opens dev and configures mode 0, 8 bits per word and speedHz.
func OpenSpidev(dev string, speedHz uint32) (*SpidevTransport, error) {
	f, err := os.OpenFile(dev, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open spidev: %w", err)
	}
	ioctl := func(req uintptr, arg unsafe.Pointer) syscall.Errno {
		_, _, e := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), req, uintptr(arg))
		return e
	}
	mode := byte(0)
	if e := ioctl(spiIOCWriteMode, unsafe.Pointer(&mode)); e != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("spi set mode: %v", e)
	}
	bpw := byte(8)
	if e := ioctl(spiIOCWriteBitsPerWord, unsafe.Pointer(&bpw)); e != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("spi set bits-per-word: %v", e)
	}
	if e := ioctl(spiIOCWriteMaxSpeedHz, unsafe.Pointer(&speedHz)); e != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("spi set speed: %v", e)
	}
	return &SpidevTransport{f: f, dev: dev, speedHz: speedHz}, nil
}

func (s *SpidevTransport) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("spidev %s closed", s.dev)
	}
	n, err := s.f.Write(p)
	if err != nil {
		return fmt.Errorf("spi write: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("spi write: short write %d of %d bytes", n, len(p))
	}
	return nil
}

func (s *SpidevTransport) String() string {
	return fmt.Sprintf("spidev{%s@%dHz}", s.dev, s.speedHz)
}

func (s *SpidevTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}
