//go:build !linux

package led

import "fmt"

type SpidevTransport struct{}

func OpenSpidev(dev string, speedHz uint32) (*SpidevTransport, error) {
	return nil, fmt.Errorf("spidev transport not supported on this platform")
}

func (s *SpidevTransport) Write(p []byte) error {
	return fmt.Errorf("spidev transport not supported on this platform")
}

func (s *SpidevTransport) String() string { return "spidev{unsupported}" }

func (s *SpidevTransport) Close() error { return nil }
