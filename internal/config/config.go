package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type SPI struct {
	Dev         string `yaml:"dev"`                    // e.g. /dev/spidev0.0, or a periph port name for driver=spi
	SpeedHz     int    `yaml:"speed_hz"`               // e.g. 2400000
	ResetUs     int    `yaml:"reset_us"`               // latch time, e.g. 300
	ResetBytes  int    `yaml:"reset_bytes,omitempty"`  // lower bound on the tail; the larger of this and reset_us wins
	SymbolWidth int    `yaml:"symbol_width,omitempty"` // 0 derives it from speed_hz
}

type Layout struct {
	X               int  `yaml:"x"`
	Y               int  `yaml:"y"`
	Z               int  `yaml:"z"`
	XFlipEveryRow   bool `yaml:"x_flip_every_row"`
	YFlipEveryPanel bool `yaml:"y_flip_every_panel"`
}

type Config struct {
	Driver     string  `yaml:"driver"` // "spi" | "spidev" | "nrzled" | "sim"
	Pixels     int     `yaml:"pixels"`
	ColorOrder string  `yaml:"color_order"`
	Brightness float64 `yaml:"brightness"`
	WhiteCap   float64 `yaml:"white_cap,omitempty"`
	FPS        int     `yaml:"fps"`
	Addr       string  `yaml:"addr"`

	SPI    SPI    `yaml:"spi,omitempty"`
	Layout Layout `yaml:"layout,omitempty"`
}

// MaxFPS bounds the render rate; above it the ticker interval rounds to zero.
const MaxFPS = 1000

// MaxSymbolWidth is the widest symbol the encoder accepts.
const MaxSymbolWidth = 16

// Default matches the bench setup: 186 LEDs on spidev0.0 at 2.4MHz. 334µs of
// reset is about 100 bytes at that clock.
func Default() *Config {
	return &Config{
		Driver:     "spidev",
		Pixels:     186,
		ColorOrder: "GRB",
		Brightness: 1,
		FPS:        30,
		Addr:       ":8080",
		SPI: SPI{
			Dev:     "/dev/spidev0.0",
			SpeedHz: 2400000,
			ResetUs: 334,
		},
	}
}

var drivers = map[string]bool{"spi": true, "spidev": true, "nrzled": true, "sim": true}

// Validate returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if !drivers[c.Driver] {
		errs = append(errs, fmt.Errorf("driver %q: want spi, spidev, nrzled or sim", c.Driver))
	}
	if c.Pixels <= 0 {
		errs = append(errs, fmt.Errorf("pixels %d: must be positive", c.Pixels))
	}
	if c.Brightness < 0 || c.Brightness > 1 {
		errs = append(errs, fmt.Errorf("brightness %v: want 0..1", c.Brightness))
	}
	if c.WhiteCap < 0 || c.WhiteCap > 1 {
		errs = append(errs, fmt.Errorf("white_cap %v: want 0..1", c.WhiteCap))
	}
	if c.FPS < 0 || c.FPS > MaxFPS {
		errs = append(errs, fmt.Errorf("fps %d: want 0..%d", c.FPS, MaxFPS))
	}
	if c.SPI.SpeedHz < 0 || c.SPI.ResetUs < 0 || c.SPI.ResetBytes < 0 || c.SPI.SymbolWidth < 0 {
		errs = append(errs, errors.New("spi: speed_hz, reset_us, reset_bytes and symbol_width must not be negative"))
	}
	if c.SPI.SymbolWidth > MaxSymbolWidth {
		errs = append(errs, fmt.Errorf("spi.symbol_width %d: want at most %d", c.SPI.SymbolWidth, MaxSymbolWidth))
	}
	if l := c.Layout; l.X != 0 || l.Y != 0 || l.Z != 0 {
		if l.X <= 0 || l.Y <= 0 || l.Z <= 0 {
			errs = append(errs, fmt.Errorf("layout %dx%dx%d: all dimensions must be positive", l.X, l.Y, l.Z))
		} else if l.X*l.Y*l.Z != c.Pixels {
			errs = append(errs, fmt.Errorf("layout %dx%dx%d holds %d LEDs, pixels is %d", l.X, l.Y, l.Z, l.X*l.Y*l.Z, c.Pixels))
		}
	}
	return errors.Join(errs...)
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
