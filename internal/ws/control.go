package ws

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-strip/internal/config"
	diag "github.com/coreman2200/arcaluminis-strip/internal/diagnostics"
	"github.com/coreman2200/arcaluminis-strip/internal/led"
	"github.com/coreman2200/arcaluminis-strip/internal/palette"
	"github.com/coreman2200/arcaluminis-strip/internal/testpattern"
)

// Step sizes of the bench controller keys.
const (
	ColorStep     = 16
	IntensityStep = 20
)

// Command is one control message. Which fields matter depends on Cmd:
//
//	set_pixel  index or x/y/z, color or r/g/b
//	fill       color or r/g/b
//	clear, render, white
//	select     step (+1 next LED, -1 previous, wraps)
//	shift      channel ("r", "g", "b")
//	intensity  step (defaults to +IntensityStep)
//	brightness value 0..1
//	fps        value 1..config.MaxFPS
//	run_test   name, optional color
//	pattern    name ("rainbow" or "off")
type Command struct {
	Cmd     string   `json:"cmd"`
	Index   *int     `json:"index,omitempty"`
	X       *int     `json:"x,omitempty"`
	Y       *int     `json:"y,omitempty"`
	Z       *int     `json:"z,omitempty"`
	Color   string   `json:"color,omitempty"`
	R       *uint8   `json:"r,omitempty"`
	G       *uint8   `json:"g,omitempty"`
	B       *uint8   `json:"b,omitempty"`
	Channel string   `json:"channel,omitempty"`
	Step    int      `json:"step,omitempty"`
	Value   *float64 `json:"value,omitempty"`
	Name    string   `json:"name,omitempty"`
}

func (c Command) color(fallback palette.Color) (palette.Color, error) {
	if c.Color != "" {
		cc, err := colorful.Hex(c.Color)
		if err != nil {
			return fallback, errors.Wrapf(err, "color %q", c.Color)
		}
		r, g, b := cc.RGB255()
		return palette.RGB(r, g, b), nil
	}
	if c.R == nil && c.G == nil && c.B == nil {
		return fallback, nil
	}
	v := func(p *uint8) uint8 {
		if p == nil {
			return 0
		}
		return *p
	}
	return palette.RGB(v(c.R), v(c.G), v(c.B)), nil
}

func hexColor(c palette.Color) string {
	return fmt.Sprintf("#%06x", uint32(c))
}

// Apply runs one control command. Commands that change pixels switch the
// host to manual mode and render immediately.
func (s *State) Apply(cmd Command) error {
	switch cmd.Cmd {
	case "set_pixel":
		return s.setPixel(cmd)
	case "fill":
		c, err := cmd.color(s.currentColor())
		if err != nil {
			return err
		}
		s.manual(func() { s.Strip.Fill(c) })
	case "clear":
		s.manual(s.Strip.Clear)
	case "render":
		s.render()
	case "white":
		s.editColor(func(palette.Color) palette.Color { return palette.White })
	case "select":
		step := cmd.Step
		if step == 0 {
			step = 1
		}
		s.mu.Lock()
		n := s.Strip.Len()
		s.cursor = ((s.cursor+step)%n + n) % n
		s.mu.Unlock()
		s.showCursor()
	case "shift":
		ch, ok := palette.ParseChannel(cmd.Channel)
		if !ok {
			return errors.Errorf("channel %q", cmd.Channel)
		}
		s.editColor(func(c palette.Color) palette.Color { return c.Shift(ch, ColorStep) })
	case "intensity":
		step := cmd.Step
		if step == 0 {
			step = IntensityStep
		}
		s.editColor(func(c palette.Color) palette.Color { return c.Intensity(step) })
	case "brightness":
		if cmd.Value == nil {
			return errors.New("brightness needs a value")
		}
		s.mu.Lock()
		s.Brightness = clamp(*cmd.Value, 0, 1)
		s.Strip.SetBrightness(brightnessByte(s.Brightness))
		s.mu.Unlock()
		s.saveConfig()
	case "fps":
		if cmd.Value == nil || *cmd.Value < 1 || *cmd.Value > config.MaxFPS {
			return errors.Errorf("fps needs a value in 1..%d", config.MaxFPS)
		}
		s.mu.Lock()
		s.FPS = int(*cmd.Value)
		s.mu.Unlock()
		s.saveConfig()
	case "run_test":
		return s.runTest(cmd)
	case "pattern":
		switch cmd.Name {
		case "rainbow":
			s.mu.Lock()
			s.mode = Demo
			s.mu.Unlock()
		case "off":
			s.manual(s.Strip.Clear)
		default:
			return errors.Errorf("pattern %q", cmd.Name)
		}
	default:
		return errors.Errorf("unknown cmd %q", cmd.Cmd)
	}
	return nil
}

func (s *State) currentColor() palette.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}

// manual stops the demo and any test, applies f and renders.
func (s *State) manual(f func()) {
	s.mu.Lock()
	s.mode = Manual
	s.testRunner = nil
	f()
	s.mu.Unlock()
	s.render()
}

func (s *State) setPixel(cmd Command) error {
	c, err := cmd.color(s.currentColor())
	if err != nil {
		return err
	}
	idx := -1
	switch {
	case cmd.Index != nil:
		idx = *cmd.Index
	case cmd.X != nil:
		y, z := 0, 0
		if cmd.Y != nil {
			y = *cmd.Y
		}
		if cmd.Z != nil {
			z = *cmd.Z
		}
		s.mu.RLock()
		idx = s.Layout.Index(*cmd.X, y, z)
		s.mu.RUnlock()
	default:
		return errors.New("set_pixel needs index or x/y/z")
	}
	var ok bool
	s.manual(func() { ok = s.Strip.SetPixel(idx, c) })
	if !ok {
		s.pushDiag(diag.Diagnostic{
			Severity: diag.Warn, Code: diag.CodePixelRange, Summary: "Pixel index outside the strip; ignored",
			Evidence: map[string]any{"index": idx, "count": s.Strip.Len()},
		})
		return errors.Wrapf(led.ErrIndexOutOfRange, "index %d", idx)
	}
	return nil
}

// editColor changes the current color and shows it on the cursor LED.
func (s *State) editColor(f func(palette.Color) palette.Color) {
	s.mu.Lock()
	s.color = f(s.color)
	s.mu.Unlock()
	s.showCursor()
}

// showCursor lights only the cursor LED with the current color.
func (s *State) showCursor() {
	s.manual(func() {
		s.Strip.Clear()
		s.Strip.SetPixel(s.cursor, s.color)
	})
}

func (s *State) runTest(cmd Command) error {
	kind, ok := testpattern.Parse(cmd.Name)
	if !ok {
		s.pushDiag(diag.Diagnostic{
			Severity: diag.Warn, Code: diag.CodeTestUnknown, Summary: "Unknown test name",
			Evidence: map[string]any{"name": cmd.Name},
		})
		return nil
	}
	c, err := cmd.color(palette.Black)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.mode = Manual
	s.testRunner = testpattern.NewRunner(testpattern.Plan{Kind: kind, Color: c})
	s.mu.Unlock()
	s.pushDiag(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeTestRunning, Summary: "Running test", Detail: cmd.Name})
	return nil
}

func (s *State) saveConfig() {
	s.mu.RLock()
	if s.ConfigPath == "" || s.Config == nil {
		s.mu.RUnlock()
		return
	}
	cfg := *s.Config
	cfg.Brightness = s.Brightness
	cfg.FPS = s.FPS
	path := s.ConfigPath
	s.mu.RUnlock()

	if err := config.Save(path, &cfg); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config save failed")
	}
}
