package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/arcaluminis-strip/internal/config"
	"github.com/coreman2200/arcaluminis-strip/internal/layout"
	"github.com/coreman2200/arcaluminis-strip/internal/led"
	"github.com/coreman2200/arcaluminis-strip/internal/ws"
)

func main() {
	def := config.Default()
	var (
		pixels     = flag.Int("pixels", def.Pixels, "number of LEDs on the strip")
		driver     = flag.String("driver", def.Driver, "driver: spi | spidev | nrzled | sim")
		dev        = flag.String("dev", def.SPI.Dev, "spidev path, or periph SPI port name for -driver=spi")
		speedHz    = flag.Int("speed-hz", def.SPI.SpeedHz, "SPI clock in Hz")
		resetUs    = flag.Int("reset-us", def.SPI.ResetUs, "reset low time in µs")
		colorOrder = flag.String("color", def.ColorOrder, "LED color order (e.g. GRB, RGB)")
		fps        = flag.Int("fps", def.FPS, "target frames per second")
		brightness = flag.Float64("brightness", def.Brightness, "global brightness 0..1")
		addr       = flag.String("addr", def.Addr, "HTTP listen address")
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// Flags first; config.yaml overrides what it sets.
	cfg := def
	cfg.Pixels, cfg.Driver, cfg.ColorOrder = *pixels, *driver, *colorOrder
	cfg.FPS, cfg.Brightness, cfg.Addr = *fps, *brightness, *addr
	cfg.SPI.Dev, cfg.SPI.SpeedHz, cfg.SPI.ResetUs = *dev, *speedHz, *resetUs
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		overlay(cfg, c)
	}
	if *simOnly {
		cfg.Driver = "sim"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	strip, selected, err := openStrip(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("no usable strip")
	}

	l := layout.Strip(cfg.Pixels)
	if cl := cfg.Layout; cl.X > 0 {
		l = layout.Layout{
			Dim:   layout.Dim{X: cl.X, Y: cl.Y, Z: cl.Z},
			Order: layout.Serpentine{XFlipEveryRow: cl.XFlipEveryRow, YFlipEveryPanel: cl.YFlipEveryPanel},
		}
	}

	state := ws.NewState(l, strip, cfg.FPS, cfg.Brightness)
	state.WhiteCap = cfg.WhiteCap
	state.Config = cfg
	state.ConfigPath = *configPath
	state.CurrentDriver = selected
	defer func() {
		if err := state.Close(); err != nil {
			log.Warn().Err(err).Msg("strip close")
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", state.HandleFramesWS)
	mux.HandleFunc("/diag", state.HandleDiagWS)
	mux.HandleFunc("/control", state.HandleControlWS)
	mux.HandleFunc("/health", state.HandleHealth)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return state.RunRenderLoop(ctx) })
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("driver", selected).Int("pixels", cfg.Pixels).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("exit")
	}
}

// overlay copies the fields c sets onto dst.
func overlay(dst, c *config.Config) {
	if c.Driver != "" {
		dst.Driver = c.Driver
	}
	if c.Pixels > 0 {
		dst.Pixels = c.Pixels
	}
	if c.ColorOrder != "" {
		dst.ColorOrder = c.ColorOrder
	}
	if c.Brightness > 0 {
		dst.Brightness = c.Brightness
	}
	if c.WhiteCap > 0 {
		dst.WhiteCap = c.WhiteCap
	}
	if c.FPS > 0 {
		dst.FPS = c.FPS
	}
	if c.Addr != "" {
		dst.Addr = c.Addr
	}
	if c.SPI.Dev != "" {
		dst.SPI.Dev = c.SPI.Dev
	}
	if c.SPI.SpeedHz > 0 {
		dst.SPI.SpeedHz = c.SPI.SpeedHz
	}
	if c.SPI.ResetUs > 0 {
		dst.SPI.ResetUs = c.SPI.ResetUs
	}
	if c.SPI.ResetBytes > 0 {
		dst.SPI.ResetBytes = c.SPI.ResetBytes
	}
	if c.SPI.SymbolWidth > 0 {
		dst.SPI.SymbolWidth = c.SPI.SymbolWidth
	}
	if c.Layout.X > 0 {
		dst.Layout = c.Layout
	}
}

// symbol returns the encoding for the configured SPI clock and the reset
// tail in bytes. A configured symbol_width is checked against the same pulse
// windows as a derived one. The tail is the larger of reset_bytes and what
// reset_us needs at the clock, so it never drops below the latch time.
func symbol(cfg *config.Config) (led.Symbol, int, error) {
	rate := physic.Frequency(cfg.SPI.SpeedHz) * physic.Hertz
	sym, err := led.Timing{Rate: rate, Width: uint8(cfg.SPI.SymbolWidth)}.Symbol()
	if err != nil {
		return led.Symbol{}, 0, err
	}
	low := time.Duration(cfg.SPI.ResetUs) * time.Microsecond
	if low <= 0 {
		low = led.ResetLow
	}
	return sym, max(cfg.SPI.ResetBytes, led.ResetBytes(rate, low)), nil
}

// openStrip builds the configured backend, falling back to the console
// preview when the hardware cannot be opened.
func openStrip(cfg *config.Config) (led.Strip, string, error) {
	sym, reset, err := symbol(cfg)
	if err != nil {
		return nil, "", err
	}
	order, err := led.ParseOrder(cfg.ColorOrder)
	if err != nil {
		return nil, "", err
	}
	fb, err := led.NewFrameBuffer(cfg.Pixels, sym, reset)
	if err != nil {
		return nil, "", err
	}
	fb.SetOrder(order)
	rate := physic.Frequency(cfg.SPI.SpeedHz) * physic.Hertz
	logger := log.With().Str("driver", cfg.Driver).Str("dev", cfg.SPI.Dev).Int("speed_hz", cfg.SPI.SpeedHz).Logger()

	switch cfg.Driver {
	case "spidev":
		tr, err := led.OpenSpidev(cfg.SPI.Dev, uint32(cfg.SPI.SpeedHz))
		if err == nil {
			logger.Info().Int("frame_bytes", len(fb.Bytes())).Msg("spidev open")
			return led.NewSPIStrip(fb, tr), cfg.Driver, nil
		}
		logger.Warn().Err(err).Msg("spidev init failed; falling back to SIM")

	case "spi", "nrzled":
		if _, err := host.Init(); err != nil {
			logger.Warn().Err(err).Msg("periph host init failed; falling back to SIM")
			break
		}
		p, err := spireg.Open(cfg.SPI.Dev)
		if err != nil {
			logger.Warn().Err(err).Msg("SPI port open failed; falling back to SIM")
			break
		}
		if cfg.Driver == "nrzled" {
			s, err := led.NewNRZStrip(p, cfg.Pixels, rate/physic.Frequency(sym.Width))
			if err == nil {
				return s, cfg.Driver, nil
			}
			logger.Warn().Err(err).Msg("nrzled init failed; falling back to SIM")
			_ = p.Close()
			break
		}
		tr, err := led.OpenSPI(p, rate)
		if err == nil {
			return led.NewSPIStrip(fb, tr), cfg.Driver, nil
		}
		logger.Warn().Err(err).Msg("SPI connect failed; falling back to SIM")
		_ = p.Close()

	case "sim":
	}
	return led.NewSPIStrip(fb, led.NewConsoleTransport(screen.New(cfg.Pixels), cfg.Pixels, sym, order)), "sim", nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}
