package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcaluminis-strip/internal/config"
	diag "github.com/coreman2200/arcaluminis-strip/internal/diagnostics"
	"github.com/coreman2200/arcaluminis-strip/internal/layout"
	"github.com/coreman2200/arcaluminis-strip/internal/led"
	"github.com/coreman2200/arcaluminis-strip/internal/palette"
	"github.com/coreman2200/arcaluminis-strip/internal/testpattern"
)

type Mode string

const (
	// Demo runs the rainbow animation on every tick.
	Demo Mode = "demo"
	// Manual leaves the strip to control commands; the loop only steps tests.
	Manual Mode = "manual"
)

type State struct {
	mu         sync.RWMutex
	Layout     layout.Layout
	FPS        int
	Brightness float64
	WhiteCap   float64

	// Config, when set with ConfigPath, is rewritten after control changes.
	Config        *config.Config
	ConfigPath    string
	Strip         led.Strip
	CurrentDriver string

	mode      Mode
	color     palette.Color
	cursor    int
	phase     float64
	frameID   uint64
	startTime time.Time
	lastErr   error

	// wmu serializes websocket writes; a gorilla conn allows one writer.
	wmu         sync.Mutex
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool

	testRunner *testpattern.Runner
}

func NewState(l layout.Layout, strip led.Strip, fps int, brightness float64) *State {
	s := &State{
		Layout:      l,
		FPS:         fps,
		Brightness:  brightness,
		Strip:       strip,
		mode:        Demo,
		color:       palette.White,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
	}
	strip.SetBrightness(brightnessByte(brightness))
	return s
}

func brightnessByte(b float64) uint8 {
	return uint8(clamp(b, 0, 1)*255 + 0.5)
}

// RunRenderLoop ticks at FPS until ctx is done.
func (s *State) RunRenderLoop(ctx context.Context) error {
	fps := s.fps()
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
			if f := s.fps(); f != fps {
				fps = f
				ticker.Reset(time.Second / time.Duration(fps))
			}
		}
	}
}

func (s *State) fps() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return min(config.MaxFPS, max(1, s.FPS))
}

// Tick advances the active test or demo by one frame and renders it. In
// manual mode with no test running nothing is sent.
func (s *State) Tick() {
	s.mu.Lock()
	switch {
	case s.testRunner != nil:
		if !s.testRunner.Step(s.Layout, s.Strip) {
			kind := s.testRunner.Kind()
			s.testRunner = nil
			s.mu.Unlock()
			s.pushDiag(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeTestDone, Summary: "Test complete", Detail: string(kind)})
			return
		}
	case s.mode == Demo:
		n := s.Layout.Count()
		for i := 0; i < n; i++ {
			x, y, z := s.Layout.Coord(i)
			u := float64(x) / float64(max(1, s.Layout.Dim.X-1))
			v := float64(y) / float64(max(1, s.Layout.Dim.Y-1))
			w := float64(z) / float64(max(1, s.Layout.Dim.Z-1))
			c := palette.Rainbow(u+v+w+s.phase, 1.0).WhiteCap(s.WhiteCap)
			s.Strip.SetPixel(s.Layout.Index(x, y, z), c)
		}
		s.phase += 0.01
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.render()
}

// render sends the current frame and broadcasts what was sent.
func (s *State) render() {
	err := s.Strip.Render()

	s.mu.Lock()
	prev := s.lastErr
	s.lastErr = err
	if err == nil {
		s.frameID++
	}
	s.mu.Unlock()

	switch {
	case err != nil && prev == nil:
		log.Warn().Err(err).Str("driver", s.CurrentDriver).Msg("render failed")
		s.pushDiag(diag.Transmit(err, s.Strip.Len()))
	case err == nil && prev != nil:
		log.Info().Str("driver", s.CurrentDriver).Msg("render recovered")
	}
	if err == nil {
		s.broadcastFrame(s.Strip.Snapshot())
	}
}

func upgrader() websocket.Upgrader {
	return websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	up := upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.sendStatus(conn)
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	up := upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.diagClients[conn] = true
	s.mu.Unlock()
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.diagClients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	up := upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.pushDiag(diag.Diagnostic{Severity: diag.Warn, Code: diag.CodeBadCommand, Summary: "Control message is not JSON", Detail: err.Error()})
			continue
		}
		if err := s.Apply(cmd); err != nil && !errors.Is(err, led.ErrIndexOutOfRange) {
			s.pushDiag(diag.Diagnostic{
				Severity: diag.Warn, Code: diag.CodeBadCommand, Summary: "Control command rejected",
				Detail: err.Error(), Evidence: map[string]any{"cmd": cmd.Cmd},
			})
		}
		s.sendStatus(conn)
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp := map[string]any{
		"frame_id":   s.frameID,
		"uptime_s":   time.Since(s.startTime).Seconds(),
		"count":      s.Strip.Len(),
		"fps":        s.FPS,
		"brightness": s.Brightness,
		"driver":     s.CurrentDriver,
		"mode":       s.mode,
	}
	w.Header().Set("Content-Type", "application/json")
	if s.lastErr != nil {
		resp["last_error"] = s.lastErr.Error()
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// Status is sent to a control or frame client after connecting and after
// each command.
type Status struct {
	Dim        map[string]int  `json:"dim"`
	Order      map[string]bool `json:"order"`
	Driver     string          `json:"driver"`
	Mode       Mode            `json:"mode"`
	Cursor     int             `json:"cursor"`
	Color      string          `json:"color"`
	Brightness float64         `json:"brightness"`
	FPS        int             `json:"fps"`
}

func (s *State) status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Dim:        map[string]int{"x": s.Layout.Dim.X, "y": s.Layout.Dim.Y, "z": s.Layout.Dim.Z},
		Order:      map[string]bool{"xFlipEveryRow": s.Layout.Order.XFlipEveryRow, "yFlipEveryPanel": s.Layout.Order.YFlipEveryPanel},
		Driver:     s.CurrentDriver,
		Mode:       s.mode,
		Cursor:     s.cursor,
		Color:      hexColor(s.color),
		Brightness: s.Brightness,
		FPS:        s.FPS,
	}
}

func (s *State) sendStatus(conn *websocket.Conn) {
	b, _ := json.Marshal(s.status())
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

type frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

func (s *State) broadcastFrame(px []palette.Color) {
	rgb := make([]byte, 0, len(px)*3)
	for _, c := range px {
		rgb = append(rgb, c.R(), c.G(), c.B())
	}
	s.mu.RLock()
	b, _ := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: s.frameID, RGB: rgb})
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	s.wmu.Lock()
	defer s.wmu.Unlock()
	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) pushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.diagClients))
	for c := range s.diagClients {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	s.wmu.Lock()
	defer s.wmu.Unlock()
	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

// Close blanks the strip and releases its transport.
func (s *State) Close() error {
	return s.Strip.Close()
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
