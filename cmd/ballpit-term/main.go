// Command ballpit-term runs a local sandbox in the terminal. Left-drag moves
// a ball, right-click launches it, keys tune the simulation.
package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/playmatatu/ballpit/internal/config"
	"github.com/playmatatu/ballpit/internal/physics"
)

const (
	launchSpeed   = 8.0
	soundGapMs    = 40
	loudImpact    = 1.0
	gravityStep   = 0.05
	unitStep      = 0.1
	ballRune      = '●'
	waterRune     = '~'
	netRune       = '#'
	statusHelpMsg = "space:spawn p:pause s:step g/G f/F e/E c:clear q:quit"
)

type Term struct {
	screen        tcell.Screen
	width, height int

	world   *physics.World
	factory *physics.Factory
	paused  bool

	// Pointer state
	dragging    physics.BodyID
	dragOn      bool
	rightDown   bool
	lastPointer physics.Vec2

	score  int
	status string

	// Audio
	audioInit bool
	lastSound time.Time
}

func newTerm(screen tcell.Screen, world *physics.World, factory *physics.Factory) *Term {
	t := &Term{
		screen:  screen,
		world:   world,
		factory: factory,
		status:  statusHelpMsg,
	}
	t.width, t.height = screen.Size()
	return t
}

func NewTerm(world *physics.World, factory *physics.Factory) (*Term, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()

	t := newTerm(screen, world, factory)

	// Non-fatal, the sandbox runs without sound
	if err := t.initAudio(); err != nil {
		t.status = fmt.Sprintf("audio disabled: %v", err)
	}
	return t, nil
}

func (t *Term) initAudio() error {
	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	if err == nil {
		t.audioInit = true
	}
	return err
}

// playHitSound clicks at a pitch that rises with impact speed.
func (t *Term) playHitSound(speed float64) {
	if !t.audioInit || time.Since(t.lastSound).Milliseconds() < soundGapMs {
		return
	}
	t.lastSound = time.Now()

	sampleRate := beep.SampleRate(44100)
	freq := 220 + math.Min(speed, 10)*66
	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(30*time.Millisecond), sine))
}

// rows is the number of cells used by the field; the last row is status.
func (t *Term) rows() int {
	if t.height > 1 {
		return t.height - 1
	}
	return 1
}

func (t *Term) cellSize() (float64, float64) {
	cfg := t.world.Config()
	w := t.width
	if w < 1 {
		w = 1
	}
	return cfg.Width / float64(w), cfg.Height / float64(t.rows())
}

// toWorld maps a cell to the world point at its center.
func (t *Term) toWorld(cx, cy int) physics.Vec2 {
	cw, ch := t.cellSize()
	return physics.NewVec2((float64(cx)+0.5)*cw, (float64(cy)+0.5)*ch)
}

func (t *Term) toCell(p physics.Vec2) (int, int) {
	cw, ch := t.cellSize()
	return int(math.Floor(p.X / cw)), int(math.Floor(p.Y / ch))
}

func (t *Term) tick() {
	if t.paused {
		return
	}
	t.step()
}

func (t *Term) step() {
	for _, e := range t.world.Step() {
		switch e.Type {
		case physics.EventCapture:
			t.score++
			t.playHitSound(10)
		case physics.EventBall, physics.EventFloor:
			if e.Speed > loudImpact {
				t.playHitSound(e.Speed)
			}
		}
	}
}

func (t *Term) draw() {
	t.screen.Clear()

	for _, z := range t.world.Zones() {
		t.drawZone(z)
	}

	cw, ch := t.cellSize()
	for _, b := range t.world.ListBodies() {
		style := tcell.StyleDefault.Foreground(parseColor(b.Color))
		if b.State == physics.StateDragging {
			style = style.Reverse(true)
		}
		center := physics.NewVec2(b.X, b.Y)
		x0, y0 := t.toCell(physics.NewVec2(b.X-b.Radius, b.Y-b.Radius))
		x1, y1 := t.toCell(physics.NewVec2(b.X+b.Radius, b.Y+b.Radius))
		drawn := false
		for cy := y0; cy <= y1; cy++ {
			for cx := x0; cx <= x1; cx++ {
				if t.toWorld(cx, cy).DistanceTo(center) <= b.Radius+math.Min(cw, ch)/2 {
					t.setCell(cx, cy, ballRune, style)
					drawn = true
				}
			}
		}
		if !drawn {
			cx, cy := t.toCell(center)
			t.setCell(cx, cy, ballRune, style)
		}
	}

	t.drawStatus()
	t.screen.Show()
}

func (t *Term) drawZone(z physics.ZoneSnapshot) {
	x0, y0 := t.toCell(physics.NewVec2(z.Bounds.X, z.Bounds.Y))
	x1, y1 := t.toCell(physics.NewVec2(z.Bounds.X+z.Bounds.W, z.Bounds.Y+z.Bounds.H))
	switch z.Kind {
	case physics.ZoneWater:
		style := tcell.StyleDefault.Foreground(tcell.ColorBlue)
		for cy := y0; cy <= y1; cy++ {
			for cx := x0; cx <= x1; cx++ {
				t.setCell(cx, cy, waterRune, style)
			}
		}
	case physics.ZoneNet:
		style := tcell.StyleDefault.Foreground(tcell.ColorOrange)
		if z.Occupied {
			style = style.Reverse(true)
		}
		for cx := x0; cx <= x1; cx++ {
			t.setCell(cx, y0, netRune, style)
			t.setCell(cx, y1, netRune, style)
		}
		for cy := y0; cy <= y1; cy++ {
			t.setCell(x0, cy, netRune, style)
			t.setCell(x1, cy, netRune, style)
		}
	}
}

func (t *Term) drawStatus() {
	cfg := t.world.Config()
	line := fmt.Sprintf("tick %d  balls %d  g=%.2f f=%.2f e=%.2f  score %d", t.world.Tick(), t.world.Len(), cfg.Gravity, cfg.Friction, cfg.Restitution, t.score)
	if t.paused {
		line += "  [paused]"
	}
	line += "  " + t.status

	runes := []rune(line)
	style := tcell.StyleDefault.Reverse(true)
	y := t.height - 1
	for x := 0; x < t.width; x++ {
		r := ' '
		if x < len(runes) {
			r = runes[x]
		}
		t.screen.SetContent(x, y, r, nil, style)
	}
}

// setCell draws inside the field only.
func (t *Term) setCell(x, y int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= t.width || y >= t.rows() {
		return
	}
	t.screen.SetContent(x, y, r, nil, style)
}

// parseColor reads the factory's "rgb(r, g, b)" format.
func parseColor(s string) tcell.Color {
	var r, g, b int32
	if _, err := fmt.Sscanf(s, "rgb(%d, %d, %d)", &r, &g, &b); err != nil {
		return tcell.ColorWhite
	}
	return tcell.NewRGBColor(r, g, b)
}

func (t *Term) report(err error) {
	if err != nil {
		t.status = err.Error()
		return
	}
	t.status = statusHelpMsg
}

func (t *Term) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}

		cfg := t.world.Config()
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			_, err := t.world.Spawn(t.factory.Random(cfg.Width, cfg.Height))
			t.report(err)
		case 'p':
			t.paused = !t.paused
		case 's':
			if t.paused {
				t.step()
			}
		case 'g':
			t.report(t.world.SetGravity(cfg.Gravity - gravityStep))
		case 'G':
			t.report(t.world.SetGravity(cfg.Gravity + gravityStep))
		case 'f':
			t.report(t.world.SetFriction(cfg.Friction - unitStep))
		case 'F':
			t.report(t.world.SetFriction(cfg.Friction + unitStep))
		case 'e':
			t.report(t.world.SetGlobalRestitution(cfg.Restitution - unitStep))
		case 'E':
			t.report(t.world.SetGlobalRestitution(cfg.Restitution + unitStep))
		case 'c':
			var err error
			for _, b := range t.world.ListBodies() {
				if err = t.world.RemoveBody(b.ID); err != nil {
					break
				}
			}
			t.dragOn = false
			t.report(err)
		}

	case *tcell.EventMouse:
		t.handleMouse(ev)

	case *tcell.EventResize:
		t.width, t.height = t.screen.Size()
		t.screen.Sync()
	}

	return true
}

func (t *Term) handleMouse(ev *tcell.EventMouse) {
	cx, cy := ev.Position()
	p := t.toWorld(cx, cy)
	buttons := ev.Buttons()

	if buttons&tcell.Button1 != 0 {
		if !t.dragOn {
			if id, ok := t.world.PickBody(p); ok && t.world.BeginDrag(id) == nil {
				t.dragging, t.dragOn = id, true
			}
		} else {
			delta := p.Minus(t.lastPointer)
			if err := t.world.DragTo(t.dragging, delta.X, delta.Y); err != nil {
				t.dragOn = false
			}
		}
		t.lastPointer = p
	} else if t.dragOn {
		t.dragOn = false
		t.report(t.world.EndDrag(t.dragging))
	}

	if buttons&tcell.Button2 != 0 {
		if !t.rightDown {
			if id, ok := t.world.PickBody(p); ok {
				t.report(t.world.LaunchBody(id, -math.Pi/2, launchSpeed))
			}
		}
		t.rightDown = true
	} else {
		t.rightDown = false
	}
}

func (t *Term) run(tickInterval time.Duration) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			eventChan <- t.screen.PollEvent()
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if ev == nil || !t.handleInput(ev) {
				return
			}

		case <-ticker.C:
			t.tick()
			t.draw()
		}
	}
}

func (t *Term) cleanup() {
	if t.audioInit {
		speaker.Close()
	}
	t.screen.Fini()
}

// buildWorld creates the world described by the SIM_* and SANDBOX_* settings.
func buildWorld(cfg *config.Config) (*physics.World, *physics.Factory, error) {
	world, err := physics.NewWorld(cfg.Simulation())
	if err != nil {
		return nil, nil, err
	}
	if r, ok := config.ParseRect(cfg.SandboxWater); ok {
		if _, err := world.AddWaterTank(r); err != nil {
			return nil, nil, err
		}
	}
	if r, ok := config.ParseRect(cfg.SandboxNet); ok {
		if _, err := world.AddNet(r); err != nil {
			return nil, nil, err
		}
	}

	seed := cfg.SandboxSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	factory := physics.NewSeededFactory(seed)
	if _, err := factory.Populate(world, cfg.SandboxInitialBalls); err != nil {
		return nil, nil, err
	}
	return world, factory, nil
}

func main() {
	cfg := config.Load()

	world, factory, err := buildWorld(cfg)
	if err != nil {
		log.Fatalf("Invalid sandbox settings: %v", err)
	}

	t, err := NewTerm(world, factory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open terminal: %v\n", err)
		os.Exit(1)
	}

	hz := cfg.SandboxTickHz
	if hz <= 0 {
		hz = 60
	}
	t.run(time.Second / time.Duration(hz))
	t.cleanup()

	log.Printf("Captured %d balls in %d ticks", t.score, world.Tick())
}
