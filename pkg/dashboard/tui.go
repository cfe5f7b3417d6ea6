package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ringmast4r/traffic-globe/pkg/globe"
	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

// PanelWidth is the fixed width of the side panel. It leaves an
// approximately square area for the globe on an 80x24 terminal.
const PanelWidth = 45

const (
	chartRows   = 3
	talkerRows  = 5
	orbitStep   = 0.04
	zoomStep    = 0.1
	statusLines = 1
)

type Options struct {
	AspectRatio    float64
	RefreshRate    time.Duration
	RotationPeriod time.Duration
	Charset        globe.Charset
	Monochrome     bool
	ExportDir      string
	// Refresh triggers an out-of-band poll (key r). It runs on its own
	// goroutine. May be nil.
	Refresh func()
	// Status reports the poller connectivity for the header. May be nil.
	Status func() traffic.PollStatus
}

type palette struct {
	text       tcell.Style
	land       tcell.Style
	rim        tcell.Style
	normal     tcell.Style
	suspicious tcell.Style
	header     tcell.Style
	entry      tcell.Style
	selected   tcell.Style
	separator  tcell.Style
	ok         tcell.Style
	failed     tcell.Style
}

func newPalette(monochrome bool) palette {
	base := tcell.StyleDefault.Background(tcell.ColorBlack)
	if monochrome {
		white := base.Foreground(tcell.ColorWhite)
		return palette{
			text: white, land: white, rim: white, normal: white.Bold(true),
			suspicious: white.Bold(true).Reverse(true), header: white.Bold(true),
			entry: white, selected: white.Reverse(true), separator: white,
			ok: white.Bold(true), failed: white.Bold(true),
		}
	}
	return palette{
		text:       base.Foreground(tcell.ColorWhite),
		land:       base.Foreground(tcell.ColorGreen),
		rim:        base.Foreground(tcell.ColorGray),
		normal:     base.Foreground(tcell.NewHexColor(int32(globe.ColorNormal))).Bold(true),
		suspicious: base.Foreground(tcell.NewHexColor(int32(globe.ColorSuspicious))).Bold(true),
		header:     base.Foreground(tcell.ColorYellow).Bold(true),
		entry:      base.Foreground(tcell.ColorAqua),
		selected:   base.Foreground(tcell.ColorBlack).Background(tcell.ColorAqua),
		separator:  base.Foreground(tcell.ColorGray),
		ok:         base.Foreground(tcell.ColorGreen).Bold(true),
		failed:     base.Foreground(tcell.ColorRed).Bold(true),
	}
}

// layout holds the screen geometry, recomputed on resize.
type layout struct {
	width, height int
	globeWidth    int
	panelX        int
	filterY       int
	listY         int
	listRows      int
	talkersY      int
	chartsY       int
}

func computeLayout(width, height int) layout {
	l := layout{width: width, height: height}

	// Globe gets what the panel, the separator and its padding leave.
	l.globeWidth = max(10, width-PanelWidth-3)
	l.panelX = l.globeWidth + 3

	l.filterY = 2
	l.listY = 3

	// Bottom up: two charts with header and time axis, then top sources.
	l.chartsY = height - 2*(chartRows+2)
	l.talkersY = l.chartsY - (talkerRows + 1)
	l.listRows = clamp(l.talkersY-l.listY, 0, traffic.RecentCapacity)
	return l
}

// TUI draws the globe, the event list, top sources and both charts on a
// tcell screen and turns key and mouse input into model and camera changes.
type TUI struct {
	screen  tcell.Screen
	model   *Model
	camera  *globe.Camera
	options Options
	colors  palette
	logger  *slog.Logger

	mutex        sync.RWMutex
	layout       layout
	globe        *globe.Globe
	panelChanged bool
	showHelp     bool
	status       traffic.PollStatus
	message      string
	lastFrame    time.Time
}

// NewTUI wraps an initialised screen. The caller owns the screen and
// finalises it.
func NewTUI(screen tcell.Screen, model *Model, options Options, logger *slog.Logger) *TUI {
	if options.AspectRatio <= 0 {
		options.AspectRatio = 2.0
	}
	if options.RefreshRate <= 0 {
		options.RefreshRate = 50 * time.Millisecond
	}
	if options.ExportDir == "" {
		options.ExportDir = "."
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	colors := newPalette(options.Monochrome)
	screen.SetStyle(colors.text)
	screen.EnableMouse()
	screen.Clear()

	tui := &TUI{
		screen:       screen,
		model:        model,
		camera:       globe.NewCamera(options.RotationPeriod),
		options:      options,
		colors:       colors,
		logger:       logger,
		panelChanged: true,
	}
	tui.resize()
	model.OnChange(tui.MarkPanelChanged)
	return tui
}

func (tui *TUI) Camera() *globe.Camera {
	return tui.camera
}

func (tui *TUI) resize() {
	width, height := tui.screen.Size()

	tui.mutex.Lock()
	defer tui.mutex.Unlock()

	tui.layout = computeLayout(width, height)
	lighting := true
	if tui.globe != nil {
		lighting = tui.globe.Lighting
	}
	tui.globe = globe.NewGlobe(tui.layout.globeWidth, height, tui.options.AspectRatio, tui.options.Charset)
	tui.globe.Lighting = lighting
	tui.panelChanged = true
	tui.screen.Clear()

	tui.logger.Debug("screen resized", "width", width, "height", height, "globe_width", tui.layout.globeWidth)
}

func (tui *TUI) MarkPanelChanged() {
	tui.mutex.Lock()
	tui.panelChanged = true
	tui.mutex.Unlock()
}

func (tui *TUI) setMessage(format string, args ...any) {
	tui.mutex.Lock()
	tui.message = fmt.Sprintf(format, args...)
	tui.panelChanged = true
	tui.mutex.Unlock()
}

// Run drives the frame loop until ctx is cancelled or the user quits.
func (tui *TUI) Run(ctx context.Context) {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := tui.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(tui.options.RefreshRate)
	defer ticker.Stop()

	tui.lastFrame = time.Now()
	tui.Draw()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if tui.HandleEvent(ev) {
				tui.logger.Info("quit requested")
				return
			}
		case now := <-ticker.C:
			tui.camera.Update(now.Sub(tui.lastFrame))
			tui.lastFrame = now
			tui.model.Tick(now)
			tui.Draw()
		}
	}
}

// HandleEvent applies one input event and reports whether the user asked
// to quit.
func (tui *TUI) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		tui.resize()
		tui.screen.Sync()
	case *tcell.EventKey:
		return tui.handleKey(ev)
	case *tcell.EventMouse:
		tui.handleMouse(ev)
	}
	return false
}

func (tui *TUI) handleKey(ev *tcell.EventKey) bool {
	tui.logger.Debug("key pressed", "name", ev.Name())

	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		return true
	case tcell.KeyLeft:
		tui.camera.Orbit(-orbitStep, 0)
	case tcell.KeyRight:
		tui.camera.Orbit(orbitStep, 0)
	case tcell.KeyUp:
		tui.camera.Orbit(0, orbitStep)
	case tcell.KeyDown:
		tui.camera.Orbit(0, -orbitStep)
	case tcell.KeyEnter:
		tui.model.Activate()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case 's', 'S':
			tui.model.ToggleFilter()
		case '+', '=':
			tui.camera.Zoom(zoomStep)
		case '-', '_':
			tui.camera.Zoom(-zoomStep)
		case ' ':
			on := tui.camera.ToggleAutoRotate()
			tui.setMessage("auto-rotate %s", onOff(on))
		case 'j':
			tui.model.MoveSelection(1)
		case 'k':
			tui.model.MoveSelection(-1)
		case 'r', 'R':
			if tui.options.Refresh != nil {
				go tui.options.Refresh()
				tui.setMessage("refreshing")
			}
		case 'p', 'P':
			tui.exportCharts()
		case '?':
			tui.mutex.Lock()
			tui.showHelp = !tui.showHelp
			if !tui.showHelp {
				tui.screen.Clear()
			}
			tui.panelChanged = true
			tui.mutex.Unlock()
		case 'l', 'L':
			tui.mutex.Lock()
			tui.globe.Lighting = !tui.globe.Lighting
			on := tui.globe.Lighting
			tui.mutex.Unlock()
			tui.setMessage("lighting %s", onOff(on))
		}
	}
	return false
}

func (tui *TUI) handleMouse(ev *tcell.EventMouse) {
	if ev.Buttons()&tcell.Button1 == 0 {
		return
	}
	x, y := ev.Position()

	tui.mutex.RLock()
	l := tui.layout
	tui.mutex.RUnlock()

	if x < l.panelX {
		return
	}
	switch {
	case y == l.filterY:
		tui.model.ToggleFilter()
	case y >= l.listY && y < l.listY+l.listRows:
		tui.model.Select(y - l.listY)
	}
}

func (tui *TUI) exportCharts() {
	paths, err := ExportPNG(tui.options.ExportDir, tui.model.NormalSeries(), tui.model.SuspiciousSeries())
	if err != nil {
		tui.logger.Warn("chart export failed", "error", err)
		tui.setMessage("export failed: %v", err)
		return
	}
	tui.logger.Info("charts exported", "files", paths)
	tui.setMessage("exported %d charts to %s", len(paths), tui.options.ExportDir)
}

// Draw renders one frame. The globe is redrawn every frame, the side panel
// only when something changed.
func (tui *TUI) Draw() {
	view := tui.camera.View()
	scene := tui.model.Scene()
	scene.FollowCamera(view)

	// Status belongs to the poller, whose batches end in MarkPanelChanged,
	// so it is read before taking the TUI mutex.
	var status traffic.PollStatus
	if tui.options.Status != nil {
		status = tui.options.Status()
	}

	tui.mutex.Lock()
	defer tui.mutex.Unlock()

	if status.Connected != tui.status.Connected {
		tui.panelChanged = true
	}
	tui.status = status

	tui.drawGlobe(scene, view)
	if tui.panelChanged {
		tui.drawPanel()
		tui.panelChanged = false
	}
	if tui.showHelp {
		tui.drawHelp()
		// keep the overlay on top of the next panel repaint
		tui.panelChanged = true
	}
	tui.screen.Show()
}

func (tui *TUI) drawGlobe(scene *globe.Scene, view globe.View) {
	frame := tui.globe.Render(scene.Markers(), view, scene.LightPosition())
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			cell := frame.At(x, y)
			style := tui.colors.land
			switch cell.Kind {
			case globe.CellRim:
				style = tui.colors.rim
			case globe.CellMarker:
				style = tui.colors.normal
			case globe.CellSuspicious:
				style = tui.colors.suspicious
			}
			tui.screen.SetContent(x, y, cell.Rune, nil, style)
		}
	}

	store := tui.model.Store()
	status := fmt.Sprintf(" visible %d | total %d | zoom %.1fx ", scene.Len(), store.Len(), view.Zoom)
	tui.drawText(0, tui.layout.height-statusLines, status, tui.colors.text)
}

func (tui *TUI) drawText(x, y int, text string, style tcell.Style) {
	if y < 0 || y >= tui.layout.height {
		return
	}
	i := 0
	for _, r := range text {
		if x+i >= tui.layout.width {
			break
		}
		tui.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
}

// drawLine draws text padded or truncated to the panel width.
func (tui *TUI) drawLine(y int, text string, style tcell.Style) {
	runes := []rune(text)
	if len(runes) > PanelWidth {
		runes = runes[:PanelWidth]
	}
	line := string(runes) + strings.Repeat(" ", PanelWidth-len(runes))
	tui.drawText(tui.layout.panelX, y, line, style)
}

func (tui *TUI) drawPanel() {
	l := tui.layout
	separatorX := l.globeWidth + 1
	for y := 0; y < l.height; y++ {
		tui.screen.SetContent(separatorX, y, '|', nil, tui.colors.separator)
	}

	tui.drawHeader()
	tui.drawLine(1, strings.Repeat("-", PanelWidth), tui.colors.header)

	filter := "[s] Suspicious only: " + strings.ToUpper(onOff(tui.model.OnlySuspicious()))
	tui.drawLine(l.filterY, filter, tui.colors.header)

	rows := tui.model.Rows()
	selected := tui.model.Selected()
	for i := 0; i < l.listRows; i++ {
		y := l.listY + i
		if i >= len(rows) {
			tui.drawLine(y, "", tui.colors.entry)
			continue
		}
		style := tui.colors.entry
		if rows[i].Event.Suspicious {
			style = tui.colors.suspicious
		}
		if i == selected {
			style = tui.colors.selected
		}
		tui.drawLine(y, formatRow(rows[i]), style)
	}

	tui.drawTalkers(l.talkersY)
	tui.drawChart(l.chartsY, tui.model.NormalSeries(), tui.colors.normal)
	tui.drawChart(l.chartsY+chartRows+2, tui.model.SuspiciousSeries(), tui.colors.suspicious)
}

func (tui *TUI) drawHeader() {
	status := tui.status
	apiMark, apiStyle := "!", tui.colors.failed
	if status.Connected {
		apiMark, apiStyle = "+", tui.colors.ok
	}
	geoMark, geoStyle := "!", tui.colors.failed
	if tui.model.GeoEnabled() {
		geoMark, geoStyle = "+", tui.colors.ok
	}

	header := fmt.Sprintf("TRAFFIC GLOBE | API [%s]  GeoIP [%s]", apiMark, geoMark)
	if tui.message != "" {
		header += " " + tui.message
	}
	tui.drawLine(0, header, tui.colors.header)

	x := tui.layout.panelX
	if i := strings.Index(header, "["); i != -1 {
		tui.screen.SetContent(x+i+1, 0, rune(apiMark[0]), nil, apiStyle)
	}
	if i := strings.Index(header, "GeoIP ["); i != -1 {
		tui.screen.SetContent(x+i+len("GeoIP ["), 0, rune(geoMark[0]), nil, geoStyle)
	}
}

func formatRow(r Row) string {
	e := r.Event
	line := fmt.Sprintf("%s %15s %6.1f,%7.1f", e.Timestamp().Format(LabelLayout), e.IP, e.Latitude, e.Longitude)
	if r.Located {
		line += " " + r.Location.String()
	}
	return line
}

func (tui *TUI) drawTalkers(y int) {
	tui.drawLine(y, centre("[ TOP SOURCES ]"), tui.colors.header)
	talkers := tui.model.Talkers()
	for i := 0; i < talkerRows; i++ {
		line := ""
		if i < len(talkers) {
			line = fmt.Sprintf("%15s %5d", talkers[i].IP, talkers[i].Count)
		}
		tui.drawLine(y+1+i, line, tui.colors.entry)
	}
}

func (tui *TUI) drawChart(y int, series *traffic.RollingSeries, style tcell.Style) {
	title := fmt.Sprintf("[ %s: %d ]", strings.ToUpper(series.Name()), series.Last())
	tui.drawLine(y, centre(title), tui.colors.header)

	for i, line := range ChartLines(series.Values(), PanelWidth, chartRows) {
		tui.drawLine(y+1+i, line, style)
	}

	first, last := TimeAxis(series.Labels())
	axis := ""
	if first != "" {
		gap := max(1, PanelWidth-len(first)-len(last))
		axis = first + strings.Repeat(" ", gap) + last
	}
	tui.drawLine(y+1+chartRows, axis, tui.colors.separator)
}

var helpText = []string{
	"+-------------------------------------+",
	"|          KEYBOARD CONTROLS          |",
	"+-------------------------------------+",
	"| Arrows    - Orbit the camera        |",
	"| + / -     - Zoom in/out             |",
	"| Space     - Toggle auto-rotate      |",
	"| L         - Toggle lighting         |",
	"| S         - Suspicious only filter  |",
	"| J / K     - Move list selection     |",
	"| Enter     - Select event            |",
	"| R         - Poll the feed now       |",
	"| P         - Export charts as PNG    |",
	"| ?         - Toggle this help        |",
	"| Q / Esc   - Exit                    |",
	"+-------------------------------------+",
}

func (tui *TUI) drawHelp() {
	startY := (tui.layout.height - len(helpText)) / 2
	startX := max(0, (tui.layout.width-len(helpText[0]))/2)
	for i, line := range helpText {
		tui.drawText(startX, startY+i, line, tui.colors.header)
	}
}

func centre(text string) string {
	pad := (PanelWidth - len([]rune(text))) / 2
	if pad <= 0 {
		return text
	}
	fill := strings.Repeat("-=", pad/2+1)[:pad]
	return fill + text
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
