package dashboard

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ringmast4r/traffic-globe/pkg/geo"
	"github.com/ringmast4r/traffic-globe/pkg/globe"
	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

// LabelLayout is the wall-clock format of chart labels.
const LabelLayout = "15:04:05"

// Row is one entry of the event list as displayed.
type Row struct {
	Event    traffic.Event
	Location geo.Location
	Located  bool
}

// Model is the dashboard state every applied batch fans out to: the event
// store, both rolling series, the recent list, the top sources and the
// globe markers. It implements traffic.Sink.
type Model struct {
	store      *traffic.Store
	recent     *traffic.RecentBuffer
	normal     *traffic.RollingSeries
	suspicious *traffic.RollingSeries
	talkers    *traffic.Talkers
	scene      *globe.Scene
	locator    *geo.Locator
	logger     *slog.Logger

	mutex          sync.RWMutex
	onlySuspicious bool
	selected       int
	onSelect       func(traffic.Event)
	onChange       []func()
}

func NewModel(locator *geo.Locator, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Model{
		store:      traffic.NewStore(),
		recent:     traffic.NewRecentBuffer(traffic.RecentCapacity),
		normal:     traffic.NewRollingSeries("Normal", traffic.SeriesLength),
		suspicious: traffic.NewRollingSeries("Suspicious", traffic.SeriesLength),
		talkers:    traffic.NewTalkers(5, time.Minute),
		scene:      globe.NewScene(),
		locator:    locator,
		logger:     logger,
	}
	m.onSelect = m.logSelection
	return m
}

func (m *Model) Watermark() int64 {
	return m.store.Watermark()
}

// Apply ingests one non-empty batch. The store goes first since it stamps
// the event IDs the list and the markers rely on.
func (m *Model) Apply(batch []traffic.Event, now time.Time) {
	if len(batch) == 0 {
		return
	}

	normal, suspicious := m.store.Ingest(batch)

	label := now.Format(LabelLayout)
	m.normal.Push(normal, label)
	m.suspicious.Push(suspicious, label)

	m.recent.PushAll(batch)
	m.talkers.Observe(batch, now)

	created, removed := m.scene.Sync(m.store.Visible())

	m.logger.Debug("batch applied",
		"events", len(batch),
		"normal", normal,
		"suspicious", suspicious,
		"watermark", m.store.Watermark(),
		"markers_created", created,
		"markers_removed", removed)

	m.notify()
}

// OnChange registers a callback run after every applied batch and every
// list state change.
func (m *Model) OnChange(fn func()) {
	m.mutex.Lock()
	m.onChange = append(m.onChange, fn)
	m.mutex.Unlock()
}

func (m *Model) notify() {
	m.mutex.RLock()
	callbacks := append([]func(){}, m.onChange...)
	m.mutex.RUnlock()
	for _, fn := range callbacks {
		fn()
	}
}

// ToggleFilter flips the suspicious-only filter. Nothing but the list view
// changes; the buffer keeps every event.
func (m *Model) ToggleFilter() bool {
	m.mutex.Lock()
	m.onlySuspicious = !m.onlySuspicious
	m.selected = 0
	on := m.onlySuspicious
	m.mutex.Unlock()

	m.logger.Debug("list filter toggled", "only_suspicious", on)
	m.notify()
	return on
}

func (m *Model) OnlySuspicious() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.onlySuspicious
}

// Rows renders the recent buffer through the current filter.
func (m *Model) Rows() []Row {
	items := m.recent.Items(m.OnlySuspicious())
	rows := make([]Row, len(items))
	for i, e := range items {
		rows[i].Event = e
		rows[i].Location, rows[i].Located = m.locator.Lookup(e.IP)
	}
	return rows
}

// MoveSelection moves the highlighted row by delta, clamped to the list.
func (m *Model) MoveSelection(delta int) int {
	n := len(m.recent.Items(m.OnlySuspicious()))

	m.mutex.Lock()
	m.selected = clamp(m.selected+delta, 0, max(0, n-1))
	selected := m.selected
	m.mutex.Unlock()

	m.notify()
	return selected
}

// Select highlights row i and fires the selection hook for it.
func (m *Model) Select(i int) bool {
	items := m.recent.Items(m.OnlySuspicious())
	if i < 0 || i >= len(items) {
		return false
	}

	m.mutex.Lock()
	m.selected = i
	hook := m.onSelect
	m.mutex.Unlock()

	if hook != nil {
		hook(items[i])
	}
	m.notify()
	return true
}

// Activate fires the selection hook for the highlighted row.
func (m *Model) Activate() bool {
	return m.Select(m.Selected())
}

func (m *Model) Selected() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.selected
}

// SetSelectHook replaces the action run when a row is selected. The
// default logs the event.
func (m *Model) SetSelectHook(fn func(traffic.Event)) {
	m.mutex.Lock()
	m.onSelect = fn
	m.mutex.Unlock()
}

func (m *Model) logSelection(e traffic.Event) {
	m.logger.Info("event selected",
		"ip", e.IP,
		"time", e.Time,
		"latitude", e.Latitude,
		"longitude", e.Longitude,
		"suspicious", e.Suspicious)
}

// Tick advances time-based state that does not depend on new data.
func (m *Model) Tick(now time.Time) {
	m.talkers.Advance(now)
}

func (m *Model) Store() *traffic.Store                    { return m.store }
func (m *Model) Scene() *globe.Scene                      { return m.scene }
func (m *Model) Talkers() []traffic.Talker                { return m.talkers.Top() }
func (m *Model) NormalSeries() *traffic.RollingSeries     { return m.normal }
func (m *Model) SuspiciousSeries() *traffic.RollingSeries { return m.suspicious }
func (m *Model) GeoEnabled() bool                         { return m.locator != nil }

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
