package dashboard

import (
	"testing"
	"time"

	"github.com/ringmast4r/traffic-globe/pkg/globe"
	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

var testNow = time.Date(2024, 5, 1, 12, 30, 45, 0, time.Local)

func ev(t int64, ip string, suspicious bool) traffic.Event {
	return traffic.Event{Time: t, IP: ip, Latitude: 10, Longitude: 20, Suspicious: suspicious}
}

func TestApplySingleEvent(t *testing.T) {
	m := NewModel(nil, nil)
	m.Apply([]traffic.Event{ev(100, "1.2.3.4", false)}, testNow)

	if m.Watermark() != 100 {
		t.Errorf("watermark = %d, want 100", m.Watermark())
	}
	markers := m.Scene().Markers()
	if len(markers) != 1 {
		t.Fatalf("markers = %d, want 1", len(markers))
	}
	if markers[0].Color != globe.ColorNormal {
		t.Errorf("marker color = %06x, want green", markers[0].Color)
	}
	if markers[0].Position != globe.Project(10, 20, globe.MarkerRadius) {
		t.Errorf("marker position = %+v", markers[0].Position)
	}
	if got := m.NormalSeries().Last(); got != 1 {
		t.Errorf("normal last = %d, want 1", got)
	}
	if got := m.SuspiciousSeries().Last(); got != 0 {
		t.Errorf("suspicious last = %d, want 0", got)
	}
	labels := m.NormalSeries().Labels()
	if labels[len(labels)-1] != "12:30:45" {
		t.Errorf("label = %q, want 12:30:45", labels[len(labels)-1])
	}

	rows := m.Rows()
	if len(rows) != 1 || rows[0].Event.ID != markers[0].ID {
		t.Errorf("list row does not share the marker identity: %+v", rows)
	}
}

func TestApplyMixedBatchAndFilter(t *testing.T) {
	m := NewModel(nil, nil)
	batch := []traffic.Event{
		ev(200, "10.0.0.1", false),
		ev(200, "10.0.0.2", true),
		ev(201, "10.0.0.3", false),
		ev(201, "10.0.0.4", true),
		ev(202, "10.0.0.5", false),
	}
	m.Apply(batch, testNow)

	if n, s := m.NormalSeries().Last(), m.SuspiciousSeries().Last(); n != 3 || s != 2 {
		t.Fatalf("series = (%d, %d), want (3, 2)", n, s)
	}
	if len(m.Rows()) != 5 {
		t.Fatalf("rows = %d, want 5", len(m.Rows()))
	}

	if !m.ToggleFilter() {
		t.Fatal("filter should be on after the first toggle")
	}
	rows := m.Rows()
	if len(rows) != 2 {
		t.Fatalf("filtered rows = %d, want 2", len(rows))
	}
	if rows[0].Event.IP != "10.0.0.4" || rows[1].Event.IP != "10.0.0.2" {
		t.Errorf("filtered order = %s, %s", rows[0].Event.IP, rows[1].Event.IP)
	}

	m.ToggleFilter()
	if len(m.Rows()) != 5 {
		t.Errorf("rows after second toggle = %d, want 5", len(m.Rows()))
	}
}

func TestApplyEmptyBatch(t *testing.T) {
	m := NewModel(nil, nil)
	changes := 0
	m.OnChange(func() { changes++ })

	m.Apply(nil, testNow)
	if changes != 0 || m.Store().Len() != 0 || m.NormalSeries().Max() != 0 {
		t.Errorf("empty batch changed state")
	}

	m.Apply([]traffic.Event{ev(1, "1.1.1.1", false)}, testNow)
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}
}

func TestMarkersFollowVisibleWindow(t *testing.T) {
	m := NewModel(nil, nil)
	m.Apply([]traffic.Event{ev(100, "1.1.1.1", false)}, testNow)
	m.Apply([]traffic.Event{ev(159, "2.2.2.2", true)}, testNow.Add(time.Second))
	if m.Scene().Len() != 2 {
		t.Fatalf("markers = %d, want 2", m.Scene().Len())
	}

	m.Apply([]traffic.Event{ev(160, "3.3.3.3", false)}, testNow.Add(2*time.Second))
	markers := m.Scene().Markers()
	if len(markers) != 2 {
		t.Fatalf("markers = %d, want 2", len(markers))
	}
	for _, mk := range markers {
		if mk.IP == "1.1.1.1" {
			t.Errorf("expired event still has a marker")
		}
	}
	if len(m.Rows()) != 3 {
		t.Errorf("list should keep expired events, got %d rows", len(m.Rows()))
	}
}

func TestSelection(t *testing.T) {
	m := NewModel(nil, nil)
	m.Apply([]traffic.Event{ev(1, "a", false), ev(2, "b", true), ev(3, "c", false)}, testNow)

	var picked []string
	m.SetSelectHook(func(e traffic.Event) { picked = append(picked, e.IP) })

	if !m.Select(0) {
		t.Fatal("Select(0) failed")
	}
	if m.MoveSelection(5) != 2 {
		t.Errorf("selection should clamp to the last row")
	}
	if m.MoveSelection(-10) != 0 {
		t.Errorf("selection should clamp to the first row")
	}
	m.MoveSelection(1)
	m.Activate()
	if m.Select(3) {
		t.Error("Select past the end succeeded")
	}

	want := []string{"c", "b"}
	if len(picked) != len(want) {
		t.Fatalf("picked = %v, want %v", picked, want)
	}
	for i := range want {
		if picked[i] != want[i] {
			t.Errorf("picked = %v, want %v", picked, want)
		}
	}
}

func TestTalkersCountSources(t *testing.T) {
	m := NewModel(nil, nil)
	m.Apply([]traffic.Event{ev(1, "a", false), ev(1, "a", false), ev(1, "b", true)}, testNow)

	top := m.Talkers()
	if len(top) == 0 || top[0].IP != "a" || top[0].Count != 2 {
		t.Errorf("top talkers = %+v", top)
	}
}
