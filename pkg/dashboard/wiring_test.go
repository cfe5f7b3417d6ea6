package dashboard

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ringmast4r/traffic-globe/pkg/feed"
	"github.com/ringmast4r/traffic-globe/pkg/globe"
	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

type staticSource []traffic.Event

func (s staticSource) Since(_ context.Context, watermark int64) ([]traffic.Event, error) {
	var out []traffic.Event
	for _, e := range s {
		if e.Time > watermark {
			out = append(out, e)
		}
	}
	return out, nil
}

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 24)
	return screen
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// A batch applied while the panel is drawing must not wait on the drawing,
// and the drawing must not wait on the batch.
func TestPollDuringDraw(t *testing.T) {
	model := NewModel(nil, nil)
	poller := traffic.NewPoller(staticSource{
		{Time: 100, IP: "10.0.0.1", Latitude: 1, Longitude: 2},
	}, model, time.Second, nil)

	inStatus := make(chan struct{})
	resume := make(chan struct{})
	var once sync.Once
	tui := NewTUI(newSimScreen(t), model, Options{
		Charset: globe.CharsetASCII,
		Status: func() traffic.PollStatus {
			once.Do(func() {
				close(inStatus)
				<-resume
			})
			return poller.Status()
		},
	}, nil)

	drawn := make(chan struct{})
	go func() {
		tui.Draw()
		close(drawn)
	}()
	<-inStatus

	polled := make(chan struct{})
	go func() {
		poller.Poll(context.Background())
		close(polled)
	}()
	select {
	case <-polled:
	case <-time.After(3 * time.Second):
		close(resume)
		t.Fatal("Poll blocked while Draw was reading the poller status")
	}

	close(resume)
	select {
	case <-drawn:
	case <-time.After(3 * time.Second):
		t.Fatal("Draw did not finish")
	}

	if model.Store().Len() != 1 {
		t.Errorf("store holds %d events, want 1", model.Store().Len())
	}
	tui.Draw()
	if !tui.status.Connected {
		t.Error("header status not refreshed after a successful poll")
	}
}

func TestDashboardAgainstFeed(t *testing.T) {
	server := feed.NewServer(feed.NewHistory(), nil, nil, nil)
	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	model := NewModel(nil, nil)
	client := traffic.NewAPIClient(traffic.APIConfig{BaseURL: srv.URL, Timeout: time.Second}, nil)
	poller := traffic.NewPoller(client, model, 10*time.Millisecond, nil)

	screen := newSimScreen(t)
	ctx, cancel := context.WithCancel(context.Background())
	tui := NewTUI(screen, model, Options{
		RefreshRate: 10 * time.Millisecond,
		Charset:     globe.CharsetASCII,
		ExportDir:   t.TempDir(),
		Refresh:     func() { poller.TryPoll(ctx) },
		Status:      poller.Status,
	}, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		tui.Run(ctx)
	}()

	server.Ingest([]traffic.Event{
		{Time: 1000, IP: "10.0.0.1", Latitude: 40.7, Longitude: -74.0},
		{Time: 1001, IP: "10.0.0.2", Latitude: 51.5, Longitude: -0.1, Suspicious: true},
		{Time: 1001, IP: "10.0.0.3", Latitude: 35.7, Longitude: 139.7},
	})
	for range 10 {
		screen.InjectKey(tcell.KeyRune, 'r', tcell.ModNone)
	}
	waitFor(t, "first batch", func() bool { return model.Store().Len() >= 3 })

	server.Ingest([]traffic.Event{
		{Time: 1003, IP: "10.0.0.4", Latitude: -33.9, Longitude: 151.2, Suspicious: true},
		{Time: 1004, IP: "10.0.0.5", Latitude: 1.3, Longitude: 103.8},
	})
	for range 10 {
		screen.InjectKey(tcell.KeyRune, 'r', tcell.ModNone)
	}
	waitFor(t, "second batch", func() bool { return model.Store().Len() >= 5 })

	// let a few more polls and frames run against an idle feed
	time.Sleep(50 * time.Millisecond)
	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("poller and TUI did not stop")
	}

	if n := model.Store().Len(); n != 5 {
		t.Errorf("store holds %d events, want 5", n)
	}
	if n := model.Scene().Len(); n != 5 {
		t.Errorf("scene holds %d markers, want 5", n)
	}
	if n := len(model.Rows()); n != 5 {
		t.Errorf("list holds %d rows, want 5", n)
	}
	if w := model.Watermark(); w != 1004 {
		t.Errorf("watermark = %d, want 1004", w)
	}
}
