package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

func event(t int64, ip string, suspicious bool) traffic.Event {
	return traffic.Event{Time: t, IP: ip, Latitude: 1, Longitude: 2, Suspicious: suspicious}
}

func TestHistoryAppendLargeBatch(t *testing.T) {
	const n = 50000
	batch := make([]traffic.Event, n)
	for i := range batch {
		batch[i] = event(int64(i/10), fmt.Sprintf("10.0.%d.%d", i/256%256, i%256), false)
	}
	h := NewHistory()
	h.Append(batch)
	h.Append([]traffic.Event{event(3, "late", true)})

	if h.Len() != n+1 {
		t.Fatalf("Len = %d, want %d", h.Len(), n+1)
	}
	got := h.Since(-1)
	for i := 1; i < len(got); i++ {
		if got[i].Time < got[i-1].Time {
			t.Fatalf("history out of order at %d: %d after %d", i, got[i].Time, got[i-1].Time)
		}
	}
	// a late event lands after the events already held for its second
	if got[40].IP != "late" {
		t.Errorf("late event at index 40 = %q, want late", got[40].IP)
	}
}

func TestHistorySince(t *testing.T) {
	h := NewHistory()
	h.Append([]traffic.Event{event(100, "a", false), event(102, "c", false)})
	h.Append([]traffic.Event{event(101, "b", true), event(102, "d", false)})

	tests := []struct {
		since int64
		want  []string
	}{
		{0, []string{"a", "b", "c", "d"}},
		{100, []string{"b", "c", "d"}},
		{101, []string{"c", "d"}},
		{102, nil},
		{500, nil},
	}
	for _, tt := range tests {
		got := h.Since(tt.since)
		if len(got) != len(tt.want) {
			t.Errorf("Since(%d) returned %d events, want %d", tt.since, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].IP != tt.want[i] {
				t.Errorf("Since(%d)[%d] = %s, want %s", tt.since, i, got[i].IP, tt.want[i])
			}
		}
	}
	if h.Latest() != 102 || h.Len() != 4 {
		t.Errorf("Latest %d Len %d", h.Latest(), h.Len())
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	server := NewServer(NewHistory(), NewMetrics(), nil, nil)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, ts
}

func getEvents(t *testing.T, url string) []traffic.Event {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	var events []traffic.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatal(err)
	}
	return events
}

func TestServerPostAndPoll(t *testing.T) {
	_, ts := newTestServer(t)

	body := `[{"time":10,"ip":"192.0.2.1","latitude":10,"longitude":20,"suspicious":false},
	          {"time":11,"ip":"192.0.2.2","latitude":-5,"longitude":40,"suspicious":true},
	          {"time":12,"ip":"","latitude":0,"longitude":0,"suspicious":false}]`
	resp, err := http.Post(ts.URL+"/api", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	var result map[string]int
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if result["accepted"] != 2 || result["rejected"] != 1 {
		t.Errorf("post result = %v", result)
	}

	if got := getEvents(t, ts.URL+"/data?time=0"); len(got) != 2 {
		t.Fatalf("time=0 returned %d events, want 2", len(got))
	}
	got := getEvents(t, ts.URL+"/data?time=10")
	if len(got) != 1 || got[0].IP != "192.0.2.2" || !got[0].Suspicious {
		t.Errorf("time=10 returned %+v", got)
	}
	if got := getEvents(t, ts.URL+"/data?time=11"); len(got) != 0 {
		t.Errorf("time=11 returned %d events, want none", len(got))
	}
}

func TestServerBadRequests(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/data", "/data?time=abc", "/data?time=1.5"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s: status %d, want 400", path, resp.StatusCode)
		}
	}

	resp, err := http.Post(ts.URL+"/api", "application/json", strings.NewReader(`{"not":"an array"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST object: status %d, want 400", resp.StatusCode)
	}
}

func TestServerCORSAndMetrics(t *testing.T) {
	server, ts := newTestServer(t)
	server.Ingest([]traffic.Event{event(1, "a", false), event(2, "b", true)})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/data?time=0", nil)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{
		`feed_events_ingested_total{kind="suspicious"} 1`,
		`feed_events_served_total 2`,
		`feed_history_events 2`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServerAccessLog(t *testing.T) {
	var log strings.Builder
	server := NewServer(NewHistory(), nil, nil, &log)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(log.String(), "GET /health") {
		t.Errorf("access log = %q", log.String())
	}
}

const sampleCSV = `ip,latitude,longitude,Timestamp,suspicious
192.0.2.3,30.0,40.0,1700000002,0
192.0.2.1,10.5,20.5,1700000000,1
bad-row,north,40.0,1700000001,0
192.0.2.2,-10.0,100.0,1700000001.0,False
`

func TestLoadCSV(t *testing.T) {
	events, skipped, err := LoadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	wantIPs := []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"}
	for i, e := range events {
		if e.IP != wantIPs[i] {
			t.Errorf("events[%d] = %s, want %s", i, e.IP, wantIPs[i])
		}
	}
	if !events[0].Suspicious || events[1].Suspicious || events[0].Latitude != 10.5 {
		t.Errorf("parsed fields wrong: %+v", events[0])
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	_, _, err := LoadCSV(strings.NewReader("ip,latitude,longitude,Timestamp\n1.1.1.1,1,1,1\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("err = %v, want ErrMissingColumn", err)
	}
}

type recordingSink struct {
	mutex   sync.Mutex
	batches [][]traffic.Event
	fail    int
}

func (s *recordingSink) Send(_ context.Context, batch []traffic.Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("unavailable")
	}
	s.batches = append(s.batches, append([]traffic.Event(nil), batch...))
	return nil
}

func (s *recordingSink) all() []traffic.Event {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var out []traffic.Event
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func TestReplayerDeliversInOrder(t *testing.T) {
	events := []traffic.Event{event(100, "a", false), event(101, "b", true), event(103, "c", false)}
	sink := &recordingSink{fail: 1}
	replayer := NewReplayer(events, sink, ReplayOptions{Speed: 1000, BatchInterval: time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := replayer.Run(ctx); err != nil {
		t.Fatal(err)
	}

	got := sink.all()
	if len(got) != 3 {
		t.Fatalf("delivered %d events, want 3", len(got))
	}
	for i, ip := range []string{"a", "b", "c"} {
		if got[i].IP != ip {
			t.Errorf("delivered[%d] = %s, want %s", i, got[i].IP, ip)
		}
		if got[i].Time != events[i].Time {
			t.Errorf("timestamp changed without rebase: %d", got[i].Time)
		}
	}
}

func TestReplayerRebase(t *testing.T) {
	events := []traffic.Event{event(100, "a", false), event(105, "b", false)}
	sink := &recordingSink{}
	replayer := NewReplayer(events, sink, ReplayOptions{Rebase: true}, nil)
	start := time.Unix(1_700_000_000, 0)
	replayer.now = func() time.Time { return start }

	if err := replayer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := sink.all()
	if len(sink.batches) != 1 || len(got) != 2 {
		t.Fatalf("batches %d events %d, want a single batch of 2", len(sink.batches), len(got))
	}
	if got[0].Time != start.Unix() || got[1].Time != start.Unix()+5 {
		t.Errorf("rebased times = %d, %d", got[0].Time, got[1].Time)
	}
}

func TestReplayerStopsOnCancel(t *testing.T) {
	events := []traffic.Event{event(0, "a", false), event(3600, "b", false)}
	replayer := NewReplayer(events, &recordingSink{}, ReplayOptions{Speed: 1, BatchInterval: time.Millisecond}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := replayer.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run = %v, want deadline exceeded", err)
	}
}

func TestHTTPSinkRoundTrip(t *testing.T) {
	server, ts := newTestServer(t)
	sink := HTTPSink{URL: ts.URL + "/api"}

	if err := sink.Send(context.Background(), []traffic.Event{event(7, "192.0.2.9", true)}); err != nil {
		t.Fatal(err)
	}
	if server.history.Len() != 1 {
		t.Errorf("history has %d events, want 1", server.history.Len())
	}

	bad := HTTPSink{URL: ts.URL + "/missing"}
	if err := bad.Send(context.Background(), []traffic.Event{event(8, "x", false)}); !errors.Is(err, traffic.ErrBadStatus) {
		t.Errorf("err = %v, want ErrBadStatus", err)
	}
}

func TestDashboardClientAgainstServer(t *testing.T) {
	server, ts := newTestServer(t)
	server.Ingest([]traffic.Event{event(50, "a", false), event(60, "b", true)})

	client := traffic.NewAPIClient(traffic.APIConfig{BaseURL: ts.URL}, nil)
	events, err := client.Since(context.Background(), 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].IP != "b" {
		t.Errorf("Since(50) = %+v", events)
	}
}

func TestStormEvents(t *testing.T) {
	storm := NewStorm(10, 0.5, &recordingSink{}, 42, nil)
	now := time.Unix(1_700_000_000, 0)

	suspicious := 0
	for i := 0; i < 200; i++ {
		e := storm.Event(now)
		if err := e.Validate(); err != nil {
			t.Fatalf("generated invalid event %+v: %v", e, err)
		}
		if e.Time != now.Unix() {
			t.Fatalf("time = %d", e.Time)
		}
		if e.Suspicious {
			suspicious++
		}
	}
	if suspicious == 0 || suspicious == 200 {
		t.Errorf("suspicious share looks wrong: %d/200", suspicious)
	}
}

func TestStormRun(t *testing.T) {
	sink := &recordingSink{}
	storm := NewStorm(200, 0, sink, 1, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := storm.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run = %v", err)
	}
	if len(sink.all()) == 0 {
		t.Error("no demo events delivered")
	}
}
