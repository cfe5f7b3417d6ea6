package feed

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

// ErrMissingColumn is returned by LoadCSV when a required header is absent.
var ErrMissingColumn = errors.New("missing csv column")

var columnAliases = map[string][]string{
	"ip":         {"ip", "address", "src_ip"},
	"latitude":   {"latitude", "lat"},
	"longitude":  {"longitude", "lon", "lng"},
	"time":       {"timestamp", "time", "ts"},
	"suspicious": {"suspicious", "sus", "malicious"},
}

// LoadCSV reads events from a CSV with a header row naming the ip,
// latitude, longitude, timestamp and suspicious columns in any order.
// Rows that fail to parse or validate are skipped and counted.
func LoadCSV(r io.Reader) (events []traffic.Event, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		for field, aliases := range columnAliases {
			for _, alias := range aliases {
				if name == alias {
					index[field] = i
				}
			}
		}
	}
	for field := range columnAliases {
		if _, ok := index[field]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, field)
		}
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("read csv: %w", err)
		}

		e, err := parseRecord(rec, index)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, e)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })
	return events, skipped, nil
}

func parseRecord(rec []string, index map[string]int) (traffic.Event, error) {
	field := func(name string) string {
		i := index[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	lat, err := strconv.ParseFloat(field("latitude"), 64)
	if err != nil {
		return traffic.Event{}, err
	}
	lng, err := strconv.ParseFloat(field("longitude"), 64)
	if err != nil {
		return traffic.Event{}, err
	}
	ts, err := strconv.ParseFloat(field("time"), 64)
	if err != nil {
		return traffic.Event{}, err
	}
	suspicious, err := strconv.ParseBool(field("suspicious"))
	if err != nil {
		return traffic.Event{}, err
	}

	e := traffic.Event{
		Time:       int64(ts),
		IP:         field("ip"),
		Latitude:   lat,
		Longitude:  lng,
		Suspicious: suspicious,
	}
	return e, e.Validate()
}

// Sink receives replayed batches.
type Sink interface {
	Send(ctx context.Context, batch []traffic.Event) error
}

// HistorySink feeds a Server in process.
type HistorySink struct {
	Server *Server
}

func (s HistorySink) Send(_ context.Context, batch []traffic.Event) error {
	s.Server.Ingest(batch)
	return nil
}

// HTTPSink posts batches to a feed server's /api route.
type HTTPSink struct {
	URL    string
	Client *http.Client
}

func (s HTTPSink) Send(ctx context.Context, batch []traffic.Event) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %d", traffic.ErrBadStatus, resp.StatusCode)
	}
	return nil
}

type ReplayOptions struct {
	// Speed multiplies the original pacing. Zero or less sends everything
	// at once.
	Speed float64
	// BatchInterval is how often collected events are flushed to the sink.
	BatchInterval time.Duration
	// Rebase shifts timestamps so the first event happens at replay start.
	Rebase bool
}

// Replayer plays recorded events back at their original pacing, flushing
// what has become due to the sink in batches.
type Replayer struct {
	events  []traffic.Event
	sink    Sink
	options ReplayOptions
	logger  *slog.Logger
	now     func() time.Time
}

// NewReplayer expects events sorted by time, as LoadCSV returns them.
func NewReplayer(events []traffic.Event, sink Sink, options ReplayOptions, logger *slog.Logger) *Replayer {
	if options.BatchInterval <= 0 {
		options.BatchInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Replayer{events: events, sink: sink, options: options, logger: logger, now: time.Now}
}

// Run replays every event and returns once all of them were delivered or
// ctx is done. A failed flush is retried with the next one.
func (r *Replayer) Run(ctx context.Context) error {
	if len(r.events) == 0 {
		return nil
	}

	start := r.now()
	first := r.events[0].Time
	shift := int64(0)
	if r.options.Rebase {
		shift = start.Unix() - first
	}

	r.logger.Info("replay started", "events", len(r.events), "speed", r.options.Speed)

	var pending []traffic.Event
	next, sent := 0, 0

	ticker := time.NewTicker(r.options.BatchInterval)
	defer ticker.Stop()

	for {
		elapsed := r.now().Sub(start)
		for next < len(r.events) && r.due(r.events[next].Time-first) <= elapsed {
			e := r.events[next]
			e.Time += shift
			pending = append(pending, e)
			next++
		}

		if len(pending) > 0 {
			if err := r.sink.Send(ctx, pending); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("replay flush failed", "pending", len(pending), "error", err)
			} else {
				sent += len(pending)
				r.logger.Debug("replay flushed", "count", len(pending), "sent", sent)
				pending = nil
			}
		}

		if next == len(r.events) && len(pending) == 0 {
			r.logger.Info("replay finished", "events", sent)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Replayer) due(offset int64) time.Duration {
	if r.options.Speed <= 0 {
		return 0
	}
	return time.Duration(float64(offset) / r.options.Speed * float64(time.Second))
}
