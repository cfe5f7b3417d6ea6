package traffic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// ErrBadStatus is returned when the feed answers with a non-200 status.
var ErrBadStatus = errors.New("unexpected status from traffic feed")

type APIConfig struct {
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
}

// APIClient fetches new events from the traffic feed.
type APIClient struct {
	config     APIConfig
	httpClient *http.Client
	logger     *slog.Logger
	dropped    atomic.Int64
}

func NewAPIClient(config APIConfig, logger *slog.Logger) *APIClient {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &APIClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Since requests every event with time > watermark. Entries that fail
// validation are dropped and logged.
func (api *APIClient) Since(ctx context.Context, watermark int64) ([]Event, error) {
	endpoint := fmt.Sprintf("%s/data?time=%s",
		strings.TrimSuffix(api.config.BaseURL, "/"), url.QueryEscape(strconv.FormatInt(watermark, 10)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := api.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var raw []Event
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := raw[:0]
	for _, e := range raw {
		if err := e.Validate(); err != nil {
			api.dropped.Add(1)
			api.logger.Warn("dropping traffic event", "ip", e.IP, "time", e.Time, "error", err)
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Dropped is the number of invalid entries discarded so far.
func (api *APIClient) Dropped() int64 {
	return api.dropped.Load()
}
