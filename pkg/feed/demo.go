package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

// hubs are the places demo traffic originates from.
var hubs = []struct{ lat, lng float64 }{
	{40.71, -74.00},  // New York
	{37.77, -122.42}, // San Francisco
	{-23.55, -46.63}, // São Paulo
	{51.51, -0.13},   // London
	{50.11, 8.68},    // Frankfurt
	{55.76, 37.62},   // Moscow
	{28.61, 77.21},   // Delhi
	{39.90, 116.40},  // Beijing
	{35.68, 139.69},  // Tokyo
	{1.35, 103.82},   // Singapore
	{-33.87, 151.21}, // Sydney
	{6.52, 3.38},     // Lagos
	{-26.20, 28.05},  // Johannesburg
	{30.04, 31.24},   // Cairo
}

// Storm generates random demo traffic at a fixed rate.
type Storm struct {
	rate       int
	suspicious float64
	sink       Sink
	rand       *rand.Rand
	logger     *slog.Logger
}

// NewStorm emits rate events per second, a share of them suspicious.
func NewStorm(rate int, suspicious float64, sink Sink, seed uint64, logger *slog.Logger) *Storm {
	if rate < 1 {
		rate = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Storm{
		rate:       rate,
		suspicious: suspicious,
		sink:       sink,
		rand:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger:     logger,
	}
}

// Event makes one event near a random hub.
func (s *Storm) Event(now time.Time) traffic.Event {
	hub := hubs[s.rand.IntN(len(hubs))]
	return traffic.Event{
		Time:       now.Unix(),
		IP:         s.randomIP(),
		Latitude:   clampFloat(hub.lat+s.rand.Float64()*4-2, -90, 90),
		Longitude:  clampFloat(hub.lng+s.rand.Float64()*4-2, -180, 180),
		Suspicious: s.rand.Float64() < s.suspicious,
	}
}

func (s *Storm) randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		1+s.rand.IntN(223), s.rand.IntN(256), s.rand.IntN(256), 1+s.rand.IntN(254))
}

// Run sends one event per tick until ctx is done.
func (s *Storm) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.rate))
	defer ticker.Stop()

	s.logger.Info("demo storm started", "rate", s.rate, "suspicious", s.suspicious)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.sink.Send(ctx, []traffic.Event{s.Event(now)}); err != nil && ctx.Err() == nil {
				s.logger.Warn("demo event not delivered", "error", err)
			}
		}
	}
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
