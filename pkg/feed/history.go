package feed

import (
	"slices"
	"sort"
	"sync"

	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

// History is the server-side event log, kept sorted by time so Since can
// binary search it.
type History struct {
	mutex  sync.RWMutex
	events []traffic.Event
}

func NewHistory() *History {
	return &History{}
}

// Append adds a batch. Events arriving out of order are placed by time;
// events with equal times keep their arrival order.
func (h *History) Append(batch []traffic.Event) {
	if len(batch) == 0 {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, e := range batch {
		if n := len(h.events); n == 0 || h.events[n-1].Time <= e.Time {
			h.events = append(h.events, e)
			continue
		}
		i := sort.Search(len(h.events), func(i int) bool { return h.events[i].Time > e.Time })
		h.events = slices.Insert(h.events, i, e)
	}
}

// Since returns every event with time > t, oldest first.
func (h *History) Since(t int64) []traffic.Event {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	i := sort.Search(len(h.events), func(i int) bool { return h.events[i].Time > t })
	out := make([]traffic.Event, len(h.events)-i)
	copy(out, h.events[i:])
	return out
}

func (h *History) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.events)
}

// Latest is the highest event time held, 0 when empty.
func (h *History) Latest() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if len(h.events) == 0 {
		return 0
	}
	return h.events[len(h.events)-1].Time
}
