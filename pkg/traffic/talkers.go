package traffic

import (
	"sort"
	"sync"
	"time"

	"github.com/keilerkonzept/topk/sliding"
)

// Talker is a source IP and its approximate count over the window.
type Talker struct {
	IP    string
	Count int
}

// Talkers tracks the busiest source IPs over a sliding window of one
// second ticks.
type Talkers struct {
	mutex    sync.Mutex
	sketch   *sliding.Sketch
	k        int
	tick     time.Duration
	lastTick time.Time
}

func NewTalkers(k int, window time.Duration) *Talkers {
	if k < 1 {
		k = 5
	}
	if window < time.Second {
		window = time.Minute
	}
	tick := time.Second
	return &Talkers{
		sketch: sliding.New(k, int(window/tick)),
		k:      k,
		tick:   tick,
	}
}

// Observe counts every event of a batch against its source IP.
func (t *Talkers) Observe(batch []Event, now time.Time) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.advance(now)
	for _, e := range batch {
		t.sketch.Incr(e.IP)
	}
}

// Advance moves the window forward to now.
func (t *Talkers) Advance(now time.Time) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.advance(now)
}

func (t *Talkers) advance(now time.Time) {
	now = now.Truncate(t.tick)
	if t.lastTick.IsZero() {
		t.lastTick = now
		return
	}
	if ticks := int(now.Sub(t.lastTick) / t.tick); ticks > 0 {
		t.sketch.Ticks(ticks)
		t.lastTick = now
	}
}

// Top returns up to k talkers, busiest first.
func (t *Talkers) Top() []Talker {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	// Heap counts can lag behind ticks, so re-read them from the sketch.
	items := t.sketch.SortedSlice()
	out := make([]Talker, 0, len(items))
	for _, it := range items {
		count := int(t.sketch.Count(it.Item))
		if count == 0 {
			continue
		}
		out = append(out, Talker{IP: it.Item, Count: count})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > t.k {
		out = out[:t.k]
	}
	return out
}
