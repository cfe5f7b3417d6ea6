package traffic

import "sync"

// RecentCapacity is the number of events kept for the list view.
const RecentCapacity = 20

// RecentBuffer holds the most recent events, newest first.
type RecentBuffer struct {
	mutex    sync.RWMutex
	items    []Event
	capacity int
}

func NewRecentBuffer(capacity int) *RecentBuffer {
	if capacity < 1 {
		capacity = RecentCapacity
	}
	return &RecentBuffer{
		items:    make([]Event, 0, capacity+1),
		capacity: capacity,
	}
}

// Push inserts e at the head and drops the oldest entry past capacity.
func (r *RecentBuffer) Push(e Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.push(e)
}

// PushAll inserts a batch one event at a time, so the last event of the
// batch ends up first.
func (r *RecentBuffer) PushAll(batch []Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, e := range batch {
		r.push(e)
	}
}

func (r *RecentBuffer) push(e Event) {
	r.items = append(r.items, Event{})
	copy(r.items[1:], r.items)
	r.items[0] = e
	if len(r.items) > r.capacity {
		r.items = r.items[:r.capacity]
	}
}

// Items returns a copy of the buffer. With onlySuspicious set the normal
// events are skipped, order is preserved.
func (r *RecentBuffer) Items(onlySuspicious bool) []Event {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]Event, 0, len(r.items))
	for _, e := range r.items {
		if onlySuspicious && !e.Suspicious {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (r *RecentBuffer) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.items)
}
