package traffic

import (
	"sync"

	"github.com/google/uuid"
)

// VisibleWindow is how long (in event seconds) an event stays on the globe.
const VisibleWindow = 60

// Store keeps the append-only history of received events and the watermark,
// the highest event time seen so far.
type Store struct {
	mutex     sync.RWMutex
	history   []Event
	watermark int64
}

func NewStore() *Store {
	return &Store{}
}

// Ingest appends a batch in arrival order, advances the watermark and
// returns the normal/suspicious partition of the batch. Events without an
// ID are stamped with a fresh one in place, so the caller's slice carries
// the same identities as the history.
func (s *Store) Ingest(batch []Event) (normal, suspicious int) {
	if len(batch) == 0 {
		return 0, 0
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i := range batch {
		if batch[i].ID == uuid.Nil {
			batch[i].ID = uuid.New()
		}
		if batch[i].Time > s.watermark {
			s.watermark = batch[i].Time
		}
		s.history = append(s.history, batch[i])
	}

	return Partition(batch)
}

// Visible returns the events with watermark - time < VisibleWindow. It scans
// the whole history on every call.
func (s *Store) Visible() []Event {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	visible := make([]Event, 0)
	for _, e := range s.history {
		if s.watermark-e.Time < VisibleWindow {
			visible = append(visible, e)
		}
	}
	return visible
}

func (s *Store) Watermark() int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.watermark
}

func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.history)
}
