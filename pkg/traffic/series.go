package traffic

import "sync"

// SeriesLength is the number of per-poll samples shown by each chart.
const SeriesLength = 30

// RollingSeries is a fixed-length window of per-poll counts with aligned
// time labels. Pushing a sample shifts the oldest one out.
type RollingSeries struct {
	mutex  sync.RWMutex
	name   string
	values []int
	labels []string
}

func NewRollingSeries(name string, length int) *RollingSeries {
	if length < 1 {
		length = SeriesLength
	}
	return &RollingSeries{
		name:   name,
		values: make([]int, length),
		labels: make([]string, length),
	}
}

func (s *RollingSeries) Name() string {
	return s.name
}

func (s *RollingSeries) Push(value int, label string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copy(s.values, s.values[1:])
	s.values[len(s.values)-1] = value
	copy(s.labels, s.labels[1:])
	s.labels[len(s.labels)-1] = label
}

func (s *RollingSeries) Values() []int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]int, len(s.values))
	copy(out, s.values)
	return out
}

func (s *RollingSeries) Labels() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

func (s *RollingSeries) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.values)
}

// Max returns the largest sample in the window.
func (s *RollingSeries) Max() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	maxVal := 0
	for _, v := range s.values {
		if v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}

// Last returns the newest sample.
func (s *RollingSeries) Last() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.values[len(s.values)-1]
}
