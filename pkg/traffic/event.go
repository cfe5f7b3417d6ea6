package traffic

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEvent is returned by Validate for entries that cannot be plotted.
var ErrInvalidEvent = errors.New("invalid traffic event")

// Event is a single geolocated packet observation as served by the feed.
type Event struct {
	ID         uuid.UUID `json:"-"`
	Time       int64     `json:"time"`
	IP         string    `json:"ip"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Suspicious bool      `json:"suspicious"`
}

func (e Event) Validate() error {
	if e.IP == "" {
		return fmt.Errorf("%w: empty ip", ErrInvalidEvent)
	}
	if math.IsNaN(e.Latitude) || e.Latitude < -90 || e.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidEvent, e.Latitude)
	}
	if math.IsNaN(e.Longitude) || e.Longitude < -180 || e.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidEvent, e.Longitude)
	}
	return nil
}

// Timestamp returns the event time as a local time.Time.
func (e Event) Timestamp() time.Time {
	return time.Unix(e.Time, 0)
}

// Partition counts the normal and suspicious events of a batch.
func Partition(batch []Event) (normal, suspicious int) {
	for _, e := range batch {
		if e.Suspicious {
			suspicious++
		} else {
			normal++
		}
	}
	return normal, suspicious
}
