package globe

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ringmast4r/traffic-globe/pkg/traffic"
)

type Color uint32

const (
	ColorNormal     Color = 0x00ff00
	ColorSuspicious Color = 0xff0000
	ColorAmbient    Color = 0x404040
	ColorSun        Color = 0xffffff
)

// Marker is the scene object for one visible event.
type Marker struct {
	ID         uuid.UUID
	IP         string
	Lat, Lng   float64
	Position   Vec3
	Suspicious bool
	Color      Color
}

type Sphere struct {
	Radius float64
}

type Light struct {
	Color     Color
	Intensity float64
	Position  Vec3 // only meaningful for directional lights
}

// Scene holds the permanent objects (earth, ambient and directional light)
// and one marker per visible event, keyed by event ID.
type Scene struct {
	mutex       sync.RWMutex
	Earth       Sphere
	Ambient     Light
	directional Light
	markers     map[uuid.UUID]Marker
}

func NewScene() *Scene {
	return &Scene{
		Earth:       Sphere{Radius: EarthRadius},
		Ambient:     Light{Color: ColorAmbient, Intensity: 1},
		directional: Light{Color: ColorSun, Intensity: 1, Position: Vec3{0, 0, CameraDistance}},
		markers:     make(map[uuid.UUID]Marker),
	}
}

func NewMarker(e traffic.Event) Marker {
	color := ColorNormal
	if e.Suspicious {
		color = ColorSuspicious
	}
	return Marker{
		ID:         e.ID,
		IP:         e.IP,
		Lat:        e.Latitude,
		Lng:        e.Longitude,
		Position:   Project(e.Latitude, e.Longitude, MarkerRadius),
		Suspicious: e.Suspicious,
		Color:      color,
	}
}

// Sync reconciles the markers with the visible set: markers for new events
// are created, markers whose event left the set are removed, the rest are
// kept as they are.
func (s *Scene) Sync(visible []traffic.Event) (created, removed int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	keep := make(map[uuid.UUID]struct{}, len(visible))
	for _, e := range visible {
		keep[e.ID] = struct{}{}
		if _, ok := s.markers[e.ID]; ok {
			continue
		}
		s.markers[e.ID] = NewMarker(e)
		created++
	}

	for id := range s.markers {
		if _, ok := keep[id]; !ok {
			delete(s.markers, id)
			removed++
		}
	}
	return created, removed
}

// FollowCamera moves the directional light to the camera position.
func (s *Scene) FollowCamera(v View) {
	s.mutex.Lock()
	s.directional.Position = v.Position()
	s.mutex.Unlock()
}

func (s *Scene) LightPosition() Vec3 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.directional.Position
}

func (s *Scene) Markers() []Marker {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]Marker, 0, len(s.markers))
	for _, m := range s.markers {
		out = append(out, m)
	}
	return out
}

func (s *Scene) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.markers)
}
