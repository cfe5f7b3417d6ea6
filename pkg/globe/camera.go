package globe

import (
	"math"
	"sync"
	"time"
)

// CameraDistance is how far the orbit camera sits from the globe centre.
const CameraDistance = 15.0

// Camera is an orbit camera around the globe. Input adds angular velocity,
// which decays by Damping on every Update, the way orbit controls with
// damping behave.
type Camera struct {
	mutex sync.RWMutex

	yaw   float64
	pitch float64
	zoom  float64

	yawVelocity   float64
	pitchVelocity float64

	Damping         float64
	AutoRotate      bool
	AutoRotateSpeed float64 // radians per second
}

func NewCamera(rotationPeriod time.Duration) *Camera {
	speed := 0.0
	if rotationPeriod > 0 {
		speed = 2 * math.Pi / rotationPeriod.Seconds()
	}
	return &Camera{
		zoom:            1.0,
		Damping:         0.05,
		AutoRotate:      speed > 0,
		AutoRotateSpeed: speed,
	}
}

// Orbit adds angular velocity in radians per frame.
func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.yawVelocity += dYaw
	c.pitchVelocity += dPitch
}

func (c *Camera) Zoom(delta float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.zoom = math.Max(0.5, math.Min(3.0, c.zoom+delta))
}

func (c *Camera) ToggleAutoRotate() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.AutoRotate = !c.AutoRotate
	return c.AutoRotate
}

// LookAt points the camera at a latitude/longitude and stops any motion.
func (c *Camera) LookAt(lat, lng float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	theta := (lng + 180) * math.Pi / 180
	c.yaw = math.Pi/2 - theta
	c.pitch = clampPitch(lat * math.Pi / 180)
	c.yawVelocity, c.pitchVelocity = 0, 0
}

// Update advances the camera by one frame.
func (c *Camera) Update(dt time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.yaw += c.yawVelocity
	c.pitch = clampPitch(c.pitch + c.pitchVelocity)
	c.yawVelocity *= 1 - c.Damping
	c.pitchVelocity *= 1 - c.Damping
	if math.Abs(c.yawVelocity) < 1e-5 {
		c.yawVelocity = 0
	}
	if math.Abs(c.pitchVelocity) < 1e-5 {
		c.pitchVelocity = 0
	}

	if c.AutoRotate {
		c.yaw += c.AutoRotateSpeed * dt.Seconds()
	}
	c.yaw = math.Mod(c.yaw, 2*math.Pi)
}

func clampPitch(p float64) float64 {
	limit := math.Pi/2 - 0.05
	return math.Max(-limit, math.Min(limit, p))
}

// View is an immutable copy of the camera orientation for one frame.
type View struct {
	Yaw, Pitch, Zoom float64
}

func (c *Camera) View() View {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return View{Yaw: c.yaw, Pitch: c.pitch, Zoom: c.zoom}
}

// ToView rotates a world point into camera space, where the camera looks
// down -Z from +Z.
func (v View) ToView(p Vec3) Vec3 {
	sy, cy := math.Sin(v.Yaw), math.Cos(v.Yaw)
	x := p.X*cy + p.Z*sy
	z := -p.X*sy + p.Z*cy

	sp, cp := math.Sin(v.Pitch), math.Cos(v.Pitch)
	y := p.Y*cp - z*sp
	z = p.Y*sp + z*cp
	return Vec3{x, y, z}
}

// FromView is the inverse of ToView.
func (v View) FromView(p Vec3) Vec3 {
	sp, cp := math.Sin(v.Pitch), math.Cos(v.Pitch)
	y := p.Y*cp + p.Z*sp
	z := -p.Y*sp + p.Z*cp

	sy, cy := math.Sin(v.Yaw), math.Cos(v.Yaw)
	x := p.X*cy - z*sy
	z = p.X*sy + z*cy
	return Vec3{x, y, z}
}

// Position is the camera location in world space.
func (v View) Position() Vec3 {
	return v.FromView(Vec3{0, 0, CameraDistance})
}
