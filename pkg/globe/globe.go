package globe

import "math"

// ambientLevel is the 0x40 ambient light expressed as a fraction.
const ambientLevel = float64(0x40) / 0xff

type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellLand
	CellRim
	CellMarker
	CellSuspicious
)

type Cell struct {
	Rune rune
	Kind CellKind
}

// Frame is one rendered picture of the globe, row-major.
type Frame struct {
	Width, Height int
	Cells         []Cell
}

func (f Frame) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return Cell{Rune: ' '}
	}
	return f.Cells[y*f.Width+x]
}

// Globe renders the Earth and the scene markers into a character grid.
type Globe struct {
	Width       int
	Height      int
	Radius      float64 // in character columns at zoom 1
	AspectRatio float64 // character height / width
	Charset     Charset
	Lighting    bool

	earthMap  []string
	mapWidth  int
	mapHeight int
}

func NewGlobe(width, height int, aspectRatio float64, charset Charset) *Globe {
	// Keep the grid non-empty so rendering never indexes out of range.
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if aspectRatio <= 0 {
		aspectRatio = 2.0
	}

	effectiveHeight := float64(height) * aspectRatio
	radius := math.Min(float64(width)/2.5, effectiveHeight/2.5)
	if radius < 1.0 {
		radius = 1.0
	}

	return &Globe{
		Width:       width,
		Height:      height,
		Radius:      radius,
		AspectRatio: aspectRatio,
		Charset:     charset,
		Lighting:    true,
		earthMap:    earthBitmap,
		mapWidth:    len(earthBitmap[0]),
		mapHeight:   len(earthBitmap),
	}
}

// IsLand samples the equirectangular bitmap.
func (g *Globe) IsLand(lat, lng float64) bool {
	row := int((90 - lat) / 180 * float64(g.mapHeight-1))
	col := int((lng + 180) / 360 * float64(g.mapWidth-1))
	row = max(0, min(g.mapHeight-1, row))
	col = max(0, min(g.mapWidth-1, col))
	return g.earthMap[row][col] != ' '
}

func (g *Globe) screenRadius(v View) float64 {
	return g.Radius * v.Zoom
}

// ScreenPosition projects a world point to a cell. ok is false when the
// point faces away from the camera or falls outside the grid.
func (g *Globe) ScreenPosition(p Vec3, v View) (x, y int, ok bool) {
	q := v.ToView(p)
	if q.Z < 0 {
		return 0, 0, false
	}
	scale := g.screenRadius(v) / EarthRadius
	x = int(math.Round(q.X*scale)) + g.Width/2
	y = int(math.Round(-q.Y*scale/g.AspectRatio)) + g.Height/2
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return 0, 0, false
	}
	return x, y, true
}

// Surface returns the latitude/longitude seen at a cell, if the cell lies
// on the globe.
func (g *Globe) Surface(x, y int, v View) (lat, lng float64, ok bool) {
	r := g.screenRadius(v)
	nx := float64(x-g.Width/2) / r
	ny := -float64(y-g.Height/2) * g.AspectRatio / r
	d := nx*nx + ny*ny
	if d > 1 {
		return 0, 0, false
	}
	n := v.FromView(Vec3{nx, ny, math.Sqrt(1 - d)})
	lat, lng = Unproject(n)
	return lat, lng, true
}

// Render draws the globe as seen through v, lit by light (a world-space
// position, usually the camera's), with the scene markers on top.
func (g *Globe) Render(markers []Marker, v View, light Vec3) Frame {
	frame := Frame{Width: g.Width, Height: g.Height, Cells: make([]Cell, g.Width*g.Height)}
	density := make([]float64, g.Width*g.Height)
	lightDir := v.ToView(light).Normalize()
	r := g.screenRadius(v)
	cx, cy := g.Width/2, g.Height/2

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			dx := float64(x - cx)
			dy := float64(y-cy) * g.AspectRatio
			distance := math.Sqrt(dx*dx + dy*dy)

			if distance <= r {
				nx, ny := dx/r, -dy/r
				nz := math.Sqrt(math.Max(0, 1-nx*nx-ny*ny))
				lat, lng := Unproject(v.FromView(Vec3{nx, ny, nz}))

				if g.IsLand(lat, lng) {
					intensity := 1.0
					if g.Lighting {
						diffuse := math.Max(0, Vec3{nx, ny, nz}.Dot(lightDir))
						intensity = math.Min(1, ambientLevel+diffuse)
					}
					density[y*g.Width+x] += intensity

					// soften coastlines
					for oy := -1; oy <= 1; oy++ {
						for ox := -1; ox <= 1; ox++ {
							px, py := x+ox, y+oy
							if px >= 0 && px < g.Width && py >= 0 && py < g.Height {
								density[py*g.Width+px] += 0.05
							}
						}
					}
				}
			}

			if distance > r-0.5 && distance < r+0.5 {
				density[y*g.Width+x] += 0.2
				frame.Cells[y*g.Width+x].Kind = CellRim
			}
		}
	}

	for i, d := range density {
		frame.Cells[i].Rune = g.Charset.shade(d)
		if frame.Cells[i].Rune != ' ' && frame.Cells[i].Kind == CellEmpty {
			frame.Cells[i].Kind = CellLand
		}
	}

	markerRune := g.Charset.MarkerRune()
	for _, m := range markers {
		x, y, ok := g.ScreenPosition(m.Position, v)
		if !ok {
			continue
		}
		cell := &frame.Cells[y*g.Width+x]
		if cell.Kind == CellSuspicious {
			continue
		}
		cell.Rune = markerRune
		if m.Suspicious {
			cell.Kind = CellSuspicious
		} else {
			cell.Kind = CellMarker
		}
	}

	return frame
}
