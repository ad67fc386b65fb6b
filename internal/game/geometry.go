package game

import (
	"encoding/json"
	"fmt"
	"math"
)

// DefaultRadius is used for circles authored without a radius.
const DefaultRadius = 35

// Point is a position in either base or display space; which one is up to the caller.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is the geometry of a difference region, relative to the region center.
// It is implemented by Circle and Ellipse only.
type Shape interface {
	// contains reports whether the offset (dx, dy) from the center is inside the shape.
	contains(dx, dy float64) bool
	isShape()
}

// Circle is a round region.
type Circle struct {
	Radius float64
}

// Ellipse is an ellipse whose axes are rotated by Rotation degrees around the center.
type Ellipse struct {
	RadiusX  float64
	RadiusY  float64
	Rotation float64 // Degrees.
}

func (Circle) isShape()  {}
func (Ellipse) isShape() {}

// radius returns the radius, with zero meaning unspecified.
func (c Circle) radius() float64 {
	if c.Radius == 0 {
		return DefaultRadius
	}
	return c.Radius
}

func (c Circle) contains(dx, dy float64) bool {
	return math.Sqrt(dx*dx+dy*dy) <= c.radius()
}

// contains rotates the offset by -Rotation into the ellipse's own frame, and then
// checks the normalized distance. The boundary counts as inside.
func (e Ellipse) contains(dx, dy float64) bool {
	angle := -e.Rotation * math.Pi / 180
	cos, sin := math.Cos(angle), math.Sin(angle)
	rx := dx*cos - dy*sin
	ry := dx*sin + dy*cos
	nx := rx / e.RadiusX
	ny := ry / e.RadiusY
	return nx*nx+ny*ny <= 1
}

// Region is one of the marked differences of a level, anchored at (X, Y) in base space.
type Region struct {
	X     float64
	Y     float64
	Shape Shape // nil means a circle of DefaultRadius.
}

// NewCircle returns a circular region.
func NewCircle(x, y, radius float64) Region {
	return Region{X: x, Y: y, Shape: Circle{Radius: radius}}
}

// NewEllipse returns an elliptical region, rotation given in degrees.
func NewEllipse(x, y, radiusX, radiusY, rotation float64) Region {
	return Region{X: x, Y: y, Shape: Ellipse{RadiusX: radiusX, RadiusY: radiusY, Rotation: rotation}}
}

// Contains reports whether the base space point p falls inside the region.
// Malformed values (NaN, Inf, zero radii) never panic: they simply don't match.
func (r Region) Contains(p Point) bool {
	shape := r.Shape
	if shape == nil {
		shape = Circle{}
	}
	return shape.contains(p.X-r.X, p.Y-r.Y)
}

// Circle returns the circle shape of the region, if it is one.
func (r Region) Circle() (Circle, bool) {
	switch s := r.Shape.(type) {
	case nil:
		return Circle{Radius: DefaultRadius}, true
	case Circle:
		return Circle{Radius: s.radius()}, true
	}
	return Circle{}, false
}

// Ellipse returns the ellipse shape of the region, if it is one.
func (r Region) Ellipse() (Ellipse, bool) {
	e, ok := r.Shape.(Ellipse)
	return e, ok
}

func (r Region) String() string {
	if e, ok := r.Ellipse(); ok {
		return fmt.Sprintf("ellipse(%g,%g rx=%g ry=%g rot=%g)", r.X, r.Y, e.RadiusX, e.RadiusY, e.Rotation)
	}
	c, _ := r.Circle()
	return fmt.Sprintf("circle(%g,%g r=%g)", r.X, r.Y, c.Radius)
}

// regionJSON is the authoring format: a circle has "radius", an ellipse has both
// "radiusX" and "radiusY" and an optional "rotation".
type regionJSON struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Radius   *float64 `json:"radius,omitempty"`
	RadiusX  *float64 `json:"radiusX,omitempty"`
	RadiusY  *float64 `json:"radiusY,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
}

// MarshalJSON writes the region in the authoring format.
func (r Region) MarshalJSON() ([]byte, error) {
	raw := regionJSON{X: r.X, Y: r.Y}
	switch s := r.Shape.(type) {
	case Ellipse:
		raw.RadiusX, raw.RadiusY = &s.RadiusX, &s.RadiusY
		if s.Rotation != 0 {
			raw.Rotation = &s.Rotation
		}
	default:
		c, _ := r.Circle()
		raw.Radius = &c.Radius
	}
	return json.Marshal(raw)
}

// UnmarshalJSON reads the authoring format.
func (r *Region) UnmarshalJSON(data []byte) error {
	var raw regionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse region: %w", err)
	}
	r.X, r.Y = raw.X, raw.Y
	if raw.RadiusX != nil && raw.RadiusY != nil {
		e := Ellipse{RadiusX: *raw.RadiusX, RadiusY: *raw.RadiusY}
		if raw.Rotation != nil {
			e.Rotation = *raw.Rotation
		}
		r.Shape = e
		return nil
	}
	c := Circle{}
	if raw.Radius != nil {
		c.Radius = *raw.Radius
	}
	r.Shape = c
	return nil
}
