package game

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"
)

func TestCircleBoundary(t *testing.T) {
	const eps = 1e-6
	for _, radius := range []float64{1, 20, 35, 50, 150} {
		t.Run(fmt.Sprintf("r=%g", radius), func(t *testing.T) {
			region := NewCircle(400, 400, radius)
			for _, angle := range []float64{0, 90, 180, 270} {
				rad := angle * math.Pi / 180
				dx, dy := math.Cos(rad), math.Sin(rad)
				// Exact axis points: the distance is exactly the radius.
				onBoundary := Point{X: 400 + math.Round(dx)*radius, Y: 400 + math.Round(dy)*radius}
				if !region.Contains(onBoundary) {
					t.Errorf("point %v at distance %g should be inside", onBoundary, radius)
				}
				outside := Point{X: 400 + math.Round(dx)*(radius+eps), Y: 400 + math.Round(dy)*(radius+eps)}
				if region.Contains(outside) {
					t.Errorf("point %v at distance %g should be outside", outside, radius+eps)
				}
			}
		})
	}
}

func TestCircleDefaultRadius(t *testing.T) {
	for _, region := range []Region{{X: 100, Y: 100}, NewCircle(100, 100, 0)} {
		if !region.Contains(Point{X: 100 + DefaultRadius, Y: 100}) {
			t.Errorf("%s: point at the default radius should be inside", region)
		}
		if region.Contains(Point{X: 100 + DefaultRadius + 1, Y: 100}) {
			t.Errorf("%s: point past the default radius should be outside", region)
		}
	}
}

func TestEllipseAxisAlignedBoundary(t *testing.T) {
	cases := []struct{ x, y, rx, ry float64 }{
		{100, 100, 50, 20},
		{400, 400, 35, 100},
		{10, 700, 1, 3},
	}
	for _, c := range cases {
		region := NewEllipse(c.x, c.y, c.rx, c.ry, 0)
		t.Run(region.String(), func(t *testing.T) {
			for _, p := range []Point{{c.x + c.rx, c.y}, {c.x - c.rx, c.y}, {c.x, c.y + c.ry}, {c.x, c.y - c.ry}, {c.x, c.y}} {
				if !region.Contains(p) {
					t.Errorf("point %v should be inside", p)
				}
			}
			for _, p := range []Point{{c.x + c.rx + 1, c.y}, {c.x, c.y + c.ry + 1}, {c.x + c.rx, c.y + c.ry}} {
				if region.Contains(p) {
					t.Errorf("point %v should be outside", p)
				}
			}
		})
	}
}

// rotateAround rotates p by degrees around center.
func rotateAround(p, center Point, degrees float64) Point {
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	dx, dy := p.X-center.X, p.Y-center.Y
	return Point{X: center.X + dx*cos - dy*sin, Y: center.Y + dx*sin + dy*cos}
}

func TestEllipseRotationConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	center := Point{X: 400, Y: 400}
	const rx, ry = 80, 30
	unrotated := NewEllipse(center.X, center.Y, rx, ry, 0)
	for _, rotation := range []float64{-25, 7, 45, 89, 90, 180, 270, 333} {
		rotated := NewEllipse(center.X, center.Y, rx, ry, rotation)
		for i := 0; i < 500; i++ {
			p := Point{X: center.X + (rng.Float64()*2-1)*120, Y: center.Y + (rng.Float64()*2-1)*120}
			// Skip points too close to the boundary for float rounding to matter.
			nx, ny := (p.X-center.X)/rx, (p.Y-center.Y)/ry
			if math.Abs(nx*nx+ny*ny-1) < 1e-6 {
				continue
			}
			want := unrotated.Contains(p)
			got := rotated.Contains(rotateAround(p, center, rotation))
			if got != want {
				t.Fatalf("rotation %g: point %v inside=%t in the unrotated ellipse, but rotated point inside=%t",
					rotation, p, want, got)
			}
		}
	}
}

func TestEllipseRotated90(t *testing.T) {
	// The 90 degrees rotation makes the long axis (radiusX=50) vertical:
	// dx=0, dy=40 rotates to (40, ~0) in the ellipse frame, 0.64 <= 1.
	region := NewEllipse(100, 100, 50, 20, 90)
	if !region.Contains(Point{X: 100, Y: 140}) {
		t.Errorf("(100, 140) should be inside %s", region)
	}
	// dx=40, dy=0 rotates to (~0, -40): (40/20)^2 = 4 > 1.
	if region.Contains(Point{X: 140, Y: 100}) {
		t.Errorf("(140, 100) should be outside %s", region)
	}
	if !region.Contains(Point{X: 100, Y: 150}) {
		t.Errorf("(100, 150) is on the boundary of %s and should be inside", region)
	}
}

func TestMalformedRegionsNeverMatch(t *testing.T) {
	nan := math.NaN()
	regions := []Region{
		NewCircle(nan, 100, 35),
		NewCircle(100, 100, nan),
		NewCircle(100, 100, -10),
		NewEllipse(100, 100, 0, 0, 0),
		NewEllipse(100, 100, nan, 20, 0),
		NewEllipse(100, 100, 50, 20, nan),
		NewEllipse(nan, nan, 50, 20, 30),
	}
	for _, region := range regions {
		for _, p := range []Point{{100, 100}, {101, 100}, {nan, nan}} {
			if region.Contains(p) {
				t.Errorf("%s should not contain %v", region, p)
			}
		}
	}
	if (Region{X: 1, Y: 1}).Contains(Point{X: nan, Y: 1}) {
		t.Errorf("NaN point should never be inside")
	}
}

func TestRegionJSON(t *testing.T) {
	var regions []Region
	data := `[{"x":618,"y":158,"radius":35},{"x":752,"y":480,"radiusX":35,"radiusY":100,"rotation":-25},{"x":10,"y":20},{"x":1,"y":2,"radiusX":3}]`
	if err := json.Unmarshal([]byte(data), &regions); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if c, ok := regions[0].Circle(); !ok || c.Radius != 35 {
		t.Errorf("region 0: expected circle of radius 35, got %s", regions[0])
	}
	if e, ok := regions[1].Ellipse(); !ok || e.RadiusX != 35 || e.RadiusY != 100 || e.Rotation != -25 {
		t.Errorf("region 1: expected rotated ellipse, got %s", regions[1])
	}
	if c, ok := regions[2].Circle(); !ok || c.Radius != DefaultRadius {
		t.Errorf("region 2: expected default circle, got %s", regions[2])
	}
	// An ellipse needs both radii, otherwise it is read as a circle.
	if _, ok := regions[3].Ellipse(); ok {
		t.Errorf("region 3: expected a circle, got %s", regions[3])
	}

	out, err := json.Marshal(regions[:2])
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `[{"x":618,"y":158,"radius":35},{"x":752,"y":480,"radiusX":35,"radiusY":100,"rotation":-25}]`
	if string(out) != want {
		t.Errorf("Marshal:\n got %s\nwant %s", out, want)
	}

	if err := json.Unmarshal([]byte(`{"x":"a","y":1}`), &Region{}); err == nil {
		t.Errorf("expected an error for a non numeric field")
	}
}
