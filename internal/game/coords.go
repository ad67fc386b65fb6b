package game

import "math"

// Base resolution in which all level regions are authored, regardless of display size.
const (
	BaseWidth  = 800
	BaseHeight = 800
)

// DesktopDisplaySize is the rendered size of each image on wide viewports.
const DesktopDisplaySize = 500

// MobileBreakpoint is the viewport width below which the mobile layouts are used.
const MobileBreakpoint = 768

// Transform maps between display space (the image as rendered on screen) and base space.
// It only depends on the current display size, so build a new one whenever that changes.
type Transform struct {
	ScaleX float64
	ScaleY float64
}

// Identity is the transform for an image displayed at its base resolution.
var Identity = Transform{ScaleX: 1, ScaleY: 1}

// NewTransform returns the transform for an image rendered at displayWidth x displayHeight.
func NewTransform(displayWidth, displayHeight float64) Transform {
	return Transform{
		ScaleX: BaseWidth / displayWidth,
		ScaleY: BaseHeight / displayHeight,
	}
}

// ToBase converts a pointer offset, relative to the image top-left corner, into integer base
// coordinates.
func (t Transform) ToBase(p Point) Point {
	return Point{X: roundHalfUp(p.X * t.ScaleX), Y: roundHalfUp(p.Y * t.ScaleY)}
}

// ToDisplay converts base coordinates to display coordinates, for drawing overlays.
func (t Transform) ToDisplay(p Point) Point {
	return Point{X: p.X / t.ScaleX, Y: p.Y / t.ScaleY}
}

// roundHalfUp rounds halves toward +Inf, like the browser's Math.round (math.Round rounds
// them away from zero).
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// DisplaySize returns the size at which each image of the pair is rendered for the given
// viewport.
func DisplaySize(viewportWidth, viewportHeight float64) (width, height float64) {
	switch {
	case viewportWidth < MobileBreakpoint && viewportWidth > viewportHeight:
		// Mobile landscape: the pair fills most of the height, with black borders on the sides.
		return viewportWidth * 0.367, viewportHeight * 0.83
	case viewportWidth < MobileBreakpoint:
		available := (viewportHeight - 48) * 0.90
		return math.Min(viewportWidth*0.48, available), math.Min(viewportWidth*0.47, available)
	default:
		return DesktopDisplaySize, DesktopDisplaySize
	}
}
