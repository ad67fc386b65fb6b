package game

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// DifferencesPerLevel is the number of regions a level must have: the level is complete
// once all of them are found.
const DifferencesPerLevel = 5

// Level is a pair of images and the regions where they differ.
type Level struct {
	ImageLeft   string   `json:"imageLeft"`  // Original image.
	ImageRight  string   `json:"imageRight"` // Altered image.
	Differences []Region `json:"differences"`
}

//go:embed levels.json
var defaultLevelsJSON []byte

// ErrInvalidLevel is wrapped by all level validation errors.
var ErrInvalidLevel = errors.New("invalid level")

// LoadLevels parses a JSON array of levels. Each level must have exactly
// DifferencesPerLevel regions, otherwise it could never be completed; the geometry itself
// is not checked here, see Level.Validate.
func LoadLevels(r io.Reader) ([]Level, error) {
	var levels []Level
	if err := json.NewDecoder(r).Decode(&levels); err != nil {
		return nil, fmt.Errorf("failed to decode levels: %w", err)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: no levels", ErrInvalidLevel)
	}
	for i, level := range levels {
		if len(level.Differences) != DifferencesPerLevel {
			return nil, fmt.Errorf("%w: level %d has %d differences, want %d",
				ErrInvalidLevel, i+1, len(level.Differences), DifferencesPerLevel)
		}
	}
	return levels, nil
}

// DefaultLevels returns the built-in levels.
func DefaultLevels() []Level {
	levels, err := LoadLevels(bytes.NewReader(defaultLevelsJSON))
	if err != nil {
		// The embedded file is part of the build.
		panic(err)
	}
	return levels
}

// Validate checks the authored data of a level: the number of regions, centers within base
// space and finite non-negative radii. It returns all problems found, joined.
func (l Level) Validate() error {
	var errs []error
	if l.ImageLeft == "" || l.ImageRight == "" {
		errs = append(errs, fmt.Errorf("%w: missing image", ErrInvalidLevel))
	}
	if len(l.Differences) != DifferencesPerLevel {
		errs = append(errs, fmt.Errorf("%w: %d differences, want %d", ErrInvalidLevel, len(l.Differences), DifferencesPerLevel))
	}
	for i, region := range l.Differences {
		if err := validateRegion(region); err != nil {
			errs = append(errs, fmt.Errorf("difference %d %s: %w", i, region, err))
		}
	}
	return errors.Join(errs...)
}

func validateRegion(r Region) error {
	if !inRange(r.X, BaseWidth) || !inRange(r.Y, BaseHeight) {
		return fmt.Errorf("%w: center outside %dx%d", ErrInvalidLevel, BaseWidth, BaseHeight)
	}
	var radii []float64
	switch s := r.Shape.(type) {
	case Ellipse:
		radii = []float64{s.RadiusX, s.RadiusY}
		if math.IsNaN(s.Rotation) || math.IsInf(s.Rotation, 0) {
			return fmt.Errorf("%w: rotation %g", ErrInvalidLevel, s.Rotation)
		}
	case Circle:
		radii = []float64{s.Radius}
	}
	for _, radius := range radii {
		if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
			return fmt.Errorf("%w: radius %g", ErrInvalidLevel, radius)
		}
	}
	return nil
}

func inRange(v float64, limit int) bool {
	return v >= 0 && v < float64(limit)
}
