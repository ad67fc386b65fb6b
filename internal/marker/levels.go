package marker

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/ernyoke/imger/imgio"
	"github.com/spicycabbage/spotdiff/internal/game"
)

// LoadImage reads a PNG or JPEG file.
func LoadImage(path string) (image.Image, error) {
	img, err := imgio.ImreadRGBA(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return img, nil
}

// ValidateLevels loads a levels file and validates every level. It returns the levels with
// all the problems found, joined.
func ValidateLevels(r io.Reader) ([]game.Level, error) {
	levels, err := game.LoadLevels(r)
	if err != nil {
		return nil, err
	}
	var errs []error
	for i, level := range levels {
		if err := level.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("level %d: %w", i+1, err))
		}
	}
	return levels, errors.Join(errs...)
}

// WriteLevel writes a level in the layout of the levels file: one region object per line.
func WriteLevel(w io.Writer, level game.Level) error {
	left, err := json.Marshal(level.ImageLeft)
	if err != nil {
		return err
	}
	right, err := json.Marshal(level.ImageRight)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  {\n    \"imageLeft\": %s,\n    \"imageRight\": %s,\n    \"differences\": [\n", left, right); err != nil {
		return err
	}
	for i, region := range level.Differences {
		data, err := json.Marshal(region)
		if err != nil {
			return err
		}
		sep := ","
		if i == len(level.Differences)-1 {
			sep = ""
		}
		if _, err := fmt.Fprintf(w, "      %s%s\n", data, sep); err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(w, "    ]\n  }\n")
	return err
}
