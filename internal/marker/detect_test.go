package marker

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spicycabbage/spotdiff/internal/game"
)

// testPair returns a 400x400 gray image and a copy altered with a disk of radius 20 centered
// at (100, 100) and a larger 80x20 bar at (250, 300).
func testPair() (left, right *image.Gray) {
	left = image.NewGray(image.Rect(0, 0, 400, 400))
	for i := range left.Pix {
		left.Pix[i] = 128
	}
	right = image.NewGray(left.Bounds())
	copy(right.Pix, left.Pix)
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			dx, dy := float64(x-100), float64(y-100)
			if dx*dx+dy*dy <= 400 {
				right.SetGray(x, y, color.Gray{Y: 255})
			}
			if x >= 250 && x < 330 && y >= 300 && y < 320 {
				right.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return left, right
}

func TestDetect(t *testing.T) {
	left, right := testPair()
	regions, err := Detect(left, right, DefaultOptions())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("Expected 2 regions, got %d: %v", len(regions), regions)
	}

	// The images are half the base resolution: everything is scaled by 2.
	bar, disk := regions[0], regions[1]
	e, ok := bar.Ellipse()
	if !ok {
		t.Fatalf("Expected the bar to be an ellipse, got %s", bar)
	}
	if math.Abs(e.Rotation) > 2 || e.RadiusX <= e.RadiusY {
		t.Errorf("Expected a horizontal ellipse, got %s", bar)
	}
	for _, p := range []game.Point{{X: 580, Y: 620}, {X: 520, Y: 620}, {X: 640, Y: 620}} {
		if !bar.Contains(p) {
			t.Errorf("Expected %s to contain %v", bar, p)
		}
	}

	c, ok := disk.Circle()
	if _, isEllipse := disk.Ellipse(); isEllipse || !ok {
		t.Fatalf("Expected the disk to be a circle, got %s", disk)
	}
	if math.Abs(disk.X-201) > 2 || math.Abs(disk.Y-201) > 2 {
		t.Errorf("Expected the disk centered near (201, 201), got %s", disk)
	}
	if c.Radius < 40 || c.Radius > 70 {
		t.Errorf("Unexpected disk radius: %s", disk)
	}
	if disk.Contains(game.Point{X: 300, Y: 300}) {
		t.Errorf("Disk %s too large", disk)
	}
	if err := (game.Level{ImageLeft: "l", ImageRight: "r", Differences: regions}).Validate(); err == nil ||
		!strings.Contains(err.Error(), "2 differences") {
		t.Errorf("Expected only the count of differences to be invalid, got %v", err)
	}
}

func TestDetectOptions(t *testing.T) {
	left, right := testPair()

	t.Run("MaxRegions", func(t *testing.T) {
		opts := DefaultOptions()
		opts.MaxRegions = 1
		regions, err := Detect(left, right, opts)
		if err != nil {
			t.Fatal(err)
		}
		if len(regions) != 1 {
			t.Errorf("Expected 1 region, got %d", len(regions))
		}
	})

	t.Run("NoiseIgnored", func(t *testing.T) {
		noisy := image.NewGray(left.Bounds())
		copy(noisy.Pix, left.Pix)
		noisy.SetGray(350, 50, color.Gray{Y: 255})
		regions, err := Detect(left, noisy, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if len(regions) != 0 {
			t.Errorf("Expected a single changed pixel to be ignored, got %v", regions)
		}
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		_, err := Detect(left, image.NewGray(image.Rect(0, 0, 10, 10)), DefaultOptions())
		if !errors.Is(err, ErrSizeMismatch) {
			t.Errorf("Expected ErrSizeMismatch, got %v", err)
		}
	})
}

func TestWriteLevel(t *testing.T) {
	level := game.Level{
		ImageLeft:  "1.png",
		ImageRight: "1-a.png",
		Differences: []game.Region{
			game.NewCircle(10, 20, 35),
			game.NewCircle(30, 40, 35),
			game.NewEllipse(50, 60, 40, 20, 30),
			game.NewCircle(70, 80, 35),
			game.NewCircle(90, 100, 35),
		},
	}
	var buf bytes.Buffer
	buf.WriteString("[\n")
	if err := WriteLevel(&buf, level); err != nil {
		t.Fatal(err)
	}
	buf.WriteString("]\n")
	if !strings.Contains(buf.String(), "      {\"x\":50,\"y\":60,\"radiusX\":40,\"radiusY\":20,\"rotation\":30},\n") {
		t.Errorf("Expected one region per line, got:\n%s", buf.String())
	}

	levels, err := ValidateLevels(&buf)
	if err != nil {
		t.Fatalf("Written level is invalid: %v", err)
	}
	if len(levels) != 1 || levels[0].Differences[2] != level.Differences[2] {
		t.Errorf("Unexpected levels read back: %+v", levels)
	}
}

func TestValidateLevels(t *testing.T) {
	body := `[
		{"imageLeft": "a.png", "imageRight": "a-1.png", "differences": [
			{"x": 806, "y": 10, "radius": 35}, {"x": 1, "y": 1}, {"x": 2, "y": 2},
			{"x": 3, "y": 3}, {"x": 4, "y": 4, "radiusX": -1, "radiusY": 3}
		]}
	]`
	levels, err := ValidateLevels(strings.NewReader(body))
	if len(levels) != 1 {
		t.Fatalf("Expected the level to be returned, got %d", len(levels))
	}
	if !errors.Is(err, game.ErrInvalidLevel) {
		t.Fatalf("Expected ErrInvalidLevel, got %v", err)
	}
	if msg := err.Error(); !strings.Contains(msg, "level 1") || strings.Count(msg, "\n") != 1 {
		t.Errorf("Expected 2 problems in level 1, got:\n%s", msg)
	}

	if _, err := ValidateLevels(strings.NewReader("[]")); err == nil {
		t.Errorf("Expected an error for an empty file")
	}
}

func TestLoadImage(t *testing.T) {
	_, right := testPair()
	path := filepath.Join(t.TempDir(), "right.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, right); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 400 {
		t.Errorf("Unexpected size %v", img.Bounds())
	}
	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}
