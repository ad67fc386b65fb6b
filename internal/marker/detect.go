// Package marker proposes the difference regions of a level from its two images, and checks
// authored level files.
package marker

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ernyoke/imger/blur"
	"github.com/ernyoke/imger/grayscale"
	"github.com/ernyoke/imger/padding"
	"github.com/ernyoke/imger/threshold"
	"github.com/spicycabbage/spotdiff/internal/game"
)

// ErrSizeMismatch is returned when the two images of a pair don't have the same size.
var ErrSizeMismatch = errors.New("images have different sizes")

// Options tune the detection.
type Options struct {
	BlurRadius float64 // Gaussian blur applied to both images, to ignore compression noise.
	BlurSigma  float64
	Threshold  uint8   // Minimum gray level difference of a changed pixel.
	MinArea    int     // Blobs with fewer pixels are ignored.
	MaxRegions int     // Largest blobs kept.
	Padding    float64 // Added to the radii, in base space, so clicks near the edge count.

	// EllipseRatio is the axis ratio above which a blob becomes an ellipse instead of a circle.
	EllipseRatio float64
}

// DefaultOptions returns options suited to the 800x800 level images.
func DefaultOptions() Options {
	return Options{
		BlurRadius:   3,
		BlurSigma:    1.5,
		Threshold:    40,
		MinArea:      20,
		MaxRegions:   game.DifferencesPerLevel,
		Padding:      10,
		EllipseRatio: 1.5,
	}
}

// blob is a connected component of changed pixels, with its raw moments.
type blob struct {
	area                int
	sumX, sumY          float64
	sumXX, sumYY, sumXY float64
}

func (b *blob) add(x, y int) {
	fx, fy := float64(x), float64(y)
	b.area++
	b.sumX += fx
	b.sumY += fy
	b.sumXX += fx * fx
	b.sumYY += fy * fy
	b.sumXY += fx * fy
}

// Detect compares the original and the altered image and returns the regions where they
// differ, largest first, in base coordinates.
func Detect(left, right image.Image, opts Options) ([]game.Region, error) {
	if left.Bounds().Size() != right.Bounds().Size() {
		return nil, fmt.Errorf("%w: %v and %v", ErrSizeMismatch, left.Bounds().Size(), right.Bounds().Size())
	}
	mask, err := differenceMask(left, right, opts)
	if err != nil {
		return nil, err
	}
	blobs := components(mask, opts.MinArea)
	sort.SliceStable(blobs, func(i, j int) bool { return blobs[i].area > blobs[j].area })
	if opts.MaxRegions > 0 && len(blobs) > opts.MaxRegions {
		blobs = blobs[:opts.MaxRegions]
	}

	size := mask.Bounds().Size()
	sx := float64(game.BaseWidth) / float64(size.X)
	sy := float64(game.BaseHeight) / float64(size.Y)
	regions := make([]game.Region, len(blobs))
	for i, b := range blobs {
		regions[i] = b.region(sx, sy, opts)
	}
	return regions, nil
}

// differenceMask returns the thresholded absolute difference of the blurred gray images.
func differenceMask(left, right image.Image, opts Options) (*image.Gray, error) {
	blurred := make([]*image.Gray, 2)
	for i, img := range []image.Image{left, right} {
		gray := grayscale.Grayscale(img)
		if opts.BlurRadius > 0 {
			var err error
			gray, err = blur.GaussianBlurGray(gray, opts.BlurRadius, opts.BlurSigma, padding.BorderConstant)
			if err != nil {
				return nil, fmt.Errorf("failed to blur image: %w", err)
			}
		}
		blurred[i] = gray
	}

	a, b := blurred[0], blurred[1]
	bounds := a.Bounds()
	diff := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			va := int(a.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			vb := int(b.GrayAt(b.Bounds().Min.X+x, b.Bounds().Min.Y+y).Y)
			d := va - vb
			if d < 0 {
				d = -d
			}
			diff.Pix[y*diff.Stride+x] = uint8(d)
		}
	}
	mask, err := threshold.Threshold(diff, opts.Threshold, threshold.ThreshBinary)
	if err != nil {
		return nil, fmt.Errorf("failed to threshold the difference: %w", err)
	}
	return mask, nil
}

// components labels the 8-connected sets of non-zero pixels of mask.
func components(mask *image.Gray, minArea int) []*blob {
	w, h := mask.Bounds().Dx(), mask.Bounds().Dy()
	seen := make([]bool, w*h)
	var blobs []*blob
	var stack []int
	for start := range seen {
		if seen[start] || mask.Pix[(start/w)*mask.Stride+start%w] == 0 {
			continue
		}
		b := &blob{}
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := p%w, p/w
			b.add(x, y)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					q := ny*w + nx
					if !seen[q] && mask.Pix[ny*mask.Stride+nx] != 0 {
						seen[q] = true
						stack = append(stack, q)
					}
				}
			}
		}
		if b.area >= minArea {
			blobs = append(blobs, b)
		}
	}
	return blobs
}

// region fits a circle or an ellipse to the blob. The semi-axes of a uniform ellipse are
// twice the standard deviations along its principal axes.
func (b *blob) region(sx, sy float64, opts Options) game.Region {
	n := float64(b.area)
	cx, cy := b.sumX/n, b.sumY/n
	varX := b.sumXX/n - cx*cx
	varY := b.sumYY/n - cy*cy
	cov := b.sumXY/n - cx*cy

	// Moments in base space.
	varX, varY, cov = varX*sx*sx, varY*sy*sy, cov*sx*sy
	center := game.Point{X: math.Round((cx + 0.5) * sx), Y: math.Round((cy + 0.5) * sy)}

	mean := (varX + varY) / 2
	delta := math.Sqrt(((varX-varY)/2)*((varX-varY)/2) + cov*cov)
	major := 2*math.Sqrt(math.Max(mean+delta, 0)) + opts.Padding
	minor := 2*math.Sqrt(math.Max(mean-delta, 0)) + opts.Padding

	if opts.EllipseRatio <= 0 || major < opts.EllipseRatio*minor {
		return game.NewCircle(center.X, center.Y, math.Ceil(major))
	}
	rotation := 0.5 * math.Atan2(2*cov, varX-varY) * 180 / math.Pi
	return game.NewEllipse(center.X, center.Y, math.Ceil(major), math.Ceil(minor), math.Round(rotation))
}
