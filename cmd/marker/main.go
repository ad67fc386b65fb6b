// marker helps authoring levels: "detect" proposes the differences of an image pair and
// "validate" checks a levels file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spicycabbage/spotdiff/internal/game"
	"github.com/spicycabbage/spotdiff/internal/marker"
	"k8s.io/klog/v2"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n  %[1]s detect [flags] <left image> <right image>\n  %[1]s validate <levels.json>\n", filepath.Base(os.Args[0]))
	os.Exit(2)
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()
	defer klog.Flush()
	if flag.NArg() < 1 {
		usage()
	}

	var err error
	switch flag.Arg(0) {
	case "detect":
		err = detect(flag.Args()[1:])
	case "validate":
		err = validate(flag.Args()[1:])
	default:
		usage()
	}
	if err != nil {
		klog.Errorf("%v", err)
		klog.Flush()
		os.Exit(1)
	}
}

func detect(args []string) error {
	opts := marker.DefaultOptions()
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	threshold := fs.Uint("threshold", uint(opts.Threshold), "Minimum gray level difference of a changed pixel")
	fs.Float64Var(&opts.BlurRadius, "blur", opts.BlurRadius, "Gaussian blur radius, 0 to disable")
	fs.IntVar(&opts.MinArea, "min_area", opts.MinArea, "Ignore changed areas with fewer pixels")
	fs.Float64Var(&opts.Padding, "padding", opts.Padding, "Added to the radii, in base pixels")
	urlPrefix := fs.String("url_prefix", "", "Prefix of the image URLs written to the level")
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		usage()
	}
	if *threshold > 255 {
		return fmt.Errorf("threshold %d is above 255", *threshold)
	}
	opts.Threshold = uint8(*threshold)

	leftPath, rightPath := fs.Arg(0), fs.Arg(1)
	left, err := marker.LoadImage(leftPath)
	if err != nil {
		return err
	}
	right, err := marker.LoadImage(rightPath)
	if err != nil {
		return err
	}
	regions, err := marker.Detect(left, right, opts)
	if err != nil {
		return err
	}
	if len(regions) != game.DifferencesPerLevel {
		klog.Warningf("Found %d differences, levels need %d: adjust -threshold or -min_area", len(regions), game.DifferencesPerLevel)
	}
	level := game.Level{
		ImageLeft:   *urlPrefix + filepath.Base(leftPath),
		ImageRight:  *urlPrefix + filepath.Base(rightPath),
		Differences: regions,
	}
	return marker.WriteLevel(os.Stdout, level)
}

func validate(args []string) error {
	if len(args) != 1 {
		usage()
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	levels, err := marker.ValidateLevels(f)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d levels OK\n", args[0], len(levels))
	return nil
}
