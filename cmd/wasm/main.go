package main

import (
	"flag"
	"os"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"github.com/spicycabbage/spotdiff/internal/frontend"
	"k8s.io/klog/v2"
)

func main() {
	// Initialize klog for WASM, forcing logs to stderr (console)
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	fs.Set("logtostderr", "true")
	klog.SetOutput(os.Stderr)
	klog.Infof("WASM started!")

	// Home, play and store pages.
	frontend.RegisterRoutes()

	// Initialize the global app state manager
	frontend.InitState()

	// When building for WEB (GOOS=js GOARCH=wasm), app.Run() executes the frontend logic
	app.RunWhenOnBrowser()
}
