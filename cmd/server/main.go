package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spicycabbage/spotdiff/internal/config"
	"github.com/spicycabbage/spotdiff/internal/server"
	"k8s.io/klog/v2"
)

var (
	flagConfig = flag.String("config", "", "Optional YAML configuration file")
	flagAddr   = flag.String("addr", "", "Address to listen on (default: auto-port on localhost)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		klog.Fatalf("Failed to load configuration: %v", err)
	}
	if *flagAddr != "" {
		cfg.Server.Addr = *flagAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := make(chan *server.ServerState, 1)
	go func() {
		state := <-started
		fmt.Printf("Spot the Difference server listening on http://%s\n", state.Address)
	}()

	if err := server.Run(ctx, cfg, started); err != nil {
		klog.Fatalf("Server failed: %v", err)
	}
}
