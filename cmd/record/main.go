// Command record captures a line-protocol feed from stdin (or a file)
// into rotating binary recordings.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yanun0323/logs"

	"main/internal/core"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
)

func main() {
	if err := run(); err != nil {
		log.Printf("record: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "path to JSON config (optional)")
	inputFlag := flag.String("input", "", "line-protocol input file; stdin when empty")
	dirFlag := flag.String("dir", "", "recording directory override")
	flag.Parse()

	cfg, err := ops.Load(*configFlag)
	if err != nil {
		return err
	}
	if *dirFlag != "" {
		cfg.Recorder.Dir = *dirFlag
	}

	var input io.Reader = os.Stdin
	if *inputFlag != "" {
		f, err := os.Open(*inputFlag)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := obs.NewMetrics()
	w, err := recorder.NewWriter(cfg.Recorder, metrics)
	if err != nil {
		return err
	}

	p := core.NewPipeline(core.Options{
		QueueCapacity: cfg.QueueCapacity,
		Instrument:    cfg.Instrument,
		Recorder:      w,
		Metrics:       metrics,
	})
	logs.Infof("record: %s -> %s", cfg.Symbol, cfg.Recorder.Dir)
	if err := p.Run(ctx, input); err != nil {
		return err
	}

	snap := metrics.Snapshot()
	logs.Infof("record: done, frames=%d parseErrors=%d queueDrops=%d recorderDrops=%d",
		snap.FramesWritten, snap.ParseErrors, snap.QueueDrops, snap.RecorderDrops)
	return nil
}
