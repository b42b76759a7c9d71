// Command analyze runs the decision stack over a line-protocol feed:
// book tracking, flow signals, quoting, simulated fills and the
// liquidation heatmap. Recordings are replayed into it with the replay
// command.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/audit"
	"main/internal/core"
	"main/internal/dash"
	"main/internal/obs"
	"main/internal/ops"
)

func main() {
	if err := run(); err != nil {
		log.Printf("analyze: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "path to JSON config (optional)")
	inputFlag := flag.String("input", "", "line-protocol input file; stdin when empty")
	auditFlag := flag.String("audit", "", "sqlite audit db path override")
	dashFlag := flag.String("dashboard", "", "dashboard JSON path override")
	pyroscopeFlag := flag.String("pyroscope", "", "pyroscope server address (optional)")
	flag.Parse()

	cfg, err := ops.Load(*configFlag)
	if err != nil {
		return err
	}
	if *auditFlag != "" {
		cfg.AuditPath = *auditFlag
	}
	if *dashFlag != "" {
		cfg.DashboardPath = *dashFlag
	}

	if *pyroscopeFlag != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "market-analyze",
			ServerAddress:   *pyroscopeFlag,
		})
		if err != nil {
			return err
		}
		defer profiler.Stop()
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

	var store *audit.Store
	if cfg.AuditPath != "" {
		store, err = audit.Open(cfg.AuditPath, cfg.Symbol)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	var dashWriter *dash.Writer
	if cfg.DashboardPath != "" {
		dashWriter = dash.NewWriter(cfg.DashboardPath)
	}

	metrics := obs.NewMetrics()
	analyzer := core.NewAnalyzer(cfg, store, metrics)
	p := core.NewPipeline(core.Options{
		QueueCapacity:   cfg.QueueCapacity,
		Instrument:      cfg.Instrument,
		Analyzer:        analyzer,
		DashboardWriter: dashWriter,
		DashboardFlush:  cfg.DashboardFlush,
		Metrics:         metrics,
	})

	logs.Infof("analyze: %s", cfg.Symbol)
	if err := p.Run(ctx, input); err != nil {
		return err
	}

	s := analyzer.Simulator()
	logs.Infof("analyze: done, position=%s realizedPnL=%s",
		dash.FormatE8(s.Position()), dash.FormatE8(s.RealizedPnL()))
	return nil
}
