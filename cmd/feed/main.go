// Command feed streams the bybit public market feed as protocol lines
// on stdout, ready to pipe into record or analyze.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"main/internal/ingest/bybit"
)

func main() {
	if err := run(); err != nil {
		log.Printf("feed: %v", err)
		os.Exit(1)
	}
}

func run() error {
	urlFlag := flag.String("url", "", "websocket endpoint override")
	symbolFlag := flag.String("symbol", "BTCUSDT", "venue symbol")
	reconnectFlag := flag.Duration("reconnect", 3*time.Second, "wait between reconnect attempts")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	feed := bybit.New(bybit.Config{
		URL:           *urlFlag,
		Symbol:        *symbolFlag,
		ReconnectWait: *reconnectFlag,
	}, func(line string) {
		mu.Lock()
		defer mu.Unlock()
		os.Stdout.WriteString(line)
		os.Stdout.WriteString("\n")
	})

	return feed.Run(ctx)
}
