// Command replay converts binary recordings back into the line
// protocol on stdout, optionally pacing output to the recorded
// inter-event gaps so downstream consumers see realistic timing.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"main/internal/model"
	"main/internal/recorder"
)

func main() {
	if err := run(); err != nil {
		log.Printf("replay: %v", err)
		os.Exit(1)
	}
}

func run() error {
	symbolFlag := flag.String("symbol", "BTCUSDT", "symbol name for emitted lines")
	speedFlag := flag.Float64("speed", 0, "pace output at this multiple of recorded time; 0 emits at full speed")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		return fmt.Errorf("usage: replay [flags] <recording.bin> [...]")
	}
	sort.Strings(paths)

	out := bufio.NewWriterSize(os.Stdout, 1<<20)
	defer out.Flush()

	var lastTs int64
	for _, path := range paths {
		if err := replayFile(path, *symbolFlag, *speedFlag, &lastTs, out); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func replayFile(path, symbol string, speed float64, lastTs *int64, out *bufio.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := recorder.NewReader(f)
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err == io.ErrUnexpectedEOF {
			// A truncated tail frame is expected when the process was
			// killed mid-write; everything before it is intact.
			return nil
		}
		if err != nil {
			return err
		}

		if speed > 0 && *lastTs > 0 && ev.EventTsNano > *lastTs {
			gap := time.Duration(float64(ev.EventTsNano-*lastTs) / speed)
			out.Flush()
			time.Sleep(gap)
		}
		*lastTs = ev.EventTsNano

		if err := writeLine(out, symbol, ev); err != nil {
			return err
		}
	}
}

func writeLine(out *bufio.Writer, symbol string, ev model.MarketEvent) error {
	ms := strconv.FormatInt(ev.EventTsNano/int64(time.Millisecond), 10)

	var err error
	switch ev.Kind {
	case model.KindTrade:
		side := "BUY"
		if ev.Trade.Aggressor == model.SideSell {
			side = "SELL"
		}
		_, err = fmt.Fprintf(out, "TRADE|%s|%s|%s|%s|%s\n",
			ms, symbol, side, ev.Trade.Price.String(), ev.Trade.Quantity.String())
	case model.KindDepth:
		_, err = fmt.Fprintf(out, "DEPTH|%s|%s|", ms, symbol)
		if err == nil {
			err = writeLevels(out, ev.Depth.Bids[:ev.Depth.BidsLength])
		}
		if err == nil {
			err = out.WriteByte('|')
		}
		if err == nil {
			err = writeLevels(out, ev.Depth.Asks[:ev.Depth.AsksLength])
		}
		if err == nil {
			err = out.WriteByte('\n')
		}
	case model.KindLiquidation:
		side := "Buy"
		if ev.Liquidation.Side == model.SideSell {
			side = "Sell"
		}
		_, err = fmt.Fprintf(out, "LIQ|%s|%s|%s|%s|%s\n",
			ms, symbol, side, ev.Liquidation.Price.String(), ev.Liquidation.Quantity.String())
	case model.KindTicker:
		_, err = fmt.Fprintf(out, "TICKER|%s|%s|%s|%s|%s\n",
			ms, symbol,
			string(model.AppendE8(nil, ev.Ticker.OpenInterest)),
			string(model.AppendE8(nil, ev.Ticker.FundingRate)),
			ev.Ticker.MarkPrice.String())
	}
	return err
}

func writeLevels(out *bufio.Writer, levels []model.Level) error {
	for i, lv := range levels {
		if i > 0 {
			if err := out.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := out.Write(lv.Price.AppendString(nil)); err != nil {
			return err
		}
		if err := out.WriteByte(':'); err != nil {
			return err
		}
		if _, err := out.Write(lv.Quantity.AppendString(nil)); err != nil {
			return err
		}
	}
	return nil
}
