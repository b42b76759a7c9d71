// Package ingest turns the pipe-delimited upstream protocol into market
// events. Malformed lines are skipped, never fatal.
//
// Line formats:
//
//	TRADE|<ts_ms>|<symbol>|<BUY|SELL>|<price>|<qty>
//	DEPTH|<ts_ms>|<symbol>|<bid1:qty1,...>|<ask1:qty1,...>
//	LIQ|<ts_ms>|<symbol>|<Buy|Sell>|<price>|<qty>
//	TICKER|<ts_ms>|<symbol>|<open_interest>|<funding_rate>|<mark_price>
package ingest

import (
	"strconv"
	"strings"
	"time"

	"main/internal/model"
)

const msToNano = int64(time.Millisecond)

// Parser converts protocol lines for a single instrument.
type Parser struct {
	instrument uint8
	clock      func() time.Time
}

// NewParser creates a parser stamping events with the given instrument id.
func NewParser(instrument uint8) *Parser {
	return &Parser{
		instrument: instrument,
		clock:      time.Now,
	}
}

// WithClock overrides the local-arrival clock. Test hook.
func (p *Parser) WithClock(clock func() time.Time) *Parser {
	p.clock = clock
	return p
}

// ParseLine parses one protocol line. ok is false for malformed lines
// and unknown event types.
func (p *Parser) ParseLine(line string) (ev model.MarketEvent, ok bool) {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return ev, false
	}

	tsMs, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ev, false
	}

	ev.Instrument = p.instrument
	ev.EventTsNano = tsMs * msToNano
	ev.RecvTsNano = p.clock().UnixNano()

	switch parts[0] {
	case "TRADE":
		return p.parseTrade(ev, parts)
	case "DEPTH":
		return p.parseDepth(ev, parts)
	case "LIQ":
		return p.parseLiquidation(ev, parts)
	case "TICKER":
		return p.parseTicker(ev, parts)
	default:
		return ev, false
	}
}

func (p *Parser) parseTrade(ev model.MarketEvent, parts []string) (model.MarketEvent, bool) {
	if len(parts) < 6 {
		return ev, false
	}
	side := parseAggressor(parts[3])
	if side == model.SideUnknown {
		return ev, false
	}
	price, err := model.ParseE8(parts[4])
	if err != nil || price <= 0 {
		return ev, false
	}
	qty, err := model.ParseE8(parts[5])
	if err != nil || qty <= 0 {
		return ev, false
	}
	ev.Kind = model.KindTrade
	ev.Trade = model.TradePayload{
		Price:     model.Price(price),
		Quantity:  model.Quantity(qty),
		Aggressor: side,
	}
	return ev, true
}

func (p *Parser) parseDepth(ev model.MarketEvent, parts []string) (model.MarketEvent, bool) {
	if len(parts) < 5 {
		return ev, false
	}
	bidsLen, ok := parseLevels(parts[3], &ev.Depth.Bids)
	if !ok {
		return ev, false
	}
	asksLen, ok := parseLevels(parts[4], &ev.Depth.Asks)
	if !ok {
		return ev, false
	}
	ev.Kind = model.KindDepth
	ev.Depth.BidsLength = bidsLen
	ev.Depth.AsksLength = asksLen
	return ev, true
}

func (p *Parser) parseLiquidation(ev model.MarketEvent, parts []string) (model.MarketEvent, bool) {
	if len(parts) < 6 {
		return ev, false
	}
	var side model.Side
	switch {
	case strings.EqualFold(parts[3], "Buy"):
		side = model.SideBuy
	case strings.EqualFold(parts[3], "Sell"):
		side = model.SideSell
	default:
		return ev, false
	}
	price, err := model.ParseE8(parts[4])
	if err != nil || price <= 0 {
		return ev, false
	}
	qty, err := model.ParseE8(parts[5])
	if err != nil || qty <= 0 {
		return ev, false
	}
	ev.Kind = model.KindLiquidation
	ev.Liquidation = model.LiquidationPayload{
		Price:    model.Price(price),
		Quantity: model.Quantity(qty),
		Side:     side,
	}
	return ev, true
}

func (p *Parser) parseTicker(ev model.MarketEvent, parts []string) (model.MarketEvent, bool) {
	if len(parts) < 6 {
		return ev, false
	}
	oi, err := model.ParseE8(parts[3])
	if err != nil || oi < 0 {
		return ev, false
	}
	// Funding may legitimately be negative.
	funding, err := model.ParseE8(parts[4])
	if err != nil {
		return ev, false
	}
	mark, err := model.ParseE8(parts[5])
	if err != nil || mark <= 0 {
		return ev, false
	}
	ev.Kind = model.KindTicker
	ev.Ticker = model.TickerPayload{
		OpenInterest: oi,
		FundingRate:  funding,
		MarkPrice:    model.Price(mark),
	}
	return ev, true
}

func parseAggressor(s string) model.Side {
	switch s {
	case "BUY":
		return model.SideBuy
	case "SELL":
		return model.SideSell
	default:
		return model.SideUnknown
	}
}

// parseLevels fills up to DepthLevels (price, qty) pairs from
// "px:qty,px:qty,..." text. An empty field yields zero levels. Pairs
// beyond the fixed capacity are dropped. Prices must be positive;
// quantities may be zero but never negative.
func parseLevels(s string, out *[model.DepthLevels]model.Level) (int, bool) {
	if s == "" {
		return 0, true
	}
	n := 0
	for _, pair := range strings.Split(s, ",") {
		if n >= model.DepthLevels {
			break
		}
		colon := strings.IndexByte(pair, ':')
		if colon < 0 {
			return 0, false
		}
		price, err := model.ParseE8(pair[:colon])
		if err != nil || price <= 0 {
			return 0, false
		}
		qty, err := model.ParseE8(pair[colon+1:])
		if err != nil || qty < 0 {
			return 0, false
		}
		out[n] = model.Level{Price: model.Price(price), Quantity: model.Quantity(qty)}
		n++
	}
	return n, true
}
