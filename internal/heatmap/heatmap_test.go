package heatmap

import (
	"testing"

	"main/internal/model"
)

func tradePrint(px model.Price, qty model.Quantity, side model.Side) model.MarketEvent {
	return model.MarketEvent{
		Kind:  model.KindTrade,
		Trade: model.TradePayload{Price: px, Quantity: qty, Aggressor: side},
	}
}

func TestTradeInference(t *testing.T) {
	m := New(Config{})
	const px = 100 * model.E8

	// Sell-aggressed flow implies shorts liquidated 4% above.
	m.OnTrade(tradePrint(px, 2*model.E8, model.SideSell))
	// Buy-aggressed flow implies longs liquidated 4% below.
	m.OnTrade(tradePrint(px, 3*model.E8, model.SideBuy))

	if m.Size() != 2 {
		t.Fatalf("buckets: got %d want 2", m.Size())
	}

	ranked := m.Rank(2)
	if len(ranked) != 2 {
		t.Fatalf("rank: got %d buckets", len(ranked))
	}
	// 104.00 and 96.00, bucketed on the 0.001 grid.
	if ranked[0].Price != 96*model.E8 || ranked[0].Heat != 3*model.E8 || ranked[0].Zone != ZoneBelow {
		t.Fatalf("hottest bucket: got %+v", ranked[0])
	}
	if ranked[1].Price != 104*model.E8 || ranked[1].Heat != 2*model.E8 || ranked[1].Zone != ZoneAbove {
		t.Fatalf("second bucket: got %+v", ranked[1])
	}
}

func TestLiquidationConfirmationOutweighsInference(t *testing.T) {
	m := New(Config{})
	const px = 100 * model.E8

	m.OnTrade(tradePrint(px, 9*model.E8, model.SideSell))
	m.OnLiquidation(model.MarketEvent{
		Kind:        model.KindLiquidation,
		Liquidation: model.LiquidationPayload{Price: 96 * model.E8, Quantity: model.E8, Side: model.SideBuy},
	})

	ranked := m.Rank(1)
	// One confirmed unit at x10 beats nine inferred units.
	if ranked[0].Price != 96*model.E8 || ranked[0].Heat != 10*model.E8 {
		t.Fatalf("confirmed bucket: got %+v", ranked[0])
	}
}

func TestRankDeterministicTieBreak(t *testing.T) {
	m := New(Config{})
	m.OnLiquidation(model.MarketEvent{
		Kind:        model.KindLiquidation,
		Liquidation: model.LiquidationPayload{Price: 102 * model.E8, Quantity: model.E8},
	})
	m.OnLiquidation(model.MarketEvent{
		Kind:        model.KindLiquidation,
		Liquidation: model.LiquidationPayload{Price: 98 * model.E8, Quantity: model.E8},
	})

	ranked := m.Rank(2)
	if ranked[0].Price != 98*model.E8 || ranked[1].Price != 102*model.E8 {
		t.Fatalf("tie break must prefer the lower price: %+v", ranked)
	}
}

func TestRankZoneAt(t *testing.T) {
	m := New(Config{})
	m.OnTrade(tradePrint(100*model.E8, model.E8, model.SideBuy))
	m.OnLiquidation(model.MarketEvent{
		Kind:        model.KindLiquidation,
		Liquidation: model.LiquidationPayload{Price: 100 * model.E8, Quantity: model.E8},
	})
	ranked := m.Rank(1)
	if ranked[0].Price != 100*model.E8 || ranked[0].Zone != ZoneAt {
		t.Fatalf("zone: got %+v want AT", ranked[0])
	}
}

func TestRankClassifiesAgainstLastTrade(t *testing.T) {
	m := New(Config{})
	// Buy at 100 puts inferred heat at 96, below the print.
	m.OnTrade(tradePrint(100*model.E8, model.E8, model.SideBuy))
	// Venue telemetry must not move the zone reference.
	m.OnTicker(model.MarketEvent{
		Kind:   model.KindTicker,
		Ticker: model.TickerPayload{MarkPrice: 50 * model.E8},
	})
	// Neither does a degenerate print.
	m.OnTrade(tradePrint(0, model.E8, model.SideBuy))

	if got := m.LastTradePrice(); got != 100*model.E8 {
		t.Fatalf("last trade: got %d", got)
	}
	ranked := m.Rank(1)
	if ranked[0].Price != 96*model.E8 || ranked[0].Zone != ZoneBelow {
		t.Fatalf("bucket below the last trade: got %+v", ranked[0])
	}
}

func TestIgnoresDegenerateEvents(t *testing.T) {
	m := New(Config{})
	m.OnTrade(tradePrint(0, model.E8, model.SideBuy))
	m.OnTrade(tradePrint(100*model.E8, 0, model.SideSell))
	m.OnLiquidation(model.MarketEvent{Kind: model.KindLiquidation})
	if m.Size() != 0 {
		t.Fatalf("degenerate events must not add heat, got %d buckets", m.Size())
	}
	if got := m.Rank(5); got != nil {
		t.Fatalf("empty rank: got %+v", got)
	}
}

func TestTickerTelemetry(t *testing.T) {
	m := New(Config{})
	m.OnTicker(model.MarketEvent{
		Kind:   model.KindTicker,
		Ticker: model.TickerPayload{OpenInterest: 5, FundingRate: -7, MarkPrice: 100 * model.E8},
	})
	oi, funding, mark := m.Telemetry()
	if oi != 5 || funding != -7 || mark != 100*model.E8 {
		t.Fatalf("telemetry: got %d %d %d", oi, funding, mark)
	}
}
