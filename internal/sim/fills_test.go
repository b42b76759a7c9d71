package sim

import (
	"testing"

	"main/internal/model"
	"main/internal/quoter"
)

func tradeAt(px model.Price, qty model.Quantity) model.MarketEvent {
	return model.MarketEvent{
		Kind:        model.KindTrade,
		EventTsNano: 1,
		Trade:       model.TradePayload{Price: px, Quantity: qty, Aggressor: model.SideSell},
	}
}

func quotePair(bid, ask model.Price, qty model.Quantity) quoter.Decision {
	return quoter.Decision{
		Action: quoter.ActionQuote,
		Reason: quoter.ReasonRangeMM,
		Bid:    bid, BidQty: qty,
		Ask: ask, AskQty: qty,
	}
}

func TestPassiveBidFill(t *testing.T) {
	var fills []Fill
	s := New(func(f Fill) { fills = append(fills, f) })

	s.Apply(quotePair(100*model.E8, 101*model.E8, model.E8), 1)

	// Print above the bid: nothing happens.
	s.OnTrade(tradeAt(100*model.E8+1, model.E8))
	if len(fills) != 0 {
		t.Fatalf("no fill expected, got %+v", fills)
	}

	// Print through the bid: full fill at the quote price.
	s.OnTrade(tradeAt(100*model.E8-50_000, model.E8))
	if len(fills) != 1 {
		t.Fatalf("fills: got %d want 1", len(fills))
	}
	f := fills[0]
	if f.Side != model.SideBuy || f.Price != 100*model.E8 || f.Quantity != model.E8 || !f.Maker {
		t.Fatalf("fill: got %+v", f)
	}
	if s.Position() != model.E8 || s.AvgEntry() != 100*model.E8 {
		t.Fatalf("position: got %d entry %d", s.Position(), s.AvgEntry())
	}
	if _, _, ok := s.RestingBid(); ok {
		t.Fatal("filled bid must be removed")
	}
}

func TestPartialFillKeepsRemainder(t *testing.T) {
	s := New(nil)
	s.Apply(quotePair(100*model.E8, 101*model.E8, 2*model.E8), 1)

	s.OnTrade(tradeAt(100*model.E8, model.E8/2))
	if s.Position() != model.E8/2 {
		t.Fatalf("position: got %d", s.Position())
	}
	_, qty, ok := s.RestingBid()
	if !ok || qty != 2*model.E8-model.E8/2 {
		t.Fatalf("remainder: got %d ok=%v", qty, ok)
	}
}

func TestRepriceIsCancelReplace(t *testing.T) {
	s := New(nil)
	s.Apply(quotePair(100*model.E8, 101*model.E8, model.E8), 1)
	s.Apply(quotePair(99*model.E8, 102*model.E8, model.E8), 2)

	bid, _, _ := s.RestingBid()
	ask, _, _ := s.RestingAsk()
	if bid != 99*model.E8 || ask != 102*model.E8 {
		t.Fatalf("reprice: got bid %d ask %d", bid, ask)
	}

	// A none decision pulls everything.
	s.Apply(quoter.Decision{Action: quoter.ActionNone, Reason: quoter.ReasonWait}, 3)
	if _, _, ok := s.RestingBid(); ok {
		t.Fatal("bid must be pulled")
	}
	if _, _, ok := s.RestingAsk(); ok {
		t.Fatal("ask must be pulled")
	}
}

func TestTakerFillsImmediately(t *testing.T) {
	var fills []Fill
	s := New(func(f Fill) { fills = append(fills, f) })

	s.Apply(quoter.Decision{
		Action:     quoter.ActionTake,
		Reason:     quoter.ReasonRocketSurferBuy,
		TakerSide:  model.SideBuy,
		TakerPrice: 101 * model.E8,
		TakerQty:   model.E8,
	}, 7)

	if len(fills) != 1 {
		t.Fatalf("fills: got %d want 1", len(fills))
	}
	if fills[0].Maker || fills[0].Reason != quoter.ReasonRocketSurferBuy || fills[0].TsNano != 7 {
		t.Fatalf("taker fill: got %+v", fills[0])
	}
	if s.Position() != model.E8 || s.AvgEntry() != 101*model.E8 {
		t.Fatalf("position: got %d entry %d", s.Position(), s.AvgEntry())
	}
}

func TestRoundTripRealizesPnL(t *testing.T) {
	s := New(nil)
	s.Apply(quotePair(100*model.E8, 101*model.E8, model.E8), 1)

	// Buy 1 @ 100, then sell 1 @ 101: +1.00 realized.
	s.OnTrade(tradeAt(100*model.E8, model.E8))
	s.Apply(quotePair(100*model.E8, 101*model.E8, model.E8), 2)
	s.OnTrade(tradeAt(101*model.E8, model.E8))

	if s.Position() != 0 {
		t.Fatalf("position: got %d want flat", s.Position())
	}
	if s.AvgEntry() != 0 {
		t.Fatalf("entry not reset: %d", s.AvgEntry())
	}
	if s.RealizedPnL() != model.E8 {
		t.Fatalf("realized: got %d want %d", s.RealizedPnL(), model.E8)
	}
}

func TestAveragingAndPartialClose(t *testing.T) {
	s := New(nil)

	take := func(side model.Side, px model.Price, qty model.Quantity) {
		s.Apply(quoter.Decision{
			Action: quoter.ActionTake, Reason: quoter.ReasonRocketSurferBuy,
			TakerSide: side, TakerPrice: px, TakerQty: qty,
		}, 1)
	}

	take(model.SideBuy, 100*model.E8, model.E8)
	take(model.SideBuy, 102*model.E8, model.E8)
	if s.AvgEntry() != 101*model.E8 {
		t.Fatalf("avg entry: got %d want %d", s.AvgEntry(), 101*model.E8)
	}

	// Sell half at 104: realize (104-101)*1 = 3, keep entry.
	take(model.SideSell, 104*model.E8, model.E8)
	if s.Position() != model.E8 || s.AvgEntry() != 101*model.E8 {
		t.Fatalf("after partial close: pos %d entry %d", s.Position(), s.AvgEntry())
	}
	if s.RealizedPnL() != 3*model.E8 {
		t.Fatalf("realized: got %d want %d", s.RealizedPnL(), 3*model.E8)
	}
}

func TestFlipRebasesEntry(t *testing.T) {
	s := New(nil)
	take := func(side model.Side, px model.Price, qty model.Quantity) {
		s.Apply(quoter.Decision{
			Action: quoter.ActionTake, Reason: quoter.ReasonRocketSurferSell,
			TakerSide: side, TakerPrice: px, TakerQty: qty,
		}, 1)
	}

	take(model.SideBuy, 100*model.E8, model.E8)
	// Sell 2 at 103: close 1 long (+3), open 1 short at 103.
	take(model.SideSell, 103*model.E8, 2*model.E8)

	if s.Position() != -model.E8 {
		t.Fatalf("position: got %d want %d", s.Position(), -model.E8)
	}
	if s.AvgEntry() != 103*model.E8 {
		t.Fatalf("entry: got %d want %d", s.AvgEntry(), 103*model.E8)
	}
	if s.RealizedPnL() != 3*model.E8 {
		t.Fatalf("realized: got %d want %d", s.RealizedPnL(), 3*model.E8)
	}
	// Short marked at 101: +2 unrealized.
	if got := s.UnrealizedPnL(101 * model.E8); got != 2*model.E8 {
		t.Fatalf("unrealized: got %d want %d", got, 2*model.E8)
	}
}
