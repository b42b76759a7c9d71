package core

import (
	"time"

	"main/internal/audit"
	"main/internal/book"
	"main/internal/dash"
	"main/internal/heatmap"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/quoter"
	"main/internal/sim"
	"main/internal/signal"
)

// Analyzer fans one event stream out to the book, the signal engine,
// the heatmap and the simulator, and re-quotes on every depth update.
// It is single-threaded by construction: only the pipeline consumer
// calls it.
type Analyzer struct {
	symbol string

	book    *book.Book
	signals *signal.Engine
	quotes  *quoter.Engine
	heat    *heatmap.Map
	fills   *sim.Simulator

	store   *audit.Store
	metrics *obs.Metrics

	lastDecision quoter.Decision
	clock        func() time.Time
}

// NewAnalyzer wires the full decision stack. store may be nil to run
// without an audit trail.
func NewAnalyzer(cfg ops.Loaded, store *audit.Store, metrics *obs.Metrics) *Analyzer {
	a := &Analyzer{
		symbol:  cfg.Symbol,
		book:    book.New(),
		signals: signal.NewEngine(cfg.Signal),
		quotes:  quoter.NewEngine(cfg.Quoter),
		heat:    heatmap.New(cfg.Heatmap),
		store:   store,
		metrics: metrics,
		clock:   time.Now,
	}
	a.fills = sim.New(a.recordFill)
	a.lastDecision = quoter.Decision{Reason: quoter.ReasonWait}
	return a
}

// WithClock overrides the wall clock, for tests.
func (a *Analyzer) WithClock(clock func() time.Time) *Analyzer {
	a.clock = clock
	return a
}

// OnEvent routes one event through the stack.
func (a *Analyzer) OnEvent(ev model.MarketEvent) {
	switch ev.Kind {
	case model.KindTrade:
		a.signals.OnTrade(ev)
		a.heat.OnTrade(ev)
		a.fills.OnTrade(ev)
	case model.KindDepth:
		a.signals.OnEvent(ev)
		a.book.ApplySnapshot(ev.Depth, ev.EventTsNano)
		a.requote()
	case model.KindLiquidation:
		a.signals.OnEvent(ev)
		a.heat.OnLiquidation(ev)
	case model.KindTicker:
		a.signals.OnEvent(ev)
		a.heat.OnTicker(ev)
	}
}

// requote runs the decision engine against the fresh book and applies
// the result to the simulator.
func (a *Analyzer) requote() {
	nowNano := a.clock().UnixNano()
	in := quoter.Inputs{
		Stale:       a.signals.Stale(),
		Regime:      a.signals.Regime(a.book),
		Trap:        a.signals.TrapSignal(),
		Velocity:    a.signals.TradeVelocity(),
		Imbalance:   a.book.Imbalance(),
		InventoryE8: a.fills.Position(),
	}
	a.lastDecision = a.quotes.Decide(a.book, in)
	a.fills.Apply(a.lastDecision, nowNano)
}

func (a *Analyzer) recordFill(f sim.Fill) {
	a.store.RecordFill(f, audit.Context{
		Velocity:    a.signals.TradeVelocity(),
		VPIN:        a.signals.VPIN(),
		RealizedPnL: a.fills.RealizedPnL(),
	})
}

// Decision returns the most recent quoting decision.
func (a *Analyzer) Decision() quoter.Decision { return a.lastDecision }

// Simulator exposes the position tracker.
func (a *Analyzer) Simulator() *sim.Simulator { return a.fills }

// Snapshot assembles the dashboard document.
func (a *Analyzer) Snapshot(nowNano int64) dash.Snapshot {
	s := dash.Snapshot{
		TimestampNS: nowNano,
		Symbol:      a.symbol,
		Regime:      a.signals.Regime(a.book).String(),
		Velocity:    a.signals.TradeVelocity(),
		VPIN:        dash.FormatE8(a.signals.VPIN()),
		Trap:        a.signals.TrapSignal(),
		Stale:       a.signals.Stale(),
		Reason:      a.lastDecision.Reason,
		MicroPrice:  a.book.MicroPrice().String(),
		Position:    dash.FormatE8(a.fills.Position()),
		AvgEntry:    a.fills.AvgEntry().String(),
		RealizedPnL: dash.FormatE8(a.fills.RealizedPnL()),
		Metrics:     a.metrics.Snapshot(),
	}

	if bid, ok := a.book.BestBid(); ok {
		s.BestBid = bid.Price.String()
	}
	if ask, ok := a.book.BestAsk(); ok {
		s.BestAsk = ask.Price.String()
	}

	mark := a.book.MicroPrice()
	oi, funding, tickerMark := a.heat.Telemetry()
	s.OpenInterest = dash.FormatE8(oi)
	s.FundingRate = dash.FormatE8(funding)
	s.MarkPrice = tickerMark.String()
	if tickerMark > 0 {
		mark = tickerMark
	}
	s.UnrealizedPnL = dash.FormatE8(a.fills.UnrealizedPnL(mark))

	if bid, qty, ok := a.fills.RestingBid(); ok {
		s.Bid = &dash.QuoteView{Price: bid.String(), Quantity: qty.String()}
	}
	if ask, qty, ok := a.fills.RestingAsk(); ok {
		s.Ask = &dash.QuoteView{Price: ask.String(), Quantity: qty.String()}
	}

	for _, b := range a.heat.Rank(10) {
		s.Heatmap = append(s.Heatmap, dash.HeatView{
			Price: b.Price.String(),
			Heat:  dash.FormatE8(b.Heat),
			Zone:  b.Zone.String(),
		})
	}
	return s
}
