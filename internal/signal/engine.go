// Package signal derives flow statistics from the recent trade tape:
// velocity, signed order-flow toxicity, liquidity regime, and trapped
// positioning.
package signal

import (
	"time"

	"main/internal/book"
	"main/internal/model"
)

// Regime classifies the current liquidity state of the book.
type Regime int

const (
	// RegimeNormal is the default two-sided state.
	RegimeNormal Regime = iota
	// RegimeVacuum means one side has nearly no resting liquidity and
	// price can travel through it with little resistance.
	RegimeVacuum
	// RegimeAbsorption means a large passive wall sits at the touch and
	// is eating incoming flow.
	RegimeAbsorption
)

func (r Regime) String() string {
	switch r {
	case RegimeVacuum:
		return "VACUUM"
	case RegimeAbsorption:
		return "ABSORPTION"
	default:
		return "NORMAL"
	}
}

// Config bounds the trade window and sets the regime thresholds. All
// E8 values carry the fixed-point scale of the model package.
type Config struct {
	// WindowSize is the number of trades kept in the rolling window.
	WindowSize int
	// MaxLatency is the feed staleness bound. An event arriving later
	// than this after its exchange timestamp marks the feed stale; the
	// next on-time event clears it.
	MaxLatency time.Duration

	// VacuumThreshold is the summed top-of-book quantity (E8) below
	// which a side counts as evaporated.
	VacuumThreshold int64
	// WallThreshold is the single-level quantity (E8) above which the
	// touch counts as an absorbing wall.
	WallThreshold int64

	// TrapMinTrades is the minimum window population before trap
	// detection runs.
	TrapMinTrades int
	// TrapToxicity is the |VPIN| margin (E8) that marks one-sided flow.
	TrapToxicity int64
	// TrapPriceMargin is the distance (E8) the last price must sit from
	// the window extreme for the flow to count as stalled.
	TrapPriceMargin int64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		WindowSize:      1000,
		MaxLatency:      500 * time.Millisecond,
		VacuumThreshold: 50_000_000,
		WallThreshold:   500_000_000,
		TrapMinTrades:   50,
		TrapToxicity:    30_000_000,
		TrapPriceMargin: 50_000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WindowSize <= 0 {
		c.WindowSize = def.WindowSize
	}
	if c.MaxLatency <= 0 {
		c.MaxLatency = def.MaxLatency
	}
	if c.VacuumThreshold <= 0 {
		c.VacuumThreshold = def.VacuumThreshold
	}
	if c.WallThreshold <= 0 {
		c.WallThreshold = def.WallThreshold
	}
	if c.TrapMinTrades <= 0 {
		c.TrapMinTrades = def.TrapMinTrades
	}
	if c.TrapToxicity <= 0 {
		c.TrapToxicity = def.TrapToxicity
	}
	if c.TrapPriceMargin <= 0 {
		c.TrapPriceMargin = def.TrapPriceMargin
	}
	return c
}

type tradeRecord struct {
	tsNano   int64
	price    model.Price
	quantity model.Quantity
	side     model.Side
}

// Engine keeps the rolling trade window and the running volume sums.
// It is owned by the consumer thread; no locking.
type Engine struct {
	cfg Config

	window []tradeRecord
	head   int
	count  int

	buyVolume  int64
	sellVolume int64

	lastLatency time.Duration
	stale       bool
}

// NewEngine builds a signal engine; zero config fields take defaults.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:    cfg,
		window: make([]tradeRecord, cfg.WindowSize),
	}
}

// OnTrade admits one trade print to the window, evicting the oldest
// record when full. The buy/sell volume sums are maintained
// incrementally so VPIN stays O(1).
func (e *Engine) OnTrade(ev model.MarketEvent) {
	e.observe(ev)

	rec := tradeRecord{
		tsNano:   ev.EventTsNano,
		price:    ev.Trade.Price,
		quantity: ev.Trade.Quantity,
		side:     ev.Trade.Aggressor,
	}

	if e.count == len(e.window) {
		old := e.window[e.head]
		e.subVolume(old)
		e.window[e.head] = rec
		e.head = (e.head + 1) % len(e.window)
	} else {
		e.window[(e.head+e.count)%len(e.window)] = rec
		e.count++
	}
	e.addVolume(rec)
}

// OnEvent tracks feed liveness for non-trade events.
func (e *Engine) OnEvent(ev model.MarketEvent) {
	e.observe(ev)
}

// observe refreshes the latency guard. The flag follows every event:
// one on-time event clears a previously stale feed.
func (e *Engine) observe(ev model.MarketEvent) {
	if ev.RecvTsNano <= 0 || ev.EventTsNano <= 0 {
		return
	}
	e.lastLatency = time.Duration(ev.RecvTsNano - ev.EventTsNano)
	e.stale = e.lastLatency > e.cfg.MaxLatency
}

func (e *Engine) addVolume(rec tradeRecord) {
	switch rec.side {
	case model.SideBuy:
		e.buyVolume += int64(rec.quantity)
	case model.SideSell:
		e.sellVolume += int64(rec.quantity)
	}
}

func (e *Engine) subVolume(rec tradeRecord) {
	switch rec.side {
	case model.SideBuy:
		e.buyVolume -= int64(rec.quantity)
	case model.SideSell:
		e.sellVolume -= int64(rec.quantity)
	}
}

// Stale reports whether the last event arrived beyond the latency
// bound. The flag gates all trading decisions.
func (e *Engine) Stale() bool {
	return e.stale
}

// Latency is the feed latency of the last observed event.
func (e *Engine) Latency() time.Duration {
	return e.lastLatency
}

// TradeVelocity is the window's trade arrival rate in prints per
// second. Returns 0 with fewer than two records or a non-positive
// span.
func (e *Engine) TradeVelocity() float64 {
	if e.count < 2 {
		return 0
	}
	first := e.window[e.head]
	last := e.window[(e.head+e.count-1)%len(e.window)]
	span := last.tsNano - first.tsNano
	if span <= 0 {
		return 0
	}
	return float64(e.count) / (float64(span) / float64(time.Second))
}

// VPIN is the signed volume imbalance of the window,
// (buy-sell)/(buy+sell), scaled to E8. Positive means aggressive
// buying dominates. Returns 0 on an empty window.
func (e *Engine) VPIN() int64 {
	total := e.buyVolume + e.sellVolume
	if total == 0 {
		return 0
	}
	return model.MulDiv(e.buyVolume-e.sellVolume, model.E8, total)
}

// Regime classifies the book's liquidity state. A stale feed forces
// Normal as a safety override. Vacuum outranks absorption: an
// evaporated side matters more than a wall on the other. An empty or
// zero-quantity book is the extreme vacuum; the quoter stays inert on
// it anyway through its micro-price gate.
func (e *Engine) Regime(b *book.Book) Regime {
	if e.stale {
		return RegimeNormal
	}
	bidVol, askVol := b.TopLiquidity()
	if bidVol < e.cfg.VacuumThreshold || askVol < e.cfg.VacuumThreshold {
		return RegimeVacuum
	}
	if bid, ok := b.BestBid(); ok && int64(bid.Quantity) > e.cfg.WallThreshold {
		return RegimeAbsorption
	}
	if ask, ok := b.BestAsk(); ok && int64(ask.Quantity) > e.cfg.WallThreshold {
		return RegimeAbsorption
	}
	return RegimeNormal
}

// TrapSignal detects one-sided aggression that failed to move price.
// +1 is a bull trap: buy-heavy flow while the last price stalls
// measurably below the window high, a sell bias. -1 is a bear trap:
// sell-heavy flow while the last price holds measurably above the
// window low, a buy bias. 0 otherwise or when the window is too small.
func (e *Engine) TrapSignal() int {
	if e.count < e.cfg.TrapMinTrades {
		return 0
	}
	vpin := e.VPIN()
	minPx, maxPx := e.priceRange()
	last := e.window[(e.head+e.count-1)%len(e.window)].price

	if vpin > e.cfg.TrapToxicity && int64(maxPx-last) > e.cfg.TrapPriceMargin {
		return 1
	}
	if vpin < -e.cfg.TrapToxicity && int64(last-minPx) > e.cfg.TrapPriceMargin {
		return -1
	}
	return 0
}

func (e *Engine) priceRange() (minPx, maxPx model.Price) {
	if e.count == 0 {
		return 0, 0
	}
	minPx = e.window[e.head].price
	maxPx = minPx
	for i := 1; i < e.count; i++ {
		px := e.window[(e.head+i)%len(e.window)].price
		if px < minPx {
			minPx = px
		}
		if px > maxPx {
			maxPx = px
		}
	}
	return minPx, maxPx
}

// WindowCount reports the current window population.
func (e *Engine) WindowCount() int { return e.count }
