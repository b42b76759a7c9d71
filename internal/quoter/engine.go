// Package quoter turns book state and flow signals into a quoting
// decision: a two-sided passive pair, a one-sided passive quote, a
// taker entry, or nothing.
package quoter

import (
	"main/internal/book"
	"main/internal/model"
	"main/internal/signal"
)

// Action is what the decision asks the execution layer to do.
type Action int

const (
	// ActionNone pulls all quotes and does nothing.
	ActionNone Action = iota
	// ActionQuote places the passive prices carried by the decision.
	ActionQuote
	// ActionTake crosses the spread once at the carried price.
	ActionTake
)

// Decision reasons, written to the audit log verbatim.
const (
	ReasonSafetyGuard      = "SAFETY_LATENCY_GUARD"
	ReasonWait             = "WAIT"
	ReasonRocketSurferBuy  = "ROCKET_SURFER_BUY"
	ReasonRocketSurferSell = "ROCKET_SURFER_SELL"
	ReasonWickCatcherShort = "WICK_CATCHER_SHORT"
	ReasonWickCatcherLong  = "WICK_CATCHER_LONG"
	ReasonRangeMM          = "RANGE_MM"
)

// Decision is one quoting instruction. Zero prices mean the side is
// not quoted.
type Decision struct {
	Action Action
	Reason string

	Bid    model.Price
	BidQty model.Quantity
	Ask    model.Price
	AskQty model.Quantity

	TakerSide  model.Side
	TakerPrice model.Price
	TakerQty   model.Quantity
}

// Inputs is the signal snapshot a decision is made from.
type Inputs struct {
	Stale       bool
	Regime      signal.Regime
	Trap        int
	Velocity    float64
	Imbalance   int64
	InventoryE8 int64
}

// Engine holds the quoting parameters and the vacuum entry latch. It
// is owned by the consumer thread; no locking.
type Engine struct {
	cfg Config

	// vacuumFired keeps a vacuum entry one-shot: once a taker fires
	// the latch stays set until the book leaves the vacuum regime.
	vacuumFired bool
}

// NewEngine builds a quoting engine; zero config fields take defaults.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Decide maps the current book and signals to one instruction.
//
// The state machine leaves plain range quoting only on a fast tape:
// with velocity above the threshold a vacuum regime chases momentum
// with a taker entry, and an absorption regime or a non-zero trap
// fades exhausted flow with a one-sided passive quote. Everything else
// quotes both sides around the inventory-skewed micro price.
func (e *Engine) Decide(b *book.Book, in Inputs) Decision {
	if in.Stale {
		e.vacuumFired = false
		return Decision{Action: ActionNone, Reason: ReasonSafetyGuard}
	}
	micro := b.MicroPrice()
	if micro == 0 {
		e.vacuumFired = false
		return Decision{Action: ActionNone, Reason: ReasonWait}
	}

	if in.Regime != signal.RegimeVacuum {
		e.vacuumFired = false
	}

	if in.Velocity > e.cfg.VelocityThreshold {
		if in.Regime == signal.RegimeVacuum {
			if d, ok := e.decideVacuum(b, in); ok {
				return d
			}
		} else if in.Regime == signal.RegimeAbsorption || in.Trap != 0 {
			if d, ok := e.decideFade(micro, in); ok {
				return d
			}
		}
	}

	return e.decideRange(b, micro, in.InventoryE8)
}

// decideVacuum fires a single taker entry in the direction the book is
// leaning, if the expected move pays for three times the taker fee.
// Without a clear lean, or while the one-shot latch holds, it declines
// and the caller falls back to range quoting.
func (e *Engine) decideVacuum(b *book.Book, in Inputs) (Decision, bool) {
	if e.vacuumFired {
		return Decision{}, false
	}
	if e.cfg.ExpectedVacuumMove <= e.cfg.TakerFee*e.cfg.FeeSafetyMultiple {
		return Decision{}, false
	}

	switch {
	case in.Imbalance > e.cfg.ImbalanceThreshold:
		ask, ok := b.BestAsk()
		if !ok {
			return Decision{}, false
		}
		e.vacuumFired = true
		return Decision{
			Action:     ActionTake,
			Reason:     ReasonRocketSurferBuy,
			TakerSide:  model.SideBuy,
			TakerPrice: ask.Price,
			TakerQty:   model.Quantity(e.cfg.TakerQuantity),
		}, true
	case in.Imbalance < -e.cfg.ImbalanceThreshold:
		bid, ok := b.BestBid()
		if !ok {
			return Decision{}, false
		}
		e.vacuumFired = true
		return Decision{
			Action:     ActionTake,
			Reason:     ReasonRocketSurferSell,
			TakerSide:  model.SideSell,
			TakerPrice: bid.Price,
			TakerQty:   model.Quantity(e.cfg.TakerQuantity),
		}, true
	default:
		return Decision{}, false
	}
}

// decideFade posts a one-sided passive quote against exhausted flow: a
// bull trap (+1) gets faded with an ask above the micro price, a bear
// trap (-1) with a bid below it. Absorption without a trap declines
// and falls back to range quoting.
func (e *Engine) decideFade(micro model.Price, in Inputs) (Decision, bool) {
	switch in.Trap {
	case 1:
		return Decision{
			Action: ActionQuote,
			Reason: ReasonWickCatcherShort,
			Ask:    micro + model.Price(e.cfg.HalfSpread),
			AskQty: model.Quantity(e.cfg.TakerQuantity),
		}, true
	case -1:
		return Decision{
			Action: ActionQuote,
			Reason: ReasonWickCatcherLong,
			Bid:    micro - model.Price(e.cfg.HalfSpread),
			BidQty: model.Quantity(e.cfg.TakerQuantity),
		}, true
	default:
		return Decision{}, false
	}
}

// decideRange quotes both sides around the inventory-skewed micro
// price. A pair that would cross itself is recentered on its own
// midpoint at the fixed half spread; a crossed quote is never emitted.
func (e *Engine) decideRange(b *book.Book, micro model.Price, inventoryE8 int64) Decision {
	skew := model.MulDiv(inventoryE8, e.cfg.RiskAversion, model.E8)
	center := micro - model.Price(skew)

	bidPx := center - model.Price(e.cfg.HalfSpread)
	askPx := center + model.Price(e.cfg.HalfSpread)

	if bidPx >= askPx {
		mid := (bidPx + askPx) / 2
		bidPx = mid - model.Price(e.cfg.HalfSpread)
		askPx = mid + model.Price(e.cfg.HalfSpread)
	}

	return Decision{
		Action: ActionQuote,
		Reason: ReasonRangeMM,
		Bid:    bidPx,
		BidQty: model.Quantity(e.cfg.TakerQuantity),
		Ask:    askPx,
		AskQty: model.Quantity(e.cfg.TakerQuantity),
	}
}
