// Package sim executes quoting decisions against the live tape without
// touching an exchange: passive quotes rest until a print trades
// through them, taker entries fill at their price immediately, and the
// resulting position and PnL are tracked in fixed point.
package sim

import (
	"main/internal/model"
	"main/internal/quoter"
)

// Fill is one simulated execution.
type Fill struct {
	TsNano   int64
	Side     model.Side
	Price    model.Price
	Quantity model.Quantity
	Maker    bool
	Reason   string
}

type restingOrder struct {
	price    model.Price
	quantity model.Quantity
	reason   string
}

// Simulator holds at most one resting order per side plus the running
// position. It is owned by the consumer thread; no locking.
type Simulator struct {
	bid *restingOrder
	ask *restingOrder

	position int64 // signed quantity, E8
	avgEntry model.Price
	realized int64 // notional, E8

	onFill func(Fill)
}

// New builds a simulator. onFill may be nil.
func New(onFill func(Fill)) *Simulator {
	return &Simulator{onFill: onFill}
}

// Apply replaces the resting quotes with the decision's. Repricing is
// cancel and replace; an absent side cancels that quote. A taker
// decision fills at its price immediately.
func (s *Simulator) Apply(d quoter.Decision, tsNano int64) {
	switch d.Action {
	case quoter.ActionQuote:
		s.bid = nil
		s.ask = nil
		if d.Bid > 0 && d.BidQty > 0 {
			s.bid = &restingOrder{price: d.Bid, quantity: d.BidQty, reason: d.Reason}
		}
		if d.Ask > 0 && d.AskQty > 0 {
			s.ask = &restingOrder{price: d.Ask, quantity: d.AskQty, reason: d.Reason}
		}
	case quoter.ActionTake:
		s.bid = nil
		s.ask = nil
		if d.TakerPrice > 0 && d.TakerQty > 0 {
			s.execute(d.TakerSide, d.TakerPrice, d.TakerQty, false, d.Reason, tsNano)
		}
	default:
		s.bid = nil
		s.ask = nil
	}
}

// OnTrade fills resting quotes the print trades through: a print at or
// below the bid hits it, a print at or above the ask lifts it. Fills
// execute at the quote price for up to the printed quantity.
func (s *Simulator) OnTrade(ev model.MarketEvent) {
	px := ev.Trade.Price
	qty := ev.Trade.Quantity
	if px <= 0 || qty <= 0 {
		return
	}

	if s.bid != nil && px <= s.bid.price {
		filled := s.bid.quantity
		if qty < filled {
			filled = qty
		}
		s.bid.quantity -= filled
		reason := s.bid.reason
		price := s.bid.price
		if s.bid.quantity == 0 {
			s.bid = nil
		}
		s.execute(model.SideBuy, price, filled, true, reason, ev.EventTsNano)
	}
	if s.ask != nil && px >= s.ask.price {
		filled := s.ask.quantity
		if qty < filled {
			filled = qty
		}
		s.ask.quantity -= filled
		reason := s.ask.reason
		price := s.ask.price
		if s.ask.quantity == 0 {
			s.ask = nil
		}
		s.execute(model.SideSell, price, filled, true, reason, ev.EventTsNano)
	}
}

// execute applies one fill to the position. Closing against an
// opposite position realizes PnL; overfilling flips the position and
// re-bases the entry at the fill price.
func (s *Simulator) execute(side model.Side, px model.Price, qty model.Quantity, maker bool, reason string, tsNano int64) {
	signed := int64(qty)
	if side == model.SideSell {
		signed = -signed
	}

	switch {
	case s.position == 0 || sameSign(s.position, signed):
		total := abs64(s.position) + int64(qty)
		weighted := model.MulDiv(int64(s.avgEntry), abs64(s.position), model.E8) +
			model.MulDiv(int64(px), int64(qty), model.E8)
		if total > 0 {
			s.avgEntry = model.Price(model.MulDiv(weighted, model.E8, total))
		}
		s.position += signed
	default:
		closed := int64(qty)
		if open := abs64(s.position); closed > open {
			closed = open
		}
		if s.position > 0 {
			// Selling out of a long.
			s.realized += model.MulDiv(int64(px)-int64(s.avgEntry), closed, model.E8)
		} else {
			// Buying back a short.
			s.realized += model.MulDiv(int64(s.avgEntry)-int64(px), closed, model.E8)
		}
		s.position += signed
		if s.position == 0 {
			s.avgEntry = 0
		} else if !sameSign(s.position-signed, s.position) {
			// Flipped through flat: the residual opens at this fill.
			s.avgEntry = px
		}
	}

	if s.onFill != nil {
		s.onFill(Fill{
			TsNano:   tsNano,
			Side:     side,
			Price:    px,
			Quantity: qty,
			Maker:    maker,
			Reason:   reason,
		})
	}
}

// Position is the signed open quantity (E8).
func (s *Simulator) Position() int64 { return s.position }

// AvgEntry is the volume-weighted entry price of the open position.
func (s *Simulator) AvgEntry() model.Price { return s.avgEntry }

// RealizedPnL is the cumulative realized notional (E8).
func (s *Simulator) RealizedPnL() int64 { return s.realized }

// UnrealizedPnL marks the open position at the given price.
func (s *Simulator) UnrealizedPnL(mark model.Price) int64 {
	if s.position == 0 || mark <= 0 {
		return 0
	}
	if s.position > 0 {
		return model.MulDiv(int64(mark)-int64(s.avgEntry), s.position, model.E8)
	}
	return model.MulDiv(int64(s.avgEntry)-int64(mark), -s.position, model.E8)
}

// RestingBid reports the current passive bid, if any.
func (s *Simulator) RestingBid() (model.Price, model.Quantity, bool) {
	if s.bid == nil {
		return 0, 0, false
	}
	return s.bid.price, s.bid.quantity, true
}

// RestingAsk reports the current passive ask, if any.
func (s *Simulator) RestingAsk() (model.Price, model.Quantity, bool) {
	if s.ask == nil {
		return 0, 0, false
	}
	return s.ask.price, s.ask.quantity, true
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
