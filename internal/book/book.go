// Package book maintains the latest depth snapshot for one instrument
// and derives the price signals built from it.
package book

import (
	"math/bits"
	"sort"

	"main/internal/model"
)

// Book holds the most recent depth snapshot. It is owned by the
// consumer thread; no locking.
type Book struct {
	bids [model.DepthLevels]model.Level
	asks [model.DepthLevels]model.Level

	bidsLen int
	asksLen int

	lastUpdateNano int64
}

// New returns an empty book.
func New() *Book {
	return &Book{}
}

// ApplySnapshot replaces the book with the levels of a depth event.
// Levels are normalized on the way in: bids descending, asks ascending
// by price, so best-of-book reads are always index zero.
func (b *Book) ApplySnapshot(depth model.DepthPayload, tsNano int64) {
	b.bidsLen = clampLen(depth.BidsLength)
	b.asksLen = clampLen(depth.AsksLength)
	copy(b.bids[:b.bidsLen], depth.Bids[:b.bidsLen])
	copy(b.asks[:b.asksLen], depth.Asks[:b.asksLen])

	sort.SliceStable(b.bids[:b.bidsLen], func(i, j int) bool {
		return b.bids[i].Price > b.bids[j].Price
	})
	sort.SliceStable(b.asks[:b.asksLen], func(i, j int) bool {
		return b.asks[i].Price < b.asks[j].Price
	})
	b.lastUpdateNano = tsNano
}

// Clear empties both sides.
func (b *Book) Clear() {
	b.bidsLen = 0
	b.asksLen = 0
	b.lastUpdateNano = 0
}

func clampLen(n int) int {
	if n < 0 {
		return 0
	}
	if n > model.DepthLevels {
		return model.DepthLevels
	}
	return n
}

// LastUpdateNano reports when the current snapshot was observed, 0 when
// the book is empty.
func (b *Book) LastUpdateNano() int64 { return b.lastUpdateNano }

// BestBid returns the highest bid level.
func (b *Book) BestBid() (model.Level, bool) {
	if b.bidsLen == 0 {
		return model.Level{}, false
	}
	return b.bids[0], true
}

// BestAsk returns the lowest ask level.
func (b *Book) BestAsk() (model.Level, bool) {
	if b.asksLen == 0 {
		return model.Level{}, false
	}
	return b.asks[0], true
}

// Bids returns the resident bid levels, best first.
func (b *Book) Bids() []model.Level { return b.bids[:b.bidsLen] }

// Asks returns the resident ask levels, best first.
func (b *Book) Asks() []model.Level { return b.asks[:b.asksLen] }

// MicroPrice is the size-weighted touch price
//
//	(bidPx*askQty + askPx*bidQty) / (bidQty + askQty)
//
// computed with 128-bit intermediates so large quantities cannot
// overflow. When both touch quantities are zero it falls back to the
// midpoint; when either side is empty it returns 0.
func (b *Book) MicroPrice() model.Price {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return 0
	}
	totalQty := uint64(bid.Quantity) + uint64(ask.Quantity)
	if totalQty == 0 {
		return (bid.Price + ask.Price) / 2
	}

	hi1, lo1 := bits.Mul64(uint64(bid.Price), uint64(ask.Quantity))
	hi2, lo2 := bits.Mul64(uint64(ask.Price), uint64(bid.Quantity))
	lo, carry := bits.Add64(lo1, lo2, 0)
	hi := hi1 + hi2 + carry

	// The quotient lies between the two touch prices, so it fits in
	// int64 and hi < totalQty holds.
	q, _ := bits.Div64(hi, lo, totalQty)
	return model.Price(q)
}

// depthTop is how many levels per side feed the imbalance and the
// liquidity totals used for regime detection.
const depthTop = 5

// Imbalance is the signed ratio (bidVol-askVol)/(bidVol+askVol) over
// the top levels of each side, scaled to E8. Returns 0 on an empty or
// one-sided book with no volume.
func (b *Book) Imbalance() int64 {
	bidVol := sumQuantities(b.Bids(), depthTop)
	askVol := sumQuantities(b.Asks(), depthTop)
	total := bidVol + askVol
	if total == 0 {
		return 0
	}
	diff := bidVol - askVol
	return model.MulDiv(diff, model.E8, total)
}

// TopLiquidity reports the summed quantity of the top levels per side.
func (b *Book) TopLiquidity() (bidVol, askVol int64) {
	return sumQuantities(b.Bids(), depthTop), sumQuantities(b.Asks(), depthTop)
}

func sumQuantities(levels []model.Level, n int) int64 {
	if len(levels) < n {
		n = len(levels)
	}
	var total int64
	for _, lv := range levels[:n] {
		total += int64(lv.Quantity)
	}
	return total
}
