package bybit

import (
	"sort"

	"github.com/shopspring/decimal"
)

type bookLevel struct {
	price string
	qty   string
	key   decimal.Decimal
}

// localBook mirrors the venue's orderbook from snapshot and delta
// updates. A delta with a zero quantity deletes the level. Prices are
// kept as venue strings and compared as decimals, so levels never
// suffer float drift.
type localBook struct {
	bids  map[string]string
	asks  map[string]string
	ready bool
}

func newLocalBook() *localBook {
	return &localBook{
		bids: make(map[string]string),
		asks: make(map[string]string),
	}
}

func (b *localBook) reset() {
	b.bids = make(map[string]string)
	b.asks = make(map[string]string)
	b.ready = false
}

// update applies one set of level changes. The first update after a
// reset marks the book ready; the venue always sends a snapshot first.
func (b *localBook) update(bids, asks [][]string) {
	applyLevels(b.bids, bids)
	applyLevels(b.asks, asks)
	b.ready = true
}

func applyLevels(side map[string]string, levels [][]string) {
	for _, lv := range levels {
		if len(lv) < 2 {
			continue
		}
		px, qty := lv[0], lv[1]
		if isZero(qty) {
			delete(side, px)
			continue
		}
		side[px] = qty
	}
}

func isZero(qty string) bool {
	d, err := decimal.NewFromString(qty)
	if err != nil {
		return true
	}
	return d.IsZero()
}

// top returns up to n levels per side, bids descending and asks
// ascending by price.
func (b *localBook) top(n int) (bids, asks []bookLevel) {
	bids = sortedLevels(b.bids, true)
	asks = sortedLevels(b.asks, false)
	if len(bids) > n {
		bids = bids[:n]
	}
	if len(asks) > n {
		asks = asks[:n]
	}
	return bids, asks
}

func sortedLevels(side map[string]string, desc bool) []bookLevel {
	levels := make([]bookLevel, 0, len(side))
	for px, qty := range side {
		key, err := decimal.NewFromString(px)
		if err != nil {
			continue
		}
		levels = append(levels, bookLevel{price: px, qty: qty, key: key})
	}
	sort.Slice(levels, func(i, j int) bool {
		if desc {
			return levels[i].key.GreaterThan(levels[j].key)
		}
		return levels[i].key.LessThan(levels[j].key)
	})
	return levels
}
