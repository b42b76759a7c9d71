// Package heatmap estimates where leveraged positions will be
// liquidated by projecting each trade's entry to the price bands that
// would wipe it out, and confirms bands when liquidations actually
// print inside them.
package heatmap

import (
	"sort"

	"main/internal/model"
)

// Config sets the bucketing and inference parameters. E8 values carry
// the fixed-point scale of the model package.
type Config struct {
	// BucketStep is the price width (E8) of one heat bucket.
	BucketStep int64
	// LiquidationOffset is the assumed distance (E8 fraction of price)
	// from entry to liquidation, one part in E8. 4% is 4_000_000.
	LiquidationOffset int64
	// ConfirmationMultiplier scales the weight of a printed
	// liquidation against inferred flow.
	ConfirmationMultiplier int64
}

// DefaultConfig returns the production heatmap parameters.
func DefaultConfig() Config {
	return Config{
		BucketStep:             100_000,
		LiquidationOffset:      4_000_000,
		ConfirmationMultiplier: 10,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BucketStep <= 0 {
		c.BucketStep = def.BucketStep
	}
	if c.LiquidationOffset <= 0 {
		c.LiquidationOffset = def.LiquidationOffset
	}
	if c.ConfirmationMultiplier <= 0 {
		c.ConfirmationMultiplier = def.ConfirmationMultiplier
	}
	return c
}

// Zone classifies a bucket relative to a reference price.
type Zone int

const (
	ZoneAt Zone = iota
	ZoneAbove
	ZoneBelow
)

func (z Zone) String() string {
	switch z {
	case ZoneAbove:
		return "ABOVE"
	case ZoneBelow:
		return "BELOW"
	default:
		return "AT"
	}
}

// Bucket is one heat band.
type Bucket struct {
	// Price is the bucket's lower bound (E8).
	Price model.Price
	// Heat is the accumulated quantity-weighted score (E8).
	Heat int64
	// Zone is set by Rank relative to the last trade price.
	Zone Zone
}

// Map accumulates liquidation heat per price bucket. It is owned by
// the consumer thread; no locking.
type Map struct {
	cfg Config

	heat      map[model.Price]int64
	lastTrade model.Price

	openInterest int64
	fundingRate  int64
	markPrice    model.Price
}

// New builds an empty heatmap; zero config fields take defaults.
func New(cfg Config) *Map {
	return &Map{
		cfg:  cfg.withDefaults(),
		heat: make(map[model.Price]int64),
	}
}

func (m *Map) bucket(px model.Price) model.Price {
	step := model.Price(m.cfg.BucketStep)
	b := px / step * step
	if px < 0 && px%step != 0 {
		b -= step
	}
	return b
}

// OnTrade projects one print to its implied liquidation bands. A
// sell-aggressed trade opens or feeds shorts whose stops sit above the
// entry; a buy-aggressed trade feeds longs liquidated below it.
func (m *Map) OnTrade(ev model.MarketEvent) {
	px := ev.Trade.Price
	qty := int64(ev.Trade.Quantity)
	if px <= 0 || qty <= 0 {
		return
	}

	m.lastTrade = px

	offset := model.Price(model.MulDiv(int64(px), m.cfg.LiquidationOffset, model.E8))
	switch ev.Trade.Aggressor {
	case model.SideSell:
		m.heat[m.bucket(px+offset)] += qty
	case model.SideBuy:
		m.heat[m.bucket(px-offset)] += qty
	}
}

// OnLiquidation confirms the band a liquidation actually printed in,
// weighting it far above inferred flow.
func (m *Map) OnLiquidation(ev model.MarketEvent) {
	px := ev.Liquidation.Price
	qty := int64(ev.Liquidation.Quantity)
	if px <= 0 || qty <= 0 {
		return
	}
	m.heat[m.bucket(px)] += qty * m.cfg.ConfirmationMultiplier
}

// OnTicker stores the venue telemetry carried alongside the heatmap.
func (m *Map) OnTicker(ev model.MarketEvent) {
	m.openInterest = ev.Ticker.OpenInterest
	m.fundingRate = ev.Ticker.FundingRate
	m.markPrice = ev.Ticker.MarkPrice
}

// Telemetry returns the last observed open interest, funding rate and
// mark price.
func (m *Map) Telemetry() (openInterest, fundingRate int64, markPrice model.Price) {
	return m.openInterest, m.fundingRate, m.markPrice
}

// Rank returns the n hottest buckets, classified relative to the last
// trade price. Ordering is by heat descending with the lower price
// breaking ties, so the ranking is deterministic.
func (m *Map) Rank(n int) []Bucket {
	if n <= 0 || len(m.heat) == 0 {
		return nil
	}
	buckets := make([]Bucket, 0, len(m.heat))
	refBucket := m.bucket(m.lastTrade)
	for px, heat := range m.heat {
		zone := ZoneAt
		switch {
		case px > refBucket:
			zone = ZoneAbove
		case px < refBucket:
			zone = ZoneBelow
		}
		buckets = append(buckets, Bucket{Price: px, Heat: heat, Zone: zone})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Heat != buckets[j].Heat {
			return buckets[i].Heat > buckets[j].Heat
		}
		return buckets[i].Price < buckets[j].Price
	})
	if n > len(buckets) {
		n = len(buckets)
	}
	return buckets[:n]
}

// LastTradePrice is the price of the last admitted trade print, the
// zone reference used by Rank. Zero before the first trade.
func (m *Map) LastTradePrice() model.Price { return m.lastTrade }

// Size reports how many buckets carry heat.
func (m *Map) Size() int { return len(m.heat) }
