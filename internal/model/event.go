package model

// Kind tags the active payload of a MarketEvent. Values double as the
// on-disk frame type tags, so they are stable.
type Kind uint8

const (
	KindUnknown     Kind = 0x00
	KindTrade       Kind = 0x01
	KindDepth       Kind = 0x03
	KindLiquidation Kind = 0x04
	KindTicker      Kind = 0x05
)

func (k Kind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindDepth:
		return "depth"
	case KindLiquidation:
		return "liquidation"
	case KindTicker:
		return "ticker"
	default:
		return "unknown"
	}
}

// Side is the aggressor side of a trade, or the side of a liquidation
// order.
type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// DepthLevels is the fixed per-side capacity of a depth snapshot.
const DepthLevels = 50

// Level is one resting (price, quantity) pair of an order book side.
type Level struct {
	Price    Price
	Quantity Quantity
}

// TradePayload is valid when Kind == KindTrade.
type TradePayload struct {
	Price     Price
	Quantity  Quantity
	Aggressor Side
}

// DepthPayload is valid when Kind == KindDepth. Levels beyond
// BidsLength/AsksLength are zero.
type DepthPayload struct {
	Bids       [DepthLevels]Level
	Asks       [DepthLevels]Level
	BidsLength int
	AsksLength int
}

// LiquidationPayload is valid when Kind == KindLiquidation.
type LiquidationPayload struct {
	Price    Price
	Quantity Quantity
	Side     Side
}

// TickerPayload is valid when Kind == KindTicker. OpenInterest and
// FundingRate are E8 scaled like everything else.
type TickerPayload struct {
	OpenInterest int64
	FundingRate  int64
	MarkPrice    Price
}

// MarketEvent is the tagged variant passed through the queue. Kind
// selects which payload field is valid; the others are zero.
//
// EventTsNano is the exchange timestamp, RecvTsNano the local arrival
// timestamp. Their difference is the feed latency used by the
// staleness guard.
type MarketEvent struct {
	Kind        Kind
	Instrument  uint8
	EventTsNano int64
	RecvTsNano  int64

	Trade       TradePayload
	Depth       DepthPayload
	Liquidation LiquidationPayload
	Ticker      TickerPayload
}
