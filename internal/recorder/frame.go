package recorder

import (
	"encoding/binary"

	"github.com/yanun0323/errors"

	"main/internal/model"
)

// Frame layout: [type:1][instrument:1][payload]. No delimiter and no
// length prefix; the type tag fixes the payload size, so a reader
// resynchronizes by knowing the sizes below.
const (
	frameHeaderSize = 2

	tradePayloadSize       = 8 + 8 + 8 + 1
	depthPayloadSize       = 8 + 4*model.DepthLevels*8
	liquidationPayloadSize = 8 + 8 + 8 + 1
	tickerPayloadSize      = 8 + 8 + 8 + 8

	maxFrameSize = frameHeaderSize + depthPayloadSize
)

var ErrUnknownFrameType = errors.New("recorder: unknown frame type")

func payloadSize(kind model.Kind) (int, bool) {
	switch kind {
	case model.KindTrade:
		return tradePayloadSize, true
	case model.KindDepth:
		return depthPayloadSize, true
	case model.KindLiquidation:
		return liquidationPayloadSize, true
	case model.KindTicker:
		return tickerPayloadSize, true
	default:
		return 0, false
	}
}

func sideByte(s model.Side) byte {
	switch s {
	case model.SideBuy:
		return 'B'
	case model.SideSell:
		return 'S'
	default:
		return 0
	}
}

func sideFromByte(b byte) model.Side {
	switch b {
	case 'B':
		return model.SideBuy
	case 'S':
		return model.SideSell
	default:
		return model.SideUnknown
	}
}

// encodeFrame packs an event into dst and returns the frame length.
// dst must hold maxFrameSize bytes.
func encodeFrame(dst []byte, ev model.MarketEvent) (int, bool) {
	size, ok := payloadSize(ev.Kind)
	if !ok {
		return 0, false
	}
	dst[0] = byte(ev.Kind)
	dst[1] = ev.Instrument
	p := dst[frameHeaderSize:]
	binary.LittleEndian.PutUint64(p[0:8], uint64(ev.EventTsNano))

	switch ev.Kind {
	case model.KindTrade:
		binary.LittleEndian.PutUint64(p[8:16], uint64(ev.Trade.Price))
		binary.LittleEndian.PutUint64(p[16:24], uint64(ev.Trade.Quantity))
		p[24] = sideByte(ev.Trade.Aggressor)
	case model.KindDepth:
		off := 8
		off = putLevelPrices(p, off, &ev.Depth.Bids)
		off = putLevelQuantities(p, off, &ev.Depth.Bids)
		off = putLevelPrices(p, off, &ev.Depth.Asks)
		putLevelQuantities(p, off, &ev.Depth.Asks)
	case model.KindLiquidation:
		binary.LittleEndian.PutUint64(p[8:16], uint64(ev.Liquidation.Price))
		binary.LittleEndian.PutUint64(p[16:24], uint64(ev.Liquidation.Quantity))
		p[24] = sideByte(ev.Liquidation.Side)
	case model.KindTicker:
		binary.LittleEndian.PutUint64(p[8:16], uint64(ev.Ticker.OpenInterest))
		binary.LittleEndian.PutUint64(p[16:24], uint64(ev.Ticker.FundingRate))
		binary.LittleEndian.PutUint64(p[24:32], uint64(ev.Ticker.MarkPrice))
	}
	return frameHeaderSize + size, true
}

// decodePayload fills ev from a payload slice whose length already
// matches the tag's fixed size.
func decodePayload(ev *model.MarketEvent, p []byte) {
	ev.EventTsNano = int64(binary.LittleEndian.Uint64(p[0:8]))

	switch ev.Kind {
	case model.KindTrade:
		ev.Trade.Price = model.Price(binary.LittleEndian.Uint64(p[8:16]))
		ev.Trade.Quantity = model.Quantity(binary.LittleEndian.Uint64(p[16:24]))
		ev.Trade.Aggressor = sideFromByte(p[24])
	case model.KindDepth:
		off := 8
		off = getLevelPrices(p, off, &ev.Depth.Bids)
		off = getLevelQuantities(p, off, &ev.Depth.Bids)
		off = getLevelPrices(p, off, &ev.Depth.Asks)
		getLevelQuantities(p, off, &ev.Depth.Asks)
		ev.Depth.BidsLength = residentLevels(&ev.Depth.Bids)
		ev.Depth.AsksLength = residentLevels(&ev.Depth.Asks)
	case model.KindLiquidation:
		ev.Liquidation.Price = model.Price(binary.LittleEndian.Uint64(p[8:16]))
		ev.Liquidation.Quantity = model.Quantity(binary.LittleEndian.Uint64(p[16:24]))
		ev.Liquidation.Side = sideFromByte(p[24])
	case model.KindTicker:
		ev.Ticker.OpenInterest = int64(binary.LittleEndian.Uint64(p[8:16]))
		ev.Ticker.FundingRate = int64(binary.LittleEndian.Uint64(p[16:24]))
		ev.Ticker.MarkPrice = model.Price(binary.LittleEndian.Uint64(p[24:32]))
	}
}

func putLevelPrices(p []byte, off int, levels *[model.DepthLevels]model.Level) int {
	for i := range levels {
		binary.LittleEndian.PutUint64(p[off:off+8], uint64(levels[i].Price))
		off += 8
	}
	return off
}

func putLevelQuantities(p []byte, off int, levels *[model.DepthLevels]model.Level) int {
	for i := range levels {
		binary.LittleEndian.PutUint64(p[off:off+8], uint64(levels[i].Quantity))
		off += 8
	}
	return off
}

func getLevelPrices(p []byte, off int, levels *[model.DepthLevels]model.Level) int {
	for i := range levels {
		levels[i].Price = model.Price(binary.LittleEndian.Uint64(p[off : off+8]))
		off += 8
	}
	return off
}

func getLevelQuantities(p []byte, off int, levels *[model.DepthLevels]model.Level) int {
	for i := range levels {
		levels[i].Quantity = model.Quantity(binary.LittleEndian.Uint64(p[off : off+8]))
		off += 8
	}
	return off
}

// residentLevels counts leading non-empty levels; the wire format pads
// unused slots with zeros.
func residentLevels(levels *[model.DepthLevels]model.Level) int {
	for i := range levels {
		if levels[i].Price == 0 && levels[i].Quantity == 0 {
			return i
		}
	}
	return len(levels)
}
