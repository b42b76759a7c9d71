// Package bybit subscribes to the bybit v5 public linear stream and
// re-emits it as the internal line protocol, maintaining the top-50
// book locally from the venue's snapshot/delta feed.
package bybit

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Config selects the venue stream.
type Config struct {
	// URL is the websocket endpoint.
	URL string
	// Symbol is the venue symbol, e.g. BTCUSDT.
	Symbol string
	// ReconnectWait paces reconnect attempts.
	ReconnectWait time.Duration
	// PingInterval keeps the venue connection alive.
	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = "wss://stream.bybit.com/v5/public/linear"
	}
	if c.Symbol == "" {
		c.Symbol = "BTCUSDT"
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 3 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	return c
}

// Feed converts one venue connection into protocol lines.
type Feed struct {
	cfg  Config
	emit func(line string)
	book *localBook

	lastOpenInterest string
	lastFundingRate  string
	lastMarkPrice    string
}

// New builds a feed that passes each protocol line to emit.
func New(cfg Config, emit func(line string)) *Feed {
	return &Feed{
		cfg:  cfg.withDefaults(),
		emit: emit,
		book: newLocalBook(),
	}
}

// Run connects and pumps messages until ctx is cancelled, reconnecting
// on any connection error.
func (f *Feed) Run(ctx context.Context) error {
	for {
		if err := f.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logs.Errorf("bybit: connection lost, err: %+v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.cfg.ReconnectWait):
		}
	}
}

func (f *Feed) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer conn.Close()

	sub := map[string]any{
		"op": "subscribe",
		"args": []string{
			"publicTrade." + f.cfg.Symbol,
			"orderbook.50." + f.cfg.Symbol,
			"liquidation." + f.cfg.Symbol,
			"tickers." + f.cfg.Symbol,
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	logs.Infof("bybit: subscribed %s", f.cfg.Symbol)

	// The book restarts from the next snapshot after every reconnect.
	f.book.reset()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(f.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				_ = conn.WriteJSON(map[string]string{"op": "ping"})
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read")
		}
		f.handleMessage(data)
	}
}

type envelope struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	TS    int64           `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

type tradeMsg struct {
	T int64  `json:"T"`
	S string `json:"S"`
	P string `json:"p"`
	V string `json:"v"`
}

type orderbookMsg struct {
	Bids [][]string `json:"b"`
	Asks [][]string `json:"a"`
}

type liquidationMsg struct {
	UpdatedTime int64  `json:"updatedTime"`
	S           string `json:"side"`
	P           string `json:"price"`
	V           string `json:"size"`
}

type tickerMsg struct {
	OpenInterest string `json:"openInterest"`
	FundingRate  string `json:"fundingRate"`
	MarkPrice    string `json:"markPrice"`
}

// handleMessage dispatches one raw frame. Unknown or control frames
// are ignored.
func (f *Feed) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Topic == "" {
		return
	}
	switch {
	case strings.HasPrefix(env.Topic, "publicTrade."):
		f.onTrades(env)
	case strings.HasPrefix(env.Topic, "orderbook."):
		f.onOrderbook(env)
	case strings.HasPrefix(env.Topic, "liquidation."):
		f.onLiquidation(env)
	case strings.HasPrefix(env.Topic, "tickers."):
		f.onTicker(env)
	}
}

func (f *Feed) onTrades(env envelope) {
	var trades []tradeMsg
	if err := json.Unmarshal(env.Data, &trades); err != nil {
		return
	}
	for _, tr := range trades {
		if tr.P == "" || tr.V == "" {
			continue
		}
		side := "BUY"
		if tr.S == "Sell" {
			side = "SELL"
		}
		f.emit("TRADE|" + strconv.FormatInt(tr.T, 10) + "|" + f.cfg.Symbol +
			"|" + side + "|" + tr.P + "|" + tr.V)
	}
}

func (f *Feed) onOrderbook(env envelope) {
	var msg orderbookMsg
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return
	}
	if env.Type == "snapshot" {
		f.book.reset()
	}
	f.book.update(msg.Bids, msg.Asks)
	if !f.book.ready {
		return
	}
	bids, asks := f.book.top(50)
	f.emit("DEPTH|" + strconv.FormatInt(env.TS, 10) + "|" + f.cfg.Symbol +
		"|" + joinLevels(bids) + "|" + joinLevels(asks))
}

func (f *Feed) onLiquidation(env envelope) {
	var msg liquidationMsg
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return
	}
	if msg.P == "" || msg.V == "" {
		return
	}
	ts := msg.UpdatedTime
	if ts == 0 {
		ts = env.TS
	}
	side := "Buy"
	if msg.S == "Sell" {
		side = "Sell"
	}
	f.emit("LIQ|" + strconv.FormatInt(ts, 10) + "|" + f.cfg.Symbol +
		"|" + side + "|" + msg.P + "|" + msg.V)
}

// onTicker merges the venue's delta ticker into the last known state
// and emits once every field has been seen.
func (f *Feed) onTicker(env envelope) {
	var msg tickerMsg
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return
	}
	if msg.OpenInterest != "" {
		f.lastOpenInterest = msg.OpenInterest
	}
	if msg.FundingRate != "" {
		f.lastFundingRate = msg.FundingRate
	}
	if msg.MarkPrice != "" {
		f.lastMarkPrice = msg.MarkPrice
	}
	if f.lastOpenInterest == "" || f.lastFundingRate == "" || f.lastMarkPrice == "" {
		return
	}
	f.emit("TICKER|" + strconv.FormatInt(env.TS, 10) + "|" + f.cfg.Symbol +
		"|" + f.lastOpenInterest + "|" + f.lastFundingRate + "|" + f.lastMarkPrice)
}

func joinLevels(levels []bookLevel) string {
	var sb strings.Builder
	for i, lv := range levels {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(lv.price)
		sb.WriteByte(':')
		sb.WriteString(lv.qty)
	}
	return sb.String()
}
