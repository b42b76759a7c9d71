// Package dash dumps a JSON snapshot of the running session for
// external dashboards to poll. The file is replaced atomically so a
// reader never sees a half-written document.
package dash

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/obs"
)

// QuoteView is one side of the current quote pair.
type QuoteView struct {
	Price    string `json:"price"`
	Quantity string `json:"qty"`
}

// HeatView is one ranked heatmap bucket.
type HeatView struct {
	Price string `json:"price"`
	Heat  string `json:"heat"`
	Zone  string `json:"zone"`
}

// Snapshot is the full dashboard document. Fixed-point values are
// rendered as decimal strings so consumers never re-scale integers.
type Snapshot struct {
	TimestampNS int64  `json:"timestamp_ns"`
	Symbol      string `json:"symbol"`

	BestBid    string `json:"best_bid"`
	BestAsk    string `json:"best_ask"`
	MicroPrice string `json:"micro_price"`

	Regime   string  `json:"regime"`
	Velocity float64 `json:"velocity"`
	VPIN     string  `json:"vpin"`
	Trap     int     `json:"trap"`
	Stale    bool    `json:"stale"`

	Reason string     `json:"reason"`
	Bid    *QuoteView `json:"bid,omitempty"`
	Ask    *QuoteView `json:"ask,omitempty"`

	Position      string `json:"position"`
	AvgEntry      string `json:"avg_entry"`
	RealizedPnL   string `json:"realized_pnl"`
	UnrealizedPnL string `json:"unrealized_pnl"`

	OpenInterest string `json:"open_interest"`
	FundingRate  string `json:"funding_rate"`
	MarkPrice    string `json:"mark_price"`

	Heatmap []HeatView   `json:"heatmap,omitempty"`
	Metrics obs.Snapshot `json:"metrics"`
}

// Writer replaces the dashboard file on each flush.
type Writer struct {
	path string
	tmp  string
}

// NewWriter targets path; the temporary file lives next to it so the
// rename stays on one filesystem.
func NewWriter(path string) *Writer {
	return &Writer{
		path: path,
		tmp:  filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp"),
	}
}

// Write marshals the snapshot and swaps it in atomically.
func (w *Writer) Write(s Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal dashboard")
	}
	if err := os.WriteFile(w.tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write dashboard tmp")
	}
	if err := os.Rename(w.tmp, w.path); err != nil {
		return errors.Wrap(err, "swap dashboard")
	}
	return nil
}

// FormatE8 renders an E8 scaled integer for the dashboard.
func FormatE8(v int64) string {
	return string(model.AppendE8(nil, v))
}
