package recorder

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"main/internal/model"
	"main/internal/obs"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testConfig(dir string, clock *fakeClock) Config {
	cfg := DefaultConfig(dir)
	cfg.Clock = clock.Now
	return cfg
}

func tradeEvent(seq int64) model.MarketEvent {
	return model.MarketEvent{
		Kind:        model.KindTrade,
		EventTsNano: seq,
		Trade: model.TradePayload{
			Price:     model.Price(230_000_000 + seq),
			Quantity:  model.Quantity(100_000_000),
			Aggressor: model.SideSell,
		},
	}
}

func depthEvent(ts int64) model.MarketEvent {
	ev := model.MarketEvent{Kind: model.KindDepth, EventTsNano: ts}
	ev.Depth.Bids[0] = model.Level{Price: 230_000_000, Quantity: 1_000_000_000}
	ev.Depth.Bids[1] = model.Level{Price: 229_000_000, Quantity: 500_000_000}
	ev.Depth.Asks[0] = model.Level{Price: 231_000_000, Quantity: 400_000_000}
	ev.Depth.BidsLength = 2
	ev.Depth.AsksLength = 1
	return ev
}

func readAll(t *testing.T, path string) []model.MarketEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var events []model.MarketEvent
	r := NewReader(f)
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		events = append(events, ev)
	}
}

func listRecordings(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.bin"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	sort.Strings(matches)
	return matches
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	w, err := NewWriter(testConfig(dir, clock), obs.NewMetrics())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	want := []model.MarketEvent{
		tradeEvent(1),
		depthEvent(2),
		{Kind: model.KindLiquidation, EventTsNano: 3, Liquidation: model.LiquidationPayload{
			Price: 240_000_000, Quantity: 100_000_000_000, Side: model.SideBuy,
		}},
		{Kind: model.KindTicker, EventTsNano: 4, Ticker: model.TickerPayload{
			OpenInterest: 2_323_223_000_000, FundingRate: 10_000, MarkPrice: 235_010_000,
		}},
	}
	for _, ev := range want {
		w.OnEvent(ev)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files := listRecordings(t, dir)
	if len(files) != 1 {
		t.Fatalf("files: got %d want 1", len(files))
	}
	got := readAll(t, files[0])
	if len(got) != len(want) {
		t.Fatalf("events: got %d want %d", len(got), len(want))
	}
	for i := range want {
		// RecvTsNano is not recorded.
		exp := want[i]
		exp.RecvTsNano = 0
		if got[i] != exp {
			t.Fatalf("event %d mismatch:\ngot  %+v\nwant %+v", i, got[i], exp)
		}
	}
}

func TestWriterRotationAcrossBoundary(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	w, err := NewWriter(testConfig(dir, clock), nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	var admitted []int64
	seq := int64(0)
	feed := func(n int) {
		for i := 0; i < n; i++ {
			seq++
			w.OnEvent(tradeEvent(seq))
			admitted = append(admitted, seq)
			clock.Advance(time.Second)
		}
	}

	feed(100)
	clock.Advance(61 * time.Minute) // cross the rotation boundary
	feed(100)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files := listRecordings(t, dir)
	if len(files) != 2 {
		t.Fatalf("files: got %d want 2", len(files))
	}

	// The first file must be complete on its own: rotation flushes and
	// closes it before the second is opened.
	first := readAll(t, files[0])
	if len(first) != 100 {
		t.Fatalf("first file events: got %d want 100", len(first))
	}

	var got []int64
	for _, f := range files {
		for _, ev := range readAll(t, f) {
			got = append(got, ev.EventTsNano)
		}
	}
	if len(got) != len(admitted) {
		t.Fatalf("total events: got %d want %d", len(got), len(admitted))
	}
	for i := range admitted {
		if got[i] != admitted[i] {
			t.Fatalf("event %d: got seq %d want %d", i, got[i], admitted[i])
		}
	}
}

func TestWriterTickFlushes(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	w, err := NewWriter(testConfig(dir, clock), nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	w.OnEvent(tradeEvent(1))
	files := listRecordings(t, dir)
	if len(files) != 1 {
		t.Fatalf("files: got %d want 1", len(files))
	}

	// Buffered, nothing on disk yet.
	if got := readAll(t, files[0]); len(got) != 0 {
		t.Fatalf("expected empty file before flush, got %d events", len(got))
	}

	clock.Advance(2 * time.Second)
	w.Tick(clock.Now())
	if got := readAll(t, files[0]); len(got) != 1 {
		t.Fatalf("expected 1 event after tick flush, got %d", len(got))
	}
}

func TestReaderRejectsUnknownTag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(path, []byte{0x7f, 0x00, 0x01, 0x02}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if _, err := NewReader(f).Next(); err != ErrUnknownFrameType {
		t.Fatalf("expected ErrUnknownFrameType, got %v", err)
	}
}
