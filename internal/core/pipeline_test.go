package core

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/dash"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/quoter"
	"main/internal/recorder"
)

const feedSample = `TRADE|1700000000000|BTCUSDT|BUY|100.5|0.2
DEPTH|1700000000001|BTCUSDT|100.4:2,100.3:1|100.6:2,100.7:1
LIQ|1700000000002|BTCUSDT|Sell|98.0|1.5
TICKER|1700000000003|BTCUSDT|23232.23|0.0001|100.55
garbage line that must be skipped
TRADE|1700000000004|BTCUSDT|SELL|100.4|0.1
`

func TestPipelineRecordMode(t *testing.T) {
	dir := t.TempDir()
	metrics := obs.NewMetrics()
	w, err := recorder.NewWriter(recorder.DefaultConfig(dir), metrics)
	require.NoError(t, err)

	p := NewPipeline(Options{
		QueueCapacity: 64,
		Recorder:      w,
		Metrics:       metrics,
	})
	require.NoError(t, p.Run(context.Background(), strings.NewReader(feedSample)))

	files, err := filepath.Glob(filepath.Join(dir, "*.bin"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	var kinds []model.Kind
	r := recorder.NewReader(f)
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []model.Kind{
		model.KindTrade, model.KindDepth, model.KindLiquidation,
		model.KindTicker, model.KindTrade,
	}, kinds)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.ParseErrors)
	assert.Equal(t, uint64(5), snap.FramesWritten)
	assert.Zero(t, snap.QueueDrops)
}

func TestPipelineAnalyzeMode(t *testing.T) {
	dir := t.TempDir()
	dashPath := filepath.Join(dir, "dashboard.json")
	metrics := obs.NewMetrics()

	loaded, err := ops.Load("")
	require.NoError(t, err)
	analyzer := NewAnalyzer(loaded, nil, metrics)

	p := NewPipeline(Options{
		QueueCapacity:   64,
		Analyzer:        analyzer,
		DashboardWriter: dash.NewWriter(dashPath),
		Metrics:         metrics,
	})

	// Event timestamps must track the wall clock or the staleness
	// guard suppresses every decision.
	nowMS := time.Now().UnixMilli()
	lines := strings.Join([]string{
		"TRADE|" + strconv.FormatInt(nowMS, 10) + "|BTCUSDT|BUY|100.5|0.2",
		"LIQ|" + strconv.FormatInt(nowMS, 10) + "|BTCUSDT|Sell|98.0|1.5",
		"DEPTH|" + strconv.FormatInt(nowMS, 10) + "|BTCUSDT|100.4:2,100.3:1|100.6:2,100.7:1",
	}, "\n") + "\n"
	require.NoError(t, p.Run(context.Background(), strings.NewReader(lines)))

	// The depth update triggered a decision. The tape is fresh (recv
	// is stamped at parse time) so the safety guard does not fire.
	d := analyzer.Decision()
	assert.Equal(t, quoter.ReasonRangeMM, d.Reason)
	assert.True(t, d.Bid > 0 && d.Ask > 0)
	assert.True(t, d.Bid < d.Ask)

	// Shutdown flushed a final dashboard snapshot.
	data, err := os.ReadFile(dashPath)
	require.NoError(t, err)
	var snap dash.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, quoter.ReasonRangeMM, snap.Reason)
	require.NotEmpty(t, snap.Heatmap)
	// The liquidation at 98 and the inferred band from the buy at 100.5
	// both sit below the last trade price.
	for _, h := range snap.Heatmap {
		assert.Equal(t, "BELOW", h.Zone)
	}
}

func TestPipelineCancelStopsProducer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	metrics := obs.NewMetrics()
	loaded, err := ops.Load("")
	require.NoError(t, err)
	p := NewPipeline(Options{
		QueueCapacity: 64,
		Analyzer:      NewAnalyzer(loaded, nil, metrics),
		Metrics:       metrics,
	})
	require.NoError(t, p.Run(ctx, strings.NewReader(feedSample)))
}
