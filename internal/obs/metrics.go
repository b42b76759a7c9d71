// Package obs collects lightweight process counters. Everything is
// atomic so the producer and consumer threads can both report without
// coordination.
package obs

import (
	"sync/atomic"
	"time"

	"main/internal/model"
)

const maxEventKind = int(model.KindTicker)

// Metrics counts pipeline activity and faults.
type Metrics struct {
	eventCounts [maxEventKind + 1]uint64

	parseErrors    uint64
	queueDrops     uint64
	recorderFaults uint64
	recorderDrops  uint64
	framesWritten  uint64

	feedLatency LatencyStats
}

// Snapshot is a point-in-time view of the metrics.
type Snapshot struct {
	EventCounts    map[model.Kind]uint64
	ParseErrors    uint64
	QueueDrops     uint64
	RecorderFaults uint64
	RecorderDrops  uint64
	FramesWritten  uint64
	FeedLatency    LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent counts a consumed event and samples its feed latency.
func (m *Metrics) ObserveEvent(ev model.MarketEvent) {
	if m == nil {
		return
	}
	idx := int(ev.Kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	if ev.EventTsNano > 0 && ev.RecvTsNano > 0 {
		if delta := ev.RecvTsNano - ev.EventTsNano; delta >= 0 {
			m.feedLatency.Observe(time.Duration(delta))
		}
	}
}

// IncParseError counts a skipped malformed line.
func (m *Metrics) IncParseError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.parseErrors, 1)
}

// IncQueueDrop counts an event dropped on a full queue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncRecorderFault counts a recorder I/O degradation.
func (m *Metrics) IncRecorderFault() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.recorderFaults, 1)
}

// IncRecorderDrop counts an event lost while the recorder is degraded.
func (m *Metrics) IncRecorderDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.recorderDrops, 1)
}

// IncFrameWritten counts a frame handed to the write buffer.
func (m *Metrics) IncFrameWritten() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.framesWritten, 1)
}

// Snapshot returns a copy of the current values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[model.Kind]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[model.Kind(i)] = v
		}
	}
	return Snapshot{
		EventCounts:    eventCounts,
		ParseErrors:    atomic.LoadUint64(&m.parseErrors),
		QueueDrops:     atomic.LoadUint64(&m.queueDrops),
		RecorderFaults: atomic.LoadUint64(&m.recorderFaults),
		RecorderDrops:  atomic.LoadUint64(&m.recorderDrops),
		FramesWritten:  atomic.LoadUint64(&m.framesWritten),
		FeedLatency:    m.feedLatency.Snapshot(),
	}
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
