// Package core runs the two-thread pipeline: a producer parsing the
// line protocol into the bounded queue, and a consumer draining it
// into the recorder or the analysis stack.
package core

import (
	"bufio"
	"context"
	"io"
	"runtime"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/dash"
	"main/internal/ingest"
	"main/internal/obs"
	"main/internal/recorder"
)

// maxLineSize bounds one protocol line; a 50-level depth line runs to
// a few kilobytes, so this leaves ample headroom.
const maxLineSize = 1 << 20

// Pipeline connects a line source to a sink through the bounded queue.
// Overload sheds at the queue, never blocks the producer.
type Pipeline struct {
	queue   *bus.Queue
	parser  *ingest.Parser
	metrics *obs.Metrics

	rec      *recorder.Writer
	analyzer *Analyzer

	dashWriter *dash.Writer
	dashFlush  time.Duration

	clock func() time.Time
}

// Options selects the pipeline's consumers. Recorder and Analyzer may
// both be set; at least one must be.
type Options struct {
	QueueCapacity int
	Instrument    uint8

	Recorder *recorder.Writer
	Analyzer *Analyzer

	DashboardWriter *dash.Writer
	DashboardFlush  time.Duration

	Metrics *obs.Metrics
}

// NewPipeline builds a pipeline from the options.
func NewPipeline(opts Options) *Pipeline {
	flush := opts.DashboardFlush
	if flush <= 0 {
		flush = time.Second
	}
	return &Pipeline{
		queue:      bus.NewQueue(opts.QueueCapacity),
		parser:     ingest.NewParser(opts.Instrument),
		metrics:    opts.Metrics,
		rec:        opts.Recorder,
		analyzer:   opts.Analyzer,
		dashWriter: opts.DashboardWriter,
		dashFlush:  flush,
		clock:      time.Now,
	}
}

// Run pumps r until EOF or ctx cancellation, then drains the queue and
// flushes everything. It returns the scanner error, if any.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	scanErr := make(chan error, 1)
	go p.produce(ctx, r, scanErr)
	p.consume(ctx)
	return <-scanErr
}

// produce parses lines onto the queue. The producer never blocks on a
// full queue: the event is dropped and counted.
func (p *Pipeline) produce(ctx context.Context, r io.Reader, done chan<- error) {
	defer p.queue.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			done <- nil
			return
		}
		ev, ok := p.parser.ParseLine(scanner.Text())
		if !ok {
			p.metrics.IncParseError()
			continue
		}
		if !p.queue.TryPush(ev) {
			p.metrics.IncQueueDrop()
		}
	}
	done <- scanner.Err()
}

// consume drains the queue into the sinks, yielding the processor when
// idle and driving the time-based duties between events.
func (p *Pipeline) consume(ctx context.Context) {
	lastDash := p.clock()
	for {
		ev, ok := p.queue.TryPop()
		if !ok {
			if p.queue.Drained() {
				break
			}
			p.housekeep(&lastDash)
			runtime.Gosched()
			continue
		}

		p.metrics.ObserveEvent(ev)
		if p.rec != nil {
			p.rec.OnEvent(ev)
		}
		if p.analyzer != nil {
			p.analyzer.OnEvent(ev)
		}
		p.housekeep(&lastDash)
	}

	p.flushDashboard()
	if p.rec != nil {
		if err := p.rec.Close(); err != nil {
			logs.Errorf("pipeline: close recorder, err: %+v", err)
		}
	}
}

func (p *Pipeline) housekeep(lastDash *time.Time) {
	now := p.clock()
	if p.rec != nil {
		p.rec.Tick(now)
	}
	if p.dashWriter != nil && p.analyzer != nil && now.Sub(*lastDash) >= p.dashFlush {
		*lastDash = now
		p.flushDashboard()
	}
}

func (p *Pipeline) flushDashboard() {
	if p.dashWriter == nil || p.analyzer == nil {
		return
	}
	if err := p.dashWriter.Write(p.analyzer.Snapshot(p.clock().UnixNano())); err != nil {
		logs.Errorf("pipeline: write dashboard, err: %+v", err)
	}
}
