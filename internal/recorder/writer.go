// Package recorder persists market events as packed binary frames in
// rotating files for offline analysis.
package recorder

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/obs"
)

// Writer serializes events into the current recording file. It is
// driven synchronously by the consumer thread: OnEvent per dequeued
// event, Tick for time-based flushing, Close on shutdown.
//
// I/O failures degrade the writer to dropping frames instead of
// terminating the process; faults are counted and logged, and the next
// rotation check retries opening a file.
type Writer struct {
	cfg Config

	file      *os.File
	buf       *bufio.Writer
	openedAt  time.Time
	lastFlush time.Time

	frameBuf [maxFrameSize]byte
	metrics  *obs.Metrics
	faulted  bool
}

// NewWriter creates a recorder writing under cfg.Dir. A missing
// directory is created eagerly; failure to do so is a degradation, not
// an error, so recording-mode startup never dies on a bad disk.
func NewWriter(cfg Config, metrics *obs.Metrics) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Writer{cfg: cfg, metrics: metrics}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		w.fault("create recording dir", err)
	}
	return w, nil
}

// OnEvent appends one event to the current file, rotating first when
// due. Events with an unknown kind are ignored.
func (w *Writer) OnEvent(ev model.MarketEvent) {
	now := w.cfg.Clock()
	if w.file == nil || now.Sub(w.openedAt) >= w.cfg.RotatePeriod {
		w.rotate(now)
	}
	if w.file == nil {
		if w.metrics != nil {
			w.metrics.IncRecorderDrop()
		}
		return
	}

	n, ok := encodeFrame(w.frameBuf[:], ev)
	if !ok {
		return
	}
	if _, err := w.buf.Write(w.frameBuf[:n]); err != nil {
		w.fault("write frame", err)
		w.closeCurrent()
		return
	}
	if w.metrics != nil {
		w.metrics.IncFrameWritten()
	}
}

// Tick flushes buffered frames once the flush interval has elapsed,
// bounding the data lost if the process dies between flushes.
func (w *Writer) Tick(now time.Time) {
	if w.file == nil {
		return
	}
	if now.Sub(w.lastFlush) < w.cfg.FlushInterval {
		return
	}
	w.lastFlush = now
	if err := w.buf.Flush(); err != nil {
		w.fault("flush", err)
		w.closeCurrent()
	}
}

// Close flushes and closes the current file.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		w.file = nil
		w.buf = nil
		return err
	}
	err := w.file.Close()
	w.file = nil
	w.buf = nil
	return err
}

// rotate closes the current file and opens a new one named after now.
// The closed file is fully flushed before the new one is opened, so no
// frame ever spans two files.
func (w *Writer) rotate(now time.Time) {
	if w.file != nil {
		if err := w.buf.Flush(); err != nil {
			w.fault("flush before rotate", err)
		}
		if err := w.file.Close(); err != nil {
			w.fault("close before rotate", err)
		}
		w.file = nil
		w.buf = nil
	}

	name := fmt.Sprintf("%s_%s.bin", w.cfg.FilePrefix, now.Format("20060102_150405"))
	path := filepath.Join(w.cfg.Dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		w.fault("open recording file", err)
		return
	}

	w.file = file
	w.buf = bufio.NewWriterSize(file, w.cfg.BufferSize)
	w.openedAt = now
	w.lastFlush = now
	w.faulted = false
	logs.Infof("recorder: rotated to %s", path)
}

func (w *Writer) closeCurrent() {
	if w.file != nil {
		_ = w.file.Close()
	}
	w.file = nil
	w.buf = nil
}

// fault records a degradation. Only the transition into the faulted
// state is logged so a dead disk cannot flood the log.
func (w *Writer) fault(op string, err error) {
	if w.metrics != nil {
		w.metrics.IncRecorderFault()
	}
	if !w.faulted {
		logs.Errorf("recorder degraded: %s, err: %+v", op, err)
		w.faulted = true
	}
}
