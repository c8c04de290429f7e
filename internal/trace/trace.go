// Package trace implements an optional, off-by-default JSONL+zstd step
// tracer: one compressed record per interpreter tick, for offline replay
// debugging. Grounded in the teacher's internal/persistence/log
// JSONLZstdWriter; the engine itself never depends on this package for
// correctness (spec.md §6: "persisted state: none").
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"
)

// Entry is one traced interpreter tick.
type Entry struct {
	RunID  string `json:"run_id"`
	Tick   int    `json:"tick"`
	Status string `json:"status"`
	Legend string `json:"legend"`
	FX     int    `json:"fx"`
	FY     int    `json:"fy"`
	FZ     int    `json:"fz"`
	// Digest is the sha256 hex of the tick's grid state, present on every
	// entry regardless of whether State itself was captured. cmd/replay
	// re-runs the same program and seed and compares digests tick-for-tick
	// to verify the interpreter is still bit-deterministic.
	Digest string `json:"digest,omitempty"`
	// State is an internal/rle-packed copy of the tick's full grid state,
	// present only on entries the caller chose to sample (cmd/run's
	// -trace-sample-every); nil means "not captured".
	State []byte `json:"state,omitempty"`
}

// Writer is a single append-only compressed JSONL trace file.
type Writer struct {
	f        *os.File
	enc      *zstd.Encoder
	w        *bufio.Writer
	written  int
	bytesRaw uint64
}

// Open creates (or truncates) a trace file at path.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("trace: new encoder: %w", err)
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// Write appends one traced entry.
func (w *Writer) Write(e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.written++
	w.bytesRaw += uint64(len(b)) + 1
	return nil
}

// Summary returns a short human-readable line describing how much was
// traced, using the same humanize formatting the teacher's diagnostics
// use for byte counts.
func (w *Writer) Summary() string {
	return fmt.Sprintf("%d entries, %s raw", w.written, humanize.Bytes(w.bytesRaw))
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
	}
	if w.f != nil {
		_ = w.f.Close()
	}
	return err1
}
