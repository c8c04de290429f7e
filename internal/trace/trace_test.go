package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestWriteThenReadBackEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl.zst")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w.Write(Entry{RunID: "r1", Tick: i, Status: "SUCCESS", Legend: "BW", FX: 2, FY: 2, FZ: 1}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open for read: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("new decoder: %v", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	count := 0
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if e.Tick != count {
			t.Fatalf("expected tick %d, got %d", count, e.Tick)
		}
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 traced entries, got %d", count)
	}
}

func TestSummaryReportsEntryCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl.zst")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()
	_ = w.Write(Entry{RunID: "r1", Tick: 0})
	if got := w.Summary(); got == "" {
		t.Fatalf("expected non-empty summary")
	}
}
