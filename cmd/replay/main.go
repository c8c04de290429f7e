// Command replay re-runs a program document against a previously recorded
// trace file and verifies the interpreter reproduces the same grid state,
// tick for tick, bit for bit. Grounded in the teacher's cmd/replay digest
// comparison loop (snapshot + events -> StepOnce -> compare digests),
// generalized from a world snapshot/event log to a program document and
// its trace.Entry digest stream.
package main

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"rewriteengine/internal/engconfig"
	"rewriteengine/internal/interp"
	"rewriteengine/internal/loader"
	"rewriteengine/internal/trace"
)

func main() {
	var (
		programPath = flag.String("program", "", "path to the program document that produced -trace")
		tracePath   = flag.String("trace", "", "path to the .jsonl.zst trace file to verify against")
		schemaPath  = flag.String("schema", "schemas/program.schema.json", "path to the program JSON schema (empty to skip)")
		configPath  = flag.String("config", "", "path to engine.yaml (empty uses built-in defaults)")
		seedFlag    = flag.Int64("seed", -1, "RNG seed the trace was recorded with (-1 uses the engine config default)")
		stepsFlag   = flag.Int("steps", -1, "outer step cap the trace was recorded with (-1 uses the engine config default)")
	)
	flag.Parse()

	if *programPath == "" || *tracePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -program <program.json> -trace <trace.jsonl.zst>")
		os.Exit(2)
	}

	cfg := engconfig.Default()
	if *configPath != "" {
		c, err := engconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load engine config:", err)
			os.Exit(1)
		}
		cfg = c
	}
	seed := cfg.DefaultSeed
	if *seedFlag >= 0 {
		seed = *seedFlag
	}
	steps := cfg.MaxOuterSteps
	if *stepsFlag >= 0 {
		steps = *stepsFlag
	}

	res, err := loader.Load(*programPath, *schemaPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load program:", err)
		os.Exit(1)
	}

	entries, err := readEntries(*tracePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read trace:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "trace file has no entries")
		os.Exit(1)
	}

	ip := interp.New(res.Root, res.Grid, seed, steps, nil)

	var checked int
	var mismatch error
	status := ip.Run(func(snap interp.Snapshot) {
		if mismatch != nil || checked >= len(entries) {
			return
		}
		sum := sha256.Sum256(snap.State)
		got := hex.EncodeToString(sum[:])
		want := entries[checked].Digest
		if want != "" && got != want {
			mismatch = fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", checked, got, want)
			return
		}
		checked++
	})

	if mismatch != nil {
		fmt.Fprintln(os.Stderr, "replay failed:", mismatch)
		os.Exit(1)
	}
	if checked != len(entries) {
		fmt.Fprintf(os.Stderr, "replay failed: trace has %d ticks, run produced %d\n", len(entries), checked)
		os.Exit(1)
	}
	fmt.Printf("replay ok: %d ticks verified (final status %v)\n", checked, status)
}

func readEntries(path string) ([]trace.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var entries []trace.Entry
	for sc.Scan() {
		var e trace.Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
