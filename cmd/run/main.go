// Command run loads a program document, drives it to completion, and
// prints the resulting grid as text. Optionally traces every tick to a
// compressed JSONL file and/or serves the run live over a websocket for
// a renderer to consume.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"rewriteengine/internal/engconfig"
	"rewriteengine/internal/errcode"
	"rewriteengine/internal/interp"
	"rewriteengine/internal/loader"
	"rewriteengine/internal/node"
	"rewriteengine/internal/rle"
	"rewriteengine/internal/trace"
	"rewriteengine/internal/transport/snapshotws"
)

func main() {
	var (
		schemaPath = flag.String("schema", "schemas/program.schema.json", "path to the program JSON schema (empty to skip)")
		configPath = flag.String("config", "", "path to engine.yaml (empty uses built-in defaults)")
		seedFlag   = flag.Int64("seed", -1, "RNG seed override (-1 uses the engine config default)")
		stepsFlag  = flag.Int("steps", -1, "outer step cap override (-1 uses the engine config default)")
		tracePath  = flag.String("trace", "", "write a compressed JSONL trace to this path (empty disables tracing)")
		traceEvery = flag.Int("trace-sample-every", 0, "also RLE-capture full grid state every Nth traced tick (0 disables state capture)")
		serveAddr  = flag.String("serve", "", "if set, serve the run live over a websocket at ws://<addr>/ws instead of running inline")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: run [flags] <program.json>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	logger := log.New(os.Stderr, "[run] ", log.LstdFlags)

	cfg := engconfig.Default()
	if *configPath != "" {
		c, err := engconfig.Load(*configPath)
		if err != nil {
			logger.Fatalf("load engine config: %v", err)
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

	res, err := loader.Load(path, *schemaPath)
	if err != nil {
		logger.Fatalf("load %s: %v", path, err)
	}
	logger.Printf("loaded %s: grid %dx%dx%d, digest %s", path, res.Grid.MX, res.Grid.MY, res.Grid.MZ, res.Digest)

	var tracer *trace.Writer
	if *tracePath != "" {
		tracer, err = trace.Open(*tracePath)
		if err != nil {
			logger.Fatalf("open trace: %v", err)
		}
	}

	ip := interp.New(res.Root, res.Grid, seed, steps, logger)
	runID := ip.RunID.String()

	if *serveAddr != "" {
		srv := snapshotws.NewServer(logger, false)
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) { rw.WriteHeader(http.StatusOK) })
		mux.HandleFunc("/ws", srv.Handler(runID, func(emit func(interp.Snapshot)) (node.Status, string) {
			status := runAndTrace(ip, tracer, runID, *traceEvery, emit)
			return status, failCode(ip, status)
		}))
		logger.Printf("serving run %s on %s/ws", runID, *serveAddr)
		if err := http.ListenAndServe(*serveAddr, mux); err != nil {
			logger.Fatalf("listen: %v", err)
		}
		return
	}

	var final string
	status := runAndTrace(ip, tracer, runID, *traceEvery, func(snap interp.Snapshot) {
		final = render(snap)
	})
	fmt.Println(final)
	if status != node.SUCCESS {
		logger.Printf("finished: %v (%s)", status, failCode(ip, status))
	} else {
		logger.Printf("finished: %v", status)
	}

	if tracer != nil {
		logger.Printf("trace: %s", tracer.Summary())
		_ = tracer.Close()
	}

	if status != node.SUCCESS {
		os.Exit(1)
	}
}

// runAndTrace drives ip to completion, forwarding every snapshot to emit
// and, if tracer is non-nil, appending one trace.Entry per tick. Every
// sampleEvery'th entry (if sampleEvery > 0) also carries an RLE-packed
// copy of the full grid state, for offline visual replay.
func runAndTrace(ip *interp.Interpreter, tracer *trace.Writer, runID string, sampleEvery int, emit func(interp.Snapshot)) node.Status {
	tick := 0
	return ip.Run(func(snap interp.Snapshot) {
		if tracer != nil {
			sum := sha256.Sum256(snap.State)
			entry := trace.Entry{
				RunID: runID, Tick: tick,
				Legend: snap.Legend,
				FX:     snap.FX, FY: snap.FY, FZ: snap.FZ,
				Digest: hex.EncodeToString(sum[:]),
			}
			if sampleEvery > 0 && tick%sampleEvery == 0 {
				entry.State = rle.Encode(snap.State)
			}
			_ = tracer.Write(entry)
		}
		tick++
		emit(snap)
	})
}

// failCode maps a FAIL outcome to the errcode constant describing its
// cause: the outer step cap running out versus the root node itself
// exhausting every alternative.
func failCode(ip *interp.Interpreter, status node.Status) string {
	if status == node.SUCCESS {
		return ""
	}
	if ip.StepCapped() {
		return errcode.ErrStepCapReached
	}
	return errcode.ErrSearchInfeasible
}

func render(snap interp.Snapshot) string {
	var b strings.Builder
	for z := 0; z < snap.FZ; z++ {
		for y := 0; y < snap.FY; y++ {
			for x := 0; x < snap.FX; x++ {
				idx := x + y*snap.FX + z*snap.FX*snap.FY
				b.WriteByte(snap.Legend[snap.State[idx]])
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
