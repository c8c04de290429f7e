// Command bench runs one or more program documents to completion,
// repeated across a range of seeds, and reports timing and throughput.
// Grounded in the benchmark-matrix/summary-table shape of the
// Game-of-Life reference implementation's cmd/bench, adapted from a
// size/thread matrix to a program/seed matrix.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"rewriteengine/internal/interp"
	"rewriteengine/internal/loader"
)

type benchResult struct {
	program   string
	seeds     int
	repeat    int
	ticks     []int
	durations []time.Duration
}

func main() {
	var (
		programsFlag = flag.String("programs", "", "comma separated list of program document paths")
		schemaPath   = flag.String("schema", "schemas/program.schema.json", "path to the program JSON schema (empty to skip)")
		seedsFlag    = flag.Int("seeds", 4, "number of distinct seeds to run per program")
		repeatFlag   = flag.Int("repeat", 1, "number of repetitions per seed")
		stepsFlag    = flag.Int("steps", 0, "outer step cap (0 = unbounded)")
		quietFlag    = flag.Bool("quiet", false, "reduce per-run logging")
	)
	flag.Parse()

	paths := splitNonEmpty(*programsFlag)
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: bench -programs a.json,b.json [flags]")
		os.Exit(2)
	}
	if *seedsFlag <= 0 || *repeatFlag <= 0 {
		log.Fatalf("seeds and repeat must be positive")
	}

	logger := log.New(os.Stderr, "[bench] ", log.LstdFlags)

	var results []benchResult
	for _, path := range paths {
		res := benchResult{program: path, seeds: *seedsFlag, repeat: *repeatFlag}
		for seed := 0; seed < *seedsFlag; seed++ {
			for rep := 0; rep < *repeatFlag; rep++ {
				ticks, dur, err := runOnce(path, *schemaPath, int64(seed), *stepsFlag)
				if err != nil {
					logger.Fatalf("run %s seed=%d rep=%d: %v", path, seed, rep, err)
				}
				if !*quietFlag {
					logger.Printf("%s seed=%d rep=%d: %d ticks in %s", path, seed, rep, ticks, dur)
				}
				res.ticks = append(res.ticks, ticks)
				res.durations = append(res.durations, dur)
			}
		}
		results = append(results, res)
	}

	printSummary(results)
}

func runOnce(path, schemaPath string, seed int64, steps int) (int, time.Duration, error) {
	res, err := loader.Load(path, schemaPath)
	if err != nil {
		return 0, 0, err
	}
	ip := interp.New(res.Root, res.Grid, seed, steps, nil)

	start := time.Now()
	ticks := 0
	ip.Run(func(interp.Snapshot) { ticks++ })
	return ticks, time.Since(start), nil
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printSummary(results []benchResult) {
	if len(results) == 0 {
		fmt.Println("no results to report")
		return
	}
	sort.Slice(results, func(i, j int) bool { return results[i].program < results[j].program })

	fmt.Println("---------------------------------------------------------------------")
	fmt.Println(" program                     runs  avg(ms)  best(ms)  stddev(ms)  avg ticks")
	fmt.Println("---------------------------------------------------------------------")
	for _, res := range results {
		avg, best, stddev := summarise(res.durations)
		avgTicks := 0.0
		for _, t := range res.ticks {
			avgTicks += float64(t)
		}
		if len(res.ticks) > 0 {
			avgTicks /= float64(len(res.ticks))
		}
		fmt.Printf(" %-28s %4d %8.3f %9.3f %11.3f %10.1f\n",
			res.program, len(res.durations),
			avg.Seconds()*1000, best.Seconds()*1000, stddev.Seconds()*1000, avgTicks)
	}
	fmt.Println("---------------------------------------------------------------------")
}

func summarise(values []time.Duration) (avg, best, stddev time.Duration) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sum := 0.0
	best = values[0]
	for _, v := range values {
		sum += v.Seconds()
		if v < best {
			best = v
		}
	}
	avgSeconds := sum / float64(len(values))
	varianceSum := 0.0
	for _, v := range values {
		diff := v.Seconds() - avgSeconds
		varianceSum += diff * diff
	}
	variance := 0.0
	if len(values) > 1 {
		variance = varianceSum / float64(len(values)-1)
	}
	return time.Duration(avgSeconds * float64(time.Second)), best, time.Duration(math.Sqrt(variance) * float64(time.Second))
}
