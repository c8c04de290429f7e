// Command server is a multi-program daemon: it loads every program
// document in a directory and serves each over its own websocket
// endpoint, handing out a fresh interpreter run per connection. Grounded
// in the teacher's cmd/server (HTTP mux wiring, loopback-gated admin
// endpoints, pprof toggle, Prometheus exposition), generalized from one
// persistent world to many independent, stateless generator runs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rewriteengine/internal/engconfig"
	"rewriteengine/internal/loader"
)

var (
	metricActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rewriteengine_active_runs",
		Help: "Number of interpreter runs currently streaming to a connected client.",
	})
	metricRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewriteengine_runs_total",
		Help: "Total completed runs, labeled by program and terminal status.",
	}, []string{"program", "status"})
	metricTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewriteengine_ticks_total",
		Help: "Total outer ticks emitted, labeled by program.",
	}, []string{"program"})
	metricRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rewriteengine_run_duration_seconds",
		Help:    "Wall-clock duration of a run from connect to DONE.",
		Buckets: prometheus.DefBuckets,
	}, []string{"program"})
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		programsDir = flag.String("programs", "./programs", "directory of *.json program documents to serve")
		schemaPath  = flag.String("schema", "schemas/program.schema.json", "path to the program JSON schema (empty to skip)")
		configPath  = flag.String("config", "", "path to engine.yaml (empty uses built-in defaults)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg := engconfig.Default()
	if *configPath != "" {
		c, err := engconfig.Load(*configPath)
		if err != nil {
			logger.Fatalf("load engine config: %v", err)
		}
		cfg = c
	}

	programs, err := discoverPrograms(*programsDir, *schemaPath)
	if err != nil {
		logger.Fatalf("discover programs: %v", err)
	}
	if len(programs) == 0 {
		logger.Fatalf("no *.json program documents found in %s", *programsDir)
	}
	logger.Printf("serving %d program(s) from %s", len(programs), *programsDir)

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	for name, p := range programs {
		p := p
		mux.HandleFunc("/run/"+name+"/ws", newProgramServer(p, cfg, logger))
	}

	if envBool("RE_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		mux.HandleFunc("/admin/v1/programs", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			names := make([]string, 0, len(programs))
			for name := range programs {
				names = append(names, name)
			}
			sort.Strings(names)
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"programs": names})
		})
	} else {
		logger.Printf("admin endpoints disabled (RE_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("RE_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// loadedProgram is a program document's path, reloaded fresh (via
// loader.Load) for every connection so concurrent runs never share a
// mutable node.Node tree.
type loadedProgram struct {
	programName string
	path        string
	schema      string
}

func (p loadedProgram) name() string { return p.programName }

func discoverPrograms(dir, schemaPath string) (map[string]loadedProgram, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]loadedProgram)
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := loader.Load(path, schemaPath); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		out[name] = loadedProgram{programName: name, path: path, schema: schemaPath}
	}
	return out, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
