package main

import (
	"log"
	"net/http"
	"time"

	"rewriteengine/internal/engconfig"
	"rewriteengine/internal/interp"
	"rewriteengine/internal/loader"
	"rewriteengine/internal/node"
	"rewriteengine/internal/transport/snapshotws"
)

// newProgramServer returns an http.HandlerFunc that, per connection,
// reloads p fresh from disk (loader.Load builds a brand new node.Node
// tree every call) and drives a brand new interp.Interpreter over it, so
// concurrent connections to the same program never share mutable run
// state. Run outcomes and tick counts feed the package-level Prometheus
// metrics declared in main.go.
func newProgramServer(p loadedProgram, cfg engconfig.Config, logger *log.Logger) http.HandlerFunc {
	srv := snapshotws.NewServer(logger, false)
	name := p.name()

	return func(rw http.ResponseWriter, r *http.Request) {
		res, err := loader.Load(p.path, p.schema)
		if err != nil {
			http.Error(rw, "program reload failed: "+err.Error(), http.StatusInternalServerError)
			return
		}

		ip := interp.New(res.Root, res.Grid, cfg.DefaultSeed, cfg.MaxOuterSteps, logger)
		runID := ip.RunID.String()

		metricActiveRuns.Inc()
		start := time.Now()

		var finalStatus node.Status
		handler := srv.Handler(runID, func(emit func(interp.Snapshot)) (node.Status, string) {
			finalStatus = ip.Run(func(snap interp.Snapshot) {
				metricTicksTotal.WithLabelValues(name).Inc()
				emit(snap)
			})
			return finalStatus, failCodeFor(ip, finalStatus)
		})
		handler(rw, r)

		metricActiveRuns.Dec()
		metricRunDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		metricRunsTotal.WithLabelValues(name, statusLabel(ip, finalStatus)).Inc()
	}
}

func statusLabel(ip *interp.Interpreter, status node.Status) string {
	if status != node.SUCCESS && ip.StepCapped() {
		return "STEP_CAP"
	}
	return status.String()
}

func failCodeFor(ip *interp.Interpreter, status node.Status) string {
	if status == node.SUCCESS {
		return ""
	}
	if ip.StepCapped() {
		return "E_STEP_CAP_REACHED"
	}
	return "E_SEARCH_INFEASIBLE"
}
