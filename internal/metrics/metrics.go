package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors (C12). They are registered via Register.
var (
	regOK atomic.Bool

	programStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskmaster",
			Subsystem: "program",
			Name:      "starts_total",
			Help:      "Number of successful instance spawns.",
		}, []string{"name"},
	)
	programRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskmaster",
			Subsystem: "program",
			Name:      "restarts_total",
			Help:      "Number of reaper-initiated restarts.",
		}, []string{"name"},
	)
	programStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskmaster",
			Subsystem: "program",
			Name:      "stops_total",
			Help:      "Number of instance stops (graceful or forceful).",
		}, []string{"name"},
	)
	runningInstances = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "taskmaster",
			Subsystem: "program",
			Name:      "running_instances",
			Help:      "Current running instance count per program.",
		}, []string{"name"},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "taskmaster",
			Subsystem: "program",
			Name:      "current_state",
			Help:      "Current state of a program (1 = active state, 0 = inactive).",
		}, []string{"name", "state"},
	)
	processCPUPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "taskmaster",
			Subsystem: "process",
			Name:      "cpu_percent",
			Help:      "Sampled CPU percent per instance (C13 resource observer).",
		}, []string{"name", "index"},
	)
	processRSSBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "taskmaster",
			Subsystem: "process",
			Name:      "rss_bytes",
			Help:      "Sampled resident set size per instance (C13 resource observer).",
		}, []string{"name", "index"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		programStarts, programRestarts, programStops, runningInstances, currentState,
		processCPUPercent, processRSSBytes,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStart(name string) {
	if regOK.Load() {
		programStarts.WithLabelValues(name).Inc()
	}
}

func IncRestart(name string) {
	if regOK.Load() {
		programRestarts.WithLabelValues(name).Inc()
	}
}

func IncStop(name string) {
	if regOK.Load() {
		programStops.WithLabelValues(name).Inc()
	}
}

func SetRunningInstances(name string, n int) {
	if regOK.Load() {
		runningInstances.WithLabelValues(name).Set(float64(n))
	}
}

func SetCurrentState(name, state string, active bool) {
	if regOK.Load() {
		var value float64
		if active {
			value = 1
		}
		currentState.WithLabelValues(name, state).Set(value)
	}
}

func SetProcessCPUPercent(name string, index int, v float64) {
	if regOK.Load() {
		processCPUPercent.WithLabelValues(name, strconv.Itoa(index)).Set(v)
	}
}

func SetProcessRSSBytes(name string, index int, v uint64) {
	if regOK.Load() {
		processRSSBytes.WithLabelValues(name, strconv.Itoa(index)).Set(float64(v))
	}
}
