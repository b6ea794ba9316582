// Command taskmaster supervises long-running processes from a single
// YAML configuration file, exposing no flags and no positional arguments:
// the interactive shell on stdin is the entire administration surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taskmastergo/taskmaster/internal/config"
	"github.com/taskmastergo/taskmaster/internal/env"
	"github.com/taskmastergo/taskmaster/internal/history"
	"github.com/taskmastergo/taskmaster/internal/history/factory"
	"github.com/taskmastergo/taskmaster/internal/logger"
	"github.com/taskmastergo/taskmaster/internal/metrics"
	"github.com/taskmastergo/taskmaster/internal/process"
	"github.com/taskmastergo/taskmaster/internal/server"
	"github.com/taskmastergo/taskmaster/internal/shell"
	"github.com/taskmastergo/taskmaster/internal/supervisor"
)

const (
	configPath  = "./config.yml"
	logPath     = "./taskmaster.log"
	reaperTick  = time.Second
	observeTick = 5 * time.Second
)

func main() {
	console := slog.New(logger.NewColorTextHandler(os.Stderr, nil, true))

	defs, err := config.LoadConfig(configPath)
	if err != nil {
		console.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	sink, err := logger.Open(logPath)
	if err != nil {
		console.Error("failed to open log file", "err", err)
		os.Exit(1)
	}
	defer func() { _ = sink.Close() }()

	var hist history.Sink
	if dsn := os.Getenv("TASKMASTER_HISTORY_DSN"); dsn != "" {
		s, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			console.Error("failed to open history sink", "err", err)
		} else {
			hist = s
			defer func() { _ = hist.Close() }()
		}
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		console.Warn("metrics registration failed", "err", err)
	}

	launcher := process.NewLauncher(globalEnv())
	sup := supervisor.New(launcher, sink.Log, hist)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup.Bootstrap(defs)

	go sup.RunReaper(ctx, reaperTick)
	go sup.RunSignalRouter(ctx, func() {
		fresh, err := config.LoadConfig(configPath)
		if err != nil {
			console.Error("config reload failed, keeping previous registry", "err", err)
			return
		}
		sup.Reconcile(fresh)
	})
	go metrics.RunObserver(ctx, observeTick, sup.ResourceSamples)

	if addr := os.Getenv("TASKMASTER_METRICS_LISTEN"); addr != "" {
		if _, err := server.NewServer(addr, sup); err != nil {
			console.Error("failed to start status server", "err", err)
		}
	}

	fmt.Println("taskmaster ready")
	shell.New(sup, os.Stdin, os.Stdout, os.Stderr).Run()
}

// globalEnv applies TASKMASTER_GLOBAL_ENV, a comma-separated KEY=VALUE list,
// as the global-overrides tier of C15's base -> globals -> perProc
// composition, ahead of any program's own env block.
func globalEnv() *env.Env {
	e := env.New()
	raw := os.Getenv("TASKMASTER_GLOBAL_ENV")
	if raw == "" {
		return e
	}
	for _, kv := range strings.Split(raw, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			continue
		}
		e = e.WithSet(kv[:i], kv[i+1:])
	}
	return e
}
