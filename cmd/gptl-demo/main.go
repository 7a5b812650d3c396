// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command gptl-demo is the reference consumer of the gptl package: it
// times a small nested workload, serves the live Query API over HTTP,
// and periodically snapshots the text report to disk, the way
// cmd/cc-backend/main.go is the reference consumer of cc-backend's own
// internal packages.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/gops/agent"
	"github.com/prometheus/client_golang/prometheus"

	gptl "github.com/ClusterCockpit/cc-timing"
	"github.com/ClusterCockpit/cc-timing/config"
	"github.com/ClusterCockpit/cc-timing/httpapi"
	"github.com/ClusterCockpit/cc-timing/internal/logging"
)

func main() {
	var flagGops bool
	var flagAddr, flagReportInterval, flagReportPath, flagEnvFile string
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagAddr, "addr", "localhost:8080", "Address the live query HTTP API listens on")
	flag.StringVar(&flagReportInterval, "report-interval", "30s", "How often to snapshot the text report to -report-path")
	flag.StringVar(&flagReportPath, "report-path", "timing.demo", "Path the periodic report snapshot is written to")
	flag.StringVar(&flagEnvFile, "envfile", "./.env", "Optional GPTL_-prefixed .env file to overlay onto the default config")
	flag.Parse()

	// See https://github.com/google/gops (runtime overhead is almost zero).
	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			logging.Errorf("gptl-demo: gops/agent.Listen failed: %v", err)
			os.Exit(1)
		}
	}

	cfg := config.Default()
	if err := config.LoadEnv(&cfg, flagEnvFile); err != nil && !os.IsNotExist(err) {
		logging.Warnf("gptl-demo: parsing %q failed: %v", flagEnvFile, err)
	}
	cfg.HWCounterEvents = []string{"PAPI_TOT_CYC", "PAPI_L2_DCM"}

	if err := gptl.Initialize(cfg); err != nil {
		logging.Errorf("gptl-demo: Initialize failed: %v", err)
		os.Exit(1)
	}
	defer gptl.Finalize()

	runDemoWorkload()

	reg := prometheus.NewRegistry()
	// *gptl.Context already implements httpapi.StatsSource via its
	// RegionStats method, so the default instance is passed directly.
	server := httpapi.NewServer(gptl.Default(), reg)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logging.Errorf("gptl-demo: gocron.NewScheduler failed: %v", err)
		os.Exit(1)
	}
	registerReportSnapshotJob(scheduler, flagReportInterval, flagReportPath)
	scheduler.Start()
	defer scheduler.Shutdown()

	httpServer := &http.Server{Addr: flagAddr, Handler: server.Handler(os.Stdout)}
	go func() {
		logging.Infof("gptl-demo: live query API listening on %s", flagAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf("gptl-demo: ListenAndServe failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warnf("gptl-demo: HTTP server shutdown: %v", err)
	}

	if err := gptl.PrFile(flagReportPath); err != nil {
		logging.Warnf("gptl-demo: final report write failed: %v", err)
	}
}

// runDemoWorkload brackets a small nested call tree so the report and
// the live query API have something to show on startup, covering the
// same shapes spec.md §8's end-to-end scenarios exercise: simple
// nesting and a region with multiple observed parents.
func runDemoWorkload() {
	must(gptl.Start("total"))
	for i := 0; i < 3; i++ {
		must(gptl.Start("outer"))
		must(gptl.Start("shared_step"))
		time.Sleep(time.Millisecond)
		must(gptl.Stop("shared_step"))
		must(gptl.Start("inner"))
		must(gptl.Start("shared_step"))
		time.Sleep(time.Millisecond)
		must(gptl.Stop("shared_step"))
		must(gptl.Stop("inner"))
		must(gptl.Stop("outer"))
	}
	must(gptl.Stop("total"))
}

func must(err error) {
	if err != nil {
		logging.Warnf("gptl-demo: workload timer call failed: %v", err)
	}
}

// registerReportSnapshotJob schedules the periodic pr_file snapshot with
// go-co-op/gocron/v2, grounded on
// internal/taskmanager/commitJobService.go's
// s.NewJob(gocron.DurationJob(d), gocron.NewTask(...)) pattern.
func registerReportSnapshotJob(s gocron.Scheduler, interval, path string) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		logging.Warnf("gptl-demo: could not parse report interval %q, defaulting to 30s: %v", interval, err)
		d = 30 * time.Second
	}
	if _, err := s.NewJob(gocron.DurationJob(d), gocron.NewTask(func() {
		if err := gptl.PrFile(path); err != nil {
			logging.Warnf("gptl-demo: periodic report snapshot failed: %v", err)
		}
	})); err != nil {
		logging.Errorf("gptl-demo: registering report snapshot job failed: %v", err)
	}
}
