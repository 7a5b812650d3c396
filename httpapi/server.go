// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package httpapi exposes the Query API (spec.md §6) over HTTP for
// operators who would rather poll a running instrumented process than
// embed the library, per SPEC_FULL.md §4.10. The router shape — mux
// subrouter, CombinedLoggingHandler+RecoveryHandler wrapping, JSON error
// bodies — is adapted from cc-backend's routes.go/api/rest.go.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/ClusterCockpit/cc-timing/internal/aggregate"
	"github.com/ClusterCockpit/cc-timing/internal/logging"
)

var errTooManyRequests = errors.New("httpapi: request rate limit exceeded")

func errRegionNotFound(name string) error {
	return fmt.Errorf("httpapi: region %q not found", name)
}

// StatsSource supplies the live snapshot the router reports on. The
// public gptl package's Context satisfies this by folding its current
// per-thread stores on every call, so the HTTP surface never sees stale
// data between scrapes.
type StatsSource interface {
	RegionStats() []aggregate.RegionStat
}

// ErrorResponse mirrors api.ErrorResponse's {status, error} shape.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Server wires StatsSource into a gorilla/mux router.
type Server struct {
	Source   StatsSource
	Registry *prometheus.Registry

	// Limiter throttles every request, shared across the whole router,
	// the way a single rate.Limiter bounds one outbound client in the
	// teacher's metric fetchers. nil disables throttling.
	Limiter *rate.Limiter
}

// NewServer builds a Server with a default 50 req/s, burst-10 limiter.
func NewServer(source StatsSource, reg *prometheus.Registry) *Server {
	return &Server{
		Source:   source,
		Registry: reg,
		Limiter:  rate.NewLimiter(rate.Limit(50), 10),
	}
}

// Handler builds the full router: CombinedLoggingHandler wrapping
// RecoveryHandler wrapping the throttled mux router, exactly the
// middleware order routes.go's setupRoutes/MountRoutes assembles by hand
// with an http.Server in cmd/cc-backend/main.go.
func (s *Server) Handler(accessLog io.Writer) http.Handler {
	r := mux.NewRouter()
	r.StrictSlash(true)

	api := r.PathPrefix("/").Subrouter()
	api.Use(s.throttle)
	api.HandleFunc("/regions", s.getRegions).Methods(http.MethodGet)
	api.HandleFunc("/regions/{name}", s.getRegion).Methods(http.MethodGet)

	if s.Registry != nil {
		api.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	recovered := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(r)
	return handlers.CombinedLoggingHandler(accessLog, recovered)
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if s.Limiter != nil && !s.Limiter.Allow() {
			writeError(rw, http.StatusTooManyRequests, errTooManyRequests)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

// getRegions returns every region's stats, optionally narrowed by the
// ?filter= expr-lang/expr expression evaluated against each
// aggregate.RegionStat (e.g. "WallMax > 1.0"), mirroring how
// buildFilterPresets/getJobs builds a query-parameter-driven filter over
// cc-backend's job list.
func (s *Server) getRegions(rw http.ResponseWriter, r *http.Request) {
	stats := s.Source.RegionStats()

	if expr := r.URL.Query().Get("filter"); expr != "" {
		filtered, err := filterRegions(stats, expr)
		if err != nil {
			writeError(rw, http.StatusBadRequest, err)
			return
		}
		stats = filtered
	}

	writeJSON(rw, http.StatusOK, stats)
}

func (s *Server) getRegion(rw http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	for _, rs := range s.Source.RegionStats() {
		if rs.Name == name {
			writeJSON(rw, http.StatusOK, rs)
			return
		}
	}
	writeError(rw, http.StatusNotFound, errRegionNotFound(name))
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		logging.Warnf("httpapi: encoding response failed: %v", err)
	}
}

func writeError(rw http.ResponseWriter, status int, err error) {
	writeJSON(rw, status, ErrorResponse{Status: http.StatusText(status), Error: err.Error()})
}
