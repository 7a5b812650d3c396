// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-timing.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package hwcounter

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/model"
)

// Prometheus is a hwcounter.Plugin that mirrors every counter event into
// a labeled GaugeVec (thread, slot, event), served wherever the registry
// passed to NewPrometheus is exposed (for example httpapi's /metrics
// endpoint). It wraps a fixed event-name list configured at
// construction; Start/Stop track which (thread, slot) pairs are running
// and report every configured event as 0, since no hardware counter is
// read (no CGO PAPI binding).
type Prometheus struct {
	mu      sync.Mutex
	events  []string
	gauge   *prometheus.GaugeVec
	running map[[2]int]map[string]float64
}

// NewPrometheus builds a plug-in tracking the named counter events (e.g.
// "PAPI_TOT_CYC", "PAPI_L2_DCM") and registers its GaugeVec with reg,
// if reg is non-nil.
func NewPrometheus(reg prometheus.Registerer, events []string) (*Prometheus, error) {
	for _, e := range events {
		if !model.LabelValue(e).IsValid() {
			return nil, fmt.Errorf("hwcounter: invalid event name %q", e)
		}
	}
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gptl",
		Subsystem: "hwcounter",
		Name:      "value",
		Help:      "Last recorded hardware counter value per thread/slot/event.",
	}, []string{"thread", "slot", "event"})

	if reg != nil {
		if err := reg.Register(gauge); err != nil {
			return nil, err
		}
	}

	return &Prometheus{
		events:  append([]string(nil), events...),
		gauge:   gauge,
		running: make(map[[2]int]map[string]float64),
	}, nil
}

func (p *Prometheus) Init(nthreads int) error { return nil }

func (p *Prometheus) Start(thread, slot int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := [2]int{thread, slot}
	if _, ok := p.running[key]; ok {
		return fmt.Errorf("hwcounter: slot %d already running on thread %d", slot, thread)
	}
	values := make(map[string]float64, len(p.events))
	for _, e := range p.events {
		values[e] = 0
	}
	p.running[key] = values
	return nil
}

func (p *Prometheus) Stop(thread, slot int) (Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := [2]int{thread, slot}
	values, ok := p.running[key]
	if !ok {
		return Value{}, fmt.Errorf("hwcounter: slot %d not running on thread %d", slot, thread)
	}
	delete(p.running, key)

	out := Value{Counts: make(map[string]float64, len(values))}
	ts, sl := strconv.Itoa(thread), strconv.Itoa(slot)
	for event, v := range values {
		out.Counts[event] = v
		p.gauge.WithLabelValues(ts, sl, event).Set(v)
	}
	return out, nil
}

func (p *Prometheus) Add(dst, src Value) Value {
	out := dst.Clone()
	if out.Counts == nil {
		out.Counts = make(map[string]float64, len(src.Counts))
	}
	for k, v := range src.Counts {
		out.Counts[k] += v
	}
	return out
}

func (p *Prometheus) Query(slot int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("slot %d tracks %d event(s)", slot, len(p.events)), nil
}

func (p *Prometheus) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "hwcounter: prometheus-backed, events=%v\n", p.events)
	return err
}

func (p *Prometheus) Finalize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = make(map[[2]int]map[string]float64)
	return nil
}
