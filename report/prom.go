// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package report

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// An Exporter publishes section results as the Prometheus gauge
// perfsection_value{section, kind}.
type Exporter struct {
	reg   *prometheus.Registry
	value *prometheus.GaugeVec
}

// NewExporter returns an Exporter with its own registry.
func NewExporter() *Exporter {
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		value: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "perfsection_value",
				Help: "Per-trial counter value or ratio of a measured section",
			},
			[]string{"section", "kind"},
		),
	}
	e.reg.MustRegister(e.value)
	return e
}

// Update sets a gauge for every row of secs. Rows that are not finite are
// skipped and keep their previous value.
func (e *Exporter) Update(secs []Section) {
	for _, s := range secs {
		for _, r := range s.Rows {
			if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
				continue
			}
			e.value.WithLabelValues(s.Name, r.Name).Set(r.Value)
		}
	}
}

// Handler returns an http.Handler serving the Exporter's metrics.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{})
}

// Serve serves the metrics on addr at /metrics until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	log.Info("serving metrics", zap.String("address", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
