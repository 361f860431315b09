// Package metrics counts draft and upload events with Prometheus collectors.
// A CLI process is short-lived, so the registry is exported to a node
// exporter textfile instead of being scraped.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"wishlist-go/internal/wishlist"
)

const namespace = "wishlist"

// Observer is a wishlist.Observer backed by a private registry.
type Observer struct {
	registry *prometheus.Registry

	draftLoads         *prometheus.CounterVec
	draftWrites        prometheus.Counter
	draftWritesDropped *prometheus.CounterVec
	draftClears        prometheus.Counter
	uploads            *prometheus.CounterVec
}

func NewObserver() *Observer {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Observer{
		registry: registry,
		draftLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_loads_total",
			Help:      "Draft load attempts, partitioned by outcome.",
		}, []string{"outcome"}),
		draftWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_writes_total",
			Help:      "Drafts written to storage.",
		}),
		draftWritesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_writes_dropped_total",
			Help:      "Draft writes that did not reach storage, partitioned by reason.",
		}, []string{"reason"}),
		draftClears: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_clears_total",
			Help:      "Drafts removed from storage.",
		}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Finished upload runs, partitioned by final state.",
		}, []string{"state"}),
	}
}

func (o *Observer) DraftLoaded(outcome string) {
	o.draftLoads.WithLabelValues(outcome).Inc()
}

func (o *Observer) DraftWritten() {
	o.draftWrites.Inc()
}

func (o *Observer) DraftWriteDropped(reason string) {
	o.draftWritesDropped.WithLabelValues(reason).Inc()
}

func (o *Observer) DraftCleared() {
	o.draftClears.Inc()
}

func (o *Observer) UploadFinished(state string) {
	o.uploads.WithLabelValues(state).Inc()
}

// Registry exposes the collectors for gathering.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// WriteTextfile writes the current values in the text exposition format.
func (o *Observer) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Compile-time check that Observer implements wishlist.Observer interface
var _ wishlist.Observer = (*Observer)(nil)
