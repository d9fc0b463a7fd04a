package repository

import (
	"context"
	"errors"
	"fmt"

	"CryptoPredict/internal/domain/models"
	domsvc "CryptoPredict/internal/domain/service"
	"CryptoPredict/pkg/metrics"
)

// NopSink drops every event. It stands in when no sink is configured.
type NopSink struct{}

// Record discards ev.
func (NopSink) Record(context.Context, models.ForecastEvent) error { return nil }

// NamedSink labels a sink for metrics and error messages.
type NamedSink struct {
	Name string
	Sink domsvc.ForecastSink
}

// MultiSink fans one event out to every sink. All sinks are tried; their errors are joined.
type MultiSink struct {
	sinks   []NamedSink
	metrics *metrics.Recorder
}

// NewMultiSink builds a fan-out over sinks. rec may be nil.
func NewMultiSink(rec *metrics.Recorder, sinks ...NamedSink) *MultiSink {
	return &MultiSink{sinks: sinks, metrics: rec}
}

// Len reports how many sinks are attached.
func (m *MultiSink) Len() int { return len(m.sinks) }

// Record writes ev to every sink.
func (m *MultiSink) Record(ctx context.Context, ev models.ForecastEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.Record(ctx, ev); err != nil {
			if m.metrics != nil {
				m.metrics.RecordSinkError(s.Name)
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
