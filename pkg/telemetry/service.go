package telemetry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/argil-ai/argil-go/pkg/logger"
)

const meterName = "argil"

// Service owns the meter used by the SDK. When disabled it hands out a no-op
// meter and gathers nothing.
type Service struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	registry *prom.Registry
	enabled  bool
}

// NewDisabled returns a Service backed by a no-op meter.
func NewDisabled() *Service {
	return &Service{meter: noop.NewMeterProvider().Meter(meterName)}
}

// New creates a Service exporting to a private prometheus registry.
func New(ctx context.Context, enabled bool) (*Service, error) {
	log := logger.FromContext(ctx)
	if !enabled {
		log.Debug("Metrics disabled, using no-op meter")
		return NewDisabled(), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return &Service{
		meter:    provider.Meter(meterName),
		provider: provider,
		registry: registry,
		enabled:  true,
	}, nil
}

func (s *Service) Meter() metric.Meter {
	return s.meter
}

func (s *Service) Enabled() bool {
	return s.enabled
}

// Registry is nil when the service is disabled.
func (s *Service) Registry() *prom.Registry {
	return s.registry
}

// Recorder builds the SDK instruments on this service's meter.
func (s *Service) Recorder() (Recorder, error) {
	if !s.enabled {
		return Nop(), nil
	}
	return NewRecorder(s.meter)
}

// Sample is one gathered series flattened for display.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Snapshot gathers the argil_* series. Histograms yield _count and _sum
// samples.
func (s *Service) Snapshot() ([]Sample, error) {
	if !s.enabled {
		return nil, nil
	}
	families, err := s.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	samples := make([]Sample, 0, len(families))
	for _, family := range families {
		if !isSDKMetric(family.GetName()) {
			continue
		}
		samples = append(samples, familySamples(family)...)
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}

func isSDKMetric(name string) bool {
	return strings.HasPrefix(name, meterName+"_")
}

func familySamples(family *dto.MetricFamily) []Sample {
	var out []Sample
	for _, m := range family.GetMetric() {
		labels := make(map[string]string, len(m.GetLabel()))
		for _, lp := range m.GetLabel() {
			if strings.HasPrefix(lp.GetName(), "otel_scope_") {
				continue
			}
			labels[lp.GetName()] = lp.GetValue()
		}
		switch family.GetType() {
		case dto.MetricType_COUNTER:
			out = append(out, Sample{Name: family.GetName(), Labels: labels, Value: m.GetCounter().GetValue()})
		case dto.MetricType_GAUGE:
			out = append(out, Sample{Name: family.GetName(), Labels: labels, Value: m.GetGauge().GetValue()})
		case dto.MetricType_HISTOGRAM:
			h := m.GetHistogram()
			out = append(out,
				Sample{Name: family.GetName() + "_count", Labels: labels, Value: float64(h.GetSampleCount())},
				Sample{Name: family.GetName() + "_sum", Labels: labels, Value: h.GetSampleSum()},
			)
		}
	}
	return out
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}
