package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Run outcomes reported by RunFinished.
const (
	OutcomeCompleted = "completed"
	OutcomeAccepted  = "accepted"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeCanceled  = "canceled"
	OutcomeError     = "error"
)

// Recorder receives SDK events. Implementations must be safe for concurrent
// use.
type Recorder interface {
	RunStarted(ctx context.Context, synchronous bool)
	RunFinished(ctx context.Context, outcome string, elapsed time.Duration)
	PollObserved(ctx context.Context, status string)
	RequestDone(ctx context.Context, method, route string, statusCode int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RunStarted(context.Context, bool) {}
func (nopRecorder) RunFinished(context.Context, string, time.Duration) {}
func (nopRecorder) PollObserved(context.Context, string) {}
func (nopRecorder) RequestDone(context.Context, string, string, int, time.Duration) {}

// Nop returns a Recorder that drops everything.
func Nop() Recorder {
	return nopRecorder{}
}

type meterRecorder struct {
	runsStarted     metric.Int64Counter
	runsFinished    metric.Int64Counter
	runDuration     metric.Float64Histogram
	polls           metric.Int64Counter
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewRecorder creates the SDK instruments on meter.
func NewRecorder(meter metric.Meter) (Recorder, error) {
	r := &meterRecorder{}
	var err error
	if r.runsStarted, err = meter.Int64Counter(
		"argil_workflow_runs_started_total",
		metric.WithDescription("Workflow runs started"),
	); err != nil {
		return nil, err
	}
	if r.runsFinished, err = meter.Int64Counter(
		"argil_workflow_runs_finished_total",
		metric.WithDescription("Workflow runs finished by outcome"),
	); err != nil {
		return nil, err
	}
	if r.runDuration, err = meter.Float64Histogram(
		"argil_workflow_run_duration_seconds",
		metric.WithDescription("Workflow run latency as observed by the client"),
		metric.WithExplicitBucketBoundaries(.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	); err != nil {
		return nil, err
	}
	if r.polls, err = meter.Int64Counter(
		"argil_workflow_polls_total",
		metric.WithDescription("Workflow run status polls by observed status"),
	); err != nil {
		return nil, err
	}
	if r.requests, err = meter.Int64Counter(
		"argil_http_requests_total",
		metric.WithDescription("API requests by route and status"),
	); err != nil {
		return nil, err
	}
	if r.requestDuration, err = meter.Float64Histogram(
		"argil_http_request_duration_seconds",
		metric.WithDescription("API request latency"),
		metric.WithExplicitBucketBoundaries(.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10),
	); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *meterRecorder) RunStarted(ctx context.Context, synchronous bool) {
	r.runsStarted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("synchronous", synchronous)))
}

func (r *meterRecorder) RunFinished(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	r.runsFinished.Add(ctx, 1, attrs)
	r.runDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (r *meterRecorder) PollObserved(ctx context.Context, status string) {
	r.polls.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (r *meterRecorder) RequestDone(ctx context.Context, method, route string, statusCode int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_code", strconv.Itoa(statusCode)),
	)
	r.requests.Add(ctx, 1, attrs)
	r.requestDuration.Record(ctx, elapsed.Seconds(), attrs)
}
