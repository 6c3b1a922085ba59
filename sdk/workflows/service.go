// Package workflows starts workflow runs and, in synchronous mode, polls them
// until they settle.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/argil-ai/argil-go/pkg/apitypes"
	"github.com/argil-ai/argil-go/pkg/config"
	"github.com/argil-ai/argil-go/pkg/logger"
	"github.com/argil-ai/argil-go/pkg/telemetry"
	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
	"github.com/argil-ai/argil-go/sdk/transport"
)

// PollInterval is the fixed wait between status checks of a synchronous run.
const PollInterval = 5 * time.Second

const (
	RouteRunWorkflow    = "/runWorkflow"
	RouteGetWorkflowRun = "/getWorkflowRun/{id}"
)

const (
	MsgTimedOut        = "Workflow execution timed out."
	MsgExecutionFailed = "Workflow execution failed."
)

// Option configures a Service.
type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithRecorder(rec telemetry.Recorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// WithLogger sets the logger used when the call context carries none.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithPollBackoff replaces the constant PollInterval schedule. newBackoff is
// called once per synchronous run; a backoff that stops before the run
// settles ends the call with a timeout error.
func WithPollBackoff(newBackoff func() retry.Backoff) Option {
	return func(s *Service) {
		if newBackoff != nil {
			s.newBackoff = newBackoff
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = telemetry.Tracer(tp)
	}
}

// Service runs workflows against the configuration returned by snapshot at
// the start of each call.
type Service struct {
	snapshot func() *transport.Snapshot
	clock    Clock
	recorder telemetry.Recorder
	tracer   trace.Tracer
	log      logger.Logger

	newBackoff func() retry.Backoff
}

func New(snapshot func() *transport.Snapshot, opts ...Option) *Service {
	s := &Service{
		snapshot:   snapshot,
		clock:      NewClock(nil),
		recorder:   telemetry.Nop(),
		tracer:     telemetry.Tracer(nil),
		newBackoff: constantPollBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts workflowID with input. Values present in runtime override the
// global configuration for this call only.
//
// Asynchronous runs return the snapshot from the start request. Synchronous
// runs poll every PollInterval while the run is QUEUED or RUNNING. They fail
// with a timeout error once the effective timeout has elapsed and with an
// execution-failed error when a poll observes FAILED.
func (s *Service) Run(
	ctx context.Context,
	workflowID string,
	input any,
	runtime *config.RuntimeConfig,
) (run *apitypes.WorkflowRun, err error) {
	ctx = logger.EnsureLogger(ctx, s.log)
	ctx, span := s.tracer.Start(ctx, "workflows.run",
		trace.WithAttributes(attribute.String("argil.workflow_id", workflowID)))
	defer func() { telemetry.EndSpan(span, err) }()

	if strings.TrimSpace(workflowID) == "" {
		return nil, sdkerrors.New(sdkerrors.KindValidation, "workflow ID is required", 0, nil)
	}
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	eff := config.Merge(snap.Config, runtime)
	timeout := eff.RequestTimeout()
	span.SetAttributes(attribute.Bool("argil.synchronous", eff.Synchronous))

	log := logger.FromContext(ctx).With("workflow_id", workflowID)
	log.Info("Starting workflow run", "synchronous", eff.Synchronous, "timeout", timeout)
	s.recorder.RunStarted(ctx, eff.Synchronous)
	began := s.clock.Now()
	defer func() {
		s.recorder.RunFinished(ctx, outcome(run, err, eff.Synchronous), s.clock.Since(began))
	}()

	run, err = s.send(ctx, snap.Transport, &transport.Request{
		Method:  http.MethodPost,
		Path:    RouteRunWorkflow,
		Route:   RouteRunWorkflow,
		Body:    apitypes.RunWorkflowRequest{ID: workflowID, Input: input},
		Timeout: timeout,
	})
	if err != nil {
		log.Error("Failed to start workflow run", "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("argil.run_id", run.ID))
	if !eff.Synchronous {
		log.Info("Workflow run accepted", "run_id", run.ID, "status", run.Status)
		return run, nil
	}
	if run.ID == "" || run.Status == "" {
		return nil, sdkerrors.New(
			sdkerrors.KindValidation,
			"workflow run response is missing id or status",
			0,
			run,
		)
	}
	run, err = s.poll(ctx, snap, run, timeout)
	if err != nil {
		log.Error("Workflow run did not complete", "error", err)
		return run, err
	}
	log.Info("Workflow run finished", "run_id", run.ID, "status", run.Status)
	return run, nil
}

// errRunPending marks a poll attempt that saw QUEUED or RUNNING.
var errRunPending = errors.New("workflow run is still pending")

// poll waits for run to leave the pending states. The deadline is measured
// from the first check, so poll request latency counts against it. The first
// attempt only inspects the start response; every later one fetches the run.
func (s *Service) poll(
	ctx context.Context,
	snap *transport.Snapshot,
	run *apitypes.WorkflowRun,
	timeout time.Duration,
) (*apitypes.WorkflowRun, error) {
	log := logger.FromContext(ctx).With("run_id", run.ID)
	start := s.clock.Now()
	runID := run.ID
	fetch := false
	err := retry.Do(ctx, s.pollBackoff(ctx), func(ctx context.Context) error {
		if fetch {
			next, err := s.send(ctx, snap.Transport, &transport.Request{
				Method:  http.MethodGet,
				Path:    "/getWorkflowRun/" + url.PathEscape(runID),
				Route:   RouteGetWorkflowRun,
				Timeout: snap.Config.DefaultSyncTimeout(),
			})
			if err != nil {
				return err
			}
			s.recorder.PollObserved(ctx, next.Status.String())
			log.Debug("Polled workflow run", "status", next.Status, "elapsed", s.clock.Since(start))
			if next.Status.IsFailed() {
				return sdkerrors.New(sdkerrors.KindExecutionFailed, MsgExecutionFailed, http.StatusInternalServerError, next)
			}
			if next.ID == "" {
				next.ID = runID
			}
			run = next
		}
		fetch = true
		if !run.Status.IsPending() {
			return nil
		}
		if s.clock.Since(start) > timeout {
			return sdkerrors.New(sdkerrors.KindTimeout, MsgTimedOut, http.StatusRequestTimeout, nil)
		}
		return retry.RetryableError(errRunPending)
	})
	switch {
	case err == nil:
		return run, nil
	case errors.Is(err, errRunPending):
		return nil, sdkerrors.New(sdkerrors.KindTimeout, MsgTimedOut, http.StatusRequestTimeout, nil)
	case ctx.Err() != nil && !errors.As(err, new(*sdkerrors.Error)):
		return nil, sdkerrors.Wrap(sdkerrors.KindCanceled, err, "workflow run polling canceled")
	default:
		return nil, err
	}
}

func constantPollBackoff() retry.Backoff {
	return retry.NewConstant(PollInterval)
}

// pollBackoff waits out each delay of the schedule on the service Clock and
// hands retry.Do a zero delay. A ctx canceled during the wait is reported by
// retry.Do itself.
func (s *Service) pollBackoff(ctx context.Context) retry.Backoff {
	schedule := s.newBackoff()
	return retry.BackoffFunc(func() (time.Duration, bool) {
		wait, stop := schedule.Next()
		if stop {
			return 0, true
		}
		_ = s.clock.Sleep(ctx, wait)
		return 0, false
	})
}

func (s *Service) current() (*transport.Snapshot, error) {
	var snap *transport.Snapshot
	if s.snapshot != nil {
		snap = s.snapshot()
	}
	if snap == nil || snap.Config == nil || snap.Transport == nil {
		return nil, sdkerrors.New(sdkerrors.KindConfig, "client is not configured", 0, nil)
	}
	return snap, nil
}

func (s *Service) send(ctx context.Context, tr transport.Transport, req *transport.Request) (*apitypes.WorkflowRun, error) {
	body, err := tr.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	run, err := transport.Decode[apitypes.WorkflowRun](body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", req.Route, err)
	}
	return run, nil
}

func outcome(run *apitypes.WorkflowRun, err error, synchronous bool) string {
	switch {
	case err == nil && !synchronous:
		return telemetry.OutcomeAccepted
	case err == nil && run != nil && run.Status == apitypes.RunStatusCompleted:
		return telemetry.OutcomeCompleted
	case err == nil:
		return telemetry.OutcomeAccepted
	case errors.Is(err, sdkerrors.ErrExecutionFailed):
		return telemetry.OutcomeFailed
	case errors.Is(err, sdkerrors.ErrTimeout):
		return telemetry.OutcomeTimeout
	case errors.Is(err, sdkerrors.ErrCanceled):
		return telemetry.OutcomeCanceled
	default:
		return telemetry.OutcomeError
	}
}
