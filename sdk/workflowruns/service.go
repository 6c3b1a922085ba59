// Package workflowruns reads workflow run snapshots.
package workflowruns

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/argil-ai/argil-go/pkg/apitypes"
	"github.com/argil-ai/argil-go/pkg/logger"
	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
	"github.com/argil-ai/argil-go/sdk/transport"
)

const (
	RouteList = "/getWorkflowRuns"
	RouteGet  = "/getWorkflowRun/{id}"
)

// Service lists and fetches runs. Requests use the global sync timeout.
type Service struct {
	snapshot func() *transport.Snapshot
	log      logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used when the call context carries none.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

func New(snapshot func() *transport.Snapshot, opts ...Option) *Service {
	s := &Service{snapshot: snapshot}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every run visible to the API key, in server order.
func (s *Service) List(ctx context.Context) ([]apitypes.WorkflowRun, error) {
	ctx = logger.EnsureLogger(ctx, s.log)
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	body, err := snap.Transport.Send(ctx, &transport.Request{
		Method:  http.MethodGet,
		Path:    RouteList,
		Route:   RouteList,
		Timeout: snap.Config.DefaultSyncTimeout(),
	})
	if err != nil {
		return nil, err
	}
	runs, err := transport.Decode[[]apitypes.WorkflowRun](body)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("Listed workflow runs", "count", len(*runs))
	if *runs == nil {
		return []apitypes.WorkflowRun{}, nil
	}
	return *runs, nil
}

// Get fetches one run by id.
func (s *Service) Get(ctx context.Context, id string) (*apitypes.WorkflowRun, error) {
	ctx = logger.EnsureLogger(ctx, s.log)
	if strings.TrimSpace(id) == "" {
		return nil, sdkerrors.New(sdkerrors.KindValidation, "workflow run ID is required", 0, nil)
	}
	snap, err := s.current()
	if err != nil {
		return nil, err
	}
	body, err := snap.Transport.Send(ctx, &transport.Request{
		Method:  http.MethodGet,
		Path:    "/getWorkflowRun/" + url.PathEscape(id),
		Route:   RouteGet,
		Timeout: snap.Config.DefaultSyncTimeout(),
	})
	if err != nil {
		return nil, err
	}
	run, err := transport.Decode[apitypes.WorkflowRun](body)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("Fetched workflow run", "run_id", id, "status", run.Status)
	return run, nil
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
