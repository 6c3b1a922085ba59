// Package transport sends authenticated JSON requests to the Argil API.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/argil-ai/argil-go/pkg/config"
	"github.com/argil-ai/argil-go/pkg/logger"
	"github.com/argil-ai/argil-go/pkg/telemetry"
	"github.com/argil-ai/argil-go/pkg/version"
	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
)

const RequestIDHeader = "X-Request-ID"

// Request describes one API call. Route is the path template reported in
// metrics; it defaults to Path.
type Request struct {
	Method  string
	Path    string
	Route   string
	Body    any
	Timeout time.Duration
}

// Transport sends a request and returns the raw 2xx response body.
type Transport interface {
	Send(ctx context.Context, req *Request) ([]byte, error)
}

// Factory builds a Transport bound to one configuration.
type Factory func(cfg *config.GlobalConfig) (Transport, error)

// Snapshot pairs a configuration with the transport built from it. It is
// never mutated after construction.
type Snapshot struct {
	Config    *config.GlobalConfig
	Transport Transport
}

// Option configures a Client.
type Option func(*Client)

// WithRecorder reports request counts and latencies to rec.
func WithRecorder(rec telemetry.Recorder) Option {
	return func(c *Client) {
		if rec != nil {
			c.recorder = rec
		}
	}
}

// WithHTTPClient replaces the underlying net/http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Client is the resty backed Transport. The resty client is configured once
// and never changed afterwards; per-request timeouts live on the request
// context.
type Client struct {
	rest     *resty.Client
	http     *http.Client
	recorder telemetry.Recorder
}

// New builds a Client for cfg.
func New(cfg *config.GlobalConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, sdkerrors.New(sdkerrors.KindConfig, "configuration is required", 0, nil)
	}
	c := &Client{recorder: telemetry.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	var rest *resty.Client
	if c.http != nil {
		rest = resty.NewWithClient(c.http)
	} else {
		rest = resty.New()
	}
	c.rest = rest.
		SetBaseURL(cfg.APIURL()).
		SetAuthToken(cfg.APIKey()).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent()).
		SetLogger(restyLogger{log: logger.GetDefault()})
	return c, nil
}

// NewFactory returns a Factory producing Clients with opts applied.
func NewFactory(opts ...Option) Factory {
	return func(cfg *config.GlobalConfig) (Transport, error) {
		return New(cfg, opts...)
	}
}

// Send issues req and returns the response body of a 2xx reply.
func (c *Client) Send(ctx context.Context, req *Request) ([]byte, error) {
	if req == nil {
		return nil, sdkerrors.New(sdkerrors.KindValidation, "request is required", 0, nil)
	}
	if req.Timeout <= 0 {
		return nil, sdkerrors.New(
			sdkerrors.KindValidation,
			fmt.Sprintf("invalid request timeout %s: it should be a positive duration", req.Timeout),
			0,
			nil,
		)
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	route := req.Route
	if route == "" {
		route = req.Path
	}
	requestID := uuid.NewString()
	log := logger.FromContext(ctx).With("method", method, "path", req.Path, "request_id", requestID)

	reqCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	r := c.rest.R().
		SetContext(reqCtx).
		SetHeader(RequestIDHeader, requestID)
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	started := time.Now()
	resp, err := r.Execute(method, req.Path)
	elapsed := time.Since(started)
	statusCode := 0
	if resp != nil && resp.RawResponse != nil {
		statusCode = resp.StatusCode()
	}
	c.recorder.RequestDone(ctx, method, route, statusCode, elapsed)
	if err != nil {
		log.Debug("API request failed", "error", err, "elapsed", elapsed)
		return nil, requestError(ctx, err, req.Timeout)
	}
	log.Debug("API request completed", "status_code", statusCode, "elapsed", elapsed)
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, responseError(resp)
	}
	return resp.Body(), nil
}

func requestError(parent context.Context, err error, timeout time.Duration) error {
	if parentErr := parent.Err(); parentErr != nil && errors.Is(parentErr, context.Canceled) {
		return sdkerrors.Wrap(sdkerrors.KindCanceled, parentErr, "request canceled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sdkerrors.Wrap(sdkerrors.KindTransport, err, fmt.Sprintf("request timed out after %s", timeout))
	}
	return sdkerrors.Wrap(sdkerrors.KindTransport, err, "unable to reach the Argil API")
}

// responseError maps a non-2xx reply. Details is the decoded JSON body when
// there is one, otherwise its text.
func responseError(resp *resty.Response) error {
	code := resp.StatusCode()
	details := parseDetails(resp.Body())
	msg := apiMessage(details)
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status code %d", code)
	}
	return sdkerrors.New(sdkerrors.KindTransport, msg, code, details)
}

func parseDetails(body []byte) any {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return trimmed
	}
	return decoded
}

func apiMessage(details any) string {
	envelope, ok := details.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if text, ok := envelope[key].(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// restyLogger forwards resty's internal warnings to the SDK logger.
type restyLogger struct {
	log logger.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error(fmt.Sprintf(format, v...)) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug(fmt.Sprintf(format, v...)) }
