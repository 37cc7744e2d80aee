// Package dispatch forwards generation requests to the compute backend.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genstudio-be/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderInternalSecret = "X-Internal-Secret"
	HeaderTransactionID  = "X-Transaction-ID"

	defaultTimeout     = 600 * time.Second
	defaultPollTimeout = 30 * time.Second
)

type Config struct {
	BaseURL        string
	InternalSecret string
	Timeout        time.Duration
	PollTimeout    time.Duration
	TaskStatusPath string
	TaskCancelPath string
}

type Dispatcher struct {
	cfg    Config
	client *http.Client
	tracer trace.Tracer
	logger logger.ILogger
}

// NewDispatcher applies the per-call timeouts through contexts, so the client
// itself carries none.
func NewDispatcher(cfg Config, client *http.Client, logger logger.ILogger) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.TaskStatusPath == "" {
		cfg.TaskStatusPath = "tasks/%s"
	}
	if cfg.TaskCancelPath == "" {
		cfg.TaskCancelPath = "tasks/%s/cancel"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Dispatcher{
		cfg:    cfg,
		client: client,
		tracer: otel.Tracer("genstudio-be/dispatch"),
		logger: logger,
	}
}

func (d *Dispatcher) endpoint(path, rawQuery string) string {
	u := d.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// Dispatch POSTs body verbatim. Non-2xx responses become *BackendError and
// transport failures, including the timeout, become *NetworkError.
func (d *Dispatcher) Dispatch(ctx context.Context, path string, body []byte, correlationID string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	res, err := d.do(ctx, http.MethodPost, d.endpoint(path, ""), body, correlationID)
	if err != nil {
		return Result{}, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		d.logger.Warn(logger.ModuleDispatch, "Backend returned error status", map[string]interface{}{
			"tx_id":  correlationID,
			"path":   path,
			"status": res.StatusCode,
		})
		return res, &BackendError{StatusCode: res.StatusCode, Body: res.Body}
	}
	return res, nil
}

// Poll is a GET passthrough. The backend status is returned as is.
func (d *Dispatcher) Poll(ctx context.Context, path, rawQuery string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.PollTimeout)
	defer cancel()
	return d.do(ctx, http.MethodGet, d.endpoint(path, rawQuery), nil, "")
}

func (d *Dispatcher) FetchTaskStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	path := fmt.Sprintf(d.cfg.TaskStatusPath, url.PathEscape(taskID))
	res, err := d.Poll(ctx, path, "")
	if err != nil {
		return TaskStatus{}, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return TaskStatus{}, &BackendError{StatusCode: res.StatusCode, Body: res.Body}
	}
	status, ok := ParseTaskStatus(res.Body)
	if !ok {
		return TaskStatus{}, fmt.Errorf("task %s: unrecognised status body", taskID)
	}
	if status.ID == "" {
		status.ID = taskID
	}
	return status, nil
}

// CancelTask asks the backend to stop a task. Work already running may still finish.
func (d *Dispatcher) CancelTask(ctx context.Context, taskID, correlationID string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.PollTimeout)
	defer cancel()
	path := fmt.Sprintf(d.cfg.TaskCancelPath, url.PathEscape(taskID))
	return d.do(ctx, http.MethodPost, d.endpoint(path, ""), nil, correlationID)
}

func (d *Dispatcher) do(ctx context.Context, method, target string, body []byte, correlationID string) (Result, error) {
	ctx, span := d.tracer.Start(ctx, "backend.dispatch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", target),
		attribute.String("genstudio.tx_id", correlationID),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return Result{}, &NetworkError{Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.cfg.InternalSecret != "" {
		req.Header.Set(HeaderInternalSecret, d.cfg.InternalSecret)
	}
	if correlationID != "" {
		req.Header.Set(HeaderTransactionID, correlationID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		netErr := d.networkError(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, netErr.Message)
		d.logger.Error(logger.ModuleDispatch, "Backend call failed", map[string]interface{}{
			"tx_id":    correlationID,
			"url":      target,
			"error":    netErr.Message,
			"duration": time.Since(start).String(),
		})
		return Result{}, netErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		netErr := d.networkError(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, netErr.Message)
		return Result{}, netErr
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	d.logger.Debug(logger.ModuleDispatch, "Backend call finished", map[string]interface{}{
		"tx_id":    correlationID,
		"method":   method,
		"url":      target,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	return Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

func (d *Dispatcher) networkError(ctx context.Context, err error) *NetworkError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &NetworkError{Message: "backend call timed out", Err: err}
	case errors.Is(ctx.Err(), context.Canceled):
		return &NetworkError{Message: "backend call cancelled", Err: err}
	default:
		return &NetworkError{Message: err.Error(), Err: err}
	}
}
