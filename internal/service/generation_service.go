package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"genstudio-be/internal/dto"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/pkg/billing"
	"genstudio-be/pkg/dispatch"
	"genstudio-be/pkg/metrics"
	"genstudio-be/pkg/reconcile"
	"genstudio-be/pkg/taskstate"

	"github.com/google/uuid"
)

var (
	ErrInvalidRequestBody = errors.New("invalid JSON body")
	ErrTaskNotOwned       = errors.New("task belongs to another user")
)

type IGenerationService interface {
	// Submit runs authorize → dispatch → {reconcile | refund} for one POST.
	Submit(ctx context.Context, userID, path string, body []byte) (dispatch.Result, error)
	// Poll passes a GET through and reacts to the first terminal status it sees.
	Poll(ctx context.Context, userID, path, rawQuery string) (dispatch.Result, error)
	Cancel(ctx context.Context, userID, taskID string) (dispatch.Result, error)
	// HandleTaskStatus applies the side effects of a terminal task status at most once.
	// callerID is the polling user when known.
	HandleTaskStatus(ctx context.Context, status dispatch.TaskStatus, callerID string) error
	// IsBilledPath reports whether a POST to path goes through the billing gate.
	IsBilledPath(path string) bool
}

// Backend is the part of *dispatch.Dispatcher the service drives.
type Backend interface {
	Dispatch(ctx context.Context, path string, body []byte, correlationID string) (dispatch.Result, error)
	Poll(ctx context.Context, path, rawQuery string) (dispatch.Result, error)
	CancelTask(ctx context.Context, taskID, correlationID string) (dispatch.Result, error)
}

// TaskTracker is satisfied by *taskpoller.Poller.
type TaskTracker interface {
	Track(taskID string)
	Untrack(taskID string)
}

type GenerationServiceDeps struct {
	Gate       *billing.Gate
	Refunder   *billing.Refunder
	Backend    Backend
	Reconciler *reconcile.Reconciler
	Pending    taskstate.PendingStore
	Guard      taskstate.Guard
	Tracker    TaskTracker
	Metrics    *metrics.GenerationMetrics
	Logger     logger.ILogger
	FreePaths  []string
}

type generationService struct {
	gate       *billing.Gate
	refunder   *billing.Refunder
	backend    Backend
	reconciler *reconcile.Reconciler
	pending    taskstate.PendingStore
	guard      taskstate.Guard
	tracker    TaskTracker
	metrics    *metrics.GenerationMetrics
	logger     logger.ILogger
	freePaths  map[string]struct{}
}

func NewGenerationService(deps GenerationServiceDeps) IGenerationService {
	free := make(map[string]struct{}, len(deps.FreePaths))
	for _, p := range deps.FreePaths {
		free[normalizePath(p)] = struct{}{}
	}
	return &generationService{
		gate:       deps.Gate,
		refunder:   deps.Refunder,
		backend:    deps.Backend,
		reconciler: deps.Reconciler,
		pending:    deps.Pending,
		guard:      deps.Guard,
		tracker:    deps.Tracker,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		freePaths:  free,
	}
}

func normalizePath(p string) string {
	return strings.ToLower(strings.Trim(p, "/"))
}

func (s *generationService) isFree(path string) bool {
	_, ok := s.freePaths[normalizePath(path)]
	return ok
}

func (s *generationService) IsBilledPath(path string) bool {
	return !s.isFree(path)
}

func (s *generationService) Submit(ctx context.Context, userID, path string, body []byte) (dispatch.Result, error) {
	correlationID := uuid.NewString()
	free := s.isFree(path)

	var req dto.GenerationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		if !free {
			s.metrics.IncRequest(true, metrics.OutcomeInvalidRequest)
			return dispatch.Result{}, fmt.Errorf("%w: %v", ErrInvalidRequestBody, err)
		}
		req = dto.GenerationRequest{}
	}

	charge := billing.Charge{UserID: userID, CorrelationID: correlationID, Tier: req.ImageSize}
	if !free {
		var err error
		charge, err = s.gate.Authorize(ctx, userID, req.ImageSize, correlationID)
		if err != nil {
			var insufficient *billing.InsufficientCreditsError
			if errors.As(err, &insufficient) {
				s.metrics.IncRequest(true, metrics.OutcomeInsufficientCredits)
			} else {
				s.metrics.IncRequest(true, metrics.OutcomeBillingError)
				s.logger.Error(logger.ModuleBilling, "Billing failed", map[string]interface{}{
					"tx_id":   correlationID,
					"user_id": userID,
					"error":   err.Error(),
				})
			}
			return dispatch.Result{}, err
		}
		s.metrics.AddDebited(charge.Cost)
	}

	start := time.Now()
	res, err := s.backend.Dispatch(ctx, path, body, correlationID)
	if err != nil {
		s.failDispatch(ctx, charge, err, time.Since(start))
		return res, err
	}
	s.metrics.ObserveDispatch(metrics.OutcomeSuccess, time.Since(start))

	payload, ok := res.JSON()
	if !ok {
		s.metrics.IncRequest(charge.Billed, metrics.OutcomeSuccess)
		return res, nil
	}

	if taskID := dispatch.TaskID(payload); taskID != "" {
		s.acceptTask(ctx, taskID, charge, req)
		s.metrics.IncRequest(charge.Billed, metrics.OutcomeAsyncAccepted)
		return res, nil
	}

	s.metrics.IncRequest(charge.Billed, metrics.OutcomeSuccess)
	if userID == "" || dispatch.ImageData(payload) == "" {
		return res, nil
	}

	outcome, err := s.reconciler.Reconcile(ctx, reconcile.Input{
		UserID:        userID,
		CorrelationID: correlationID,
		Mode:          reconcile.ModeSync,
		Meta:          req.ToMeta(),
		Result:        payload,
	})
	if err != nil {
		s.metrics.IncReconcile(reconcile.ModeSync.String(), metrics.ReconcileError)
		s.logger.Error(logger.ModuleReconcile, "Auto-save failed", map[string]interface{}{
			"tx_id":   correlationID,
			"user_id": userID,
			"error":   err.Error(),
		})
		return res, nil
	}
	s.metrics.IncReconcile(reconcile.ModeSync.String(), metrics.ReconcileCreated)

	payload["creationId"] = outcome.Creation.Id.String()
	augmented, err := json.Marshal(payload)
	if err != nil {
		return res, nil
	}
	res.Body = augmented
	res.ContentType = "application/json"
	return res, nil
}

// failDispatch refunds a billed charge after a definitive dispatch failure.
// The refund runs on a context detached from the client, which may already be gone.
func (s *generationService) failDispatch(ctx context.Context, charge billing.Charge, err error, elapsed time.Duration) {
	var (
		backendErr *dispatch.BackendError
		cause      string
		outcome    string
	)
	if errors.As(err, &backendErr) {
		cause = billing.CauseBackendFailure(backendErr.StatusCode)
		outcome = metrics.OutcomeBackendError
	} else {
		cause = billing.CauseNetworkError
		outcome = metrics.OutcomeNetworkError
	}
	s.metrics.ObserveDispatch(outcome, elapsed)
	s.metrics.IncRequest(charge.Billed, outcome)

	if !charge.Billed {
		return
	}
	if rerr := s.refunder.RefundCharge(context.WithoutCancel(ctx), charge, cause); rerr != nil {
		s.logger.Error(logger.ModuleBilling, "Refund failed", map[string]interface{}{
			"tx_id":   charge.CorrelationID,
			"user_id": charge.UserID,
			"cost":    charge.Cost,
			"cause":   cause,
			"error":   rerr.Error(),
		})
		return
	}
	s.metrics.AddRefunded(cause, charge.Cost)
}

func (s *generationService) acceptTask(ctx context.Context, taskID string, charge billing.Charge, req dto.GenerationRequest) {
	meta, _ := json.Marshal(req.ToMeta())
	task := taskstate.PendingTask{
		TaskID:        taskID,
		UserID:        charge.UserID,
		CorrelationID: charge.CorrelationID,
		Cost:          charge.Cost,
		Billed:        charge.Billed,
		Meta:          meta,
		SubmittedAt:   time.Now().UTC(),
	}
	if err := s.pending.Save(ctx, task); err != nil {
		// Without the record a failed task cannot be refunded automatically.
		s.logger.Error(logger.ModuleTasks, "Failed to register pending task", map[string]interface{}{
			"tx_id":   charge.CorrelationID,
			"task_id": taskID,
			"error":   err.Error(),
		})
	}
	s.tracker.Track(taskID)
	s.logger.Info(logger.ModuleTasks, "Task accepted", map[string]interface{}{
		"tx_id":   charge.CorrelationID,
		"task_id": taskID,
		"user_id": charge.UserID,
		"billed":  charge.Billed,
	})
}

func (s *generationService) Poll(ctx context.Context, userID, path, rawQuery string) (dispatch.Result, error) {
	res, err := s.backend.Poll(ctx, path, rawQuery)
	if err != nil {
		return res, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil
	}

	status, ok := dispatch.ParseTaskStatus(res.Body)
	if !ok || !status.IsTerminal() {
		return res, nil
	}
	if status.ID == "" {
		status.ID = lastSegment(path)
	}
	if err := s.HandleTaskStatus(ctx, status, userID); err != nil {
		s.logger.Error(logger.ModuleTasks, "Terminal status handling failed", map[string]interface{}{
			"task_id": status.ID,
			"status":  status.Status,
			"error":   err.Error(),
		})
	}
	return res, nil
}

func lastSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func (s *generationService) Cancel(ctx context.Context, userID, taskID string) (dispatch.Result, error) {
	task, found, err := s.pending.Get(ctx, taskID)
	if err != nil {
		return dispatch.Result{}, err
	}
	correlationID := ""
	if found {
		if task.UserID != "" && task.UserID != userID {
			return dispatch.Result{}, ErrTaskNotOwned
		}
		correlationID = task.CorrelationID
	}
	s.logger.Info(logger.ModuleTasks, "Task cancel requested", map[string]interface{}{
		"tx_id":   correlationID,
		"task_id": taskID,
		"user_id": userID,
	})
	// The refund follows once the CANCELLED status is observed.
	return s.backend.CancelTask(ctx, taskID, correlationID)
}

func (s *generationService) HandleTaskStatus(ctx context.Context, status dispatch.TaskStatus, callerID string) error {
	if status.ID == "" || !status.IsTerminal() {
		return nil
	}

	task, found, err := s.pending.Get(ctx, status.ID)
	if err != nil {
		return fmt.Errorf("load pending task: %w", err)
	}
	if found {
		s.metrics.IncTerminalTask(status.Status)
	}

	if status.IsCompleted() {
		return s.completeTask(ctx, status, task, found, callerID)
	}
	return s.failTask(ctx, status, task, found)
}

func (s *generationService) completeTask(ctx context.Context, status dispatch.TaskStatus, task taskstate.PendingTask, found bool, callerID string) error {
	image := status.ResultImage()
	userID := task.UserID
	if !found {
		userID = callerID
	}
	if image == "" || userID == "" {
		s.finishTask(ctx, status)
		return nil
	}
	if !found {
		// No owner on record. An existing creation for the task wins inside
		// the reconciler, otherwise the result goes to the polling caller.
		s.logger.Warn(logger.ModuleTasks, "Pending task missing, attributing result to caller", map[string]interface{}{
			"task_id": status.ID,
			"user_id": callerID,
		})
	}

	key := taskstate.ReconcileKey(status.ID)
	acquired, err := s.guard.Acquire(ctx, key, taskstate.DefaultGuardTTL)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if !acquired {
		s.metrics.IncReconcile(reconcile.ModeAsync.String(), metrics.ReconcileDuplicate)
		return nil
	}

	var meta reconcile.RequestMeta
	if found && len(task.Meta) > 0 {
		_ = json.Unmarshal(task.Meta, &meta)
	}

	outcome, err := s.reconciler.Reconcile(ctx, reconcile.Input{
		UserID:        userID,
		CorrelationID: task.CorrelationID,
		TaskID:        status.ID,
		Mode:          reconcile.ModeAsync,
		Meta:          meta,
		Result:        status.Result,
	})
	if err != nil {
		// Let a later observation retry; the reconciler re-checks the session.
		_ = s.guard.Release(ctx, key)
		s.metrics.IncReconcile(reconcile.ModeAsync.String(), metrics.ReconcileError)
		s.logger.Error(logger.ModuleReconcile, "Async auto-save failed", map[string]interface{}{
			"tx_id":   task.CorrelationID,
			"task_id": status.ID,
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil
	}
	if outcome.Created {
		s.metrics.IncReconcile(reconcile.ModeAsync.String(), metrics.ReconcileCreated)
	} else {
		s.metrics.IncReconcile(reconcile.ModeAsync.String(), metrics.ReconcileDuplicate)
	}
	s.finishTask(ctx, status)
	return nil
}

func (s *generationService) failTask(ctx context.Context, status dispatch.TaskStatus, task taskstate.PendingTask, found bool) error {
	if !found || !task.Billed || task.Cost <= 0 {
		s.finishTask(ctx, status)
		return nil
	}

	key := taskstate.RefundKey(status.ID)
	acquired, err := s.guard.Acquire(ctx, key, taskstate.DefaultGuardTTL)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if !acquired {
		return nil
	}

	cause := billing.CauseTaskFailed
	if strings.EqualFold(status.Status, dispatch.TaskCancelled) {
		cause = billing.CauseTaskCancelled
	}
	if err := s.refunder.Refund(ctx, task.UserID, task.Cost, task.CorrelationID, cause); err != nil {
		_ = s.guard.Release(ctx, key)
		return err
	}
	s.metrics.AddRefunded(cause, task.Cost)
	s.finishTask(ctx, status)
	return nil
}

func (s *generationService) finishTask(ctx context.Context, status dispatch.TaskStatus) {
	s.tracker.Untrack(status.ID)
	if err := s.pending.Delete(ctx, status.ID); err != nil {
		s.logger.Warn(logger.ModuleTasks, "Failed to drop pending task", map[string]interface{}{
			"task_id": status.ID,
			"error":   err.Error(),
		})
	}
}
