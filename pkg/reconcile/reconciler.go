// Package reconcile auto-saves finished generations into the library.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/repository/specification"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/blob"
	"genstudio-be/pkg/dispatch"
	"genstudio-be/pkg/ledgerevents"
)

var ErrNoImage = errors.New("result carries no image data")

type Mode int

const (
	// ModeSync is a result returned directly by the dispatch call.
	ModeSync Mode = iota
	// ModeAsync is a completed task observed by polling. The task id is the session.
	ModeAsync
)

func (m Mode) String() string {
	if m == ModeAsync {
		return "async"
	}
	return "sync"
}

type Input struct {
	UserID        string
	CorrelationID string
	TaskID        string
	Mode          Mode
	Meta          RequestMeta
	Result        map[string]interface{}
}

// Outcome.Created is false when an async task was already saved.
type Outcome struct {
	Creation *entity.Creation
	Created  bool
}

type Reconciler struct {
	uowFactory unitofwork.RepositoryFactory
	blobs      blob.Store
	classifier *Classifier
	events     ledgerevents.Publisher
	logger     logger.ILogger
	now        func() time.Time
}

func NewReconciler(uowFactory unitofwork.RepositoryFactory, blobs blob.Store, classifier *Classifier, events ledgerevents.Publisher, logger logger.ILogger) *Reconciler {
	return &Reconciler{
		uowFactory: uowFactory,
		blobs:      blobs,
		classifier: classifier,
		events:     events,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PolicyFor applies immediate classification on the async path and whenever
// persona context is present. Other synchronous saves defer to the backfill.
func PolicyFor(mode Mode, meta RequestMeta) Policy {
	if mode == ModeAsync || meta.HasPersona() {
		return PolicyImmediate
	}
	return PolicyDeferred
}

// EffectivePrompt prefers the prompt echoed by the backend, which includes any
// server-side templating.
func EffectivePrompt(meta RequestMeta, result map[string]interface{}) string {
	if p, ok := result["prompt"].(string); ok && p != "" {
		return p
	}
	return meta.Prompt
}

// Reconcile persists blobs and one creation for a successful result. Callers
// log and swallow the error; it must never fail the client request.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) (Outcome, error) {
	image := dispatch.ImageData(in.Result)
	if image == "" {
		return Outcome{}, ErrNoImage
	}
	if in.Mode == ModeAsync && in.TaskID == "" {
		return Outcome{}, fmt.Errorf("async reconcile without task id")
	}

	if in.Mode == ModeAsync {
		existing, err := r.findBySession(ctx, in.TaskID)
		if err != nil {
			return Outcome{}, err
		}
		if existing != nil {
			return Outcome{Creation: existing}, nil
		}
	}

	outputURL, err := r.blobs.SaveImage(ctx, image)
	if err != nil {
		return Outcome{}, fmt.Errorf("save output image: %w", err)
	}

	refs := in.Meta.InputRefs()
	inputs := make([]string, 0, len(refs))
	for _, ref := range refs {
		stored, err := r.blobs.SaveInput(ctx, ref)
		if err != nil {
			return Outcome{}, fmt.Errorf("save input image: %w", err)
		}
		inputs = append(inputs, stored)
	}

	// Stored as classified so a later backfill derives the same type.
	prompt := EffectivePrompt(in.Meta, in.Result)
	creationType := r.classifier.Classify(prompt, PolicyFor(in.Mode, in.Meta))

	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return Outcome{}, err
	}
	defer uow.Rollback()

	repo := uow.CreationRepository()

	var sessionID string
	switch in.Mode {
	case ModeAsync:
		// Re-check inside the transaction; the guard may be process local.
		existing, err := repo.FindOne(ctx, specification.BySessionID{SessionID: in.TaskID})
		if err != nil {
			return Outcome{}, err
		}
		if existing != nil {
			return Outcome{Creation: existing}, nil
		}
		sessionID = in.TaskID
	default:
		latest, err := repo.FindOne(ctx,
			specification.UserOwnedBy{UserID: in.UserID},
			specification.OrderBy{Field: "created_at", Desc: true},
		)
		if err != nil {
			return Outcome{}, err
		}
		sessionID = ContinueSession(latest, r.now())
	}

	creation := &entity.Creation{
		UserId:         in.UserID,
		Prompt:         prompt,
		Negative:       in.Meta.NegativePrompt,
		AspectRatio:    in.Meta.AspectRatio,
		ImageSize:      in.Meta.ImageSize,
		ShotPreset:     in.Meta.ShotPreset,
		LightingPreset: in.Meta.LightingPreset,
		FocalLength:    in.Meta.FocalLength,
		Guidance:       in.Meta.GuidanceScale,
		InputImageUrls: inputs,
		OutputImageUrl: outputURL,
		Status:         entity.CreationStatusSuccess,
		SessionId:      sessionID,
		CreationType:   creationType,
		CreatedAt:      r.now(),
	}
	if err := repo.Create(ctx, creation); err != nil {
		return Outcome{}, fmt.Errorf("create creation: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return Outcome{}, err
	}

	r.logger.Info(logger.ModuleReconcile, "Creation saved", map[string]interface{}{
		"tx_id":         in.CorrelationID,
		"user_id":       in.UserID,
		"creation_id":   creation.Id.String(),
		"session_id":    sessionID,
		"creation_type": string(creationType),
		"mode":          in.Mode.String(),
	})
	r.events.PublishCreationSaved(ctx, in.UserID, creation.Id.String(), sessionID, string(creationType), in.CorrelationID)

	return Outcome{Creation: creation, Created: true}, nil
}

func (r *Reconciler) findBySession(ctx context.Context, sessionID string) (*entity.Creation, error) {
	uow := r.uowFactory.NewUnitOfWork(ctx)
	return uow.CreationRepository().FindOne(ctx, specification.BySessionID{SessionID: sessionID})
}
