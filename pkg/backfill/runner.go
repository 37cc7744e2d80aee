// Package backfill re-derives session ids and creation types for the whole library.
package backfill

import (
	"context"
	"fmt"
	"time"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/repository/specification"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/reconcile"

	"github.com/google/uuid"
)

type Report struct {
	TotalProcessed         int
	ExtractionSessions     int
	UpgradedToDigitalHuman int64
	Duration               time.Duration
}

// Runner overwrites every creation's session and type. Re-running it yields
// the same structure with fresh session ids.
type Runner struct {
	uowFactory unitofwork.RepositoryFactory
	classifier *reconcile.Classifier
	logger     logger.ILogger
}

func NewRunner(uowFactory unitofwork.RepositoryFactory, classifier *reconcile.Classifier, logger logger.ILogger) *Runner {
	return &Runner{
		uowFactory: uowFactory,
		classifier: classifier,
		logger:     logger,
	}
}

func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := time.Now()

	uow := r.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return Report{}, err
	}
	defer uow.Rollback()

	repo := uow.CreationRepository()

	creations, err := repo.FindAll(ctx,
		specification.OrderBy{Field: "user_id"},
		specification.OrderBy{Field: "created_at"},
		specification.OrderBy{Field: "id"},
	)
	if err != nil {
		return Report{}, fmt.Errorf("load creations: %w", err)
	}

	// Pass 1: every record is its own session.
	for _, c := range creations {
		creationType := r.classifier.Classify(c.Prompt, reconcile.PolicyDeferred)
		if err := repo.UpdateClassification(ctx, c.Id, uuid.NewString(), creationType); err != nil {
			return Report{}, fmt.Errorf("classify creation %s: %w", c.Id, err)
		}
	}

	// Pass 2: standard records sharing a session with an extraction become digital_human.
	sessions, err := repo.FindSessionIDsByType(ctx, entity.CreationTypeExtraction)
	if err != nil {
		return Report{}, fmt.Errorf("load extraction sessions: %w", err)
	}
	upgraded, err := repo.UpdateTypeForSessions(ctx, sessions, entity.CreationTypeStandard, entity.CreationTypeDigitalHuman)
	if err != nil {
		return Report{}, fmt.Errorf("upgrade sessions: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return Report{}, err
	}

	report := Report{
		TotalProcessed:         len(creations),
		ExtractionSessions:     len(sessions),
		UpgradedToDigitalHuman: upgraded,
		Duration:               time.Since(start),
	}
	r.logger.Info(logger.ModuleBackfill, "Backfill completed", map[string]interface{}{
		"total_processed":     report.TotalProcessed,
		"extraction_sessions": report.ExtractionSessions,
		"upgraded":            report.UpgradedToDigitalHuman,
		"duration":            report.Duration.String(),
	})
	return report, nil
}
