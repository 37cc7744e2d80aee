package service

import (
	"context"
	"errors"

	"genstudio-be/internal/dto"
	"genstudio-be/internal/entity"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/repository/specification"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/reconcile"

	"github.com/google/uuid"
)

type ILibraryService interface {
	List(ctx context.Context, userID string, page, limit int) (*dto.PageResponse[dto.CreationResponse], error)
	Save(ctx context.Context, userID string, req dto.SaveCreationRequest) (*dto.SaveCreationResponse, error)
}

type libraryService struct {
	uowFactory unitofwork.RepositoryFactory
	reconciler *reconcile.Reconciler
	logger     logger.ILogger
}

func NewLibraryService(uowFactory unitofwork.RepositoryFactory, reconciler *reconcile.Reconciler, logger logger.ILogger) ILibraryService {
	return &libraryService{
		uowFactory: uowFactory,
		reconciler: reconciler,
		logger:     logger,
	}
}

func (s *libraryService) List(ctx context.Context, userID string, page, limit int) (*dto.PageResponse[dto.CreationResponse], error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.CreationRepository()

	total, err := repo.Count(ctx, specification.UserOwnedBy{UserID: userID})
	if err != nil {
		return nil, err
	}
	creations, err := repo.FindAll(ctx,
		specification.UserOwnedBy{UserID: userID},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Page(page, limit),
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CreationResponse, 0, len(creations))
	for _, c := range creations {
		items = append(items, toCreationResponse(c))
	}
	return &dto.PageResponse[dto.CreationResponse]{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// Save stores a result the client already holds. It goes through the same
// reconciler as auto-save so session grouping and classification match.
func (s *libraryService) Save(ctx context.Context, userID string, req dto.SaveCreationRequest) (*dto.SaveCreationResponse, error) {
	correlationID := uuid.NewString()
	outcome, err := s.reconciler.Reconcile(ctx, reconcile.Input{
		UserID:        userID,
		CorrelationID: correlationID,
		Mode:          reconcile.ModeSync,
		Meta:          req.ToMeta(),
		Result:        map[string]interface{}{"image_data": req.OutputImage},
	})
	if err != nil {
		s.logger.Error(logger.ModuleReconcile, "Manual save failed", map[string]interface{}{
			"tx_id":   correlationID,
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}
	if outcome.Creation == nil {
		return nil, errors.New("creation was not saved")
	}
	return &dto.SaveCreationResponse{Success: true, Id: outcome.Creation.Id}, nil
}

func toCreationResponse(c *entity.Creation) dto.CreationResponse {
	inputs := c.InputImageUrls
	if inputs == nil {
		inputs = []string{}
	}
	return dto.CreationResponse{
		Id:             c.Id,
		Prompt:         c.Prompt,
		Negative:       c.Negative,
		AspectRatio:    c.AspectRatio,
		ImageSize:      c.ImageSize,
		ShotPreset:     c.ShotPreset,
		LightingPreset: c.LightingPreset,
		FocalLength:    c.FocalLength,
		Guidance:       c.Guidance,
		InputImageUrls: inputs,
		OutputImageUrl: c.OutputImageUrl,
		Status:         c.Status,
		SessionId:      c.SessionId,
		CreationType:   string(c.CreationType),
		CreatedAt:      c.CreatedAt,
	}
}
