package contract

import (
	"context"

	"genstudio-be/internal/entity"
	"genstudio-be/internal/repository/specification"

	"github.com/google/uuid"
)

type CreationRepository interface {
	Create(ctx context.Context, creation *entity.Creation) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Creation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Creation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	UpdateClassification(ctx context.Context, id uuid.UUID, sessionID string, creationType entity.CreationType) error
	FindSessionIDsByType(ctx context.Context, creationType entity.CreationType) ([]string, error)
	// UpdateTypeForSessions rewrites from→to for every creation in the given sessions.
	UpdateTypeForSessions(ctx context.Context, sessionIDs []string, from, to entity.CreationType) (int64, error)
}
