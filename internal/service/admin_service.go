package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genstudio-be/internal/dto"
	"genstudio-be/internal/entity"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/repository/specification"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/pkg/backfill"
	"genstudio-be/pkg/billing"
)

var ErrBackfillRunning = errors.New("backfill already running")

type IAdminService interface {
	IsAdmin(ctx context.Context, userID, tokenRole string) (bool, error)

	SetCredits(ctx context.Context, req dto.AdminSetCreditsRequest) (*dto.AdminSetCreditsResponse, error)
	GetCreditLogs(ctx context.Context, userID string, page, limit int) (*dto.PageResponse[dto.CreditLogResponse], error)

	RunBackfill(ctx context.Context) (*dto.BackfillResponse, error)

	GetSystemLogs(ctx context.Context, page, limit int, filter logger.LogFilter) ([]*dto.LogListResponse, error)
	GetLogDetail(ctx context.Context, logId string) (*dto.LogDetailResponse, error)
}

type adminService struct {
	uowFactory unitofwork.RepositoryFactory
	adjuster   *billing.Adjuster
	backfill   *backfill.Runner
	logger     logger.ILogger
	// single slot; a second concurrent backfill is rejected
	backfillSlot chan struct{}
}

func NewAdminService(
	uowFactory unitofwork.RepositoryFactory,
	adjuster *billing.Adjuster,
	backfillRunner *backfill.Runner,
	logger logger.ILogger,
) IAdminService {
	return &adminService{
		uowFactory:   uowFactory,
		adjuster:     adjuster,
		backfill:     backfillRunner,
		logger:       logger,
		backfillSlot: make(chan struct{}, 1),
	}
}

// IsAdmin trusts an admin role claim, otherwise falls back to the stored role.
func (s *adminService) IsAdmin(ctx context.Context, userID, tokenRole string) (bool, error) {
	if entity.UserRole(tokenRole) == entity.UserRoleAdmin {
		return true, nil
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByUserKey{ID: userID})
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

func (s *adminService) SetCredits(ctx context.Context, req dto.AdminSetCreditsRequest) (*dto.AdminSetCreditsResponse, error) {
	adj, err := s.adjuster.SetCredits(ctx, req.UserId, *req.Credits)
	if err != nil {
		return nil, err
	}
	return &dto.AdminSetCreditsResponse{
		UserId:     adj.UserID,
		OldCredits: adj.OldCredits,
		NewCredits: adj.NewCredits,
		Amount:     adj.Amount,
	}, nil
}

func (s *adminService) GetCreditLogs(ctx context.Context, userID string, page, limit int) (*dto.PageResponse[dto.CreditLogResponse], error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.CreditLogRepository()

	total, err := repo.Count(ctx, specification.UserOwnedBy{UserID: userID})
	if err != nil {
		return nil, err
	}
	logs, err := repo.FindAll(ctx,
		specification.UserOwnedBy{UserID: userID},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Page(page, limit),
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CreditLogResponse, 0, len(logs))
	for _, l := range logs {
		items = append(items, dto.CreditLogResponse{
			Id:            l.Id,
			UserId:        l.UserId,
			Amount:        l.Amount,
			Reason:        l.Reason,
			TransactionId: l.TransactionId,
			CreatedAt:     l.CreatedAt,
		})
	}
	return &dto.PageResponse[dto.CreditLogResponse]{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

func (s *adminService) RunBackfill(ctx context.Context) (*dto.BackfillResponse, error) {
	select {
	case s.backfillSlot <- struct{}{}:
		defer func() { <-s.backfillSlot }()
	default:
		return nil, ErrBackfillRunning
	}

	report, err := s.backfill.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.BackfillResponse{
		TotalProcessed:         report.TotalProcessed,
		ExtractionSessions:     report.ExtractionSessions,
		UpgradedToDigitalHuman: report.UpgradedToDigitalHuman,
		Duration:               report.Duration.String(),
		Message: fmt.Sprintf("Migrated %d creations. Upgraded %d to digital_human.",
			report.TotalProcessed, report.UpgradedToDigitalHuman),
	}, nil
}

func (s *adminService) GetSystemLogs(ctx context.Context, page, limit int, filter logger.LogFilter) ([]*dto.LogListResponse, error) {
	logs, err := s.logger.GetLogs(filter, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.LogListResponse, 0, len(logs))
	for _, l := range logs {
		ts, _ := time.Parse(time.RFC3339, l.Timestamp)
		res = append(res, &dto.LogListResponse{
			Id:        l.Id,
			Level:     l.Level,
			Module:    l.Module,
			TxId:      l.TxID,
			Message:   l.Message,
			CreatedAt: ts,
		})
	}
	return res, nil
}

func (s *adminService) GetLogDetail(ctx context.Context, logId string) (*dto.LogDetailResponse, error) {
	l, err := s.logger.GetLogById(logId)
	if err != nil {
		return nil, err
	}

	ts, _ := time.Parse(time.RFC3339, l.Timestamp)
	return &dto.LogDetailResponse{
		LogListResponse: dto.LogListResponse{
			Id:        logId,
			Level:     l.Level,
			Module:    l.Module,
			TxId:      l.TxID,
			Message:   l.Message,
			CreatedAt: ts,
		},
		Details: l.Details,
	}, nil
}
