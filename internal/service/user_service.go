package service

import (
	"context"

	"genstudio-be/internal/dto"
	"genstudio-be/internal/repository/unitofwork"
)

type IUserService interface {
	GetCredits(ctx context.Context, userID string) (*dto.CreditBalanceResponse, error)
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewUserService(uowFactory unitofwork.RepositoryFactory) IUserService {
	return &userService{uowFactory: uowFactory}
}

// GetCredits reports 0 for users without a row yet.
func (s *userService) GetCredits(ctx context.Context, userID string) (*dto.CreditBalanceResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	credits, err := uow.UserRepository().GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.CreditBalanceResponse{Credits: credits}, nil
}
