package account

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/infrastructure/repository"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/pkg/apiErrors"
)

type AccountService interface {
	ListAdAccounts(ctx context.Context, availableStatus []domain.AdAccountStatus) ([]*domain.AdAccountResponse, error)
}

type Service struct {
	accountRepository repository.AccountRepository
}

func NewService(accountRepository repository.AccountRepository) AccountService {
	return &Service{
		accountRepository: accountRepository,
	}
}

func (s *Service) ListAdAccounts(ctx context.Context, availableStatus []domain.AdAccountStatus) ([]*domain.AdAccountResponse, error) {
	for _, status := range availableStatus {
		if status != domain.AdAccountStatusActive && status != domain.AdAccountStatusInactive {
			return nil, NewAccountError(ErrInvalidStatus, apiErrors.ErrInvalidRequest, fmt.Sprintf("Status inválido: %s", status))
		}
	}

	accounts, err := s.accountRepository.ListAccounts(ctx, availableStatus)
	if err != nil {
		logrus.WithError(err).Error("Erro ao listar contas")
		return nil, NewAccountError(ErrFetchAccounts, apiErrors.ErrDatabaseOperation, "Falha ao listar contas no banco de dados")
	}

	// Transforma os accounts para o formato de resposta da API
	adAccountsResponse := make([]*domain.AdAccountResponse, 0, len(accounts))
	for _, account := range accounts {
		adAccountsResponse = append(adAccountsResponse, &domain.AdAccountResponse{
			ID:           account.ID,
			ExternalID:   account.ExternalID,
			Name:         account.Name,
			Nickname:     account.Nickname,
			Status:       account.Status,
			BusinessName: account.BusinessManagerName,
		})
	}

	return adAccountsResponse, nil
}
