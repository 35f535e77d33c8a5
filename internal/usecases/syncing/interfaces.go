package syncing

import (
	"context"

	"github.com/vfg2006/ad-performance-sync/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// MetaIntegrator é a fonte remota de linhas de performance e da hierarquia de entidades.
type MetaIntegrator interface {
	FetchPerformanceRows(ctx context.Context, externalID string, window domain.DateWindow) ([]domain.PerformanceRow, error)
	FetchEntityHierarchy(ctx context.Context, externalID string) (*domain.EntityHierarchy, error)
}

// PerformanceStore persiste registros materializados.
type PerformanceStore interface {
	CountByAccount(ctx context.Context, accountID string) (int64, error)
	// ReplaceWindow remove os registros da janela e grava todos os lotes.
	// Implementações devem garantir que uma falha em qualquer lote não deixe a janela apagada.
	ReplaceWindow(ctx context.Context, accountID string, window domain.DateWindow, batches [][]*domain.PerformanceRecord) (int, error)
}

type SyncStateStore interface {
	GetSyncState(ctx context.Context, accountID string) (*domain.SyncState, error)
	SaveSyncState(ctx context.Context, state *domain.SyncState) error
}

type AccountFinder interface {
	GetAccountByID(ctx context.Context, id string) (*domain.AdAccount, error)
}

// Syncer é o que handlers e scheduler enxergam do orquestrador.
type Syncer interface {
	Sync(ctx context.Context, request domain.SyncRequest) (*domain.SyncResponse, error)
	SyncAccount(ctx context.Context, account *domain.AdAccount, force bool) (*domain.SyncResponse, error)
	GetSyncState(ctx context.Context, accountID string) (*domain.SyncState, error)
}
