package syncing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/syncing/mocks"
	"go.uber.org/mock/gomock"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestModeSelector_Decide(t *testing.T) {
	now := time.Date(2024, 6, 30, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		force          bool
		state          *domain.SyncState
		count          int64
		expectCount    bool
		wantMode       domain.SyncMode
		wantWindow     domain.DateWindow
		wantDowngraded bool
	}{
		{
			name:       "Sem estado - carga inicial",
			state:      nil,
			wantMode:   domain.SyncModeInitial,
			wantWindow: domain.DateWindow{Since: day(2024, 6, 20), Until: day(2024, 6, 30)},
		},
		{
			name:       "Carga inicial não concluída",
			state:      &domain.SyncState{AccountID: "A1", LastSyncAt: timePtr(now.AddDate(0, 0, -1))},
			wantMode:   domain.SyncModeInitial,
			wantWindow: domain.DateWindow{Since: day(2024, 6, 20), Until: day(2024, 6, 30)},
		},
		{
			name:       "Sincronização forçada ignora estado",
			force:      true,
			state:      &domain.SyncState{AccountID: "A1", InitialSyncComplete: true, LastSyncAt: timePtr(now.AddDate(0, 0, -1))},
			wantMode:   domain.SyncModeInitial,
			wantWindow: domain.DateWindow{Since: day(2024, 6, 20), Until: day(2024, 6, 30)},
		},
		{
			name:        "Incremental com buffer",
			state:       &domain.SyncState{AccountID: "A1", InitialSyncComplete: true, LastSyncAt: timePtr(time.Date(2024, 6, 29, 3, 0, 0, 0, time.UTC))},
			count:       10,
			expectCount: true,
			wantMode:    domain.SyncModeAppend,
			wantWindow:  domain.DateWindow{Since: day(2024, 6, 27), Until: day(2024, 6, 30)},
		},
		{
			name:        "Incremental limitado ao início da janela inicial",
			state:       &domain.SyncState{AccountID: "A1", InitialSyncComplete: true, LastSyncAt: timePtr(day(2024, 1, 1))},
			count:       10,
			expectCount: true,
			wantMode:    domain.SyncModeAppend,
			wantWindow:  domain.DateWindow{Since: day(2024, 6, 20), Until: day(2024, 6, 30)},
		},
		{
			name:           "Armazenamento vazio força carga inicial",
			state:          &domain.SyncState{AccountID: "A1", InitialSyncComplete: true, LastSyncAt: timePtr(now.AddDate(0, 0, -1))},
			count:          0,
			expectCount:    true,
			wantMode:       domain.SyncModeInitial,
			wantWindow:     domain.DateWindow{Since: day(2024, 6, 20), Until: day(2024, 6, 30)},
			wantDowngraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			states := mocks.NewMockSyncStateStore(ctrl)
			performance := mocks.NewMockPerformanceStore(ctrl)

			states.EXPECT().GetSyncState(gomock.Any(), "A1").Return(tt.state, nil)
			if tt.expectCount {
				performance.EXPECT().CountByAccount(gomock.Any(), "A1").Return(tt.count, nil)
			}

			selector := NewModeSelector(states, performance, 10, 2)
			decision, err := selector.Decide(context.Background(), "A1", tt.force, now)

			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, decision.Mode)
			assert.Equal(t, tt.wantWindow, decision.Window)
			assert.Equal(t, tt.wantDowngraded, decision.Downgraded)
			assert.Equal(t, tt.state, decision.PreviousState)
		})
	}
}

func TestModeSelector_DecideErroDeLeitura(t *testing.T) {
	ctrl := gomock.NewController(t)
	states := mocks.NewMockSyncStateStore(ctrl)
	performance := mocks.NewMockPerformanceStore(ctrl)

	states.EXPECT().GetSyncState(gomock.Any(), "A1").Return(nil, errors.New("conexão recusada"))

	_, err := NewModeSelector(states, performance, 90, 3).Decide(context.Background(), "A1", false, time.Now())

	assert.ErrorIs(t, err, ErrStorageRead)
}

func TestModeSelector_FusoDoChamador(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	now := time.Date(2024, 6, 30, 22, 0, 0, 0, loc)

	ctrl := gomock.NewController(t)
	states := mocks.NewMockSyncStateStore(ctrl)
	states.EXPECT().GetSyncState(gomock.Any(), "A1").Return(nil, nil)

	decision, err := NewModeSelector(states, mocks.NewMockPerformanceStore(ctrl), 1, 0).Decide(context.Background(), "A1", false, now)

	require.NoError(t, err)
	assert.Equal(t, day(2024, 6, 30), decision.Window.Until)
	assert.Equal(t, day(2024, 6, 29), decision.Window.Since)
}
