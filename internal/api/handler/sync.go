package handler

import (
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/syncing"
	"github.com/vfg2006/ad-performance-sync/pkg/apiErrors"
	"github.com/vfg2006/ad-performance-sync/pkg/middleware"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SyncAdAccount dispara a sincronização manual de uma conta.
// ?force=true ignora o estado salvo e refaz a carga inicial.
func SyncAdAccount(service syncing.Syncer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
			return
		}

		id := httprouter.ParamsFromContext(r.Context()).ByName("id")
		if id == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "ID da conta é obrigatório", nil)
			return
		}

		if !claims.CanAccessAccount(id) {
			apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Você não tem acesso a esta conta", nil)
			return
		}

		force := false
		if raw := r.URL.Query().Get("force"); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Parâmetro force deve ser booleano", nil)
				return
			}
			force = parsed
		}

		resp, err := service.Sync(r.Context(), domain.SyncRequest{
			UserID:        claims.UserID,
			AdAccountID:   id,
			ForceFullSync: force,
		})
		if err != nil {
			writeSyncError(w, id, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao codificar resposta", nil)
		}
	})
}

// GetAdAccountSyncState devolve o último estado de sincronização da conta.
func GetAdAccountSyncState(service syncing.Syncer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			apiErrors.WriteError(w, apiErrors.ErrInvalidToken, "Usuário não autenticado", nil)
			return
		}

		id := httprouter.ParamsFromContext(r.Context()).ByName("id")
		if !claims.CanAccessAccount(id) {
			apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Você não tem acesso a esta conta", nil)
			return
		}

		state, err := service.GetSyncState(r.Context(), id)
		if err != nil {
			writeSyncError(w, id, err)
			return
		}
		if state == nil {
			state = &domain.SyncState{AccountID: id}
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(state); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao codificar resposta", nil)
		}
	})
}

func writeSyncError(w http.ResponseWriter, accountID string, err error) {
	syncErr, ok := syncing.AsSyncError(err)
	if !ok {
		logrus.WithError(errors.WithStack(err)).WithField("account_id", accountID).Error("Erro inesperado na sincronização")
		apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro interno ao sincronizar conta", nil)
		return
	}

	details := map[string]any{
		"account_id": accountID,
		"error_type": syncErr.Err.Error(),
		"retryable":  syncErr.Retryable,
	}

	if syncErr.Retryable {
		apiErrors.WriteRetryableError(w, syncErr.Code, syncErr.Error(), details, syncErr.RetryAfter)
		return
	}

	apiErrors.WriteError(w, syncErr.Code, syncErr.Error(), details)
}
