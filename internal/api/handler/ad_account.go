package handler

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/internal/usecases/account"
	"github.com/vfg2006/ad-performance-sync/pkg/apiErrors"
)

func AdAccountList(service account.AccountService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filterStatus := r.URL.Query().Get("status")

		availableStatus := make([]domain.AdAccountStatus, 0)
		if filterStatus != "" {
			for _, status := range strings.Split(filterStatus, ",") {
				availableStatus = append(availableStatus, domain.AdAccountStatus(strings.TrimSpace(status)))
			}
		}

		adAccounts, err := service.ListAdAccounts(r.Context(), availableStatus)
		if err != nil {
			logrus.WithError(err).Error("Erro ao listar contas")

			if accountErr, ok := account.AsAccountError(err); ok {
				apiErrors.WriteError(w, accountErr.Code, accountErr.Error(), nil)
				return
			}

			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao listar contas", nil)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(adAccounts); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro ao codificar resposta", nil)
		}
	})
}
