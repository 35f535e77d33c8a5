package handler

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

var startedAt = time.Now()

type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Uptime string `json:"uptime"`
}

func HealthcheckHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(healthResponse{
			Status: "ok",
			Time:   now.UTC().Format(time.RFC3339),
			Uptime: now.Sub(startedAt).Truncate(time.Second).String(),
		})
		if err != nil {
			logrus.WithError(err).Warn("Erro ao responder healthcheck")
		}
	})
}
