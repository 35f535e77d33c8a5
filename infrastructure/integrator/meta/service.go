package meta

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	metadomain "github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/domain"
	"github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/metaclient"
	"github.com/vfg2006/ad-performance-sync/internal/config"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
)

type MetaIntegrator struct {
	cfg     *config.Config
	Client  metaclient.Client
	fetcher *metaclient.Fetcher
}

func New(cfg *config.Config, client metaclient.Client, fetcher *metaclient.Fetcher) *MetaIntegrator {
	return &MetaIntegrator{
		cfg:     cfg,
		Client:  client,
		fetcher: fetcher,
	}
}

// FetchPerformanceRows busca os insights diários por anúncio da janela.
// Qualquer falha descarta o parcial, inclusive uma única linha inválida:
// nada incompleto segue para a escrita, que substitui a janela inteira.
func (s *MetaIntegrator) FetchPerformanceRows(ctx context.Context, externalID string, window domain.DateWindow) ([]domain.PerformanceRow, error) {
	if err := s.Client.EnsureValidToken(); err != nil {
		logrus.WithError(err).Warn("insights: não foi possível validar o token antes da sincronização")
	}

	params := url.Values{}
	params.Set("level", "ad")
	params.Set("time_increment", "1")
	params.Set("time_range", timeRange(window))
	params.Set("fields", metadomain.InsightFields)
	params.Set("limit", strconv.Itoa(s.cfg.Meta.PageLimit))

	fields := logrus.Fields{
		"account_id": externalID,
		"window":     window.String(),
	}

	result := metaclient.FetchAll[metadomain.AdInsight](
		ctx,
		s.fetcher,
		s.Client.GraphURL(accountRef(externalID)+"/insights", params),
		s.cfg.Meta.MaxPages,
		s.cfg.Meta.MaxGenericRetries,
	)
	if !result.Success {
		logrus.WithFields(fields).WithFields(logrus.Fields{
			"pages":   result.Pages,
			"partial": len(result.Records),
		}).WithError(result.Err).Error("insights: failed to fetch ad insights")
		return nil, s.upstreamError("insights", result.Err)
	}

	rows := make([]domain.PerformanceRow, 0, len(result.Records))
	invalid := 0
	var firstErr error
	for i := range result.Records {
		row, err := FactoryPerformanceRow(&result.Records[i])
		if err != nil {
			logrus.WithFields(fields).WithFields(logrus.Fields{
				"ad_id":      result.Records[i].AdID,
				"date_start": result.Records[i].DateStart,
			}).WithError(err).Error("insights: linha inválida")
			if firstErr == nil {
				firstErr = err
			}
			invalid++
			continue
		}
		rows = append(rows, row)
	}

	if invalid > 0 {
		return nil, &domain.UpstreamError{
			Kind:       domain.UpstreamIncomplete,
			Collection: "insights",
			Err:        fmt.Errorf("%d de %d linhas inválidas: %w", invalid, len(result.Records), firstErr),
		}
	}

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"pages": result.Pages,
		"rows":  len(rows),
	}).Debug("insights: successfully retrieved ad insights")

	return rows, nil
}

// upstreamError classifica a falha para o orquestrador sem expor tipos do cliente HTTP.
func (s *MetaIntegrator) upstreamError(collection string, err error) *domain.UpstreamError {
	upstream := &domain.UpstreamError{Kind: domain.UpstreamTransient, Collection: collection, Err: err}

	switch {
	case errors.Is(err, metaclient.ErrPageLimitReached):
		upstream.Kind = domain.UpstreamIncomplete
	case metaclient.IsTokenExpired(err):
		upstream.Kind = domain.UpstreamTokenExpired
	case metaclient.IsRateLimited(err):
		upstream.Kind = domain.UpstreamRateLimited
		upstream.RetryAfter = s.cfg.Meta.RateLimitBaseDelay
		if hint, ok := metaclient.RetryHint(err); ok {
			upstream.RetryAfter = hint
		}
	}

	return upstream
}

func accountRef(externalID string) string {
	if strings.HasPrefix(externalID, "act_") {
		return externalID
	}
	return "act_" + externalID
}

func timeRange(window domain.DateWindow) string {
	return fmt.Sprintf(`{"since":"%s","until":"%s"}`, window.Since.Format(time.DateOnly), window.Until.Format(time.DateOnly))
}
