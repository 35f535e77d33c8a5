package meta

import (
	"fmt"
	"strings"

	metadomain "github.com/vfg2006/ad-performance-sync/infrastructure/integrator/meta/domain"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/pkg/utils"
)

// FactoryPerformanceRow converte uma linha de insight. Métricas inválidas viram erro
// para que a linha seja descartada inteira em vez de persistida com zeros.
func FactoryPerformanceRow(insight *metadomain.AdInsight) (domain.PerformanceRow, error) {
	if insight.AdID == "" {
		return domain.PerformanceRow{}, fmt.Errorf("linha sem ad_id")
	}

	date, err := utils.ParseDate(insight.DateStart)
	if err != nil || date.IsZero() {
		return domain.PerformanceRow{}, fmt.Errorf("date_start inválido %q", insight.DateStart)
	}

	impressions, err := utils.ParseInt(insight.Impressions)
	if err != nil {
		return domain.PerformanceRow{}, fmt.Errorf("impressions inválido %q: %w", insight.Impressions, err)
	}

	clicks, err := utils.ParseInt(insight.Clicks)
	if err != nil {
		return domain.PerformanceRow{}, fmt.Errorf("clicks inválido %q: %w", insight.Clicks, err)
	}

	spend, err := utils.ParseFloat(insight.Spend)
	if err != nil {
		return domain.PerformanceRow{}, fmt.Errorf("spend inválido %q: %w", insight.Spend, err)
	}

	return domain.PerformanceRow{
		AdID:         insight.AdID,
		AdName:       insight.AdName,
		AdSetID:      insight.AdSetID,
		AdSetName:    insight.AdSetName,
		CampaignID:   insight.CampaignID,
		CampaignName: insight.CampaignName,
		Date:         *date,
		Impressions:  impressions,
		Clicks:       clicks,
		Spend:        utils.RoundWithTwoDecimalPlace(spend),
		Actions:      actionsToMap(insight.Actions),
		ActionValues: actionsToMap(insight.ActionValues),
	}, nil
}

// actionsToMap soma valores repetidos do mesmo action_type e ignora os não numéricos.
func actionsToMap(actions []metadomain.Action) map[string]float64 {
	result := make(map[string]float64, len(actions))
	for _, action := range actions {
		value, err := utils.ParseFloat(action.Value)
		if err != nil || action.ActionType == "" {
			continue
		}
		result[action.ActionType] += value
	}
	return result
}

func FactoryCampaign(c *metadomain.Campaign) domain.Campaign {
	return domain.Campaign{
		ID:             c.ID,
		Name:           c.Name,
		Status:         normalizeStatus(c.EffectiveStatus),
		DailyBudget:    utils.MinorUnitsToAmount(c.DailyBudget),
		LifetimeBudget: utils.MinorUnitsToAmount(c.LifetimeBudget),
	}
}

func FactoryAdSet(a *metadomain.AdSet) domain.AdSet {
	return domain.AdSet{
		ID:             a.ID,
		Name:           a.Name,
		CampaignID:     a.CampaignID,
		Status:         normalizeStatus(a.EffectiveStatus),
		DailyBudget:    utils.MinorUnitsToAmount(a.DailyBudget),
		LifetimeBudget: utils.MinorUnitsToAmount(a.LifetimeBudget),
	}
}

func FactoryAd(a *metadomain.Ad) domain.Ad {
	ad := domain.Ad{
		ID:         a.ID,
		Name:       a.Name,
		AdSetID:    a.AdSetID,
		CampaignID: a.CampaignID,
		Status:     normalizeStatus(a.EffectiveStatus),
	}

	if a.Creative != nil && a.Creative.ID != "" {
		ad.Creative = &domain.Creative{
			ID:           a.Creative.ID,
			ImageURL:     a.Creative.ImageURL,
			VideoID:      a.Creative.VideoID,
			ThumbnailURL: a.Creative.ThumbnailURL,
			Title:        a.Creative.Title,
			Body:         a.Creative.Body,
		}
	}

	return ad
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return domain.StatusUnknown
	}
	return status
}
