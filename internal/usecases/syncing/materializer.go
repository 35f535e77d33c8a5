package syncing

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/ad-performance-sync/internal/domain"
	"github.com/vfg2006/ad-performance-sync/pkg/utils"
)

type MaterializeStats struct {
	AdsWithActivity    int
	AdsWithoutActivity int
	Duplicates         int
	OutOfWindow        int
}

// Materializer transforma linhas reconciliadas em registros canônicos.
type Materializer struct {
	eventValues map[string]float64
}

func NewMaterializer(eventValues map[string]float64) *Materializer {
	if eventValues == nil {
		eventValues = map[string]float64{}
	}
	return &Materializer{eventValues: eventValues}
}

func (m *Materializer) Materialize(accountID string, row domain.PerformanceRow, h *Hierarchy) *domain.PerformanceRecord {
	campaign, campaignOK := h.Campaign(row.CampaignID)
	adSet, adSetOK := h.AdSet(row.AdSetID)
	ad, adOK := h.Ad(row.AdID)

	record := &domain.PerformanceRecord{
		AccountID:      accountID,
		AdID:           row.AdID,
		Date:           domain.StartOfDay(row.Date),
		AdName:         resolveName(row.AdName, ad.Name),
		AdSetID:        row.AdSetID,
		AdSetName:      resolveName(row.AdSetName, adSet.Name),
		CampaignID:     row.CampaignID,
		CampaignName:   resolveName(row.CampaignName, campaign.Name),
		Impressions:    row.Impressions,
		Clicks:         row.Clicks,
		Spend:          utils.RoundWithTwoDecimalPlace(row.Spend),
		CampaignStatus: resolveStatus(campaign.Status, campaignOK),
		AdSetStatus:    resolveStatus(adSet.Status, adSetOK),
		AdStatus:       resolveStatus(ad.Status, adOK),
		HasActivity:    true,
	}

	applyBudget(record, optional(adSet, adSetOK), optional(campaign, campaignOK))
	applyCreative(record, ad)

	conv := resolveConversion(row.Actions)
	if conv.Found {
		record.Conversions = conv.Count
		record.ConversionType = &conv.Type
	}
	record.ConversionVal = resolveConversionValue(conv, row.ActionValues, m.eventValues)

	return record
}

// MaterializeWindow gera um registro por (anúncio, dia) e um registro sem atividade,
// datado do fim da janela, para cada anúncio da hierarquia sem linhas.
func (m *Materializer) MaterializeWindow(accountID string, window domain.DateWindow, rows []domain.PerformanceRow, h *Hierarchy) ([]*domain.PerformanceRecord, MaterializeStats) {
	var stats MaterializeStats

	records := make([]*domain.PerformanceRecord, 0, len(rows))
	seen := make(map[recordKey]struct{}, len(rows))
	active := make(map[string]struct{})

	for _, row := range rows {
		if !window.Contains(row.Date) {
			stats.OutOfWindow++
			continue
		}

		key := recordKey{adID: row.AdID, date: domain.StartOfDay(row.Date)}
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		active[row.AdID] = struct{}{}

		records = append(records, m.Materialize(accountID, row, h))
	}

	for _, adID := range h.AdIDs() {
		if _, ok := active[adID]; ok {
			continue
		}
		records = append(records, m.zeroActivity(accountID, adID, window.Until, h))
		stats.AdsWithoutActivity++
	}
	stats.AdsWithActivity = len(active)

	if stats.Duplicates > 0 || stats.OutOfWindow > 0 {
		logrus.WithFields(logrus.Fields{
			"account_id":    accountID,
			"duplicates":    stats.Duplicates,
			"out_of_window": stats.OutOfWindow,
		}).Warn("sync: linhas ignoradas na materialização")
	}

	return records, stats
}

type recordKey struct {
	adID string
	date time.Time
}

func (m *Materializer) zeroActivity(accountID, adID string, date time.Time, h *Hierarchy) *domain.PerformanceRecord {
	ad, _ := h.Ad(adID)
	campaignID, _ := h.CampaignOf(ad)
	campaign, campaignOK := h.Campaign(campaignID)
	adSet, adSetOK := h.AdSet(ad.AdSetID)

	record := &domain.PerformanceRecord{
		AccountID:      accountID,
		AdID:           ad.ID,
		Date:           domain.StartOfDay(date),
		AdName:         ad.Name,
		AdSetID:        ad.AdSetID,
		AdSetName:      adSet.Name,
		CampaignID:     campaignID,
		CampaignName:   campaign.Name,
		CampaignStatus: resolveStatus(campaign.Status, campaignOK),
		AdSetStatus:    resolveStatus(adSet.Status, adSetOK),
		AdStatus:       resolveStatus(ad.Status, true),
	}

	applyBudget(record, optional(adSet, adSetOK), optional(campaign, campaignOK))
	applyCreative(record, ad)

	return record
}

func applyBudget(record *domain.PerformanceRecord, adSet *domain.AdSet, campaign *domain.Campaign) {
	b := resolveBudget(adSet, campaign)
	record.DailyBudget = b.Daily
	record.LifetimeBudget = b.Lifetime
	record.BudgetLevel = b.Level
}

func applyCreative(record *domain.PerformanceRecord, ad domain.Ad) {
	if ad.Creative == nil {
		return
	}
	record.CreativeID = nonEmpty(ad.Creative.ID)
	record.ImageURL = nonEmpty(firstNonEmpty(ad.Creative.ImageURL, ad.Creative.ThumbnailURL))
	record.VideoID = nonEmpty(ad.Creative.VideoID)
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
