package syncing

import (
	"maps"
	"slices"

	"github.com/vfg2006/ad-performance-sync/internal/domain"
)

// Hierarchy é o índice id → entidade de uma execução. É montado uma vez por
// Reconcile e não é alterado depois; os getters devolvem cópias.
type Hierarchy struct {
	campaigns map[string]domain.Campaign
	adSets    map[string]domain.AdSet
	ads       map[string]domain.Ad
	adIDs     []string
}

func (h *Hierarchy) Campaign(id string) (domain.Campaign, bool) {
	c, ok := h.campaigns[id]
	return c, ok
}

func (h *Hierarchy) AdSet(id string) (domain.AdSet, bool) {
	a, ok := h.adSets[id]
	return a, ok
}

func (h *Hierarchy) Ad(id string) (domain.Ad, bool) {
	a, ok := h.ads[id]
	return a, ok
}

// AdIDs lista, ordenados, os anúncios cuja campanha está no índice.
func (h *Hierarchy) AdIDs() []string {
	return slices.Clone(h.adIDs)
}

// CampaignOf resolve a campanha de um anúncio direto ou pelo conjunto.
func (h *Hierarchy) CampaignOf(ad domain.Ad) (string, bool) {
	if _, ok := h.campaigns[ad.CampaignID]; ok && ad.CampaignID != "" {
		return ad.CampaignID, true
	}
	if adSet, ok := h.adSets[ad.AdSetID]; ok {
		if _, ok := h.campaigns[adSet.CampaignID]; ok {
			return adSet.CampaignID, true
		}
	}
	return "", false
}

type ReconcileResult struct {
	ActiveRows       []domain.PerformanceRow
	DroppedRows      int
	DroppedCampaigns []string
	FilledAdSets     int
	FilledAds        int
	Hierarchy        *Hierarchy
}

// Reconcile junta linhas de performance e entidades. A ordem dos passos importa:
// linhas de campanhas ausentes saem antes do preenchimento, assim nenhuma
// entidade inferida faz uma campanha removida voltar a existir.
func Reconcile(rows []domain.PerformanceRow, fetched *domain.EntityHierarchy) ReconcileResult {
	if fetched == nil {
		fetched = &domain.EntityHierarchy{}
	}

	campaigns := indexBy(fetched.Campaigns, func(c domain.Campaign) string { return c.ID })
	adSets := indexBy(fetched.AdSets, func(a domain.AdSet) string { return a.ID })
	ads := indexBy(fetched.Ads, func(a domain.Ad) string { return a.ID })

	active, dropped := partitionByCampaign(rows, campaigns)

	adSets, filledAdSets := fillAdSets(adSets, active, fallbackStatus(fetched.Health.AdSetsOK))
	ads, filledAds := fillAds(ads, active, fallbackStatus(fetched.Health.AdsOK))

	hierarchy := &Hierarchy{campaigns: campaigns, adSets: adSets, ads: ads}
	for id, ad := range ads {
		if _, ok := hierarchy.CampaignOf(ad); ok {
			hierarchy.adIDs = append(hierarchy.adIDs, id)
		}
	}
	slices.Sort(hierarchy.adIDs)

	droppedRows := 0
	for _, n := range dropped {
		droppedRows += n
	}

	return ReconcileResult{
		ActiveRows:       active,
		DroppedRows:      droppedRows,
		DroppedCampaigns: slices.Sorted(maps.Keys(dropped)),
		FilledAdSets:     filledAdSets,
		FilledAds:        filledAds,
		Hierarchy:        hierarchy,
	}
}

func indexBy[T any](items []T, key func(T) string) map[string]T {
	index := make(map[string]T, len(items))
	for _, item := range items {
		if k := key(item); k != "" {
			index[k] = item
		}
	}
	return index
}

// partitionByCampaign separa as linhas cuja campanha existe; dropped conta linhas por campanha ausente.
func partitionByCampaign(rows []domain.PerformanceRow, campaigns map[string]domain.Campaign) ([]domain.PerformanceRow, map[string]int) {
	active := make([]domain.PerformanceRow, 0, len(rows))
	dropped := make(map[string]int)

	for _, row := range rows {
		if _, ok := campaigns[row.CampaignID]; !ok {
			dropped[row.CampaignID]++
			continue
		}
		active = append(active, row)
	}

	return active, dropped
}

// fallbackStatus: coleção que falhou não diz nada, coleção completa sem a entidade
// sugere algo recém-criado, já que há linha de performance para ela.
func fallbackStatus(collectionOK bool) string {
	if collectionOK {
		return domain.StatusActive
	}
	return domain.StatusUnknown
}

func fillAdSets(base map[string]domain.AdSet, rows []domain.PerformanceRow, status string) (map[string]domain.AdSet, int) {
	filled := maps.Clone(base)
	count := 0

	for _, row := range rows {
		if row.AdSetID == "" {
			continue
		}
		if _, ok := filled[row.AdSetID]; ok {
			continue
		}
		filled[row.AdSetID] = domain.AdSet{
			ID:         row.AdSetID,
			Name:       row.AdSetName,
			CampaignID: row.CampaignID,
			Status:     status,
			Inferred:   true,
		}
		count++
	}

	return filled, count
}

func fillAds(base map[string]domain.Ad, rows []domain.PerformanceRow, status string) (map[string]domain.Ad, int) {
	filled := maps.Clone(base)
	count := 0

	for _, row := range rows {
		if _, ok := filled[row.AdID]; ok {
			continue
		}
		filled[row.AdID] = domain.Ad{
			ID:         row.AdID,
			Name:       row.AdName,
			AdSetID:    row.AdSetID,
			CampaignID: row.CampaignID,
			Status:     status,
			Inferred:   true,
		}
		count++
	}

	return filled, count
}
