package syncing

import "github.com/vfg2006/ad-performance-sync/internal/domain"

// candidate é uma linha de uma tabela de decisão; a primeira que responde ok vence.
type candidate[T any] func() (T, bool)

func firstOf[T any](fallback T, candidates ...candidate[T]) T {
	for _, c := range candidates {
		if v, ok := c(); ok {
			return v
		}
	}
	return fallback
}

// Status: valor próprio da entidade → "deleted".
func resolveStatus(status string, present bool) string {
	return firstOf(domain.StatusDeleted,
		func() (string, bool) { return status, present && status != "" },
	)
}

type budget struct {
	Daily    *float64
	Lifetime *float64
	Level    domain.BudgetLevel
}

// Orçamento: conjunto de anúncios (ABO) → campanha (CBO) → sem orçamento.
func resolveBudget(adSet *domain.AdSet, campaign *domain.Campaign) budget {
	return firstOf(budget{Level: domain.BudgetLevelNone},
		func() (budget, bool) {
			if adSet == nil || (adSet.DailyBudget == nil && adSet.LifetimeBudget == nil) {
				return budget{}, false
			}
			return budget{Daily: adSet.DailyBudget, Lifetime: adSet.LifetimeBudget, Level: domain.BudgetLevelAdSet}, true
		},
		func() (budget, bool) {
			if campaign == nil || (campaign.DailyBudget == nil && campaign.LifetimeBudget == nil) {
				return budget{}, false
			}
			return budget{Daily: campaign.DailyBudget, Lifetime: campaign.LifetimeBudget, Level: domain.BudgetLevelCampaign}, true
		},
	)
}

// Nome: o que veio na linha → nome da entidade.
func resolveName(fromRow string, fromEntity string) string {
	return firstOf(fromEntity,
		func() (string, bool) { return fromRow, fromRow != "" },
	)
}
