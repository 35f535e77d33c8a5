package metadomain

// Campos pedidos em cada coleção da hierarquia.
const (
	CampaignFields = "id,name,effective_status,daily_budget,lifetime_budget"
	AdSetFields    = "id,name,campaign_id,effective_status,daily_budget,lifetime_budget"
	AdFields       = "id,name,adset_id,campaign_id,effective_status,creative{id,image_url,video_id,thumbnail_url,title,body}"
)

// Filtros de effective_status por nível; DELETED e ARCHIVED ficam de fora de propósito,
// assim linhas de insight de campanhas removidas não encontram a campanha no mapa.
var (
	CampaignStatuses = []string{"ACTIVE", "PAUSED", "IN_PROCESS", "WITH_ISSUES"}
	AdSetStatuses    = []string{"ACTIVE", "PAUSED", "CAMPAIGN_PAUSED", "IN_PROCESS", "WITH_ISSUES"}
	AdStatuses       = []string{
		"ACTIVE", "PAUSED", "CAMPAIGN_PAUSED", "ADSET_PAUSED", "IN_PROCESS", "WITH_ISSUES",
		"PENDING_REVIEW", "DISAPPROVED", "PREAPPROVED", "PENDING_BILLING_INFO",
	}
)

type Campaign struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	EffectiveStatus string `json:"effective_status"`
	DailyBudget     string `json:"daily_budget"`
	LifetimeBudget  string `json:"lifetime_budget"`
}

type AdSet struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CampaignID      string `json:"campaign_id"`
	EffectiveStatus string `json:"effective_status"`
	DailyBudget     string `json:"daily_budget"`
	LifetimeBudget  string `json:"lifetime_budget"`
}

type Creative struct {
	ID           string `json:"id"`
	ImageURL     string `json:"image_url"`
	VideoID      string `json:"video_id"`
	ThumbnailURL string `json:"thumbnail_url"`
	Title        string `json:"title"`
	Body         string `json:"body"`
}

type Ad struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	AdSetID         string    `json:"adset_id"`
	CampaignID      string    `json:"campaign_id"`
	EffectiveStatus string    `json:"effective_status"`
	Creative        *Creative `json:"creative"`
}
