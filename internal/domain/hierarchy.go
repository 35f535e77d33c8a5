package domain

// Status normalizados (minúsculos) usados nos registros materializados.
const (
	StatusActive  = "active"
	StatusUnknown = "unknown"
	StatusDeleted = "deleted"
)

type Campaign struct {
	ID             string
	Name           string
	Status         string
	DailyBudget    *float64
	LifetimeBudget *float64
}

type AdSet struct {
	ID             string
	Name           string
	CampaignID     string
	Status         string
	DailyBudget    *float64
	LifetimeBudget *float64
	// Inferred marca entradas criadas a partir de linhas de performance, sem dado do Meta.
	Inferred bool
}

type Creative struct {
	ID           string
	ImageURL     string
	VideoID      string
	ThumbnailURL string
	Title        string
	Body         string
}

type Ad struct {
	ID         string
	Name       string
	AdSetID    string
	CampaignID string
	Status     string
	Creative   *Creative
	Inferred   bool
}

// FetchHealth informa quais coleções foram buscadas por completo.
type FetchHealth struct {
	CampaignsOK bool
	AdSetsOK    bool
	AdsOK       bool
}

// EntityHierarchy é o resultado bruto do coordenador de batch.
type EntityHierarchy struct {
	Campaigns []Campaign
	AdSets    []AdSet
	Ads       []Ad
	Health    FetchHealth
}
