package domain

import "time"

// PerformanceRow é uma linha diária de insights por anúncio, já convertida do formato do Meta.
type PerformanceRow struct {
	AdID         string
	AdName       string
	AdSetID      string
	AdSetName    string
	CampaignID   string
	CampaignName string
	Date         time.Time
	Impressions  int64
	Clicks       int64
	Spend        float64
	Actions      map[string]float64
	ActionValues map[string]float64
}

type BudgetLevel string

const (
	BudgetLevelAdSet    BudgetLevel = "adset"
	BudgetLevelCampaign BudgetLevel = "campaign"
	BudgetLevelNone     BudgetLevel = "none"
)

// PerformanceRecord é o registro canônico persistido, identificado por (account_id, ad_id, date).
type PerformanceRecord struct {
	AccountID      string      `json:"account_id"`
	AdID           string      `json:"ad_id"`
	Date           time.Time   `json:"date"`
	AdName         string      `json:"ad_name"`
	AdSetID        string      `json:"adset_id"`
	AdSetName      string      `json:"adset_name"`
	CampaignID     string      `json:"campaign_id"`
	CampaignName   string      `json:"campaign_name"`
	Impressions    int64       `json:"impressions"`
	Clicks         int64       `json:"clicks"`
	Spend          float64     `json:"spend"`
	Conversions    float64     `json:"conversions"`
	ConversionType *string     `json:"conversion_type"`
	ConversionVal  *float64    `json:"conversion_value"`
	CampaignStatus string      `json:"campaign_status"`
	AdSetStatus    string      `json:"adset_status"`
	AdStatus       string      `json:"ad_status"`
	DailyBudget    *float64    `json:"daily_budget"`
	LifetimeBudget *float64    `json:"lifetime_budget"`
	BudgetLevel    BudgetLevel `json:"budget_level"`
	CreativeID     *string     `json:"creative_id"`
	ImageURL       *string     `json:"image_url"`
	VideoID        *string     `json:"video_id"`
	HasActivity    bool        `json:"has_activity"`
}
