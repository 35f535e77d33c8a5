package metadomain

// InsightFields são os campos de insights por anúncio e por dia.
const InsightFields = "ad_id,ad_name,adset_id,adset_name,campaign_id,campaign_name,impressions,clicks,spend,actions,action_values,date_start,date_stop"

type Action struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// AdInsight é uma linha de /insights com level=ad e time_increment=1.
type AdInsight struct {
	AdID         string   `json:"ad_id"`
	AdName       string   `json:"ad_name"`
	AdSetID      string   `json:"adset_id"`
	AdSetName    string   `json:"adset_name"`
	CampaignID   string   `json:"campaign_id"`
	CampaignName string   `json:"campaign_name"`
	Impressions  string   `json:"impressions"`
	Clicks       string   `json:"clicks"`
	Spend        string   `json:"spend"`
	Actions      []Action `json:"actions"`
	ActionValues []Action `json:"action_values"`
	DateStart    string   `json:"date_start"`
	DateStop     string   `json:"date_stop"`
}
