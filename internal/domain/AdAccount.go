package domain

type AdAccountStatus string

const (
	AdAccountStatusActive   AdAccountStatus = "ACTIVE"
	AdAccountStatusInactive AdAccountStatus = "INACTIVE"
)

type BusinessManager struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
}

// AdAccount é a conta de anúncios local; ExternalID é o id da conta no Meta (sem o prefixo act_).
type AdAccount struct {
	ID                  string          `json:"id"`
	ExternalID          string          `json:"external_id"`
	Name                string          `json:"name"`
	Nickname            *string         `json:"nickname"`
	Status              AdAccountStatus `json:"status"`
	BusinessManagerID   string          `json:"business_id"`
	BusinessManagerName string          `json:"business_name"`
}

func (a *AdAccount) DisplayName() string {
	if a.Nickname != nil && *a.Nickname != "" {
		return *a.Nickname
	}
	return a.Name
}

type AdAccountResponse struct {
	ID           string          `json:"id"`
	ExternalID   string          `json:"external_id"`
	Name         string          `json:"name"`
	Nickname     *string         `json:"nickname"`
	Status       AdAccountStatus `json:"status"`
	BusinessName string          `json:"business_name"`
}
