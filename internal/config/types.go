package config

type Config struct {
	Sync   SyncConfig
	Export ExportConfig
}

///////////////////////////////////////////////////////////////////////////////////////
// Sync
///////////////////////////////////////////////////////////////////////////////////////

type SyncConfig struct {
	UpdateFrequency string
	// Days of history to reconcile on every run
	SinceDays int           `json:"sinceDays"`
	Accounts  []SyncAccount `json:"accounts"`
}

type SyncAccount struct {
	Name         string `json:"name"`
	PluggyItemID string `json:"pluggyItemId"`
	// BANK or CREDIT
	Type       string `json:"type"`
	YnabBudget string `json:"ynabBudget"`
	// Resolved from YnabBudget when empty
	YnabBudgetID string `json:"ynabBudgetId"`
	// Matched heuristically against the budget's accounts when empty
	YnabAccountID string `json:"ynabAccountId"`
}

///////////////////////////////////////////////////////////////////////////////////////
// Export
///////////////////////////////////////////////////////////////////////////////////////

type ExportConfig struct {
	UpdateFrequency string
	OutputDir       string   `json:"outputDir"`
	ItemIDs         []string `json:"itemIds"`
}

type Secrets struct {
	Pluggy PluggySecrets
	Ynab   YnabSecrets
}

type PluggySecrets struct {
	ClientID     string `json:"clientId" env:"PLUGGY_CLIENT_ID"`
	ClientSecret string `json:"clientSecret" env:"PLUGGY_CLIENT_SECRET"`
}

type YnabSecrets struct {
	YnabAccessToken string `json:"ynabAccessToken" env:"YNAB_ACCESS_TOKEN"`
}
