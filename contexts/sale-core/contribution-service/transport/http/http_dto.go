package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RecordContributionRequest struct {
	Address           string  `json:"address"`
	Amount            float64 `json:"amount"`
	ExternalReference string  `json:"external_reference"`
	Memo              string  `json:"memo,omitempty"`
}

type AccountDTO struct {
	Address            string  `json:"address"`
	Contributed        float64 `json:"contributed"`
	Allocated          float64 `json:"allocated"`
	Released           float64 `json:"released"`
	TranchesCompleted  int     `json:"tranches_completed"`
	IsWhale            bool    `json:"is_whale"`
	LastContributionAt string  `json:"last_contribution_at"`
	LastSettlementAt   string  `json:"last_settlement_at,omitempty"`
}

type RecordContributionResponse struct {
	Status string `json:"status"`
	Data   struct {
		Account    AccountDTO `json:"account"`
		Allocated  float64    `json:"allocated"`
		SpotPrice  float64    `json:"spot_price"`
		WaterLevel float64    `json:"water_level"`
		EntryID    string     `json:"entry_id"`
	} `json:"data"`
}

type AccountResponse struct {
	Status string `json:"status"`
	Data   struct {
		Account    AccountDTO `json:"account"`
		PoolShare  float64    `json:"pool_share"`
		WaterLevel float64    `json:"water_level"`
	} `json:"data"`
}

type AccountListResponse struct {
	Status string       `json:"status"`
	Data   []AccountDTO `json:"data"`
}
