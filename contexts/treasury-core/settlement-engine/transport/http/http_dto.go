package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RunSettlementRequest struct {
	FinalPool   float64 `json:"final_pool,omitempty"`
	TriggeredBy string  `json:"triggered_by,omitempty"`
}

type SettlementRunDTO struct {
	RunID          string  `json:"run_id"`
	FinalPool      float64 `json:"final_pool"`
	Threshold      float64 `json:"threshold"`
	TotalRefunded  float64 `json:"total_refunded"`
	WhalesImpacted int     `json:"whales_impacted"`
	Attempted      int     `json:"attempted"`
	Failed         int     `json:"failed"`
}

type SettlementRunResponse struct {
	Status string           `json:"status"`
	Data   SettlementRunDTO `json:"data"`
}
