package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DistributeRequest struct {
	TotalPot    float64 `json:"total_pot"`
	TriggeredBy string  `json:"triggered_by,omitempty"`
}

type DistributionDTO struct {
	RunID            string  `json:"run_id"`
	TotalPot         float64 `json:"total_pot"`
	Ceiling          float64 `json:"ceiling"`
	TotalDistributed float64 `json:"total_distributed"`
	Recipients       int     `json:"recipients"`
	Attempted        int     `json:"attempted"`
	Failed           int     `json:"failed"`
}

type DistributionResponse struct {
	Status string          `json:"status"`
	Data   DistributionDTO `json:"data"`
}
