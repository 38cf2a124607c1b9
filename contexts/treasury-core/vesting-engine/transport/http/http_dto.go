package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RunVestingRequest struct {
	TriggeredBy string `json:"triggered_by,omitempty"`
}

type VestingRunDTO struct {
	RunID         string  `json:"run_id"`
	TotalReleased float64 `json:"total_released"`
	Released      int     `json:"released"`
	Attempted     int     `json:"attempted"`
	Failed        int     `json:"failed"`
}

type VestingRunResponse struct {
	Status string        `json:"status"`
	Data   VestingRunDTO `json:"data"`
}
