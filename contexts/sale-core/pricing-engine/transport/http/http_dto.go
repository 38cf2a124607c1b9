package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SpotPriceResponse struct {
	Status string `json:"status"`
	Data   struct {
		SpotPrice        string  `json:"spot_price"`
		SpotPriceDisplay string  `json:"spot_price_display"`
		WaterLevel       float64 `json:"water_level"`
		Participants     int     `json:"participants"`
	} `json:"data"`
}

type WaterLevelResponse struct {
	Status string `json:"status"`
	Data   struct {
		WaterLevel   float64 `json:"water_level"`
		Participants int     `json:"participants"`
	} `json:"data"`
}

type AlphaGainResponse struct {
	Status string `json:"status"`
	Data   struct {
		Contribution float64 `json:"contribution"`
		AlphaGain    float64 `json:"alpha_gain"`
	} `json:"data"`
}
