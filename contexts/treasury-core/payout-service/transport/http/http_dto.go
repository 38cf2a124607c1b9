package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LedgerEntryDTO struct {
	EntryID           string  `json:"entry_id"`
	Address           string  `json:"address"`
	Amount            float64 `json:"amount"`
	Kind              string  `json:"kind"`
	Status            string  `json:"status"`
	ExternalReference string  `json:"external_reference,omitempty"`
	Memo              string  `json:"memo,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

type LedgerEntryResponse struct {
	Status string         `json:"status"`
	Data   LedgerEntryDTO `json:"data"`
}

type LedgerListResponse struct {
	Status string           `json:"status"`
	Data   []LedgerEntryDTO `json:"data"`
}
