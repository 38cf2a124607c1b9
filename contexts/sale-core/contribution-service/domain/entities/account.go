package entities

import "time"

// Account is one pioneer wallet. Address is the immutable identity key.
type Account struct {
	Address            string
	Contributed        float64
	Allocated          float64
	Released           float64
	TranchesCompleted  int
	IsWhale            bool
	LastContributionAt time.Time
	LastSettlementAt   *time.Time
	UpdatedAt          time.Time
}

const MaxTranches = 10

// ClampReleased enforces released <= allocated on write.
func (a *Account) ClampReleased() {
	if a.Released > a.Allocated {
		a.Released = a.Allocated
	}
	if a.Released < 0 {
		a.Released = 0
	}
}
