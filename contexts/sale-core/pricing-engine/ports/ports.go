package ports

import "context"

// PoolSnapshot is the aggregation the pricing engine reads from the
// account store: total contributed currency and participant count.
type PoolSnapshot struct {
	TotalContributed float64
	Participants     int
}

type PoolReader interface {
	PoolSnapshot(ctx context.Context) (PoolSnapshot, error)
}
