package health

import "context"

// CachePinger checks cache store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// HistoryPinger checks history store availability.
type HistoryPinger interface {
	Ping(ctx context.Context) error
}
