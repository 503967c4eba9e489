package service

//go:generate mockgen -destination=mock_service.go -package=service nettracker/internal/service Scanner,Clock,Ticker

import (
	"context"
	"time"
)

// Scanner produces the raw lines of one host discovery run, one
// "ip\tmac\tname" record per line. Retry and privilege handling belong to
// the implementation.
type Scanner interface {
	Scan(ctx context.Context) ([]string, error)
	Name() string
}

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}
