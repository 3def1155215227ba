package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"mailgate/verify"
)

// CacheSweeper periodically evicts expired validation cache entries so a
// long-lived process doesn't accumulate dead keys between reads.
type CacheSweeper struct {
	Service  *verify.Service
	Interval time.Duration
	Logger   *logrus.Logger
}

func NewCacheSweeper(service *verify.Service, interval time.Duration, logger *logrus.Logger) *CacheSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CacheSweeper{
		Service:  service,
		Interval: interval,
		Logger:   logger,
	}
}

func (cs *CacheSweeper) Start(ctx context.Context) {
	cs.Logger.Println("Cache sweeper started")

	ticker := time.NewTicker(cs.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cs.Logger.Println("Cache sweeper shutting down...")
			return
		case <-ticker.C:
			if evicted := cs.Service.SweepCache(); evicted > 0 {
				cs.Logger.WithField("evicted", evicted).Debug("swept expired cache entries")
			}
		}
	}
}
