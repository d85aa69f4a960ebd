package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// NewSyncScheduler runs handler.Sync every interval. A run still in progress
// when the next one is due makes the scheduler skip that tick.
func NewSyncScheduler(ctx context.Context, handler *SyncHandler, interval time.Duration) (*gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("schedule interval must be positive, got %s", interval)
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, jobErr := scheduler.Every(interval).SingletonMode().Do(func() {
		stats, syncErr := handler.Sync(ctx)
		if syncErr != nil {
			log.Error(fmt.Sprintf("Scheduled sync failed: %s", syncErr))
			return
		}
		log.Info(fmt.Sprintf("Scheduled sync transferred %d files, %d bytes", stats.Count, stats.Bytes))
	})
	if jobErr != nil {
		return nil, fmt.Errorf("scheduling sync: %w", jobErr)
	}

	return scheduler, nil
}
