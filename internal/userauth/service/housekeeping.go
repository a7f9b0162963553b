package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/userauth/internal/userauth/obs"
)

// HousekeepingService periodically purges blacklist entries whose tokens
// have expired, so revoked_tokens does not grow without bound.
type HousekeepingService struct {
	Blacklist BlacklistPurger
	Logger    *slog.Logger
	Interval  time.Duration
	Now       func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(blacklist BlacklistPurger, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Blacklist: blacklist,
		Logger:    logger,
		Interval:  interval,
		Now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one purge pass and returns the number of entries removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	n, err := s.Blacklist.PurgeExpired(ctx, s.Now())
	if err != nil {
		s.Logger.Error("failed to purge expired blacklist entries", "error", err)
		return 0
	}

	obs.BlacklistPurgedTotal.Add(float64(n))
	s.Logger.Info("housekeeping cleanup completed", "purged", n)
	return n
}
