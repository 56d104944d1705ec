package services

import (
	"context"
	"fmt"
	"time"

	"e2e-transit/internal/config"
	"e2e-transit/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

// OTPCleaner clears OTPs past their expiry
type OTPCleaner interface {
	ClearExpiredOTPs(ctx context.Context) (int64, error)
}

// StagedTripCleaner removes abandoned wizard drafts
type StagedTripCleaner interface {
	DeleteStaleStagedTrips(ctx context.Context) (int64, error)
}

// jobTimeout bounds one housekeeping run
const jobTimeout = 5 * time.Minute

// CronService runs periodic housekeeping jobs
type CronService struct {
	cron  *cron.Cron
	otp   OTPCleaner
	trips StagedTripCleaner
	cfg   config.CronConfig
}

// NewCronService creates a new cron service
func NewCronService(otp OTPCleaner, trips StagedTripCleaner, cfg config.CronConfig) *CronService {
	cronLogger := cron.PrintfLogger(logger.Get())
	return &CronService{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		otp:   otp,
		trips: trips,
		cfg:   cfg,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if !s.cfg.Enabled {
		logger.Infof("Cron disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.OTPCleanupSpec, s.RunOTPCleanup); err != nil {
		return fmt.Errorf("schedule otp cleanup %q: %w", s.cfg.OTPCleanupSpec, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.StagedTripCleanupSpec, s.RunStagedTripCleanup); err != nil {
		return fmt.Errorf("schedule temp trip cleanup %q: %w", s.cfg.StagedTripCleanupSpec, err)
	}

	s.cron.Start()
	logger.Infof("Cron started [otp: %s, temp trips: %s]", s.cfg.OTPCleanupSpec, s.cfg.StagedTripCleanupSpec)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
}

// Entries returns the number of scheduled jobs
func (s *CronService) Entries() int {
	return len(s.cron.Entries())
}

// RunOTPCleanup clears expired OTPs
func (s *CronService) RunOTPCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.otp.ClearExpiredOTPs(ctx)
	if err != nil {
		logger.WithError(err).Error("OTP cleanup failed")
		return
	}
	if n > 0 {
		logger.Infof("Cleared %d expired OTPs", n)
	}
}

// RunStagedTripCleanup deletes unfinished staged trips past retention
func (s *CronService) RunStagedTripCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.trips.DeleteStaleStagedTrips(ctx)
	if err != nil {
		logger.WithError(err).Error("Temp trip cleanup failed")
		return
	}
	if n > 0 {
		logger.Infof("Deleted %d stale temp trips", n)
	}
}
