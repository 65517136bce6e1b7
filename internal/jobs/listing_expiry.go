// File: internal/jobs/listing_expiry.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"carmarket_backend/internal/config"
	"carmarket_backend/internal/listing"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	expiryRunTimeout  = 5 * time.Minute
	schedulerStopWait = 10 * time.Second
)

// ListingExpiryJob periodically deactivates approved listings whose lifespan has run out.
type ListingExpiryJob struct {
	listingService listing.Service
	logger         *zap.Logger
	cfg            *config.Config
	cronScheduler  *cron.Cron
}

// NewListingExpiryJob creates a new ListingExpiryJob. Overlapping runs are skipped.
func NewListingExpiryJob(
	listingService listing.Service,
	logger *zap.Logger,
	cfg *config.Config,
) *ListingExpiryJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &ListingExpiryJob{
		listingService: listingService,
		logger:         logger.Named("ListingExpiryJob"),
		cfg:            cfg,
		cronScheduler:  scheduler,
	}
}

// SetupAndStart schedules and starts the cron job. An empty schedule disables it.
func (j *ListingExpiryJob) SetupAndStart() error {
	jobSpec := j.cfg.ListingExpiryJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Listing expiry job schedule not defined (LISTING_EXPIRY_JOB_SCHEDULE). Job will not run.")
		return nil
	}
	if j.cfg.ListingLifespan() == 0 {
		j.logger.Warn("Listing lifespan is zero; approved listings never expire, but the job is scheduled anyway.")
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule listing expiry job", zap.String("spec", jobSpec), zap.Error(err))
		return fmt.Errorf("failed to schedule listing expiry job %q: %w", jobSpec, err)
	}

	j.logger.Info("Listing expiry job scheduled", zap.String("spec", jobSpec), zap.Int("jobID", int(jobID)))
	j.cronScheduler.Start()
	return nil
}

func (j *ListingExpiryJob) runJob() {
	j.logger.Info("Starting listing expiry job run...")
	ctx, cancel := context.WithTimeout(context.Background(), expiryRunTimeout)
	defer cancel()

	started := time.Now()
	expiredCount, err := j.listingService.ExpireListings(ctx)
	if err != nil {
		j.logger.Error("Listing expiry job run failed", zap.Error(err))
		return
	}
	j.logger.Info("Listing expiry job run completed",
		zap.Int("listingsExpired", expiredCount),
		zap.Duration("duration", time.Since(started)),
	)
}

// Stop stops the scheduler and waits for a running job to finish.
func (j *ListingExpiryJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping listing expiry job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Listing expiry job scheduler stopped gracefully.")
	case <-time.After(schedulerStopWait):
		j.logger.Warn("Listing expiry job scheduler stop timed out.")
	}
}

// cronLogger adapts zap.Logger to the cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine scheduler messages at debug level.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.fields(keysAndValues...)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(cl.fields(keysAndValues...), zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) fields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
