package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/db"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/types"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/metrics"
)

const EventRetentionPurge = "DATA_RETENTION_PURGE"

var ErrRetentionDisabled = errors.New("data retention purge is disabled")

// RetentionConfig holds the parameters for NewRetentionJob.
type RetentionConfig struct {
	// RetentionYears is how much visit history to keep. 0 disables the
	// job entirely.
	RetentionYears int

	// IntervalHours is how often the scheduled loop runs. Defaults to 24.
	IntervalHours int

	// OnComplete, if set, receives the result of every run.
	OnComplete func(types.RetentionResult)
}

// RetentionJob deletes visit data older than the retention window. Each run
// deletes dependents, then visits, then visitors left with no visits and no
// ban, as three separate statements, and always ends with one audit entry.
type RetentionJob struct {
	store      store.RetentionStore
	audit      store.AuditLog
	years      int
	interval   time.Duration
	onComplete func(types.RetentionResult)
	metrics    *metrics.Metrics
	logger     *zap.Logger

	runMu sync.Mutex // one run at a time, scheduled or manual

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRetentionJob creates a job but does not start it. Call Start for the
// background loop or RunOnce for a single pass.
func NewRetentionJob(s store.RetentionStore, audit store.AuditLog, cfg RetentionConfig, m *metrics.Metrics, logger *zap.Logger) *RetentionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &RetentionJob{
		store:      s,
		audit:      audit,
		years:      cfg.RetentionYears,
		interval:   interval,
		onComplete: cfg.OnComplete,
		metrics:    m,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start runs a purge immediately, then again every interval, until ctx is
// cancelled or Stop is called. Calling Start more than once has no effect.
func (j *RetentionJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return
	}
	j.started = true

	if j.years <= 0 {
		j.logger.Info("retention job disabled", zap.Int("retention_years", j.years))
		close(j.done)
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	go j.loop(ctx)

	j.logger.Info("retention job started",
		zap.Int("retention_years", j.years),
		zap.Duration("interval", j.interval),
	)
}

// Stop signals the loop to exit and waits for it. Safe to call more than
// once, and before Start.
func (j *RetentionJob) Stop() {
	j.mu.Lock()
	started := j.started
	if j.cancel != nil {
		j.cancel()
	}
	j.mu.Unlock()

	if started {
		<-j.done
	}
}

func (j *RetentionJob) loop(ctx context.Context) {
	defer close(j.done)

	// Run immediately so a restart does not postpone an overdue purge.
	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// Cutoff is the instant before which visits are expired.
func (j *RetentionJob) Cutoff(now time.Time) time.Time {
	return now.UTC().AddDate(-j.years, 0, 0)
}

// RunOnce performs one purge. It never panics and never returns an error;
// failures are reported in the result and in the audit entry. Steps after
// the first failure are skipped, and the counts reflect only completed steps.
func (j *RetentionJob) RunOnce(ctx context.Context) (res types.RetentionResult) {
	if j.years <= 0 {
		res.Err = ErrRetentionDisabled.Error()
		return res
	}

	j.runMu.Lock()
	defer j.runMu.Unlock()

	started := time.Now()
	cutoff := j.Cutoff(started)

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Sprintf("retention purge panic: %v", r)
		}
		j.finish(ctx, res, cutoff, time.Since(started))
	}()

	n, err := j.store.DeleteExpiredDependents(ctx, cutoff)
	if err != nil {
		res.Err = fmt.Sprintf("delete expired dependents: %v", err)
		return res
	}
	res.Counts.Dependents = n

	n, err = j.store.DeleteExpiredVisits(ctx, cutoff)
	if err != nil {
		res.Err = fmt.Sprintf("delete expired visits: %v", err)
		return res
	}
	res.Counts.Visits = n

	n, err = j.store.DeleteOrphanedVisitors(ctx)
	if err != nil {
		res.Err = fmt.Sprintf("delete orphaned visitors: %v", err)
		return res
	}
	res.Counts.Profiles = n

	return res
}

// finish writes the audit entry and reports the run. The audit write uses a
// context detached from cancellation so a shutdown mid-run is still recorded.
func (j *RetentionJob) finish(ctx context.Context, res types.RetentionResult, cutoff time.Time, took time.Duration) {
	status := db.AuditStatusOK
	if res.Err != "" {
		status = db.AuditStatusError
	}

	if j.audit != nil {
		j.audit.LogAudit(context.WithoutCancel(ctx), db.AuditEntry{
			EventName:         EventRetentionPurge,
			Status:            status,
			Message:           res.Err,
			ProfilesDeleted:   res.Counts.Profiles,
			VisitsDeleted:     res.Counts.Visits,
			DependentsDeleted: res.Counts.Dependents,
		})
	}

	j.metrics.ObservePurge(status, res.Counts.Profiles, res.Counts.Visits, res.Counts.Dependents)

	fields := []zap.Field{
		zap.String("status", status),
		zap.Time("cutoff", cutoff),
		zap.Int64("profiles_deleted", res.Counts.Profiles),
		zap.Int64("visits_deleted", res.Counts.Visits),
		zap.Int64("dependents_deleted", res.Counts.Dependents),
		zap.Duration("took", took),
	}
	if res.Err != "" {
		j.logger.Error("retention purge failed", append(fields, zap.String("error", res.Err))...)
	} else {
		j.logger.Info("retention purge complete", fields...)
	}

	if j.onComplete != nil {
		j.onComplete(res)
	}
}
