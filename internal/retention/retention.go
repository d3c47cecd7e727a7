package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"deskchat/pkg/config"
	"deskchat/pkg/logger"
	"deskchat/pkg/metrics"
	"deskchat/pkg/store"
)

// Runner purges conversations whose last activity is older than the
// configured period. It wakes once a minute and fires when the cron
// expression matches.
type Runner struct {
	cfg  config.RetentionConfig
	cron *gronx.Gronx
}

// New validates the cron expression and returns a Runner.
func New(cfg config.RetentionConfig) (*Runner, error) {
	g := gronx.New()
	if !g.IsValid(cfg.Cron) {
		return nil, fmt.Errorf("invalid retention cron %q", cfg.Cron)
	}
	return &Runner{cfg: cfg, cron: g}, nil
}

// Run blocks until ctx is done, executing sweeps on the cron schedule.
func (r *Runner) Run(ctx context.Context) {
	logger.Info("retention_start", "cron", r.cfg.Cron, "period", r.cfg.Period.Duration().String(), "dry_run", r.cfg.DryRun)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_stop")
			return
		case <-ticker.C:
			due, err := r.cron.IsDue(r.cfg.Cron, time.Now())
			if err != nil || !due {
				continue
			}
			if err := r.Sweep(); err != nil {
				logger.Error("retention_sweep_failed", "err", err)
			}
		}
	}
}

// Sweep runs one purge pass over all conversations.
func (r *Runner) Sweep() error {
	cutoff := time.Now().Add(-r.cfg.Period.Duration()).UnixNano()
	convs, err := store.ListConversations()
	if err != nil {
		return err
	}
	purged := 0
	for _, c := range convs {
		if c.UpdatedTS >= cutoff {
			continue
		}
		if r.cfg.DryRun {
			logger.Info("retention_would_purge", "user", c.UserID, "updated_ts", c.UpdatedTS)
			continue
		}
		if err := store.DeleteConversation(c.UserID); err != nil {
			logger.Error("retention_purge_failed", "user", c.UserID, "err", err)
			continue
		}
		metrics.RetentionPurged.Inc()
		purged++
	}
	run := store.RetentionRun{
		TS:       time.Now().UnixNano(),
		Examined: len(convs),
		Purged:   purged,
		DryRun:   r.cfg.DryRun,
	}
	if err := store.SetRetentionLastRun(run); err != nil {
		logger.Warn("retention_record_failed", "err", err)
	}
	logger.Info("retention_sweep_done", "examined", len(convs), "purged", purged, "dry_run", r.cfg.DryRun)
	return nil
}
