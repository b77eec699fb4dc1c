package decision

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

const pruneTimeout = 30 * time.Second

// Pruner deletes decisions older than the retention window on a fixed
// interval.
type Pruner struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

func NewPruner(store *Store, retention, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Pruner {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:     store,
		retention: retention,
		interval:  interval,
		clock:     clk,
		logger:    logger.With("component", "decision-pruner"),
	}
}

func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()
	return p.store.DeleteBefore(ctx, p.clock.Now().Add(-p.retention))
}

// Run prunes once immediately and then every interval until ctx is done.
func (p *Pruner) Run(ctx context.Context) {
	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		n, err := p.PruneOnce(ctx)
		if err != nil {
			p.logger.Warn("failed to prune decisions", "error", err)
		} else if n > 0 {
			p.logger.Info("pruned decisions", "deleted", n, "retention", p.retention)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
