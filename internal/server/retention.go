package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/docuchat/docuchat/internal/store"
)

// Retention prunes conversation logs older than the configured window. One
// goroutine wakes hourly and fires when the cron spec says a run is due; a
// Redis lock keeps multiple replicas from pruning at once.
type Retention struct {
	Store *store.Store
	Rdb   *redis.Client // nil disables the distributed lock
	Days  int
	Spec  string
	Stop  chan struct{}

	logger  *log.Logger
	lastRun *time.Time
}

func (r *Retention) Start() {
	if r.logger == nil {
		r.logger = log.New(log.Writer(), "[RETENTION] ", log.LstdFlags)
	}
	// Anchor the schedule at startup so the first hourly tick does not
	// prune immediately regardless of the cron spec.
	now := time.Now()
	r.lastRun = &now
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-r.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				r.tick()
			}
		}
	}()
}

func (r *Retention) tick() {
	ctx := context.Background()
	if !isDue(r.Spec, r.lastRun) {
		return
	}

	// distributed lock to avoid duplicate pruning across replicas
	if r.Rdb != nil {
		ok, _ := r.Rdb.SetNX(ctx, "retention:lock", "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer r.Rdb.Del(ctx, "retention:lock")
	}

	cutoff := time.Now().AddDate(0, 0, -r.Days)
	n, err := r.Store.PruneLogs(ctx, cutoff)
	if err != nil {
		r.logger.Printf("prune failed: %v", err)
		return
	}
	now := time.Now()
	r.lastRun = &now
	if n > 0 {
		logsPrunedTotal.Add(float64(n))
		r.logger.Printf("pruned %d log rows older than %s", n, cutoff.Format(time.RFC3339))
	}
}

// isDue determines if a job with cronSpec should run now based on its last
// run time. Supports "@daily", "@hourly", and standard 5-field cron
// expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Fallback: treat as @daily if invalid
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
