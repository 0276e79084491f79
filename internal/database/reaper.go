package database

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
)

// DefaultExpiringTables lists the tables whose rows carry an expires_at column
// and are removed once that moment has passed.
var DefaultExpiringTables = []string{"verification_codes", "refresh_tokens", "refs"}

// Reaper periodically deletes expired rows. Reads never rely on it: every query on an
// expiring table also filters on expires_at, so the reaper only reclaims storage.
type Reaper struct {
	db       DBTX
	log      *slog.Logger
	tables   []string
	interval time.Duration
	psql     squirrel.StatementBuilderType
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReaper creates a reaper for the given tables. A zero interval defaults to one minute.
func NewReaper(db DBTX, log *slog.Logger, interval time.Duration, tables ...string) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if len(tables) == 0 {
		tables = DefaultExpiringTables
	}
	return &Reaper{
		db:       db,
		log:      log,
		tables:   tables,
		interval: interval,
		psql:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:      time.Now,
	}
}

// Start launches the background loop. It returns immediately.
func (r *Reaper) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Sweep deletes expired rows from every table once and returns the number of rows removed.
func (r *Reaper) Sweep(ctx context.Context) int64 {
	var total int64
	for _, table := range r.tables {
		query, args, err := r.psql.Delete(table).
			Where(squirrel.LtOrEq{"expires_at": r.now()}).
			ToSql()
		if err != nil {
			r.log.Error("reaper: build delete failed", "table", table, "error", err)
			continue
		}
		tag, err := r.db.Exec(ctx, query, args...)
		if err != nil {
			r.log.Error("reaper: delete expired rows failed", "table", table, "error", err)
			continue
		}
		if n := tag.RowsAffected(); n > 0 {
			r.log.Info("reaper: removed expired rows", "table", table, "count", n)
			total += n
		}
	}
	return total
}
