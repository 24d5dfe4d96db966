// Package cycle runs one fetch -> filter -> notify pass and owns the
// single-flight guarantee around it.
package cycle

import (
	"context"
	"sync"
	"time"

	"lootbot/internal/catalog"
	"lootbot/pkg/logx"
)

type Fetcher interface {
	Fetch(ctx context.Context) ([]catalog.Record, error)
}

type Filter interface {
	Giveaways(records []catalog.Record) []catalog.Item
}

type Ledger interface {
	Contains(id string) bool
	Record(id, name string) error
}

type Registry interface {
	List(ctx context.Context) ([]int64, error)
}

type Notifier interface {
	SendItem(ctx context.Context, item catalog.Item, recipients []int64) int
}

// Result summarizes one pass, mainly to build the reply for manual checks.
type Result struct {
	// Candidates is the number of qualifying giveaways in the catalog,
	// before dedup. Lets the caller tell "nothing on sale" apart from
	// "everything already announced".
	Candidates int
	// NewItems are the giveaways announced during this pass.
	NewItems []catalog.Item
	// Recipients is the number of registered chats at pass time.
	Recipients int
	// Err is set when the catalog fetch failed; the pass touched nothing.
	Err error
}

// Runner executes passes. Both the scheduler and the manual-check
// commands go through Run; the mutex serializes them so concurrent
// triggers cannot interleave ledger writes.
type Runner struct {
	mu sync.Mutex

	fetcher  Fetcher
	filter   Filter
	ledger   Ledger
	registry Registry
	notifier Notifier
	log      logx.Logger
}

func New(fetcher Fetcher, filter Filter, led Ledger, reg Registry, notif Notifier, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{
		fetcher:  fetcher,
		filter:   filter,
		ledger:   led,
		registry: reg,
		notifier: notif,
		log:      log,
	}
}

// Run executes one pass. A trigger arriving while a pass is in flight
// blocks until the first one finishes, then runs its own.
func (r *Runner) Run(ctx context.Context) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()

	records, err := r.fetcher.Fetch(ctx)
	if err != nil {
		r.log.Error("catalog fetch failed", logx.Err(err))
		return Result{Err: err}
	}

	items := r.filter.Giveaways(records)
	res := Result{Candidates: len(items)}

	recipients, err := r.registry.List(ctx)
	if err != nil {
		// Nobody to notify this pass; newly found items stay unrecorded so
		// the next pass announces them.
		r.log.Error("recipient list failed, skipping notify", logx.Err(err))
		return res
	}
	res.Recipients = len(recipients)

	for _, it := range items {
		if r.ledger.Contains(it.ID) {
			continue
		}
		res.NewItems = append(res.NewItems, it)

		r.notifier.SendItem(ctx, it, recipients)
		// Record exactly once per item, whatever the delivery outcomes.
		// A failed write is a warning, not a reason to re-notify forever.
		if err := r.ledger.Record(it.ID, it.Name); err != nil {
			r.log.Warn("ledger write failed, item still counts as sent",
				logx.String("app_id", it.ID), logx.Err(err))
		}
	}

	r.log.Info("check finished",
		logx.Int("candidates", res.Candidates),
		logx.Int("new", len(res.NewItems)),
		logx.Int("recipients", res.Recipients),
		logx.Duration("took", time.Since(started)))
	return res
}
