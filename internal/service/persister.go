package service

import (
	"context"
	"errors"
	"fmt"

	"datablocks/internal/domain"
	"datablocks/internal/format"

	"github.com/robfig/cron/v3"
)

// ErrPersistRunning is returned when a persist pass is already in progress.
var ErrPersistRunning = errors.New("persist already running")

const persistKey = "persist"

// ─────────────────────────────────────────────────────────────
// Persister — copies memory-only blocks to durable storage
// ─────────────────────────────────────────────────────────────

// Persister realizes every live block as a table on one database storage,
// either on demand or on a cron schedule.
type Persister struct {
	ec      *ExecutionContext
	manager *DataBlockManager
	target  domain.Storage
	running keyedGuard
	sched   *cron.Cron
}

func NewPersister(ec *ExecutionContext, manager *DataBlockManager, target domain.Storage) (*Persister, error) {
	if target.Type != domain.StorageTypeDatabase {
		return nil, fmt.Errorf("persist target %s is not a database storage", target.Scheme())
	}
	return &Persister{ec: ec, manager: manager, target: target}, nil
}

// PersistResult summarises one pass.
type PersistResult struct {
	Persisted int `json:"persisted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// RunOnce persists every block that has no realization on the target yet.
// Blocks this process cannot see any realization of are skipped.
func (p *Persister) RunOnce(ctx context.Context) (*PersistResult, error) {
	if !p.running.TryLock(persistKey) {
		return nil, ErrPersistRunning
	}
	defer p.running.Unlock(persistKey)

	blocks, err := p.ec.Blocks.ListBlocks(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}

	res := &PersistResult{}
	for _, b := range blocks {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		log := p.ec.Logger.WithField("action", "persist").WithField("block", b.ID())

		stored, err := p.ec.Blocks.ListStoredBlocks(ctx, b.ID())
		if err != nil {
			return res, fmt.Errorf("list realizations: %w", err)
		}
		if onStorage(stored, p.target.URL) {
			res.Skipped++
			continue
		}

		_, err = p.manager.GetOrCreateRealization(ctx, b, format.DatabaseTable, p.target)
		switch {
		case errors.Is(err, ErrNoRealizationPossible):
			log.Debug("no visible realization, skipping")
			res.Skipped++
		case err != nil:
			log.WithError(err).Warn("persist failed")
			res.Failed++
		default:
			res.Persisted++
		}
	}
	return res, nil
}

func onStorage(stored []*domain.StoredDataBlock, url string) bool {
	for _, s := range stored {
		if s.Storage().URL == url {
			return true
		}
	}
	return false
}

// Start runs RunOnce on schedule until Stop. Overlapping ticks are skipped.
func (p *Persister) Start(ctx context.Context, schedule string) error {
	p.Stop(ctx)

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		res, err := p.RunOnce(ctx)
		log := p.ec.Logger.WithField("action", "persist_tick")
		switch {
		case errors.Is(err, ErrPersistRunning):
			log.Debug("previous pass still running")
		case err != nil:
			log.WithError(err).Warn("persist pass failed")
		default:
			log.WithField("persisted", res.Persisted).
				WithField("skipped", res.Skipped).
				WithField("failed", res.Failed).
				Info("persist pass finished")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid persist schedule %q: %w", schedule, err)
	}
	c.Start()
	p.sched = c
	p.ec.Logger.WithField("action", "persist").WithField("schedule", schedule).Info("persister scheduled")
	return nil
}

// Stop halts the schedule and waits for a running pass or ctx.
func (p *Persister) Stop(ctx context.Context) {
	if p.sched != nil {
		p.sched.Stop()
		p.sched = nil
	}
	p.running.WaitAll(ctx)
}
