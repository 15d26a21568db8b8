// Package poller runs the periodic fetch loop for the tracked accounts.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brojonat/solagg/service/metrics"
	natspkg "github.com/brojonat/solagg/service/nats"
	"github.com/brojonat/solagg/service/solana"
	"github.com/brojonat/solagg/service/store"
)

// Fetcher runs one fetch cycle for an account. *solana.Aggregator satisfies it.
type Fetcher interface {
	FetchRecentTransactions(ctx context.Context, address string) ([]store.Transaction, error)
}

// Sizer reports how many records the store holds.
type Sizer interface {
	Len() int
}

// Poller fetches every tracked account once per interval. Cycles never
// overlap: the loop runs each cycle to completion before waiting for the
// next tick, and ticks missed meanwhile are dropped.
type Poller struct {
	fetcher   Fetcher
	wallets   []string
	interval  time.Duration
	publisher natspkg.Publisher // nil disables event publishing
	store     Sizer             // nil disables the store size gauge
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a Poller. publisher and store may be nil.
func New(f Fetcher, wallets []string, interval time.Duration, publisher natspkg.Publisher, s Sizer, m *metrics.Metrics, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		fetcher:   f,
		wallets:   wallets,
		interval:  interval,
		publisher: publisher,
		store:     s,
		metrics:   m,
		logger:    logger,
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
// It returns nil on cancellation.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "poller started",
		"wallets", len(p.wallets),
		"interval", p.interval,
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.RunCycle(ctx)

		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle polls each tracked account once, in order.
func (p *Poller) RunCycle(ctx context.Context) {
	for _, wallet := range p.wallets {
		if ctx.Err() != nil {
			return
		}
		_, _ = p.PollWallet(ctx, wallet)
	}
}

// PollWallet runs one fetch cycle for wallet, publishes the accepted records
// and logs the outcome by error kind. The error is returned for callers that
// report it elsewhere; the loop itself never stops on it.
func (p *Poller) PollWallet(ctx context.Context, wallet string) ([]store.Transaction, error) {
	txns, err := p.fetcher.FetchRecentTransactions(ctx, wallet)
	p.updateStoreSize()
	if err != nil {
		p.logFailure(ctx, wallet, err)
		return nil, err
	}

	if p.publisher != nil && len(txns) > 0 {
		events := make([]*natspkg.TransactionEvent, 0, len(txns))
		for _, txn := range txns {
			events = append(events, natspkg.NewTransactionEvent(wallet, txn))
		}
		if err := p.publisher.PublishTransactionBatch(ctx, events); err != nil {
			p.logger.WarnContext(ctx, "failed to publish transaction events",
				"wallet", wallet,
				"count", len(events),
				"error", err,
			)
		}
	}

	p.logger.DebugContext(ctx, "poll cycle complete", "wallet", wallet, "accepted", len(txns))
	return txns, nil
}

func (p *Poller) updateStoreSize() {
	if p.store != nil {
		p.metrics.SetStoreSize(p.store.Len())
	}
}

func (p *Poller) logFailure(ctx context.Context, wallet string, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		p.logger.InfoContext(ctx, "poll cycle interrupted by shutdown", "wallet", wallet)
	case errors.Is(err, solana.ErrTimeout):
		p.logger.WarnContext(ctx, "timeout fetching transactions", "wallet", wallet, "error", err)
	case errors.Is(err, store.ErrPersist):
		p.logger.ErrorContext(ctx, "failed to persist transactions", "wallet", wallet, "error", err)
	case errors.Is(err, solana.ErrInvalidAddress):
		p.logger.ErrorContext(ctx, "invalid tracked wallet", "wallet", wallet, "error", err)
	default:
		p.logger.ErrorContext(ctx, "poll cycle failed", "wallet", wallet, "error", err)
	}
}
