package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solagg/service/metrics"
	"github.com/brojonat/solagg/service/store"
	"github.com/gagliardetto/solana-go"
)

// DefaultFetchTimeout bounds one fetch cycle, epoch resolution included.
const DefaultFetchTimeout = 10 * time.Second

// Inserter persists accepted records. *store.Store satisfies it.
type Inserter interface {
	Insert(key string, txn store.Transaction) error
}

// Config controls a fetch cycle.
type Config struct {
	// FetchTimeout is the deadline for the whole cycle. Zero disables it.
	FetchTimeout time.Duration

	// SlotDuration is used to estimate the epoch start.
	SlotDuration time.Duration

	// EpochFilter drops transactions from before the current epoch. When
	// false every transaction is accepted and a missing block time is stored
	// as timestamp 0.
	EpochFilter bool
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() Config {
	return Config{
		FetchTimeout: DefaultFetchTimeout,
		SlotDuration: DefaultSlotDuration,
		EpochFilter:  true,
	}
}

// Aggregator fetches recent transactions for an account, normalizes them
// and writes each accepted record to the store as soon as it is accepted.
type Aggregator struct {
	rpc      RPCClient
	store    Inserter
	cfg      Config
	endpoint string // RPC endpoint label for metrics
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAggregator creates a new Aggregator.
// If metrics is nil, no metrics will be recorded.
func NewAggregator(rpcClient RPCClient, s Inserter, cfg Config, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = DefaultSlotDuration
	}
	return &Aggregator{
		rpc:      &instrumentedRPC{next: rpcClient, endpoint: endpoint, metrics: m},
		store:    s,
		cfg:      cfg,
		endpoint: endpoint,
		metrics:  m,
		logger:   logger,
	}
}

// FetchRecentTransactions runs one fetch cycle for address and returns the
// records accepted during the cycle, in signature order (newest first).
//
// Records are inserted one by one, so when the cycle fails part way the
// records inserted so far stay in the store even though none are returned.
// Per-transaction problems are logged and skipped; the cycle itself fails
// only on the errors listed in errors.go.
func (a *Aggregator) FetchRecentTransactions(ctx context.Context, address string) ([]store.Transaction, error) {
	account, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	}

	fetchCtx, cancel := a.withDeadline(ctx)
	defer cancel()

	start := time.Now()
	txns, err := a.fetch(ctx, fetchCtx, account)
	a.metrics.RecordFetchCycle(address, outcome(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "fetched transactions",
		"wallet", address,
		"accepted", len(txns),
		"duration", time.Since(start),
	)
	return txns, nil
}

func (a *Aggregator) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.FetchTimeout)
}

// fetch does the work of one cycle. parent is the caller's context; ctx
// carries the cycle deadline and is used for every remote call.
func (a *Aggregator) fetch(parent, ctx context.Context, account solana.PublicKey) ([]store.Transaction, error) {
	address := account.String()

	var epochStart int64
	if a.cfg.EpochFilter {
		es, err := EpochStart(ctx, a.rpc, a.cfg.SlotDuration)
		if err != nil {
			return nil, a.interrupted(parent, ctx, err)
		}
		epochStart = es
		a.metrics.SetEpochStart(epochStart)
		a.logger.DebugContext(ctx, "resolved epoch start", "epoch_start", epochStart)
	}

	signatures, err := a.rpc.GetSignaturesForAddress(ctx, account)
	if err != nil {
		return nil, a.interrupted(parent, ctx, fmt.Errorf("%w for %s: %w", ErrSignatureFetch, address, err))
	}
	a.metrics.RecordRPCSignaturesPerCall(a.endpoint, float64(len(signatures)))

	a.logger.DebugContext(ctx, "fetched transaction signatures",
		"wallet", address,
		"count", len(signatures),
	)

	accepted := make([]store.Transaction, 0, len(signatures))
	for _, raw := range signatures {
		if ctx.Err() != nil {
			return nil, a.interrupted(parent, ctx, ctx.Err())
		}

		sig, err := solana.SignatureFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrSignatureParse, raw, err)
		}

		detail, err := a.rpc.GetTransaction(ctx, sig)
		if err != nil {
			if ctx.Err() != nil {
				return nil, a.interrupted(parent, ctx, err)
			}
			a.logger.WarnContext(ctx, "skipping transaction",
				"signature", raw,
				"error", fmt.Errorf("%w: %w", ErrTransactionFetch, err),
			)
			a.metrics.RecordTransactionDropped(address, "fetch_failed")
			continue
		}
		if detail == nil {
			a.logger.WarnContext(ctx, "skipping transaction", "signature", raw, "error", ErrTransactionFetch)
			a.metrics.RecordTransactionDropped(address, "fetch_failed")
			continue
		}

		timestamp, ok := a.admit(ctx, address, raw, detail.BlockTime, epochStart)
		if !ok {
			continue
		}

		txn, err := Normalize(raw, timestamp, detail)
		if err != nil {
			a.logger.WarnContext(ctx, "rejecting transaction", "signature", raw, "error", err)
			a.metrics.RecordTransactionRejected(address, rejectReason(err))
			continue
		}

		if err := a.store.Insert(address, txn); err != nil {
			return nil, fmt.Errorf("store %s: %w", raw, err)
		}
		a.metrics.RecordTransactionStored(address)
		accepted = append(accepted, txn)
	}

	return accepted, nil
}

// admit applies the block time filter and returns the timestamp to store.
func (a *Aggregator) admit(ctx context.Context, address, signature string, blockTime *int64, epochStart int64) (uint64, bool) {
	if !a.cfg.EpochFilter {
		if blockTime == nil || *blockTime < 0 {
			return 0, true
		}
		return uint64(*blockTime), true
	}

	if blockTime == nil {
		a.logger.DebugContext(ctx, "skipping transaction without block time", "signature", signature)
		a.metrics.RecordTransactionDropped(address, "no_block_time")
		return 0, false
	}
	if *blockTime < epochStart {
		a.logger.DebugContext(ctx, "dropping transaction from before epoch",
			"signature", signature,
			"block_time", *blockTime,
			"epoch_start", epochStart,
		)
		a.metrics.RecordTransactionDropped(address, "before_epoch")
		return 0, false
	}
	return uint64(*blockTime), true
}

// interrupted maps a failure that happened while ctx was done to the
// matching error kind. Shutdown of the parent is reported as cancellation,
// the cycle's own deadline as ErrTimeout. Otherwise err is returned as is.
func (a *Aggregator) interrupted(parent, ctx context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("fetch interrupted: %w", parent.Err())
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrTimeout, a.cfg.FetchTimeout)
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, store.ErrPersist):
		return "persist_error"
	default:
		return "error"
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrNegativeAmount):
		return "negative_amount"
	case errors.Is(err, ErrMissingBalances):
		return "missing_balances"
	default:
		return "invalid"
	}
}
