package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solagg/service/store"
)

// PollWalletInput contains the input parameters for polling a wallet.
type PollWalletInput struct {
	Address string `json:"address"`
}

// PollWalletResult contains the result of polling a wallet.
type PollWalletResult struct {
	Address          string    `json:"address"`
	TransactionCount int       `json:"transaction_count"`
	Signatures       []string  `json:"signatures,omitempty"`
	PollTime         time.Time `json:"poll_time"`
	Error            *string   `json:"error,omitempty"`
}

// FetchTransactionsInput contains parameters for the FetchTransactions activity.
type FetchTransactionsInput struct {
	Address string `json:"address"`
}

// FetchTransactionsResult lists the records accepted during the activity.
type FetchTransactionsResult struct {
	Signatures []string `json:"signatures"`
}

// WalletPoller runs one fetch cycle for a wallet. *poller.Poller satisfies it.
type WalletPoller interface {
	PollWallet(ctx context.Context, wallet string) ([]store.Transaction, error)
}

// Activities holds the dependencies the activities close over. The store
// lives in this process, so the worker must run in the same process too.
type Activities struct {
	poller WalletPoller
	logger *slog.Logger
}

// NewActivities creates a new Activities instance.
func NewActivities(p WalletPoller, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{poller: p, logger: logger}
}

// FetchTransactions fetches, stores and publishes the recent transactions
// of one wallet.
func (a *Activities) FetchTransactions(ctx context.Context, input FetchTransactionsInput) (*FetchTransactionsResult, error) {
	a.logger.DebugContext(ctx, "fetch activity started", "address", input.Address)

	txns, err := a.poller.PollWallet(ctx, input.Address)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", input.Address, err)
	}

	result := &FetchTransactionsResult{Signatures: make([]string, 0, len(txns))}
	for _, txn := range txns {
		result.Signatures = append(result.Signatures, txn.Signature)
	}
	return result, nil
}
