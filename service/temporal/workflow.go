package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// fetchActivityTimeout bounds one activity attempt. The fetch cycle has its
// own, shorter deadline; this only catches a worker that stopped responding.
const fetchActivityTimeout = 2 * time.Minute

// PollWalletWorkflow runs one fetch cycle for a wallet. It is started by a
// schedule whose overlap policy skips a trigger while the previous run is
// still going, so cycles for one wallet never overlap.
//
// The activity is not retried: the next scheduled run is the retry.
func PollWalletWorkflow(ctx workflow.Context, input PollWalletInput) (*PollWalletResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("PollWalletWorkflow started", "address", input.Address)

	result := &PollWalletResult{
		Address:  input.Address,
		PollTime: workflow.Now(ctx),
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: fetchActivityTimeout,
		RetryPolicy: &temporalsdk.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var fetched *FetchTransactionsResult
	err := workflow.ExecuteActivity(ctx, a.FetchTransactions, FetchTransactionsInput{Address: input.Address}).Get(ctx, &fetched)
	if err != nil {
		logger.Error("fetch failed", "address", input.Address, "error", err)
		errMsg := fmt.Sprintf("failed to fetch transactions: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if fetched != nil {
		result.Signatures = fetched.Signatures
		result.TransactionCount = len(fetched.Signatures)
	}

	logger.Info("PollWalletWorkflow completed",
		"address", input.Address,
		"transaction_count", result.TransactionCount,
	)
	return result, nil
}
