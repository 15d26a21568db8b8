package solana

import (
	"fmt"

	"github.com/brojonat/solagg/service/store"
)

// unknownAccount stands in for a sender or receiver the message does not name.
const unknownAccount = "unknown"

// Normalize flattens a fetched transaction into a store record.
//
// The sender is the first account key (the fee payer) and the receiver the
// second. The amount is the lamport change of the receiver's balance.
func Normalize(signature string, timestamp uint64, detail *TransactionDetail) (store.Transaction, error) {
	if detail == nil || detail.Meta == nil {
		return store.Transaction{}, fmt.Errorf("%s: %w: no meta", signature, ErrMissingBalances)
	}

	amount, err := receiverDelta(detail.Meta)
	if err != nil {
		return store.Transaction{}, fmt.Errorf("%s: %w", signature, err)
	}

	keys := detail.AccountKeys()
	return store.Transaction{
		Signature: signature,
		Sender:    accountAt(keys, 0),
		Receiver:  accountAt(keys, 1),
		Amount:    amount,
		Timestamp: timestamp,
	}, nil
}

func receiverDelta(meta *TransactionMeta) (uint64, error) {
	if len(meta.PreBalances) < 2 || len(meta.PostBalances) < 2 {
		return 0, fmt.Errorf("%w: %d pre, %d post", ErrMissingBalances, len(meta.PreBalances), len(meta.PostBalances))
	}
	pre, post := meta.PreBalances[1], meta.PostBalances[1]
	if post < pre {
		return 0, fmt.Errorf("%w: %d -> %d", ErrNegativeAmount, pre, post)
	}
	return post - pre, nil
}

func accountAt(keys []string, i int) string {
	if i < len(keys) && keys[i] != "" {
		return keys[i]
	}
	return unknownAccount
}
