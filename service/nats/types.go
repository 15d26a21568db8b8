package nats

import (
	"fmt"
	"time"

	"github.com/brojonat/solagg/service/store"
)

// TransactionEvent is published to "txns.{wallet_address}" in JetStream
// each time a record is accepted into the store.
type TransactionEvent struct {
	// WalletAddress is the tracked account the record was fetched for.
	WalletAddress string `json:"wallet_address"`

	Signature string `json:"signature"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    uint64 `json:"amount"`
	Timestamp uint64 `json:"timestamp"`

	PublishedAt time.Time `json:"published_at"`
}

// NewTransactionEvent converts a stored record to a TransactionEvent for publishing.
func NewTransactionEvent(wallet string, txn store.Transaction) *TransactionEvent {
	return &TransactionEvent{
		WalletAddress: wallet,
		Signature:     txn.Signature,
		Sender:        txn.Sender,
		Receiver:      txn.Receiver,
		Amount:        txn.Amount,
		Timestamp:     txn.Timestamp,
		PublishedAt:   time.Now().UTC(),
	}
}

// Transaction returns the store record carried by the event.
func (e *TransactionEvent) Transaction() store.Transaction {
	return store.Transaction{
		Signature: e.Signature,
		Sender:    e.Sender,
		Receiver:  e.Receiver,
		Amount:    e.Amount,
		Timestamp: e.Timestamp,
	}
}

// Subject returns the subject events for wallet are published on.
// An empty wallet selects every tracked account.
func Subject(wallet string) string {
	if wallet == "" {
		return StreamSubjects
	}
	return fmt.Sprintf("txns.%s", wallet)
}
