package solana

import (
	"testing"

	"github.com/brojonat/solagg/service/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		detail  *TransactionDetail
		want    store.Transaction
		wantErr error
	}{
		{
			name: "parsed account keys",
			detail: &TransactionDetail{
				ParsedAccountKeys: []string{"alice", "bob", "program"},
				Meta:              &TransactionMeta{PreBalances: []uint64{100, 5, 1}, PostBalances: []uint64{40, 60, 1}},
			},
			want: store.Transaction{Signature: "sig", Sender: "alice", Receiver: "bob", Amount: 55, Timestamp: 42},
		},
		{
			name: "raw keys when not parsed",
			detail: &TransactionDetail{
				RawAccountKeys: []string{"carol", "dave"},
				Meta:           &TransactionMeta{PreBalances: []uint64{0, 0}, PostBalances: []uint64{0, 0}},
			},
			want: store.Transaction{Signature: "sig", Sender: "carol", Receiver: "dave", Amount: 0, Timestamp: 42},
		},
		{
			name: "parsed keys win over raw keys",
			detail: &TransactionDetail{
				ParsedAccountKeys: []string{"alice", "bob"},
				RawAccountKeys:    []string{"carol", "dave"},
				Meta:              &TransactionMeta{PreBalances: []uint64{0, 1}, PostBalances: []uint64{0, 2}},
			},
			want: store.Transaction{Signature: "sig", Sender: "alice", Receiver: "bob", Amount: 1, Timestamp: 42},
		},
		{
			name: "missing receiver is unknown",
			detail: &TransactionDetail{
				ParsedAccountKeys: []string{"alice"},
				Meta:              &TransactionMeta{PreBalances: []uint64{0, 1}, PostBalances: []uint64{0, 2}},
			},
			want: store.Transaction{Signature: "sig", Sender: "alice", Receiver: "unknown", Amount: 1, Timestamp: 42},
		},
		{
			name: "no keys at all",
			detail: &TransactionDetail{
				Meta: &TransactionMeta{PreBalances: []uint64{0, 1}, PostBalances: []uint64{0, 2}},
			},
			want: store.Transaction{Signature: "sig", Sender: "unknown", Receiver: "unknown", Amount: 1, Timestamp: 42},
		},
		{
			name: "negative delta",
			detail: &TransactionDetail{
				ParsedAccountKeys: []string{"alice", "bob"},
				Meta:              &TransactionMeta{PreBalances: []uint64{0, 10}, PostBalances: []uint64{0, 9}},
			},
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "no meta",
			detail:  &TransactionDetail{ParsedAccountKeys: []string{"alice", "bob"}},
			wantErr: ErrMissingBalances,
		},
		{
			name: "short balances",
			detail: &TransactionDetail{
				ParsedAccountKeys: []string{"alice", "bob"},
				Meta:              &TransactionMeta{PreBalances: []uint64{10}, PostBalances: []uint64{10, 20}},
			},
			wantErr: ErrMissingBalances,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize("sig", 42, tt.detail)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_NilDetail(t *testing.T) {
	_, err := Normalize("sig", 0, nil)
	assert.ErrorIs(t, err, ErrMissingBalances)
}
