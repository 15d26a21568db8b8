package solana

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brojonat/solagg/service/store"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call sequences.
type mockRPCClient struct {
	mu sync.Mutex

	epoch        *rpc.GetEpochInfoResult
	epochErr     error
	blockTime    *solana.UnixTimeSeconds
	blockTimeErr error

	signatures []string
	sigErr     error

	transactions map[string]*TransactionDetail
	txErrs       map[string]error
	// block makes GetTransaction wait for ctx for these signatures.
	block map[string]bool

	calls int
}

func (m *mockRPCClient) count() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockRPCClient) GetEpochInfo(ctx context.Context) (*rpc.GetEpochInfoResult, error) {
	m.count()
	if m.epochErr != nil {
		return nil, m.epochErr
	}
	return m.epoch, nil
}

func (m *mockRPCClient) GetBlockTime(ctx context.Context, slot uint64) (*solana.UnixTimeSeconds, error) {
	m.count()
	if m.blockTimeErr != nil {
		return nil, m.blockTimeErr
	}
	return m.blockTime, nil
}

func (m *mockRPCClient) GetSignaturesForAddress(ctx context.Context, account solana.PublicKey) ([]string, error) {
	m.count()
	if m.sigErr != nil {
		return nil, m.sigErr
	}
	return m.signatures, nil
}

func (m *mockRPCClient) GetTransaction(ctx context.Context, signature solana.Signature) (*TransactionDetail, error) {
	m.count()
	key := signature.String()
	if m.block[key] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := m.txErrs[key]; err != nil {
		return nil, err
	}
	return m.transactions[key], nil
}

// fakeInserter records inserts in memory.
type fakeInserter struct {
	mu       sync.Mutex
	inserted map[string][]store.Transaction
	err      error
}

func (f *fakeInserter) Insert(key string, txn store.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.inserted == nil {
		f.inserted = make(map[string][]store.Transaction)
	}
	f.inserted[key] = append(f.inserted[key], txn)
	return nil
}

var (
	testWallet   = solana.MustPublicKeyFromBase58("11111111111111111111111111111111").String()
	testSender   = testKey(1)
	testReceiver = testKey(2)
)

func testKey(b byte) string {
	var pk solana.PublicKey
	pk[0] = b
	pk[31] = b
	return pk.String()
}

func testSig(b byte) string {
	var sig solana.Signature
	sig[0] = b
	sig[63] = b
	return sig.String()
}

func unix(v int64) *int64 { return &v }

// epochAt returns an epoch whose start resolves to start with the default slot duration.
func epochAt(start int64) (*rpc.GetEpochInfoResult, *solana.UnixTimeSeconds) {
	// 2500 slots * 400ms = 1000s into the epoch
	bt := solana.UnixTimeSeconds(start + 1000)
	return &rpc.GetEpochInfoResult{AbsoluteSlot: 5000, SlotIndex: 2500, SlotsInEpoch: 432000}, &bt
}

func transfer(blockTime *int64, pre, post uint64) *TransactionDetail {
	return &TransactionDetail{
		BlockTime:         blockTime,
		ParsedAccountKeys: []string{testSender, testReceiver},
		Meta: &TransactionMeta{
			PreBalances:  []uint64{5000, pre},
			PostBalances: []uint64{0, post},
		},
	}
}

func newTestAggregator(mock *mockRPCClient, ins Inserter, cfg Config) *Aggregator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAggregator(mock, ins, cfg, "test", nil, logger)
}

func TestFetchRecentTransactions_EpochBoundary(t *testing.T) {
	epoch, bt := epochAt(1000)
	mock := &mockRPCClient{
		epoch:      epoch,
		blockTime:  bt,
		signatures: []string{testSig(1), testSig(2), testSig(3)},
		transactions: map[string]*TransactionDetail{
			testSig(1): transfer(unix(1000), 10, 60),
			testSig(2): transfer(unix(999), 10, 20),
			testSig(3): transfer(unix(2500), 0, 7),
		},
	}
	ins := &fakeInserter{}
	agg := newTestAggregator(mock, ins, DefaultConfig())

	txns, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, store.Transaction{
		Signature: testSig(1),
		Sender:    testSender,
		Receiver:  testReceiver,
		Amount:    50,
		Timestamp: 1000,
	}, txns[0])
	assert.Equal(t, testSig(3), txns[1].Signature)
	assert.Equal(t, uint64(7), txns[1].Amount)

	assert.Equal(t, txns, ins.inserted[testWallet], "every accepted record is inserted under the account")
}

func TestFetchRecentTransactions_SkipsMissingBlockTime(t *testing.T) {
	epoch, bt := epochAt(1000)
	mock := &mockRPCClient{
		epoch:      epoch,
		blockTime:  bt,
		signatures: []string{testSig(1), testSig(2)},
		transactions: map[string]*TransactionDetail{
			testSig(1): transfer(nil, 0, 1),
			testSig(2): transfer(unix(1500), 0, 2),
		},
	}
	agg := newTestAggregator(mock, &fakeInserter{}, DefaultConfig())

	txns, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, testSig(2), txns[0].Signature)
}

func TestFetchRecentTransactions_AcceptAll(t *testing.T) {
	mock := &mockRPCClient{
		epochErr:   errors.New("must not be called"),
		signatures: []string{testSig(1), testSig(2)},
		transactions: map[string]*TransactionDetail{
			testSig(1): transfer(nil, 0, 1),
			testSig(2): transfer(unix(1), 0, 2),
		},
	}
	cfg := DefaultConfig()
	cfg.EpochFilter = false
	agg := newTestAggregator(mock, &fakeInserter{}, cfg)

	txns, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Zero(t, txns[0].Timestamp, "missing block time is stored as 0")
	assert.Equal(t, uint64(1), txns[1].Timestamp)
}

func TestFetchRecentTransactions_InvalidAddress(t *testing.T) {
	mock := &mockRPCClient{}
	agg := newTestAggregator(mock, &fakeInserter{}, DefaultConfig())

	txns, err := agg.FetchRecentTransactions(context.Background(), "not-a-key!")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Nil(t, txns)
	assert.Zero(t, mock.calls, "no remote calls on invalid input")
}

func TestFetchRecentTransactions_EpochResolutionFailure(t *testing.T) {
	mock := &mockRPCClient{epochErr: errors.New("node down")}
	agg := newTestAggregator(mock, &fakeInserter{}, DefaultConfig())

	_, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrEpochResolution)
	assert.Contains(t, err.Error(), "node down")
}

func TestFetchRecentTransactions_SignatureFetchFailure(t *testing.T) {
	epoch, bt := epochAt(1000)
	mock := &mockRPCClient{epoch: epoch, blockTime: bt, sigErr: errors.New("rate limited")}
	agg := newTestAggregator(mock, &fakeInserter{}, DefaultConfig())

	_, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrSignatureFetch)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestFetchRecentTransactions_SignatureParseAbortsBatch(t *testing.T) {
	epoch, bt := epochAt(1000)
	mock := &mockRPCClient{
		epoch:      epoch,
		blockTime:  bt,
		signatures: []string{testSig(1), "garbage", testSig(3)},
		transactions: map[string]*TransactionDetail{
			testSig(1): transfer(unix(1500), 0, 1),
			testSig(3): transfer(unix(1500), 0, 3),
		},
	}
	ins := &fakeInserter{}
	agg := newTestAggregator(mock, ins, DefaultConfig())

	txns, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrSignatureParse)
	assert.Nil(t, txns)
	assert.Len(t, ins.inserted[testWallet], 1, "records before the bad signature stay stored")
}

func TestFetchRecentTransactions_SkipsPerItemFailures(t *testing.T) {
	epoch, bt := epochAt(1000)
	mock := &mockRPCClient{
		epoch:      epoch,
		blockTime:  bt,
		signatures: []string{testSig(1), testSig(2), testSig(3), testSig(4), testSig(5)},
		transactions: map[string]*TransactionDetail{
			testSig(2): transfer(unix(1500), 100, 40), // receiver balance decreased
			testSig(3): {BlockTime: unix(1500), ParsedAccountKeys: []string{testSender}},
			testSig(5): transfer(unix(1500), 0, 5),
		},
		txErrs: map[string]error{
			testSig(1): errors.New("transaction pruned"),
		},
	}
	agg := newTestAggregator(mock, &fakeInserter{}, DefaultConfig())

	txns, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, testSig(5), txns[0].Signature)
}

func TestFetchRecentTransactions_Timeout(t *testing.T) {
	epoch, bt := epochAt(1000)
	mock := &mockRPCClient{
		epoch:      epoch,
		blockTime:  bt,
		signatures: []string{testSig(1), testSig(2), testSig(3)},
		transactions: map[string]*TransactionDetail{
			testSig(1): transfer(unix(1500), 0, 1),
			testSig(2): transfer(unix(1500), 0, 2),
		},
		block: map[string]bool{testSig(3): true},
	}
	ins := &fakeInserter{}
	cfg := DefaultConfig()
	cfg.FetchTimeout = 50 * time.Millisecond
	agg := newTestAggregator(mock, ins, cfg)

	txns, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Nil(t, txns, "partial results are discarded")
	assert.Len(t, ins.inserted[testWallet], 2, "records inserted before the deadline remain")
}

func TestFetchRecentTransactions_ParentCancelIsNotTimeout(t *testing.T) {
	epoch, bt := epochAt(1000)
	mock := &mockRPCClient{
		epoch:      epoch,
		blockTime:  bt,
		signatures: []string{testSig(1)},
		block:      map[string]bool{testSig(1): true},
	}
	agg := newTestAggregator(mock, &fakeInserter{}, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := agg.FetchRecentTransactions(ctx, testWallet)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestFetchRecentTransactions_PersistFailureAborts(t *testing.T) {
	epoch, bt := epochAt(1000)
	mock := &mockRPCClient{
		epoch:      epoch,
		blockTime:  bt,
		signatures: []string{testSig(1), testSig(2)},
		transactions: map[string]*TransactionDetail{
			testSig(1): transfer(unix(1500), 0, 1),
			testSig(2): transfer(unix(1500), 0, 2),
		},
	}
	ins := &fakeInserter{err: store.ErrPersist}
	agg := newTestAggregator(mock, ins, DefaultConfig())

	txns, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	assert.ErrorIs(t, err, store.ErrPersist)
	assert.Nil(t, txns)
}

func TestFetchRecentTransactions_WritesThroughToStore(t *testing.T) {
	epoch, bt := epochAt(1000)
	mock := &mockRPCClient{
		epoch:      epoch,
		blockTime:  bt,
		signatures: []string{testSig(1)},
		transactions: map[string]*TransactionDetail{
			testSig(1): {
				BlockTime:      unix(1200),
				RawAccountKeys: []string{testSender, testReceiver},
				Meta:           &TransactionMeta{PreBalances: []uint64{9, 1}, PostBalances: []uint64{4, 6}},
			},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(filepath.Join(t.TempDir(), "transactions.txt"), logger)
	agg := NewAggregator(mock, s, DefaultConfig(), "test", nil, logger)

	txns, err := agg.FetchRecentTransactions(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, testSender, txns[0].Sender, "raw account keys are used when no parsed keys exist")
	assert.Equal(t, uint64(5), txns[0].Amount)
	assert.Equal(t, txns, s.Query(testWallet))

	onDisk, skipped, err := store.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, txns, onDisk)
}
