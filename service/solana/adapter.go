package solana

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"

	"github.com/brojonat/solagg/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// RPCClient is the set of Solana RPC operations the pipeline needs.
// It lets tests replace the node without touching the network.
type RPCClient interface {
	GetEpochInfo(ctx context.Context) (*rpc.GetEpochInfoResult, error)

	GetBlockTime(ctx context.Context, slot uint64) (*solana.UnixTimeSeconds, error)

	// GetSignaturesForAddress returns signatures newest first, as base58 strings.
	GetSignaturesForAddress(ctx context.Context, account solana.PublicKey) ([]string, error)

	GetTransaction(ctx context.Context, signature solana.Signature) (*TransactionDetail, error)
}

// realRPCClient adapts the solana-go RPC client to RPCClient.
type realRPCClient struct {
	client   *rpc.Client
	endpoint string
	metrics  *metrics.Metrics
}

// NewRPCClient creates an RPCClient backed by the node at rpcURL.
// API keys for premium providers go in the URL, e.g.
// https://mainnet.helius-rpc.com/?api-key=YOUR-KEY
func NewRPCClient(rpcURL string, m *metrics.Metrics) RPCClient {
	return &realRPCClient{
		client:   rpc.New(rpcURL),
		endpoint: EndpointLabel(rpcURL),
		metrics:  m,
	}
}

func (r *realRPCClient) GetEpochInfo(ctx context.Context) (*rpc.GetEpochInfoResult, error) {
	return r.client.GetEpochInfo(ctx, rpc.CommitmentFinalized)
}

func (r *realRPCClient) GetBlockTime(ctx context.Context, slot uint64) (*solana.UnixTimeSeconds, error) {
	return r.client.GetBlockTime(ctx, slot)
}

func (r *realRPCClient) GetSignaturesForAddress(ctx context.Context, account solana.PublicKey) ([]string, error) {
	out, err := r.client.GetSignaturesForAddress(ctx, account)
	if err != nil {
		return nil, err
	}
	sigs := make([]string, 0, len(out))
	for _, s := range out {
		sigs = append(sigs, s.Signature.String())
	}
	return sigs, nil
}

// GetTransaction asks for the jsonParsed encoding first. If that response
// cannot be decoded the transaction is fetched again as base64 and the raw
// message is decoded locally.
func (r *realRPCClient) GetTransaction(ctx context.Context, signature solana.Signature) (*TransactionDetail, error) {
	maxVersion := uint64(0)

	parsed, err := r.client.GetParsedTransaction(ctx, signature, &rpc.GetParsedTransactionOpts{
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err == nil {
		return parsedToDetail(parsed), nil
	}
	if !decodeFailed(ctx, err) {
		return nil, err
	}

	r.metrics.RecordEncodingFallback(r.endpoint)

	raw, err := r.client.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, err
	}
	return rawToDetail(raw)
}

func parsedToDetail(res *rpc.GetParsedTransactionResult) *TransactionDetail {
	detail := &TransactionDetail{
		BlockTime:         unixPtr(res.BlockTime),
		ParsedAccountKeys: []string{},
	}
	if res.Transaction != nil {
		for _, acc := range res.Transaction.Message.AccountKeys {
			detail.ParsedAccountKeys = append(detail.ParsedAccountKeys, acc.PublicKey.String())
		}
	}
	if res.Meta != nil {
		detail.Meta = &TransactionMeta{
			PreBalances:  res.Meta.PreBalances,
			PostBalances: res.Meta.PostBalances,
		}
	}
	return detail
}

func rawToDetail(res *rpc.GetTransactionResult) (*TransactionDetail, error) {
	detail := &TransactionDetail{
		BlockTime:      unixPtr(res.BlockTime),
		RawAccountKeys: []string{},
	}
	if res.Transaction != nil {
		tx, err := res.Transaction.GetTransaction()
		if err != nil {
			return nil, fmt.Errorf("decode raw transaction: %w", err)
		}
		if tx != nil {
			for _, key := range tx.Message.AccountKeys {
				detail.RawAccountKeys = append(detail.RawAccountKeys, key.String())
			}
		}
	}
	if res.Meta != nil {
		detail.Meta = &TransactionMeta{
			PreBalances:  res.Meta.PreBalances,
			PostBalances: res.Meta.PostBalances,
		}
	}
	return detail, nil
}

// decodeFailed reports whether err came from decoding the response body
// rather than from the node, the transport, or the context.
func decodeFailed(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, rpc.ErrNotFound) {
		return false
	}
	var rpcErr *jsonrpc.RPCError
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &rpcErr) || errors.As(err, &httpErr) {
		return false
	}
	var urlErr *url.Error
	return !errors.As(err, &urlErr)
}

func unixPtr(t *solana.UnixTimeSeconds) *int64 {
	if t == nil {
		return nil
	}
	v := int64(*t)
	return &v
}

// SelectRandomEndpoint picks one of the configured RPC endpoints.
func SelectRandomEndpoint(endpoints []string) (string, error) {
	if len(endpoints) == 0 {
		return "", errors.New("no RPC endpoints configured")
	}
	return endpoints[rand.IntN(len(endpoints))], nil
}

// EndpointLabel reduces an RPC URL to its host for use as a metrics label,
// so API keys in the path or query never reach Prometheus.
func EndpointLabel(rpcURL string) string {
	u, err := url.Parse(rpcURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
