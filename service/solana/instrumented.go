package solana

import (
	"context"
	"time"

	"github.com/brojonat/solagg/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// instrumentedRPC records every call under its own method label.
type instrumentedRPC struct {
	next     RPCClient
	endpoint string
	metrics  *metrics.Metrics
}

func (r *instrumentedRPC) GetEpochInfo(ctx context.Context) (res *rpc.GetEpochInfoResult, err error) {
	defer r.observe("GetEpochInfo", &err)()
	return r.next.GetEpochInfo(ctx)
}

func (r *instrumentedRPC) GetBlockTime(ctx context.Context, slot uint64) (res *solana.UnixTimeSeconds, err error) {
	defer r.observe("GetBlockTime", &err)()
	return r.next.GetBlockTime(ctx, slot)
}

func (r *instrumentedRPC) GetSignaturesForAddress(ctx context.Context, account solana.PublicKey) (sigs []string, err error) {
	defer r.observe("GetSignaturesForAddress", &err)()
	return r.next.GetSignaturesForAddress(ctx, account)
}

func (r *instrumentedRPC) GetTransaction(ctx context.Context, signature solana.Signature) (detail *TransactionDetail, err error) {
	defer r.observe("GetTransaction", &err)()
	return r.next.GetTransaction(ctx, signature)
}

// observe starts timing a call. *err is read when the returned func runs.
func (r *instrumentedRPC) observe(method string, err *error) func() {
	return metrics.Timer(time.Now(), func(seconds float64) {
		status := "success"
		if *err != nil {
			status = "error"
		}
		r.metrics.RecordRPCCall(method, status, r.endpoint, seconds)
	})
}
