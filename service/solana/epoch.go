package solana

import (
	"context"
	"fmt"
	"time"
)

// DefaultSlotDuration is the nominal time between slots.
const DefaultSlotDuration = 400 * time.Millisecond

// EpochStart estimates the Unix time at which the current epoch began by
// taking the block time of the current slot and walking back slotIndex slots.
func EpochStart(ctx context.Context, rpc RPCClient, slotDuration time.Duration) (int64, error) {
	info, err := rpc.GetEpochInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: get epoch info: %w", ErrEpochResolution, err)
	}
	if info == nil {
		return 0, fmt.Errorf("%w: empty epoch info", ErrEpochResolution)
	}

	blockTime, err := rpc.GetBlockTime(ctx, info.AbsoluteSlot)
	if err != nil {
		return 0, fmt.Errorf("%w: get block time for slot %d: %w", ErrEpochResolution, info.AbsoluteSlot, err)
	}
	if blockTime == nil {
		return 0, fmt.Errorf("%w: no block time for slot %d", ErrEpochResolution, info.AbsoluteSlot)
	}

	return estimateEpochStart(int64(*blockTime), info.SlotIndex, slotDuration), nil
}

// estimateEpochStart truncates the elapsed epoch time to whole seconds.
func estimateEpochStart(blockTime int64, slotIndex uint64, slotDuration time.Duration) int64 {
	elapsed := time.Duration(slotIndex) * slotDuration
	return blockTime - int64(elapsed/time.Second)
}
