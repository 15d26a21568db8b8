package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Scheduler manages Temporal schedules for wallet polling.
// Each wallet gets its own schedule that triggers the PollWalletWorkflow.
type Scheduler interface {
	// UpsertWalletSchedule creates the schedule for a wallet, or updates its
	// interval when it already exists.
	UpsertWalletSchedule(ctx context.Context, address string, interval time.Duration) error

	// DeleteWalletSchedule deletes the schedule for a wallet.
	// This stops the wallet from being polled.
	DeleteWalletSchedule(ctx context.Context, address string) error
}

const schedulePrefix = "solagg-poll-"

// scheduleID returns the Temporal schedule ID for a wallet address.
func scheduleID(address string) string {
	return schedulePrefix + address
}

// WalletFromScheduleID returns the wallet a schedule ID belongs to, or false
// for schedules this service did not create.
func WalletFromScheduleID(id string) (string, bool) {
	if !strings.HasPrefix(id, schedulePrefix) {
		return "", false
	}
	return strings.TrimPrefix(id, schedulePrefix), true
}

// workflowID returns the ID of the workflow runs started by a wallet's schedule.
func workflowID(address string) string {
	return "solagg-poll-wallet-" + address
}

// SyncSchedules makes sure every tracked wallet has a schedule with the given
// interval. All wallets are attempted; the first error is returned.
func SyncSchedules(ctx context.Context, s Scheduler, wallets []string, interval time.Duration, logger *slog.Logger) error {
	var firstErr error
	for _, w := range wallets {
		if err := s.UpsertWalletSchedule(ctx, w, interval); err != nil {
			logger.ErrorContext(ctx, "failed to sync wallet schedule", "address", w, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("sync schedule for %s: %w", w, err)
			}
		}
	}
	return firstErr
}
