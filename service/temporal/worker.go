package temporal

import (
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// WorkerConfig contains configuration for the in-process Temporal worker.
type WorkerConfig struct {
	// Client is shared with the schedule client.
	Client    client.Client
	TaskQueue string

	Poller WalletPoller
	Logger *slog.Logger
}

// Worker wraps a Temporal worker and provides lifecycle management.
type Worker struct {
	worker worker.Worker
	logger *slog.Logger
}

// NewWorker creates and configures a worker for the fetch workflow.
// Activities run one at a time because they share the store with the
// HTTP side of this process and must not overlap across wallets either.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Client == nil {
		return nil, fmt.Errorf("temporal client is required")
	}

	logger := config.Logger.With("component", "temporal_worker")

	w := worker.New(config.Client, config.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     1,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	w.RegisterWorkflow(PollWalletWorkflow)

	activities := NewActivities(config.Poller, logger)
	w.RegisterActivity(activities.FetchTransactions)

	logger.Info("registered workflow and activities",
		"task_queue", config.TaskQueue,
		"workflow", "PollWalletWorkflow",
		"activities", []string{"FetchTransactions"},
	)

	return &Worker{worker: w, logger: logger}, nil
}

// Start begins processing workflows and activities without blocking.
func (w *Worker) Start() error {
	w.logger.Info("starting temporal worker")
	if err := w.worker.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	return nil
}

// Stop gracefully stops the worker. The shared client is closed by its owner.
func (w *Worker) Stop() {
	w.logger.Info("stopping temporal worker")
	w.worker.Stop()
	w.logger.Info("temporal worker stopped")
}
