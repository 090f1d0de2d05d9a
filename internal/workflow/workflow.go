package workflow

import (
	"time"

	"github.com/google/uuid"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/vaultlane/vault-creator/internal/types"
)

const TaskQueue = "VAULT_CREATION_TASK_QUEUE"

const (
	// ErrTypeVaultRejected marks a terminal on-chain rejection; the engine
	// must stop retrying the item and fail the batch.
	ErrTypeVaultRejected = "VAULT_CREATION_REJECTED"
	// ErrTypeVaultNotReady marks a transient not-confirmed-yet state; the
	// engine re-polls after its own backoff.
	ErrTypeVaultNotReady = "VAULT_NOT_READY"

	OutcomeVaultCreated = "VAULT_CREATED"
)

// CreationResult is the fixed completion payload the event handler sends
// when it redeems a continuation token.
type CreationResult struct {
	Outcome string `json:"outcome"`
}

// BatchInput carries everything the workflow needs: the batch id and the
// item ids in batch order. Item state lives in the record store, not in
// workflow memory.
type BatchInput struct {
	BatchID uuid.UUID   `json:"batchId"`
	ItemIDs []uuid.UUID `json:"itemIds"`
}

// CreateVaults drives every item of a batch through deploy -> confirm ->
// advance. Each step is a short-lived activity; waiting for the chain is
// delegated to the continuation token, so the workflow holds no timer of
// its own for confirmation latency.
func CreateVaults(ctx workflow.Context, input BatchInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("vault creation started",
		"batch", input.BatchID, "items", len(input.ItemIDs))

	iterCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    5,
		},
	})

	// Dispatch is not idempotent under the same correlation id, so the
	// deploy activity is never auto-retried. It completes asynchronously:
	// the timeout bounds the wait for the mining confirmation, not the
	// activity body.
	createCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 24 * time.Hour,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	// The status poll retries on VAULT_NOT_READY until the confirmation
	// lands; the backoff here is the only timeout mechanism the saga has.
	statusCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        5 * time.Minute,
			NonRetryableErrorTypes: []string{ErrTypeVaultRejected},
		},
	})

	priorIndex := -1

	for {
		var cursor types.IteratorCursor
		err := workflow.ExecuteActivity(iterCtx, "Iterator",
			len(input.ItemIDs), priorIndex).Get(ctx, &cursor)
		if err != nil {
			return rejectAndFail(iterCtx, logger, input.BatchID, err)
		}

		if !cursor.Continue {
			break
		}

		itemID := input.ItemIDs[cursor.Index]

		var result CreationResult
		err = workflow.ExecuteActivity(createCtx, "CreateVault", itemID).
			Get(ctx, &result)
		if err != nil {
			logger.Error("vault deployment failed",
				"batch", input.BatchID, "item", itemID, "error", err)
			return rejectAndFail(iterCtx, logger, input.BatchID, err)
		}

		err = workflow.ExecuteActivity(statusCtx, "ProcessCreationStatus", itemID).
			Get(ctx, nil)
		if err != nil {
			logger.Error("vault confirmation failed",
				"batch", input.BatchID, "item", itemID, "error", err)
			return rejectAndFail(iterCtx, logger, input.BatchID, err)
		}

		priorIndex = cursor.Index
	}

	return workflow.ExecuteActivity(iterCtx, "CompleteBatch", input.BatchID).
		Get(ctx, nil)
}

// rejectAndFail marks the batch REJECTED and propagates the original cause.
func rejectAndFail(ctx workflow.Context, logger tlog.Logger, batchID uuid.UUID,
	cause error) error {

	err := workflow.ExecuteActivity(ctx, "RejectBatch", batchID).Get(ctx, nil)
	if err != nil {
		logger.Error("batch rejection failed", "batch", batchID, "error", err)
	}

	return cause
}
