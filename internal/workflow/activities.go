package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/vaultlane/vault-creator/internal/chain"
	srverrors "github.com/vaultlane/vault-creator/internal/errors"
	"github.com/vaultlane/vault-creator/internal/repository/postgres"
	"github.com/vaultlane/vault-creator/internal/types"
)

type Repository interface {
	GetItem(ctx context.Context, itemID uuid.UUID) (*types.VaultItem, error)
	ListItems(ctx context.Context, batchID uuid.UUID) ([]types.VaultItem, error)
	ClaimAccountsByItem(ctx context.Context, itemID uuid.UUID) ([]types.ClaimAccount, error)
	MarkItemDispatched(ctx context.Context, itemID, correlationID uuid.UUID) error
	UpdateBatchStatus(ctx context.Context, batchID uuid.UUID,
		from, to types.BatchStatus) error
	MarkBatchRejected(ctx context.Context, batchID uuid.UUID) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, intent *types.TransactionIntent) error
}

type Config struct {
	// FactoryAddress is the vault factory contract every deployment call
	// targets.
	FactoryAddress string
}

// Activities hosts the per-item steps the workflow engine invokes. Every
// step is stateless and safe under at-least-once re-invocation; durability
// of any wait lives in the engine, never here.
type Activities struct {
	config     *Config
	repo       Repository
	dispatcher Dispatcher
	encoder    *chain.CallEncoder
	log        *slog.Logger
}

func NewActivities(config *Config, repo Repository, dispatcher Dispatcher,
	encoder *chain.CallEncoder) *Activities {

	return &Activities{
		config:     config,
		repo:       repo,
		dispatcher: dispatcher,
		encoder:    encoder,
		log:        slog.With("component", "vault-creation-step"),
	}
}

// Iterator recomputes the progress cursor for the engine.
func (a *Activities) Iterator(ctx context.Context, collectionLength,
	priorIndex int) (types.IteratorCursor, error) {

	return NextIndex(collectionLength, priorIndex), nil
}

// CreateVault encodes and dispatches the deployment transaction for one
// item, then suspends: the activity completes later, when the event handler
// redeems the task token attached to the intent.
func (a *Activities) CreateVault(ctx context.Context, itemID uuid.UUID) (
	*CreationResult, error) {

	token := activity.GetInfo(ctx).TaskToken

	if err := a.createVault(ctx, itemID, token); err != nil {
		return nil, err
	}

	return nil, activity.ErrResultPending
}

func (a *Activities) createVault(ctx context.Context, itemID uuid.UUID,
	continuationToken []byte) error {

	item, err := a.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	// Guard against double submission: once a transaction is in flight or
	// done for this item, a re-invoked step must fail fast instead of
	// deploying a second vault.
	if item.Dispatched() {
		return temporal.NewNonRetryableApplicationError(
			"deployment already submitted for item",
			string(srverrors.CodeVaultAlreadySubmitted), nil)
	}

	accounts, err := a.repo.ClaimAccountsByItem(ctx, itemID)
	if err != nil {
		return err
	}

	callData, err := a.encoder.EncodeCreateVault(item, accounts)
	if err != nil {
		return temporal.NewNonRetryableApplicationError(
			"deployment call encoding failed",
			string(srverrors.CodeInvalidItemSpec), err)
	}

	correlationID := uuid.New()

	err = a.repo.MarkItemDispatched(ctx, itemID, correlationID)
	if errors.Is(err, postgres.ErrAlreadyDispatched) {
		return temporal.NewNonRetryableApplicationError(
			"deployment already submitted for item",
			string(srverrors.CodeVaultAlreadySubmitted), err)
	}
	if err != nil {
		return err
	}

	a.log.Info("Dispatching vault deployment",
		"item", itemID, "correlation", correlationID)

	return a.dispatcher.Dispatch(ctx, &types.TransactionIntent{
		CorrelationID:     correlationID,
		Kind:              types.EventVaultCreation,
		To:                a.config.FactoryAddress,
		Value:             "0",
		CallData:          callData,
		ItemID:            itemID,
		ContinuationToken: continuationToken,
	})
}

// ProcessCreationStatus reads the item's transaction status and translates
// it into the engine's vocabulary: advance, retry later, or stop the batch.
func (a *Activities) ProcessCreationStatus(ctx context.Context, itemID uuid.UUID) error {
	item, err := a.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	switch item.TxStatus {
	case types.TxSuccessful:
		return nil
	case types.TxRejected:
		return temporal.NewNonRetryableApplicationError(
			"vault creation rejected on chain", ErrTypeVaultRejected, nil)
	default:
		return temporal.NewApplicationError(
			"vault creation not confirmed yet", ErrTypeVaultNotReady)
	}
}

// CompleteBatch is the workflow's final reconciliation. SUCCESS requires
// every item to be SUCCESSFUL; a late rejection that slipped past the
// per-item checks still forces REJECTED here.
func (a *Activities) CompleteBatch(ctx context.Context, batchID uuid.UUID) error {
	items, err := a.repo.ListItems(ctx, batchID)
	if err != nil {
		return err
	}

	for _, item := range items {
		if item.TxStatus != types.TxSuccessful {
			a.log.Warn("batch completion found a non-successful item",
				"batch", batchID, "item", item.ID, "status", item.TxStatus)

			return a.repo.MarkBatchRejected(ctx, batchID)
		}
	}

	return a.repo.UpdateBatchStatus(ctx, batchID,
		types.BatchProcessing, types.BatchSuccess)
}

// RejectBatch is the workflow's failure path.
func (a *Activities) RejectBatch(ctx context.Context, batchID uuid.UUID) error {
	return a.repo.MarkBatchRejected(ctx, batchID)
}
