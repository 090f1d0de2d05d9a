package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/vaultlane/vault-creator/internal/chain"
	"github.com/vaultlane/vault-creator/internal/metrics"
	"github.com/vaultlane/vault-creator/internal/notify"
	"github.com/vaultlane/vault-creator/internal/types"
	"github.com/vaultlane/vault-creator/internal/workflow"
)

type Repository interface {
	GetItem(ctx context.Context, itemID uuid.UUID) (*types.VaultItem, error)
	SetItemSubmitted(ctx context.Context, itemID uuid.UUID, txHash string) error
	SetItemTerminal(ctx context.Context, itemID uuid.UUID,
		status types.TransactionStatus) error
	DeleteSigningMaterial(ctx context.Context, itemID uuid.UUID) error
}

type Projector interface {
	Apply(ctx context.Context, itemID uuid.UUID, facts []chain.Fact) error
}

// ContinuationSignaler resumes the workflow step that is suspended on the
// task token carried by the event. The Temporal client satisfies it.
type ContinuationSignaler interface {
	CompleteActivity(ctx context.Context, taskToken []byte, result interface{},
		err error) error
}

type RedemptionGuard interface {
	Reserve(ctx context.Context, token []byte) (bool, error)
}

type Monitor interface {
	StartMonitoring(ctx context.Context, data notify.StartMonitoringData) error
}

// Handler consumes transaction-status events and drives the vault record
// and the suspended workflow step forward. It must be idempotent per
// (item, status): events are delivered at least once.
type Handler struct {
	repo      Repository
	receipts  chain.ReceiptSource
	decoder   *chain.Decoder
	projector Projector
	signaler  ContinuationSignaler
	guard     RedemptionGuard
	monitor   Monitor
	log       *slog.Logger
}

func NewHandler(repo Repository, receipts chain.ReceiptSource,
	decoder *chain.Decoder, projector Projector,
	signaler ContinuationSignaler, guard RedemptionGuard,
	monitor Monitor) *Handler {

	return &Handler{
		repo:      repo,
		receipts:  receipts,
		decoder:   decoder,
		projector: projector,
		signaler:  signaler,
		guard:     guard,
		monitor:   monitor,
		log:       slog.With("component", "tx-event-handler"),
	}
}

// HandleTransactionEvent branches on the event status. Receipt-fetch,
// projection and notification errors are logged and absorbed; record-store
// writes and the continuation signal are surfaced so the consumer requeues
// the event. The token is only spent after the writes land, so redelivery
// replays the whole branch safely.
func (h *Handler) HandleTransactionEvent(ctx context.Context,
	event *types.TransactionStatusEvent) error {

	h.log.Info("Handling transaction event",
		"item", event.ItemID, "status", event.Status, "hash", event.TxHash)

	metrics.StatusEventsHandled.WithLabelValues(string(event.Status)).Inc()

	switch event.Status {
	case types.TxSubmitted:
		return h.repo.SetItemSubmitted(ctx, event.ItemID, event.TxHash)
	case types.TxSuccessful:
		return h.handleSuccessful(ctx, event)
	case types.TxRejected:
		return h.handleRejected(ctx, event)
	default:
		h.log.Warn("unknown transaction status, skipping",
			"item", event.ItemID, "status", event.Status)
		return nil
	}
}

func (h *Handler) handleSuccessful(ctx context.Context,
	event *types.TransactionStatusEvent) error {

	receipt, err := h.receipts.TransactionReceipt(ctx,
		common.HexToHash(event.TxHash))
	if err != nil {
		h.log.Error("receipt fetch failed", "item", event.ItemID,
			"hash", event.TxHash, "error", err)
	} else {
		facts := h.decoder.Decode(receipt)
		if err := h.projector.Apply(ctx, event.ItemID, facts); err != nil {
			h.log.Error("projection failed", "item", event.ItemID, "error", err)
		}
	}

	// The terminal status has to land before the token is spent: the guard
	// is still unreserved here, so returning lets the consumer requeue the
	// event and replay the whole branch.
	if err := h.repo.SetItemTerminal(ctx, event.ItemID, types.TxSuccessful); err != nil {
		return fmt.Errorf("record successful outcome for item %s: %w", event.ItemID, err)
	}

	h.startMonitoring(ctx, event.ItemID)

	return h.redeem(ctx, event.ContinuationToken,
		workflow.CreationResult{Outcome: workflow.OutcomeVaultCreated}, nil)
}

func (h *Handler) handleRejected(ctx context.Context,
	event *types.TransactionStatusEvent) error {

	metrics.VaultsRejected.Inc()

	// Compensation: a failed deployment must not leave per-role signing
	// material behind. Both writes must land before the token is spent, so
	// failures go back to the consumer for a requeue.
	if err := h.repo.DeleteSigningMaterial(ctx, event.ItemID); err != nil {
		return fmt.Errorf("clean up signing material for item %s: %w", event.ItemID, err)
	}

	if err := h.repo.SetItemTerminal(ctx, event.ItemID, types.TxRejected); err != nil {
		return fmt.Errorf("record rejected outcome for item %s: %w", event.ItemID, err)
	}

	failure := temporal.NewApplicationError(
		"vault creation rejected on chain", workflow.ErrTypeVaultRejected)

	return h.redeem(ctx, event.ContinuationToken, nil, failure)
}

func (h *Handler) startMonitoring(ctx context.Context, itemID uuid.UUID) {
	data := notify.StartMonitoringData{ItemID: itemID}

	if item, err := h.repo.GetItem(ctx, itemID); err == nil && item.VaultAddress != nil {
		data.VaultAddress = *item.VaultAddress
	}

	if err := h.monitor.StartMonitoring(ctx, data); err != nil {
		h.log.Error("start monitoring trigger failed", "item", itemID, "error", err)
	}
}

// redeem completes the suspended workflow step exactly once. When the guard
// is unreachable the redemption proceeds anyway: the workflow engine itself
// rejects a second completion of the same token.
func (h *Handler) redeem(ctx context.Context, token []byte, result any,
	completionErr error) error {

	if len(token) == 0 {
		return nil
	}

	reserved, err := h.guard.Reserve(ctx, token)
	if err != nil {
		h.log.Error("redemption guard unavailable", "error", err)
	} else if !reserved {
		return nil
	}

	if err := h.signaler.CompleteActivity(ctx, token, result, completionErr); err != nil {
		return fmt.Errorf("signal workflow continuation: %w", err)
	}

	metrics.ContinuationsRedeemed.Inc()

	return nil
}
