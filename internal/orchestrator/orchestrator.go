package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	enums "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	srverrors "github.com/vaultlane/vault-creator/internal/errors"
	"github.com/vaultlane/vault-creator/internal/metrics"
	"github.com/vaultlane/vault-creator/internal/repository/postgres"
	"github.com/vaultlane/vault-creator/internal/signer"
	"github.com/vaultlane/vault-creator/internal/types"
	"github.com/vaultlane/vault-creator/internal/workflow"
)

var (
	// ErrDuplicateRecipient rejects a batch whose item specs share a primary
	// payout recipient.
	ErrDuplicateRecipient = srverrors.New(srverrors.CodeDuplicateRecipient,
		"two items share the same primary payout recipient", nil)
	// ErrTermsNotAccepted rejects a batch created without consent.
	ErrTermsNotAccepted = srverrors.New(srverrors.CodeTermsNotAccepted,
		"terms of service were not accepted", nil)
)

type Repository interface {
	CreateBatch(ctx context.Context, batch *types.BatchRequest,
		accounts []types.ClaimAccount, keys []types.SigningKey) error
	GetBatch(ctx context.Context, batchID uuid.UUID) (*types.BatchRequest, error)
	UpdateBatchStatus(ctx context.Context, batchID uuid.UUID,
		from, to types.BatchStatus) error
}

// WorkflowStarter is the slice of the Temporal client the orchestrator
// needs to fan out the confirmation-driven workflow.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions,
		wf interface{}, args ...interface{}) (client.WorkflowRun, error)
}

type Config struct {
	TaskQueue       string
	WorkflowTimeout time.Duration
}

// Orchestrator owns the parent batch aggregate: it creates the batch and its
// child vault records, starts the workflow that drives them, and reacts to
// the workflow's terminal outcomes through the batch status.
type Orchestrator struct {
	config   *Config
	repo     Repository
	workflow WorkflowStarter
	log      *slog.Logger
}

func New(config *Config, repo Repository, starter WorkflowStarter) *Orchestrator {
	return &Orchestrator{
		config:   config,
		repo:     repo,
		workflow: starter,
		log:      slog.With("component", "orchestrator"),
	}
}

// CreateBatch validates the specs, persists the batch with its items, claim
// accounts and signing material, moves it to PROCESSING and starts the
// creation workflow. Validation failures happen before any persistence.
func (o *Orchestrator) CreateBatch(ctx context.Context, ownerID string,
	termsAccepted bool, specs []types.VaultItemSpec) (*types.BatchRequest, error) {

	if !termsAccepted {
		return nil, ErrTermsNotAccepted
	}

	if err := validateSpecs(specs); err != nil {
		return nil, err
	}

	batch := &types.BatchRequest{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Status:    types.BatchCreated,
		CreatedAt: time.Now().UTC(),
	}

	var accounts []types.ClaimAccount
	var keys []types.SigningKey

	for i, spec := range specs {
		item := types.VaultItem{
			ID:          uuid.New(),
			BatchID:     batch.ID,
			ItemIndex:   i,
			OwnerID:     ownerID,
			ProjectName: spec.ProjectName,
			OwnerWallet: spec.OwnerWallet,
			SelfManaged: spec.SelfManaged,
			TxStatus:    types.TxCreated,
			CreatedAt:   batch.CreatedAt,
		}

		for j, role := range spec.Roles {
			item.Roles = append(item.Roles, types.Role{
				Index:        j,
				Name:         role.Name,
				Email:        role.Email,
				SharePercent: role.SharePercent,
			})
		}

		itemAccounts, itemKeys, err := signer.GenerateClaimAccounts(&item)
		if err != nil {
			return nil, fmt.Errorf("generate claim accounts: %w", err)
		}

		accounts = append(accounts, itemAccounts...)
		keys = append(keys, itemKeys...)
		batch.Items = append(batch.Items, item)
	}

	if err := o.repo.CreateBatch(ctx, batch, accounts, keys); err != nil {
		return nil, fmt.Errorf("persist batch: %w", err)
	}

	if err := o.repo.UpdateBatchStatus(ctx, batch.ID,
		types.BatchCreated, types.BatchProcessing); err != nil {
		return nil, err
	}
	batch.Status = types.BatchProcessing

	if err := o.startWorkflow(ctx, batch); err != nil {
		return nil, err
	}

	metrics.BatchesCreated.Inc()

	o.log.Info("Created batch", "batch", batch.ID, "items", len(batch.Items))

	return batch, nil
}

func (o *Orchestrator) startWorkflow(ctx context.Context, batch *types.BatchRequest) error {
	itemIDs := make([]uuid.UUID, len(batch.Items))
	for i, item := range batch.Items {
		itemIDs[i] = item.ID
	}

	options := client.StartWorkflowOptions{
		ID:                    "create-vaults-" + batch.ID.String(),
		TaskQueue:             o.config.TaskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	if o.config.WorkflowTimeout > 0 {
		options.WorkflowExecutionTimeout = o.config.WorkflowTimeout
	}

	run, err := o.workflow.ExecuteWorkflow(ctx, options, workflow.CreateVaults,
		workflow.BatchInput{BatchID: batch.ID, ItemIDs: itemIDs})
	if err != nil {
		return fmt.Errorf("start creation workflow: %w", err)
	}

	o.log.Info("Started creation workflow",
		"batch", batch.ID, "workflow", run.GetID(), "run", run.GetRunID())

	return nil
}

// GetStatus is a plain read of the aggregate status.
func (o *Orchestrator) GetStatus(ctx context.Context, batchID uuid.UUID) (
	types.BatchStatus, error) {

	batch, err := o.GetBatch(ctx, batchID)
	if err != nil {
		return "", err
	}

	return batch.Status, nil
}

// GetBatch reads the full aggregate with item detail.
func (o *Orchestrator) GetBatch(ctx context.Context, batchID uuid.UUID) (
	*types.BatchRequest, error) {

	batch, err := o.repo.GetBatch(ctx, batchID)
	if errors.Is(err, postgres.ErrNotFound) {
		return nil, srverrors.New(srverrors.CodeBatchNotFound,
			"batch not found", err)
	}
	if err != nil {
		return nil, err
	}

	return batch, nil
}

func validateSpecs(specs []types.VaultItemSpec) error {
	if len(specs) == 0 {
		return srverrors.New(srverrors.CodeInvalidItemSpec,
			"batch has no item specs", nil)
	}

	seen := make(map[string]bool, len(specs))

	for i, spec := range specs {
		if len(spec.Roles) == 0 {
			return srverrors.New(srverrors.CodeInvalidItemSpec,
				fmt.Sprintf("item %d has no payout roles", i), nil)
		}

		total := 0.0
		for _, role := range spec.Roles {
			if role.Email == "" {
				return srverrors.New(srverrors.CodeInvalidItemSpec,
					fmt.Sprintf("item %d has a role without an email", i), nil)
			}
			total += role.SharePercent
		}
		if total > 100 {
			return srverrors.New(srverrors.CodeInvalidItemSpec,
				fmt.Sprintf("item %d fee percentages exceed 100", i), nil)
		}

		// The first role is the primary payout recipient; it must be unique
		// across the batch.
		primary := strings.ToLower(spec.Roles[0].Email)
		if seen[primary] {
			return ErrDuplicateRecipient
		}
		seen[primary] = true
	}

	return nil
}
