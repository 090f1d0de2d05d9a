package projector

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vaultlane/vault-creator/internal/chain"
	"github.com/vaultlane/vault-creator/internal/notify"
	"github.com/vaultlane/vault-creator/internal/repository/postgres"
	"github.com/vaultlane/vault-creator/internal/types"
)

type Repository interface {
	GetItem(ctx context.Context, itemID uuid.UUID) (*types.VaultItem, error)
	ResolveVaultAddresses(ctx context.Context, itemID uuid.UUID,
		vaultAddress, shareholderManager string) (bool, error)
	ResolveRoleAddress(ctx context.Context, itemID uuid.UUID,
		roleIndex int, claimAddress string) (bool, error)
	ClaimAccountByWallet(ctx context.Context, itemID uuid.UUID,
		walletAddress string) (*types.ClaimAccount, error)
}

type Notifier interface {
	RoleInvitation(ctx context.Context, data notify.RoleInvitationData) error
	OwnerSummary(ctx context.Context, data notify.OwnerSummaryData) error
}

// Projector applies confirmed-transaction facts to the durable vault record.
// Re-applying the same facts is a no-op: every address is stamped on first
// resolution only, and notifications fire only on that first resolution.
type Projector struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger
}

func New(repo Repository, notifier Notifier) *Projector {
	return &Projector{
		repo:     repo,
		notifier: notifier,
		log:      slog.With("component", "projector"),
	}
}

// Apply resolves the item's contract addresses from decoded receipt facts.
// Concurrent writers for the same item converge on the same facts, so a
// lost race is treated as success. Notification failures are logged and
// never roll back an address assignment.
func (p *Projector) Apply(ctx context.Context, itemID uuid.UUID, facts []chain.Fact) error {
	item, err := p.repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	for _, fact := range facts {
		switch fact.Kind {
		case chain.FactVaultDeployed:
			err = p.applyVaultDeployed(ctx, item, fact)
		case chain.FactRoleVaultCreated:
			err = p.applyRoleVaultCreated(ctx, item, fact)
		case chain.FactFundsDistributed:
			// Distribution facts belong to the monitoring service; during
			// creation they carry no vault state.
			p.log.Debug("ignoring distribution fact during creation",
				"item", itemID, "distributor", fact.DistributorAddress)
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Projector) applyVaultDeployed(ctx context.Context, item *types.VaultItem,
	fact chain.Fact) error {

	resolvedNow, err := p.repo.ResolveVaultAddresses(ctx, item.ID,
		fact.VaultAddress.Hex(), fact.ShareholderManager.Hex())
	if err != nil {
		return err
	}

	if !resolvedNow {
		p.log.Debug("vault address already resolved", "item", item.ID)
		return nil
	}

	err = p.notifier.OwnerSummary(ctx, notify.OwnerSummaryData{
		ItemID:       item.ID,
		OwnerID:      item.OwnerID,
		VaultAddress: fact.VaultAddress.Hex(),
	})
	if err != nil {
		p.log.Error("owner summary notification failed",
			"item", item.ID, "error", err)
	}

	return nil
}

func (p *Projector) applyRoleVaultCreated(ctx context.Context, item *types.VaultItem,
	fact chain.Fact) error {

	// The role is found through its claim account's wallet address. Role
	// order can't be used: the factory emits role-creation logs in whatever
	// order it deploys them, which is unrelated to the input order.
	account, err := p.repo.ClaimAccountByWallet(ctx, item.ID,
		fact.RoleOwnerAddress.Hex())
	if errors.Is(err, postgres.ErrNotFound) {
		p.log.Warn("no claim account matches role owner",
			"item", item.ID, "roleOwner", fact.RoleOwnerAddress)
		return nil
	}
	if err != nil {
		return err
	}

	resolvedNow, err := p.repo.ResolveRoleAddress(ctx, item.ID,
		account.RoleIndex, fact.RoleVaultAddress.Hex())
	if err != nil {
		return err
	}

	if !resolvedNow {
		p.log.Debug("role address already resolved",
			"item", item.ID, "role", account.RoleIndex)
		return nil
	}

	if item.SelfManaged {
		return nil
	}

	err = p.notifier.RoleInvitation(ctx, notify.RoleInvitationData{
		ItemID:       item.ID,
		Email:        account.Email,
		ClaimAddress: fact.RoleVaultAddress.Hex(),
	})
	if err != nil {
		p.log.Error("role invitation notification failed",
			"item", item.ID, "role", account.RoleIndex, "error", err)
	}

	return nil
}
