package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vaultlane/vault-creator/internal/types"
)

// ErrAlreadyDispatched means a deployment transaction for the item is
// already in flight and a second one must not be submitted.
var ErrAlreadyDispatched = errors.New("item already has a dispatched transaction")

func (p *Postgres) GetItem(ctx context.Context, itemID uuid.UUID) (
	*types.VaultItem, error) {

	var item types.VaultItem

	err := p.pg.QueryRow(ctx,
		`SELECT id, batch_id, item_index, owner_id, project_name, owner_wallet,
		        self_managed, tx_status, tx_hash, correlation_id,
		        vault_address, shareholder_manager_address,
		        created_at, updated_at
		 FROM vault_item WHERE id = $1`, itemID).
		Scan(&item.ID, &item.BatchID, &item.ItemIndex, &item.OwnerID,
			&item.ProjectName, &item.OwnerWallet, &item.SelfManaged,
			&item.TxStatus, &item.TxHash, &item.CorrelationID,
			&item.VaultAddress, &item.ShareholderManager,
			&item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", itemID, err)
	}

	item.Roles, err = p.itemRoles(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (p *Postgres) ListItems(ctx context.Context, batchID uuid.UUID) (
	[]types.VaultItem, error) {

	rows, err := p.pg.Query(ctx,
		`SELECT id, batch_id, item_index, owner_id, project_name, owner_wallet,
		        self_managed, tx_status, tx_hash, correlation_id,
		        vault_address, shareholder_manager_address,
		        created_at, updated_at
		 FROM vault_item WHERE batch_id = $1 ORDER BY item_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list items of batch %s: %w", batchID, err)
	}
	defer rows.Close()

	var items []types.VaultItem
	for rows.Next() {
		var item types.VaultItem
		err = rows.Scan(&item.ID, &item.BatchID, &item.ItemIndex, &item.OwnerID,
			&item.ProjectName, &item.OwnerWallet, &item.SelfManaged,
			&item.TxStatus, &item.TxHash, &item.CorrelationID,
			&item.VaultAddress, &item.ShareholderManager,
			&item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		items[i].Roles, err = p.itemRoles(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return items, nil
}

func (p *Postgres) itemRoles(ctx context.Context, itemID uuid.UUID) ([]types.Role, error) {
	rows, err := p.pg.Query(ctx,
		`SELECT role_index, name, email, share_percent, claim_address
		 FROM vault_role WHERE item_id = $1 ORDER BY role_index`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list roles of item %s: %w", itemID, err)
	}
	defer rows.Close()

	var roles []types.Role
	for rows.Next() {
		var role types.Role
		err = rows.Scan(&role.Index, &role.Name, &role.Email,
			&role.SharePercent, &role.ClaimAddress)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

// MarkItemDispatched claims the right to submit the deployment transaction.
// Exactly one caller can win; everyone else gets ErrAlreadyDispatched.
func (p *Postgres) MarkItemDispatched(ctx context.Context, itemID,
	correlationID uuid.UUID) error {

	tag, err := p.pg.Exec(ctx,
		`UPDATE vault_item SET correlation_id = $2, updated_at = now()
		 WHERE id = $1 AND correlation_id IS NULL AND tx_status = $3`,
		itemID, correlationID, types.TxCreated)
	if err != nil {
		return fmt.Errorf("mark item %s dispatched: %w", itemID, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrAlreadyDispatched
	}

	return nil
}

// SetItemSubmitted records the transaction hash. The overwrite is idempotent
// and the status guard makes sure a late SUBMITTED event can never regress a
// terminal status.
func (p *Postgres) SetItemSubmitted(ctx context.Context, itemID uuid.UUID,
	txHash string) error {

	_, err := p.pg.Exec(ctx,
		`UPDATE vault_item SET tx_hash = $2, tx_status = $3, updated_at = now()
		 WHERE id = $1 AND tx_status IN ($4, $3)`,
		itemID, txHash, types.TxSubmitted, types.TxCreated)
	if err != nil {
		return fmt.Errorf("set item %s submitted: %w", itemID, err)
	}

	return nil
}

// SetItemTerminal moves the item to SUCCESSFUL or REJECTED. Redelivered
// events find the guard closed and change nothing.
func (p *Postgres) SetItemTerminal(ctx context.Context, itemID uuid.UUID,
	status types.TransactionStatus) error {

	if !status.Terminal() {
		return fmt.Errorf("status %s is not terminal", status)
	}

	_, err := p.pg.Exec(ctx,
		`UPDATE vault_item SET tx_status = $2, updated_at = now()
		 WHERE id = $1 AND tx_status IN ($3, $4)`,
		itemID, status, types.TxCreated, types.TxSubmitted)
	if err != nil {
		return fmt.Errorf("set item %s terminal: %w", itemID, err)
	}

	return nil
}

// ResolveVaultAddresses stamps the vault and shareholder-manager addresses.
// They are set at most once; re-applying the same facts reports false and
// changes nothing.
func (p *Postgres) ResolveVaultAddresses(ctx context.Context, itemID uuid.UUID,
	vaultAddress, shareholderManager string) (bool, error) {

	tag, err := p.pg.Exec(ctx,
		`UPDATE vault_item
		 SET vault_address = $2, shareholder_manager_address = $3, updated_at = now()
		 WHERE id = $1 AND vault_address IS NULL`,
		itemID, vaultAddress, shareholderManager)
	if err != nil {
		return false, fmt.Errorf("resolve addresses of item %s: %w", itemID, err)
	}

	return tag.RowsAffected() > 0, nil
}

// ResolveRoleAddress stamps a role's claim address, first resolution wins.
func (p *Postgres) ResolveRoleAddress(ctx context.Context, itemID uuid.UUID,
	roleIndex int, claimAddress string) (bool, error) {

	tag, err := p.pg.Exec(ctx,
		`UPDATE vault_role SET claim_address = $3
		 WHERE item_id = $1 AND role_index = $2 AND claim_address IS NULL`,
		itemID, roleIndex, claimAddress)
	if err != nil {
		return false, fmt.Errorf("resolve role %d of item %s: %w", roleIndex, itemID, err)
	}

	return tag.RowsAffected() > 0, nil
}
