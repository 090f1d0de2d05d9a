package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vaultlane/vault-creator/internal/types"
)

// ClaimAccountByWallet finds the pre-generated claim account of an item by
// its wallet address. This is how resolved role-vault addresses are matched
// back to roles: the emission order of role-creation logs does not follow
// the input role order, the wallet address does.
func (p *Postgres) ClaimAccountByWallet(ctx context.Context, itemID uuid.UUID,
	walletAddress string) (*types.ClaimAccount, error) {

	var account types.ClaimAccount

	err := p.pg.QueryRow(ctx,
		`SELECT item_id, role_index, email, wallet_address
		 FROM claim_account
		 WHERE item_id = $1 AND lower(wallet_address) = lower($2)`,
		itemID, walletAddress).
		Scan(&account.ItemID, &account.RoleIndex, &account.Email,
			&account.WalletAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim account by wallet %s: %w", walletAddress, err)
	}

	return &account, nil
}

// ClaimAccountsByItem lists the item's claim accounts in role order.
func (p *Postgres) ClaimAccountsByItem(ctx context.Context, itemID uuid.UUID) (
	[]types.ClaimAccount, error) {

	rows, err := p.pg.Query(ctx,
		`SELECT item_id, role_index, email, wallet_address
		 FROM claim_account WHERE item_id = $1 ORDER BY role_index`, itemID)
	if err != nil {
		return nil, fmt.Errorf("claim accounts of item %s: %w", itemID, err)
	}
	defer rows.Close()

	var accounts []types.ClaimAccount
	for rows.Next() {
		var account types.ClaimAccount
		err = rows.Scan(&account.ItemID, &account.RoleIndex, &account.Email,
			&account.WalletAddress)
		if err != nil {
			return nil, fmt.Errorf("scan claim account: %w", err)
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// DeleteSigningMaterial removes every private key generated for the item.
// This is the compensation for a rejected deployment: no secrets survive a
// vault that never made it on chain.
func (p *Postgres) DeleteSigningMaterial(ctx context.Context, itemID uuid.UUID) error {
	tag, err := p.pg.Exec(ctx,
		`DELETE FROM signing_material WHERE item_id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete signing material of item %s: %w", itemID, err)
	}

	p.log.Info("deleted signing material", "item", itemID,
		"keys", tag.RowsAffected())

	return nil
}
