package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vaultlane/vault-creator/internal/types"
)

const (
	DuplicateKeyValue string = "23505"
)

var (
	ErrDuplicateKeyValue = errors.New("duplicate key value")
	ErrNotFound          = errors.New("record not found")
)

// CreateBatch persists the batch aggregate, its items, roles, claim accounts
// and signing material in one transaction. A partial write never survives a
// validation or uniqueness failure.
func (p *Postgres) CreateBatch(ctx context.Context, batch *types.BatchRequest,
	accounts []types.ClaimAccount, keys []types.SigningKey) error {

	tx, err := p.pg.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create batch: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO batch_request (id, owner_id, status, created_at)
		 VALUES ($1, $2, $3, $4)`,
		batch.ID, batch.OwnerID, batch.Status, batch.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}

	for _, item := range batch.Items {
		// The (batch_id, item_index) unique constraint rejects a duplicate
		// in-flight creation for the same parent.
		_, err = tx.Exec(ctx,
			`INSERT INTO vault_item
			 (id, batch_id, item_index, owner_id, project_name, owner_wallet,
			  self_managed, tx_status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
			item.ID, item.BatchID, item.ItemIndex, item.OwnerID,
			item.ProjectName, item.OwnerWallet, item.SelfManaged,
			item.TxStatus, item.CreatedAt)
		if err != nil {
			return mapPgError(err)
		}

		for _, role := range item.Roles {
			_, err = tx.Exec(ctx,
				`INSERT INTO vault_role
				 (item_id, role_index, name, email, share_percent)
				 VALUES ($1, $2, $3, $4, $5)`,
				item.ID, role.Index, role.Name, role.Email, role.SharePercent)
			if err != nil {
				return mapPgError(err)
			}
		}
	}

	for _, account := range accounts {
		_, err = tx.Exec(ctx,
			`INSERT INTO claim_account (item_id, role_index, email, wallet_address)
			 VALUES ($1, $2, $3, $4)`,
			account.ItemID, account.RoleIndex, account.Email, account.WalletAddress)
		if err != nil {
			return mapPgError(err)
		}
	}

	for _, key := range keys {
		_, err = tx.Exec(ctx,
			`INSERT INTO signing_material (item_id, role_index, private_key)
			 VALUES ($1, $2, $3)`,
			key.ItemID, key.RoleIndex, key.PrivateKey)
		if err != nil {
			return mapPgError(err)
		}
	}

	return tx.Commit(ctx)
}

func (p *Postgres) GetBatch(ctx context.Context, batchID uuid.UUID) (
	*types.BatchRequest, error) {

	var batch types.BatchRequest

	err := p.pg.QueryRow(ctx,
		`SELECT id, owner_id, status, created_at
		 FROM batch_request WHERE id = $1`, batchID).
		Scan(&batch.ID, &batch.OwnerID, &batch.Status, &batch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch %s: %w", batchID, err)
	}

	batch.Items, err = p.ListItems(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return &batch, nil
}

// UpdateBatchStatus moves the batch from one status to another. The guard on
// the current status keeps the CREATED->PROCESSING->terminal order intact no
// matter how often or late a transition is attempted.
func (p *Postgres) UpdateBatchStatus(ctx context.Context, batchID uuid.UUID,
	from, to types.BatchStatus) error {

	tag, err := p.pg.Exec(ctx,
		`UPDATE batch_request SET status = $3 WHERE id = $1 AND status = $2`,
		batchID, from, to)
	if err != nil {
		return fmt.Errorf("update batch %s status: %w", batchID, err)
	}

	if tag.RowsAffected() == 0 {
		p.log.Debug("batch status transition skipped",
			"batch", batchID, "from", from, "to", to)
	}

	return nil
}

// MarkBatchRejected is the terminal failure transition. It only fires while
// the batch is still PROCESSING, so repeated rejections are no-ops.
func (p *Postgres) MarkBatchRejected(ctx context.Context, batchID uuid.UUID) error {
	return p.UpdateBatchStatus(ctx, batchID, types.BatchProcessing, types.BatchRejected)
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == DuplicateKeyValue {
		return ErrDuplicateKeyValue
	}

	return err
}
