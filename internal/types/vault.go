package types

import (
	"time"

	"github.com/google/uuid"
)

type BatchStatus string

const (
	BatchCreated    BatchStatus = "CREATED"
	BatchProcessing BatchStatus = "PROCESSING"
	BatchSuccess    BatchStatus = "SUCCESS"
	BatchRejected   BatchStatus = "REJECTED"
)

type TransactionStatus string

const (
	TxCreated    TransactionStatus = "CREATED"
	TxSubmitted  TransactionStatus = "SUBMITTED"
	TxSuccessful TransactionStatus = "SUCCESSFUL"
	TxRejected   TransactionStatus = "REJECTED"
)

// Terminal reports whether no further status transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == TxSuccessful || s == TxRejected
}

// RoleSpec describes one payout role of a vault before anything is on chain.
// The first role in a spec is the primary payout recipient.
type RoleSpec struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	SharePercent float64 `json:"sharePercent"`
}

// VaultItemSpec is the caller-supplied specification of a single vault in a
// batch request.
type VaultItemSpec struct {
	ProjectName string     `json:"projectName"`
	OwnerWallet string     `json:"ownerWallet"`
	SelfManaged bool       `json:"selfManaged"`
	Roles       []RoleSpec `json:"roles"`
}

// Role is a payout role on a persisted vault item. ClaimAddress stays nil
// until the role's on-chain vault address has been resolved from a receipt.
type Role struct {
	Index        int      `db:"role_index" json:"index"`
	Name         string   `db:"name" json:"name"`
	Email        string   `db:"email" json:"email"`
	SharePercent float64  `db:"share_percent" json:"sharePercent"`
	ClaimAddress *string  `db:"claim_address" json:"claimAddress,omitempty"`
}

// VaultItem is the independently addressable child record of a batch. All
// on-chain fields are nullable until the corresponding stage has happened.
type VaultItem struct {
	ID                 uuid.UUID         `db:"id" json:"id"`
	BatchID            uuid.UUID         `db:"batch_id" json:"batchId"`
	ItemIndex          int               `db:"item_index" json:"itemIndex"`
	OwnerID            string            `db:"owner_id" json:"ownerId"`
	ProjectName        string            `db:"project_name" json:"projectName"`
	OwnerWallet        string            `db:"owner_wallet" json:"ownerWallet"`
	SelfManaged        bool              `db:"self_managed" json:"selfManaged"`
	TxStatus           TransactionStatus `db:"tx_status" json:"transactionStatus"`
	TxHash             *string           `db:"tx_hash" json:"transactionHash,omitempty"`
	CorrelationID      *uuid.UUID        `db:"correlation_id" json:"-"`
	VaultAddress       *string           `db:"vault_address" json:"vaultAddress,omitempty"`
	ShareholderManager *string           `db:"shareholder_manager_address" json:"shareholderManagerAddress,omitempty"`
	Roles              []Role            `json:"roles"`
	CreatedAt          time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updatedAt"`
}

// Dispatched reports whether a deployment transaction is already in flight
// or done for this item.
func (v *VaultItem) Dispatched() bool {
	return v.CorrelationID != nil || v.TxHash != nil ||
		v.TxStatus == TxSubmitted || v.TxStatus == TxSuccessful
}

// BatchRequest is the aggregate root created from one create-batch call.
type BatchRequest struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	OwnerID   string      `db:"owner_id" json:"ownerId"`
	Status    BatchStatus `db:"status" json:"creationStatus"`
	Items     []VaultItem `json:"items"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// ClaimAccount is the pre-generated wallet a role invitee will claim. It is
// created before anything is on chain, so resolved role addresses are matched
// back to it by wallet address, never by role order.
type ClaimAccount struct {
	ItemID        uuid.UUID `db:"item_id"`
	RoleIndex     int       `db:"role_index"`
	Email         string    `db:"email"`
	WalletAddress string    `db:"wallet_address"`
}

// SigningKey is the private material behind a claim account. It is deleted
// by the compensation path when the item's deployment is rejected.
type SigningKey struct {
	ItemID     uuid.UUID `db:"item_id"`
	RoleIndex  int       `db:"role_index"`
	PrivateKey string    `db:"private_key"`
}

// IteratorCursor is the pure progress value handed back to the workflow
// engine on every iterator call. It is recomputed each time and never stored.
type IteratorCursor struct {
	Index    int  `json:"index"`
	Count    int  `json:"count"`
	Continue bool `json:"continue"`
}
