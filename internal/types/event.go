package types

import (
	"github.com/google/uuid"
)

type EventKind string

const (
	EventVaultCreation EventKind = "VAULT_CREATION"
)

// TransactionIntent asks the chain-signing executor to run one on-chain
// transaction. It only lives on the bus; it is never persisted here. The
// continuation token travels with it and comes back on the status event.
type TransactionIntent struct {
	CorrelationID     uuid.UUID `json:"correlationId"`
	Kind              EventKind `json:"kind"`
	To                string    `json:"to"`
	Value             string    `json:"value"`
	CallData          string    `json:"callData"`
	ItemID            uuid.UUID `json:"itemId"`
	ContinuationToken []byte    `json:"continuationToken,omitempty"`
}

// TransactionStatusEvent is the executor's answer, delivered at least once.
type TransactionStatusEvent struct {
	Kind              EventKind         `json:"kind"`
	Status            TransactionStatus `json:"status"`
	TxHash            string            `json:"txHash"`
	ItemID            uuid.UUID         `json:"itemId"`
	ContinuationToken []byte            `json:"continuationToken,omitempty"`
}
