package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// vaultEventsABI covers every event the vault factory family emits that this
// service cares about. Logs from unrelated contracts in the same receipt
// simply won't match any of these signatures.
const vaultEventsABI = `[
	{"type":"event","name":"VaultDeployed","inputs":[
		{"name":"vaultAddress","type":"address","indexed":false},
		{"name":"shareholderManager","type":"address","indexed":false}]},
	{"type":"event","name":"RoleVaultCreated","inputs":[
		{"name":"roleVault","type":"address","indexed":false},
		{"name":"roleOwner","type":"address","indexed":false}]},
	{"type":"event","name":"FundsDistributed","inputs":[
		{"name":"distributor","type":"address","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

type FactKind string

const (
	FactVaultDeployed    FactKind = "VaultDeployed"
	FactRoleVaultCreated FactKind = "RoleVaultCreated"
	FactFundsDistributed FactKind = "FundsDistributed"
)

// Fact is one typed domain fact recovered from a receipt log. Only the
// fields belonging to its Kind are populated.
type Fact struct {
	Kind FactKind

	VaultAddress       common.Address
	ShareholderManager common.Address

	RoleVaultAddress common.Address
	RoleOwnerAddress common.Address

	DistributorAddress common.Address
	Amount             *big.Int
}

// Decoder turns transaction receipts into typed facts. It holds only the
// parsed ABI and is safe for concurrent use.
type Decoder struct {
	abi abi.ABI
}

func NewDecoder() (*Decoder, error) {
	parsed, err := abi.JSON(strings.NewReader(vaultEventsABI))
	if err != nil {
		return nil, fmt.Errorf("parse vault events ABI: %w", err)
	}

	return &Decoder{abi: parsed}, nil
}

// Decode tries every log in the receipt against every known event signature
// and returns the facts that matched, in receipt order. Logs that match no
// signature are skipped: a receipt legitimately carries logs from contracts
// this service knows nothing about. Duplicate fact kinds are all returned;
// callers filter. Deterministic for a given receipt.
func (d *Decoder) Decode(receipt *ethtypes.Receipt) []Fact {
	facts := []Fact{}

	for _, entry := range receipt.Logs {
		if entry == nil || len(entry.Topics) == 0 {
			continue
		}

		event, err := d.abi.EventByID(entry.Topics[0])
		if err != nil {
			continue
		}

		values, err := event.Inputs.Unpack(entry.Data)
		if err != nil {
			continue
		}

		fact, ok := d.toFact(event.Name, values)
		if !ok {
			continue
		}

		facts = append(facts, fact)
	}

	return facts
}

func (d *Decoder) toFact(name string, values []any) (Fact, bool) {
	switch name {
	case string(FactVaultDeployed):
		vault, ok1 := values[0].(common.Address)
		manager, ok2 := values[1].(common.Address)
		if !ok1 || !ok2 {
			return Fact{}, false
		}
		return Fact{
			Kind:               FactVaultDeployed,
			VaultAddress:       vault,
			ShareholderManager: manager,
		}, true
	case string(FactRoleVaultCreated):
		roleVault, ok1 := values[0].(common.Address)
		roleOwner, ok2 := values[1].(common.Address)
		if !ok1 || !ok2 {
			return Fact{}, false
		}
		return Fact{
			Kind:             FactRoleVaultCreated,
			RoleVaultAddress: roleVault,
			RoleOwnerAddress: roleOwner,
		}, true
	case string(FactFundsDistributed):
		distributor, ok1 := values[0].(common.Address)
		amount, ok2 := values[1].(*big.Int)
		if !ok1 || !ok2 {
			return Fact{}, false
		}
		return Fact{
			Kind:               FactFundsDistributed,
			DistributorAddress: distributor,
			Amount:             amount,
		}, true
	}

	return Fact{}, false
}

// EventID returns the topic0 hash for a known event name. Used by tests and
// by tooling that needs to subscribe to the raw logs.
func (d *Decoder) EventID(name string) common.Hash {
	return d.abi.Events[name].ID
}

// PackEventData ABI-encodes the non-indexed arguments of a known event.
func (d *Decoder) PackEventData(name string, args ...any) ([]byte, error) {
	event, ok := d.abi.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", name)
	}

	return event.Inputs.Pack(args...)
}
