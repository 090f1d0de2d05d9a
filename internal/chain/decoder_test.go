package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

var (
	vaultAddr   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	managerAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	roleVault1  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	roleOwner1  = common.HexToAddress("0x4444444444444444444444444444444444444444")
	roleVault2  = common.HexToAddress("0x5555555555555555555555555555555555555555")
	roleOwner2  = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

func mustDecoder(t *testing.T) *Decoder {
	t.Helper()

	decoder, err := NewDecoder()
	if err != nil {
		t.Fatalf("unexpected decoder error: %v", err)
	}

	return decoder
}

func eventLog(t *testing.T, d *Decoder, name string, args ...any) *ethtypes.Log {
	t.Helper()

	data, err := d.PackEventData(name, args...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}

	return &ethtypes.Log{
		Address: common.HexToAddress("0xffffffffffffffffffffffffffffffffffffffff"),
		Topics:  []common.Hash{d.EventID(name)},
		Data:    data,
	}
}

func foreignLog() *ethtypes.Log {
	return &ethtypes.Log{
		Address: common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"),
		Topics:  []common.Hash{common.HexToHash("0xdeadbeef")},
		Data:    []byte{0x01, 0x02},
	}
}

func TestDecode_EmptyReceipt(t *testing.T) {
	decoder := mustDecoder(t)

	facts := decoder.Decode(&ethtypes.Receipt{})
	if len(facts) != 0 {
		t.Errorf("expected no facts, got %d", len(facts))
	}
}

func TestDecode_SkipsForeignLogs(t *testing.T) {
	decoder := mustDecoder(t)

	receipt := &ethtypes.Receipt{Logs: []*ethtypes.Log{
		foreignLog(),
		foreignLog(),
	}}

	facts := decoder.Decode(receipt)
	if len(facts) != 0 {
		t.Errorf("expected no facts from foreign logs, got %d", len(facts))
	}
}

func TestDecode_DeploymentReceipt(t *testing.T) {
	decoder := mustDecoder(t)

	receipt := &ethtypes.Receipt{Logs: []*ethtypes.Log{
		foreignLog(),
		eventLog(t, decoder, "VaultDeployed", vaultAddr, managerAddr),
		eventLog(t, decoder, "RoleVaultCreated", roleVault1, roleOwner1),
		eventLog(t, decoder, "RoleVaultCreated", roleVault2, roleOwner2),
	}}

	facts := decoder.Decode(receipt)
	if len(facts) != 3 {
		t.Fatalf("expected 3 facts, got %d", len(facts))
	}

	if facts[0].Kind != FactVaultDeployed {
		t.Errorf("expected VaultDeployed first, got %s", facts[0].Kind)
	}
	if facts[0].VaultAddress != vaultAddr {
		t.Errorf("wrong vault address: %s", facts[0].VaultAddress)
	}
	if facts[0].ShareholderManager != managerAddr {
		t.Errorf("wrong shareholder manager: %s", facts[0].ShareholderManager)
	}

	// Duplicate kinds are all returned, in receipt order.
	if facts[1].RoleOwnerAddress != roleOwner1 || facts[2].RoleOwnerAddress != roleOwner2 {
		t.Errorf("role facts out of receipt order: %v %v", facts[1], facts[2])
	}
}

func TestDecode_FundsDistributed(t *testing.T) {
	decoder := mustDecoder(t)

	amount := big.NewInt(1234567)
	receipt := &ethtypes.Receipt{Logs: []*ethtypes.Log{
		eventLog(t, decoder, "FundsDistributed", roleOwner1, amount),
	}}

	facts := decoder.Decode(receipt)
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}

	if facts[0].Kind != FactFundsDistributed {
		t.Errorf("expected FundsDistributed, got %s", facts[0].Kind)
	}
	if facts[0].Amount.Cmp(amount) != 0 {
		t.Errorf("expected amount %s, got %s", amount, facts[0].Amount)
	}
}

func TestDecode_Deterministic(t *testing.T) {
	decoder := mustDecoder(t)

	receipt := &ethtypes.Receipt{Logs: []*ethtypes.Log{
		eventLog(t, decoder, "VaultDeployed", vaultAddr, managerAddr),
		foreignLog(),
	}}

	first := decoder.Decode(receipt)
	second := decoder.Decode(receipt)

	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("decode is not deterministic: %v vs %v", first, second)
	}
}
