package chain

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vaultlane/vault-creator/internal/types"
)

// vaultFactoryABI is the single factory entry point the creation saga calls.
const vaultFactoryABI = `[
	{"type":"function","name":"createVault","inputs":[
		{"name":"projectName","type":"string"},
		{"name":"owner","type":"address"},
		{"name":"roleOwners","type":"address[]"},
		{"name":"shares","type":"uint256[]"}]}
]`

// CallEncoder builds the ABI-encoded deployment call for a vault item.
type CallEncoder struct {
	abi abi.ABI
}

func NewCallEncoder() (*CallEncoder, error) {
	parsed, err := abi.JSON(strings.NewReader(vaultFactoryABI))
	if err != nil {
		return nil, fmt.Errorf("parse vault factory ABI: %w", err)
	}

	return &CallEncoder{abi: parsed}, nil
}

// EncodeCreateVault packs the createVault call for the item. Role owners are
// the pre-generated claim-account wallets, in role order; shares are fee
// percentages scaled to basis points so the contract works in integers.
func (e *CallEncoder) EncodeCreateVault(item *types.VaultItem, accounts []types.ClaimAccount) (string, error) {
	if !common.IsHexAddress(item.OwnerWallet) {
		return "", fmt.Errorf("owner wallet %q is not a valid address", item.OwnerWallet)
	}

	byRole := make(map[int]types.ClaimAccount, len(accounts))
	for _, account := range accounts {
		byRole[account.RoleIndex] = account
	}

	roleOwners := make([]common.Address, 0, len(item.Roles))
	shares := make([]*big.Int, 0, len(item.Roles))

	for _, role := range item.Roles {
		account, ok := byRole[role.Index]
		if !ok {
			return "", fmt.Errorf("item %s has no claim account for role %d", item.ID, role.Index)
		}
		if !common.IsHexAddress(account.WalletAddress) {
			return "", fmt.Errorf("claim wallet %q is not a valid address", account.WalletAddress)
		}

		roleOwners = append(roleOwners, common.HexToAddress(account.WalletAddress))
		shares = append(shares, basisPoints(role.SharePercent))
	}

	packed, err := e.abi.Pack("createVault", item.ProjectName,
		common.HexToAddress(item.OwnerWallet), roleOwners, shares)
	if err != nil {
		return "", fmt.Errorf("pack createVault: %w", err)
	}

	return "0x" + common.Bytes2Hex(packed), nil
}

// basisPoints scales a fee percentage to integer basis points. Rounding has
// to be explicit: truncation would shave fractional percentages and make the
// on-chain shares sum below the validated total.
func basisPoints(percent float64) *big.Int {
	return big.NewInt(int64(math.Round(percent * 100)))
}
