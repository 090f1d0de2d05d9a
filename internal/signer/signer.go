package signer

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vaultlane/vault-creator/internal/types"
)

// GenerateClaimAccounts creates one keypair per role of the item. The wallet
// address becomes the role owner passed to the factory; the private key is
// the signing material the invitee later claims, stored until either claim
// or the rejection compensation deletes it.
func GenerateClaimAccounts(item *types.VaultItem) (
	[]types.ClaimAccount, []types.SigningKey, error) {

	accounts := make([]types.ClaimAccount, 0, len(item.Roles))
	keys := make([]types.SigningKey, 0, len(item.Roles))

	for _, role := range item.Roles {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, nil, fmt.Errorf("generate key for role %d: %w", role.Index, err)
		}

		accounts = append(accounts, types.ClaimAccount{
			ItemID:        item.ID,
			RoleIndex:     role.Index,
			Email:         role.Email,
			WalletAddress: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		})

		keys = append(keys, types.SigningKey{
			ItemID:     item.ID,
			RoleIndex:  role.Index,
			PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
		})
	}

	return accounts, keys, nil
}
