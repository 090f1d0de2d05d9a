package chain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ReceiptSource fetches a mined transaction receipt by hash.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// RPCReceiptSource is the ethclient-backed ReceiptSource used in production.
type RPCReceiptSource struct {
	client *ethclient.Client
	log    *slog.Logger
}

func NewRPCReceiptSource(ctx context.Context, rpcURL string) (*RPCReceiptSource, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain RPC: %w", err)
	}

	return &RPCReceiptSource{
		client: client,
		log:    slog.With("component", "receipt-source"),
	}, nil
}

func (r *RPCReceiptSource) TransactionReceipt(ctx context.Context, txHash common.Hash) (
	*ethtypes.Receipt, error) {

	receipt, err := r.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("fetch receipt %s: %w", txHash, err)
	}

	return receipt, nil
}

func (r *RPCReceiptSource) Close() {
	r.client.Close()
}
