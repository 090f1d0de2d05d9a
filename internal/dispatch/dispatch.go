package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vaultlane/vault-creator/internal/errors"
	"github.com/vaultlane/vault-creator/internal/metrics"
	"github.com/vaultlane/vault-creator/internal/types"
)

// Publisher is the outbound channel to the chain-signing executor.
type Publisher interface {
	Publish(ctx context.Context, message []byte) error
}

// Dispatcher emits execute-transaction requests onto the bus. It holds no
// state beyond configuration; durability of the wait for the outcome lives
// with the workflow engine, not here.
type Dispatcher struct {
	publisher Publisher
	log       *slog.Logger
}

func New(publisher Publisher) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		log:       slog.With("component", "dispatcher"),
	}
}

// Dispatch validates the intent's wire fields and publishes it. A failed or
// unconfirmed publish comes back as a dispatch_failed ServiceError: the
// intent may or may not have been delivered, so the caller must not retry
// it under the same correlation id.
func (d *Dispatcher) Dispatch(ctx context.Context, intent *types.TransactionIntent) error {
	if err := validate(intent); err != nil {
		return err
	}

	message, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent %s: %w", intent.CorrelationID, err)
	}

	d.log.Debug("Dispatching transaction intent",
		"correlation", intent.CorrelationID, "item", intent.ItemID)

	if err := d.publisher.Publish(ctx, message); err != nil {
		return errors.New(errors.CodeDispatchFailed,
			"transaction intent publish failed", err)
	}

	metrics.IntentsDispatched.Inc()

	return nil
}

func validate(intent *types.TransactionIntent) error {
	if !common.IsHexAddress(intent.To) {
		return fmt.Errorf("intent destination %q is not a valid address", intent.To)
	}

	if _, ok := new(big.Int).SetString(intent.Value, 10); !ok {
		return fmt.Errorf("intent value %q is not a decimal amount", intent.Value)
	}

	data := strings.TrimPrefix(intent.CallData, "0x")
	if len(data) == 0 || len(data)%2 != 0 {
		return fmt.Errorf("intent call data has odd or zero length")
	}
	if _, err := hexutil.Decode("0x" + data); err != nil {
		return fmt.Errorf("intent call data is not hex: %w", err)
	}

	return nil
}
