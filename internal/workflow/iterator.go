package workflow

import (
	"github.com/vaultlane/vault-creator/internal/types"
)

// NextIndex advances the per-item cursor. Pure arithmetic: the cursor is
// recomputed from the collection length and the caller-supplied prior index
// on every invocation and never persisted, so the workflow engine can call
// it as often as it likes. priorIndex starts at -1 so the first returned
// index is 0.
func NextIndex(collectionLength, priorIndex int) types.IteratorCursor {
	index := priorIndex + 1

	return types.IteratorCursor{
		Index:    index,
		Count:    collectionLength,
		Continue: index < collectionLength,
	}
}
