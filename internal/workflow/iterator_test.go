package workflow

import (
	"testing"
)

func TestNextIndex_WalksCollectionInOrder(t *testing.T) {
	const collectionLength = 5

	prior := -1
	for expected := 0; expected < collectionLength; expected++ {
		cursor := NextIndex(collectionLength, prior)

		if cursor.Index != expected {
			t.Errorf("expected index %d, got %d", expected, cursor.Index)
		}
		if cursor.Count != collectionLength {
			t.Errorf("expected count %d, got %d", collectionLength, cursor.Count)
		}
		if !cursor.Continue {
			t.Fatalf("unexpectedly ran out of items at index %d", cursor.Index)
		}

		prior = cursor.Index
	}

	final := NextIndex(collectionLength, prior)
	if final.Continue {
		t.Fatal("expected continue=false after the last item")
	}
	if final.Index != collectionLength {
		t.Errorf("expected final index %d, got %d", collectionLength, final.Index)
	}
}

func TestNextIndex_EmptyCollection(t *testing.T) {
	cursor := NextIndex(0, -1)

	if cursor.Continue {
		t.Fatal("empty collection should not continue")
	}
	if cursor.Index != 0 {
		t.Errorf("expected index 0, got %d", cursor.Index)
	}
}

func TestNextIndex_SameInputSameOutput(t *testing.T) {
	first := NextIndex(3, 1)
	second := NextIndex(3, 1)

	if first != second {
		t.Errorf("cursor is not deterministic: %v vs %v", first, second)
	}
}
