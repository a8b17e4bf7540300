package ids

import "testing"

func TestGenerateUnique(t *testing.T) {
	seen := make(map[int64]bool, 10000)
	for i := 0; i < 10000; i++ {
		id := Generate()
		if seen[id] {
			t.Fatalf("duplicate id %d at iteration %d", id, i)
		}
		seen[id] = true
	}
}

func TestGenerateMonotonic(t *testing.T) {
	prev := Generate()
	for i := 0; i < 1000; i++ {
		id := Generate()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestSetNodeIDOutOfRange(t *testing.T) {
	SetNodeID(5000)
	if defaultGen.nodeID != 1 {
		t.Errorf("expected out-of-range node id to fall back to 1, got %d", defaultGen.nodeID)
	}
	SetNodeID(42)
	if defaultGen.nodeID != 42 {
		t.Errorf("expected node id 42, got %d", defaultGen.nodeID)
	}
}
