package shuffle

import (
	"reflect"
	"testing"
)

// TestOwner tests the destination-owner rule
func TestOwner(t *testing.T) {
	tests := []struct {
		name     string
		destID   int
		nWorkers int
		want     int
	}{
		{"first id to first rank", 0, 4, 0},
		{"wraps around the pool", 5, 4, 1},
		{"more workers than outputs", 2, 8, 2},
		{"single worker owns everything", 7, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Owner(tt.destID, tt.nWorkers); got != tt.want {
				t.Errorf("Owner(%d, %d) = %d, want %d", tt.destID, tt.nWorkers, got, tt.want)
			}
		})
	}
}

// TestOwnedDests tests per-rank destination assignment
func TestOwnedDests(t *testing.T) {
	tests := []struct {
		name     string
		nOut     int
		rank     int
		nWorkers int
		want     []int
	}{
		{"round robin rank 0", 8, 0, 3, []int{0, 3, 6}},
		{"round robin rank 2", 8, 2, 3, []int{2, 5}},
		{"fewer outputs than workers", 2, 3, 4, nil},
		{"single worker", 3, 0, 1, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OwnedDests(tt.nOut, tt.rank, tt.nWorkers)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("OwnedDests(%d, %d, %d) = %v, want %v",
					tt.nOut, tt.rank, tt.nWorkers, got, tt.want)
			}
		})
	}
}

// TestOwnedDestsPartition checks every destination id is owned by exactly
// one rank.
func TestOwnedDestsPartition(t *testing.T) {
	const nOut, nWorkers = 10, 3
	seen := make(map[int]int)
	for rank := 0; rank < nWorkers; rank++ {
		for _, id := range OwnedDests(nOut, rank, nWorkers) {
			seen[id]++
		}
	}
	if len(seen) != nOut {
		t.Fatalf("Expected %d owned ids, got %d", nOut, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("Destination %d owned by %d ranks", id, count)
		}
	}
}

// TestExchangePlan tests plan-derived facts
func TestExchangePlan(t *testing.T) {
	plan := ExchangePlan{
		Columns:   []string{"key"},
		NOut:      4,
		Sources:   []SourcePart{{Rank: 0, Key: "a"}, {Rank: 1, Key: "b"}, {Rank: 0, Key: "c"}},
		OutPrefix: "shuffle-x",
	}
	// Every source sends one bucket to every destination id, so the
	// expected count per destination equals the source partition count.
	if got := plan.ExpectedPerDest(); got != 3 {
		t.Errorf("Expected 3 contributions per dest, got %d", got)
	}
	if got := plan.OutKey(2); got != "shuffle-x/2" {
		t.Errorf("OutKey(2) = %q, want shuffle-x/2", got)
	}
}
