package comms

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// RankMap is a bidirectional mapping between worker ranks and addresses
// for one pool snapshot. Ranks are assigned 0..N-1 in lexicographic
// address order, so any process that builds a map from the same snapshot
// gets an identical assignment without coordination. A RankMap is a value:
// it is built per collective call and never mutated.
type RankMap struct {
	addrs  []string
	byAddr map[string]int
}

// BuildRankMap assigns ranks to the given worker addresses. Duplicates are
// collapsed. An empty snapshot returns ErrEmptyPool, since there is nothing
// to address.
func BuildRankMap(addrs []string) (RankMap, error) {
	sorted := append([]string(nil), addrs...)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	if len(sorted) == 0 {
		return RankMap{}, ErrEmptyPool
	}
	byAddr := make(map[string]int, len(sorted))
	for rank, addr := range sorted {
		byAddr[addr] = rank
	}
	return RankMap{addrs: sorted, byAddr: byAddr}, nil
}

// N returns the number of ranked workers.
func (m RankMap) N() int { return len(m.addrs) }

// Rank returns the rank of the given address.
func (m RankMap) Rank(addr string) (int, error) {
	rank, ok := m.byAddr[addr]
	if !ok {
		return 0, &UnknownWorkerError{Addr: addr}
	}
	return rank, nil
}

// Addr returns the address holding the given rank.
func (m RankMap) Addr(rank int) (string, error) {
	if rank < 0 || rank >= len(m.addrs) {
		return "", fmt.Errorf("rank %d out of range [0, %d)", rank, len(m.addrs))
	}
	return m.addrs[rank], nil
}

// Addrs returns all addresses in rank order. The returned slice is a copy.
func (m RankMap) Addrs() []string {
	return append([]string(nil), m.addrs...)
}

// Contains reports whether addr is a member of this snapshot.
func (m RankMap) Contains(addr string) bool {
	_, ok := m.byAddr[addr]
	return ok
}
