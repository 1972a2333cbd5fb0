package ops

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Qubit is an opaque handle issued by an Allocator. Two qubits are the same
// qubit exactly when their IDs and registers match.
type Qubit struct {
	ID       int
	Register uuid.UUID
}

func (q Qubit) String() string {
	return fmt.Sprintf("q%d", q.ID)
}

// Allocator is the allocation authority for qubit IDs. IDs are never reused.
type Allocator struct {
	mu     sync.Mutex
	nextID int
}

// NewAllocator creates an allocator whose first qubit gets ID 0.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Allocate issues n fresh qubits that share one register.
func (a *Allocator) Allocate(n int) []Qubit {
	if n <= 0 {
		return nil
	}
	reg := uuid.New()

	a.mu.Lock()
	defer a.mu.Unlock()

	qubits := make([]Qubit, n)
	for i := range qubits {
		qubits[i] = Qubit{ID: a.nextID, Register: reg}
		a.nextID++
	}
	return qubits
}

// Issued returns how many IDs have been handed out so far.
func (a *Allocator) Issued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextID
}

// sortQubits orders qubits by ID in place.
func sortQubits(qs []Qubit) {
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
}

// UnionQubits merges qubit sets, dropping duplicates. The result is ordered by ID.
func UnionQubits(sets ...[]Qubit) []Qubit {
	seen := make(map[Qubit]bool)
	var out []Qubit
	for _, set := range sets {
		for _, q := range set {
			if seen[q] {
				continue
			}
			seen[q] = true
			out = append(out, q)
		}
	}
	sortQubits(out)
	return out
}

// ContainsQubit reports whether q is in qs.
func ContainsQubit(qs []Qubit, q Qubit) bool {
	for _, x := range qs {
		if x == q {
			return true
		}
	}
	return false
}
