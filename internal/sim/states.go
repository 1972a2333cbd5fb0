package sim

import (
	"math/bits"
	"math/cmplx"
	"sort"

	"github.com/HershLalwani/qlower/internal/ops"
)

type QubitProbability struct {
	Qubit ops.Qubit
	Prob0 float64
	Prob1 float64
}

// QubitProbabilities returns the marginal distribution of every live qubit
// in allocation order.
func (s *Simulator) QubitProbabilities() []QubitProbability {
	probs := make([]QubitProbability, len(s.order))
	for q := range probs {
		probs[q].Qubit = s.order[q]
	}
	for i, amp := range s.amps {
		p := real(amp * cmplx.Conj(amp))
		for q := range probs {
			if i&(1<<q) != 0 {
				probs[q].Prob1 += p
			} else {
				probs[q].Prob0 += p
			}
		}
	}
	return probs
}

// BasisState is one basis state with non-negligible probability.
type BasisState struct {
	Index     int
	Amplitude complex128
	Prob      float64
	Phase     float64
	Hamming   int
}

// States lists basis states with probability above tolerance, most likely
// first.
func (s *Simulator) States() []BasisState {
	var out []BasisState
	for i, amp := range s.amps {
		p := real(amp * cmplx.Conj(amp))
		if p <= ops.Tolerance {
			continue
		}
		out = append(out, BasisState{
			Index:     i,
			Amplitude: amp,
			Prob:      p,
			Phase:     cmplx.Phase(amp),
			Hamming:   bits.OnesCount(uint(i)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Prob > out[j].Prob })
	return out
}
