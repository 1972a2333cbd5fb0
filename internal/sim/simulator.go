// Package sim is a state-vector simulator that consumes command streams. It
// is the reference backend lowered circuits are checked against.
package sim

import (
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/HershLalwani/qlower/internal/ops"
)

var (
	// ErrUnknownQubit is returned for a command on a qubit that was never
	// allocated or is already deallocated.
	ErrUnknownQubit = errors.New("unknown qubit")

	// ErrNotClassical is returned when deallocating a qubit in superposition.
	ErrNotClassical = errors.New("qubit is not in a classical state")

	// ErrUnsupported is returned for a gate without a kernel.
	ErrUnsupported = errors.New("unsupported gate")
)

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed fixes the measurement sampler.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// Simulator holds the joint state of every live qubit. Qubit i of the
// allocation order is bit i of the amplitude index.
type Simulator struct {
	amps     []complex128
	order    []ops.Qubit
	pos      map[ops.Qubit]int
	measured map[ops.Qubit]bool
	rng      *rand.Rand
	log      *zap.Logger
}

func New(opts ...Option) *Simulator {
	s := &Simulator{
		amps:     []complex128{1},
		pos:      make(map[ops.Qubit]int),
		measured: make(map[ops.Qubit]bool),
		rng:      rand.New(rand.NewSource(1)),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accepts reports whether the simulator has a kernel for cmd.
func (s *Simulator) Accepts(cmd ops.Command) bool {
	g := cmd.Gate()
	if g.Classical() || g.Kind() == ops.KindSwap {
		return true
	}
	_, ok := MatrixOf(g)
	return ok
}

// Receive applies cmd to the state.
func (s *Simulator) Receive(cmd ops.Command) error {
	g := cmd.Gate()
	switch g.Kind() {
	case ops.KindAllocate:
		return s.allocate(cmd.Target(0))
	case ops.KindDeallocate:
		return s.deallocate(cmd.Target(0))
	case ops.KindMeasure:
		_, err := s.Measure(cmd.Target(0))
		return err
	case ops.KindFlush, ops.KindBarrier:
		return nil
	}

	mask, err := s.mask(cmd.Controls())
	if err != nil {
		return err
	}
	targets, err := s.positions(cmd.Targets())
	if err != nil {
		return err
	}

	if g.Kind() == ops.KindSwap {
		s.applySwap(mask, targets[0], targets[1])
		return nil
	}
	m, ok := MatrixOf(g)
	if !ok {
		return errors.Wrap(ErrUnsupported, cmd.String())
	}
	for _, t := range targets {
		s.applyMatrix(mask, t, m)
	}
	return nil
}

func (s *Simulator) allocate(q ops.Qubit) error {
	if _, ok := s.pos[q]; ok {
		return errors.Errorf("qubit %s allocated twice", q)
	}
	s.pos[q] = len(s.order)
	s.order = append(s.order, q)
	grown := make([]complex128, 2*len(s.amps))
	copy(grown, s.amps)
	s.amps = grown
	s.log.Debug("qubit allocated", zap.Stringer("qubit", q), zap.Int("live", len(s.order)))
	return nil
}

func (s *Simulator) deallocate(q ops.Qubit) error {
	k, ok := s.pos[q]
	if !ok {
		return errors.Wrapf(ErrUnknownQubit, "deallocate %s", q)
	}
	p1 := s.prob1(k)
	if p1 > ops.Tolerance && 1-p1 > ops.Tolerance {
		return errors.Wrapf(ErrNotClassical, "deallocate %s with P(1)=%g", q, p1)
	}
	keep := 0
	if p1 > 0.5 {
		keep = 1 << k
	}

	bit := 1 << k
	low := bit - 1
	shrunk := make([]complex128, len(s.amps)/2)
	for i := range shrunk {
		old := (i & low) | ((i &^ low) << 1) | keep
		shrunk[i] = s.amps[old]
	}
	s.amps = shrunk

	s.order = append(s.order[:k], s.order[k+1:]...)
	delete(s.pos, q)
	delete(s.measured, q)
	for i := k; i < len(s.order); i++ {
		s.pos[s.order[i]] = i
	}
	s.log.Debug("qubit deallocated", zap.Stringer("qubit", q), zap.Int("live", len(s.order)))
	return nil
}

func (s *Simulator) mask(controls []ops.Qubit) (int, error) {
	m := 0
	for _, c := range controls {
		k, ok := s.pos[c]
		if !ok {
			return 0, errors.Wrapf(ErrUnknownQubit, "control %s", c)
		}
		m |= 1 << k
	}
	return m, nil
}

func (s *Simulator) positions(qs []ops.Qubit) ([]int, error) {
	out := make([]int, len(qs))
	for i, q := range qs {
		k, ok := s.pos[q]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownQubit, "target %s", q)
		}
		out[i] = k
	}
	return out, nil
}

func (s *Simulator) applyMatrix(mask, target int, m Matrix) {
	bit := 1 << target
	for i := range s.amps {
		if i&bit != 0 || i&mask != mask {
			continue
		}
		j := i | bit
		a, b := s.amps[i], s.amps[j]
		s.amps[i] = m[0][0]*a + m[0][1]*b
		s.amps[j] = m[1][0]*a + m[1][1]*b
	}
}

func (s *Simulator) applySwap(mask, q1, q2 int) {
	bit1 := 1 << q1
	bit2 := 1 << q2
	for i := range s.amps {
		if i&mask != mask || i&bit1 == 0 || i&bit2 != 0 {
			continue
		}
		j := (i &^ bit1) | bit2
		s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
	}
}

func (s *Simulator) prob1(k int) float64 {
	bit := 1 << k
	p := 0.0
	for i, a := range s.amps {
		if i&bit != 0 {
			p += real(a * cmplx.Conj(a))
		}
	}
	return p
}

// Measure samples q, collapses the state and records the outcome.
func (s *Simulator) Measure(q ops.Qubit) (bool, error) {
	k, ok := s.pos[q]
	if !ok {
		return false, errors.Wrapf(ErrUnknownQubit, "measure %s", q)
	}
	p1 := s.prob1(k)
	outcome := s.rng.Float64() < p1

	bit := 1 << k
	norm := math.Sqrt(p1)
	if !outcome {
		norm = math.Sqrt(1 - p1)
	}
	for i := range s.amps {
		if (i&bit != 0) != outcome {
			s.amps[i] = 0
			continue
		}
		s.amps[i] /= complex(norm, 0)
	}
	s.measured[q] = outcome
	return outcome, nil
}

// Probability is the probability of measuring q as 1.
func (s *Simulator) Probability(q ops.Qubit) (float64, error) {
	k, ok := s.pos[q]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownQubit, "probability of %s", q)
	}
	return s.prob1(k), nil
}

// IsClassical reports whether q is in |0> or |1> up to tolerance.
func (s *Simulator) IsClassical(q ops.Qubit) bool {
	p, err := s.Probability(q)
	if err != nil {
		return false
	}
	return p < ops.Tolerance || 1-p < ops.Tolerance
}

// Measured returns the last measurement outcome of q.
func (s *Simulator) Measured(q ops.Qubit) (value, ok bool) {
	value, ok = s.measured[q]
	return value, ok
}

// NumQubits is the number of live qubits.
func (s *Simulator) NumQubits() int {
	return len(s.order)
}

// Cheat exposes the live qubits in bit order and a copy of the amplitudes.
func (s *Simulator) Cheat() ([]ops.Qubit, []complex128) {
	return append([]ops.Qubit(nil), s.order...), append([]complex128(nil), s.amps...)
}

// Vector returns the amplitudes re-indexed so that bit i stands for qs[i].
// qs must name every live qubit exactly once.
func (s *Simulator) Vector(qs []ops.Qubit) ([]complex128, error) {
	if len(qs) != len(s.order) {
		return nil, errors.Errorf("vector over %d qubits, %d are live", len(qs), len(s.order))
	}
	perm, err := s.positions(qs)
	if err != nil {
		return nil, err
	}
	out := make([]complex128, len(s.amps))
	for idx := range out {
		src := 0
		for i, k := range perm {
			if idx&(1<<i) != 0 {
				src |= 1 << k
			}
		}
		out[idx] = s.amps[src]
	}
	return out, nil
}

// Amplitude returns the amplitude of the basis state in which qs[i] has
// value bit i of index.
func (s *Simulator) Amplitude(qs []ops.Qubit, index int) (complex128, error) {
	v, err := s.Vector(qs)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(v) {
		return 0, errors.Errorf("basis index %d out of range", index)
	}
	return v[index], nil
}

// MaxDelta is the largest absolute difference between two amplitude vectors
// of the same length.
func MaxDelta(a, b []complex128) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	d := 0.0
	for i := range a {
		d = math.Max(d, cmplx.Abs(a[i]-b[i]))
	}
	return d
}
