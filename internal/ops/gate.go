package ops

import (
	"fmt"
	"math"
	"strings"
)

// Tolerance is the absolute tolerance used for every angle comparison.
const Tolerance = 1e-10

// Kind identifies an operation independently of its parameters. Rule
// registries are keyed by Kind.
type Kind string

const (
	KindH        Kind = "h"
	KindX        Kind = "x"
	KindY        Kind = "y"
	KindZ        Kind = "z"
	KindS        Kind = "s"
	KindSdag     Kind = "sdg"
	KindT        Kind = "t"
	KindTdag     Kind = "tdg"
	KindRx       Kind = "rx"
	KindRy       Kind = "ry"
	KindRz       Kind = "rz"
	KindR        Kind = "r"  // phase shift diag(1, e^{iθ})
	KindPh       Kind = "ph" // global phase e^{iθ}
	KindSwap     Kind = "swap"
	KindEntangle Kind = "entangle"

	KindMeasure    Kind = "measure"
	KindAllocate   Kind = "allocate"
	KindDeallocate Kind = "deallocate"
	KindFlush      Kind = "flush"
	KindBarrier    Kind = "barrier"
)

type kindInfo struct {
	display   string
	arity     int     // required target count, 0 means "one or more"
	period    float64 // angle period, 0 when unparameterized
	classical bool
}

var kinds = map[Kind]kindInfo{
	KindH:          {display: "H", arity: 1},
	KindX:          {display: "X", arity: 1},
	KindY:          {display: "Y", arity: 1},
	KindZ:          {display: "Z", arity: 1},
	KindS:          {display: "S", arity: 1},
	KindSdag:       {display: "Sdag", arity: 1},
	KindT:          {display: "T", arity: 1},
	KindTdag:       {display: "Tdag", arity: 1},
	KindRx:         {display: "Rx", arity: 1, period: 4 * math.Pi},
	KindRy:         {display: "Ry", arity: 1, period: 4 * math.Pi},
	KindRz:         {display: "Rz", arity: 1, period: 4 * math.Pi},
	KindR:          {display: "R", arity: 1, period: 2 * math.Pi},
	KindPh:         {display: "Ph", arity: 1, period: 2 * math.Pi},
	KindSwap:       {display: "Swap", arity: 2},
	KindEntangle:   {display: "Entangle"},
	KindMeasure:    {display: "Measure", arity: 1, classical: true},
	KindAllocate:   {display: "Allocate", arity: 1, classical: true},
	KindDeallocate: {display: "Deallocate", arity: 1, classical: true},
	KindFlush:      {display: "Flush", arity: -1, classical: true},
	KindBarrier:    {display: "Barrier", arity: -1, classical: true},
}

// Known reports whether k is one of the kinds defined in this package.
func (k Kind) Known() bool {
	_, ok := kinds[k]
	return ok
}

// Parameterized reports whether gates of this kind carry an angle.
func (k Kind) Parameterized() bool {
	return kinds[k].period > 0
}

// Period is the angle period of parameterized kinds and 0 otherwise.
func (k Kind) Period() float64 {
	return kinds[k].period
}

// Classical reports whether k is an administrative instruction that every
// stage must accept unchanged.
func (k Kind) Classical() bool {
	return kinds[k].classical
}

// Kinds lists every known kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindH, KindX, KindY, KindZ, KindS, KindSdag, KindT, KindTdag,
		KindRx, KindRy, KindRz, KindR, KindPh, KindSwap, KindEntangle,
		KindMeasure, KindAllocate, KindDeallocate, KindFlush, KindBarrier,
	}
}

// Gate is an operation kind plus its angle for parameterized kinds. Gates
// are plain values.
type Gate struct {
	kind  Kind
	angle float64
}

// Unparameterized gates.
var (
	H        = Gate{kind: KindH}
	X        = Gate{kind: KindX}
	Y        = Gate{kind: KindY}
	Z        = Gate{kind: KindZ}
	S        = Gate{kind: KindS}
	Sdag     = Gate{kind: KindSdag}
	T        = Gate{kind: KindT}
	Tdag     = Gate{kind: KindTdag}
	Swap     = Gate{kind: KindSwap}
	Entangle = Gate{kind: KindEntangle}

	Measure    = Gate{kind: KindMeasure}
	Allocate   = Gate{kind: KindAllocate}
	Deallocate = Gate{kind: KindDeallocate}
	Flush      = Gate{kind: KindFlush}
	Barrier    = Gate{kind: KindBarrier}
)

func Rx(angle float64) Gate { return Rotation(KindRx, angle) }
func Ry(angle float64) Gate { return Rotation(KindRy, angle) }
func Rz(angle float64) Gate { return Rotation(KindRz, angle) }

// R is the phase-shift gate diag(1, e^{iθ}).
func R(angle float64) Gate { return Rotation(KindR, angle) }

// Ph is the global phase gate e^{iθ}·I.
func Ph(angle float64) Gate { return Rotation(KindPh, angle) }

// Rotation builds a parameterized gate of kind k with its angle normalized
// into [0, period). It panics when k takes no angle.
func Rotation(k Kind, angle float64) Gate {
	period := kinds[k].period
	if period == 0 {
		panic(fmt.Sprintf("ops: %q is not a parameterized kind", k))
	}
	return Gate{kind: k, angle: normalize(angle, period)}
}

// Named returns the unparameterized gate of kind k.
func Named(k Kind) (Gate, bool) {
	info, ok := kinds[k]
	if !ok || info.period > 0 {
		return Gate{}, false
	}
	return Gate{kind: k}, true
}

func normalize(angle, period float64) float64 {
	a := math.Mod(angle, period)
	if a < 0 {
		a += period
	}
	if period-a < Tolerance {
		a = 0
	}
	return a
}

func (g Gate) Kind() Kind { return g.kind }

// Angle returns the normalized angle, or 0 for unparameterized gates.
func (g Gate) Angle() float64 { return g.angle }

func (g Gate) Parameterized() bool { return g.kind.Parameterized() }

func (g Gate) Classical() bool { return g.kind.Classical() }

// Arity is the exact number of targets the gate needs. 0 means one or more,
// -1 means any number including none.
func (g Gate) Arity() int { return kinds[g.kind].arity }

// Equal compares kind and angle, the latter within Tolerance and modulo the
// kind's period.
func (g Gate) Equal(o Gate) bool {
	if g.kind != o.kind {
		return false
	}
	if !g.Parameterized() {
		return true
	}
	d := math.Abs(g.angle - o.angle)
	return d < Tolerance || kinds[g.kind].period-d < Tolerance
}

// Inverse returns the adjoint gate. Entangle and classical instructions have
// no inverse.
func (g Gate) Inverse() (Gate, bool) {
	switch g.kind {
	case KindH, KindX, KindY, KindZ, KindSwap:
		return g, true
	case KindS:
		return Sdag, true
	case KindSdag:
		return S, true
	case KindT:
		return Tdag, true
	case KindTdag:
		return T, true
	case KindRx, KindRy, KindRz, KindR, KindPh:
		return Rotation(g.kind, -g.angle), true
	}
	return Gate{}, false
}

func (g Gate) String() string {
	info, ok := kinds[g.kind]
	if !ok {
		return strings.ToUpper(string(g.kind))
	}
	if info.period > 0 {
		return fmt.Sprintf("%s(%g)", info.display, g.angle)
	}
	return info.display
}
