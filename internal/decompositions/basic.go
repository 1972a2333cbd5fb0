// Package decompositions is the library of rewrite rules, grouped into
// named modules that configurations select and order.
package decompositions

import (
	"math"

	"github.com/HershLalwani/qlower/internal/meta"
	"github.com/HershLalwani/qlower/internal/ops"
	"github.com/HershLalwani/qlower/internal/rules"
)

func withControls(min int) func(ops.Command) bool {
	return func(cmd ops.Command) bool { return cmd.ControlCount() >= min }
}

func exactControls(n int) func(ops.Command) bool {
	return func(cmd ops.Command) bool { return cmd.ControlCount() == n }
}

// Entangle is H on the first qubit followed by a CNOT fan-out onto the rest.
var Entangle = rules.Module{
	Name:        "entangle",
	Description: "Entangle into H and CNOT fan-out",
	Registrations: []rules.Registration{{
		Kind: ops.KindEntangle,
		Rule: rules.Rule{
			Name: "entangle",
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				qs := cmd.Targets()
				b := meta.NewBuilder(cmd.Controls()...)
				b.Apply(ops.H, qs[0])
				b.WithControl(qs[:1], func() {
					b.ApplyAll(ops.X, qs[1:])
				})
				return b.Commands()
			},
		},
	}},
}

// GlobalPhase drops uncontrolled global phases, which are unobservable.
var GlobalPhase = rules.Module{
	Name:        "globalphase",
	Description: "remove uncontrolled global phase",
	Registrations: []rules.Registration{{
		Kind: ops.KindPh,
		Rule: rules.Rule{
			Name:      "globalphase",
			Recognize: exactControls(0),
			Rewrite: func(ops.Command) ([]ops.Command, error) {
				return []ops.Command{}, nil
			},
		},
	}},
}

// PhToR turns a controlled global phase into a phase shift on the first
// control, controlled by the remaining ones.
var PhToR = rules.Module{
	Name:        "ph2r",
	Description: "controlled Ph into R on a control qubit",
	Registrations: []rules.Registration{{
		Kind: ops.KindPh,
		Rule: rules.Rule{
			Name:      "ph2r",
			Recognize: withControls(1),
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				ctrl := cmd.Controls()
				b := meta.NewBuilder(ctrl[1:]...)
				b.Apply(ops.R(cmd.Gate().Angle()), ctrl[0])
				return b.Commands()
			},
		},
	}},
}

// RToRzAndPh uses R(a) = Ph(a/2) Rz(a).
var RToRzAndPh = rules.Module{
	Name:        "r2rzandph",
	Description: "R into Rz and Ph",
	Registrations: []rules.Registration{{
		Kind: ops.KindR,
		Rule: rules.Rule{
			Name: "r2rzandph",
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				a := cmd.Gate().Angle()
				b := meta.NewBuilder(cmd.Controls()...)
				b.Apply(ops.Ph(a/2), cmd.Target(0))
				b.Apply(ops.Rz(a), cmd.Target(0))
				return b.Commands()
			},
		},
	}},
}

// RxToRz conjugates Rz with H.
var RxToRz = rules.Module{
	Name:        "rx2rz",
	Description: "Rx into H, Rz, H",
	Registrations: []rules.Registration{{
		Kind: ops.KindRx,
		Rule: rules.Rule{
			Name: "rx2rz",
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				q := cmd.Target(0)
				b := meta.NewBuilder()
				b.Apply(ops.H, q)
				b.ApplyControlled(ops.Rz(cmd.Gate().Angle()), cmd.Controls(), q)
				b.Apply(ops.H, q)
				return b.Commands()
			},
		},
	}},
}

// RyToRz conjugates Rz with Rx(pi/2).
var RyToRz = rules.Module{
	Name:        "ry2rz",
	Description: "Ry into Rx(pi/2), Rz, Rx(-pi/2)",
	Registrations: []rules.Registration{{
		Kind: ops.KindRy,
		Rule: rules.Rule{
			Name: "ry2rz",
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				q := cmd.Target(0)
				b := meta.NewBuilder()
				b.Apply(ops.Rx(math.Pi/2), q)
				b.ApplyControlled(ops.Rz(cmd.Gate().Angle()), cmd.Controls(), q)
				b.Apply(ops.Rx(-math.Pi/2), q)
				return b.Commands()
			},
		},
	}},
}

// CRzToCXAndRz splits a controlled Rz into two half rotations around a pair
// of multi-controlled NOTs.
var CRzToCXAndRz = rules.Module{
	Name:        "crz2cxandrz",
	Description: "controlled Rz into CNOT and Rz",
	Registrations: []rules.Registration{{
		Kind: ops.KindRz,
		Rule: rules.Rule{
			Name:      "crz2cxandrz",
			Recognize: withControls(1),
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				a := cmd.Gate().Angle()
				q := cmd.Target(0)
				ctrl := cmd.Controls()
				b := meta.NewBuilder()
				b.Apply(ops.Rz(a/2), q)
				b.ApplyControlled(ops.X, ctrl, q)
				b.Apply(ops.Rz(-a/2), q)
				b.ApplyControlled(ops.X, ctrl, q)
				return b.Commands()
			},
		},
	}},
}

// SwapToCNOT is three CNOTs; only the middle one carries the controls.
var SwapToCNOT = rules.Module{
	Name:        "swap2cnot",
	Description: "Swap into three CNOTs",
	Registrations: []rules.Registration{{
		Kind: ops.KindSwap,
		Rule: rules.Rule{
			Name: "swap2cnot",
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				a, c := cmd.Target(0), cmd.Target(1)
				b := meta.NewBuilder()
				b.ApplyControlled(ops.X, []ops.Qubit{a}, c)
				b.WithControl(cmd.Controls(), func() {
					b.ApplyControlled(ops.X, []ops.Qubit{c}, a)
				})
				b.ApplyControlled(ops.X, []ops.Qubit{a}, c)
				return b.Commands()
			},
		},
	}},
}

// CNOTToCZ conjugates CZ with H on the target.
var CNOTToCZ = rules.Module{
	Name:        "cnot2cz",
	Description: "CNOT into H, CZ, H",
	Registrations: []rules.Registration{{
		Kind: ops.KindX,
		Rule: rules.Rule{
			Name:      "cnot2cz",
			Recognize: exactControls(1),
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				q := cmd.Target(0)
				b := meta.NewBuilder()
				b.Apply(ops.H, q)
				b.ApplyControlled(ops.Z, cmd.Controls(), q)
				b.Apply(ops.H, q)
				return b.Commands()
			},
		},
	}},
}

// Toffoli is the standard Clifford+T network for a doubly controlled NOT.
var Toffoli = rules.Module{
	Name:        "toffoli2cnotandtgate",
	Description: "Toffoli into CNOT, H and T gates",
	Registrations: []rules.Registration{{
		Kind: ops.KindX,
		Rule: rules.Rule{
			Name:      "toffoli2cnotandtgate",
			Recognize: exactControls(2),
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				ctrl := cmd.Controls()
				c1, c2, t := ctrl[0], ctrl[1], cmd.Target(0)
				b := meta.NewBuilder()
				cx := func(c, x ops.Qubit) { b.ApplyControlled(ops.X, []ops.Qubit{c}, x) }

				b.Apply(ops.H, t)
				cx(c1, t)
				b.Apply(ops.T, c1)
				b.Apply(ops.Tdag, t)
				cx(c2, t)
				cx(c2, c1)
				b.Apply(ops.Tdag, c1)
				b.Apply(ops.T, t)
				cx(c2, c1)
				cx(c1, t)
				b.Apply(ops.Tdag, t)
				cx(c2, t)
				b.Apply(ops.T, t)
				b.Apply(ops.T, c2)
				b.Apply(ops.H, t)
				return b.Commands()
			},
		},
	}},
}

// phaseAngles gives the R angle of each diagonal Clifford+T gate.
var phaseAngles = map[ops.Kind]float64{
	ops.KindZ:    math.Pi,
	ops.KindS:    math.Pi / 2,
	ops.KindSdag: -math.Pi / 2,
	ops.KindT:    math.Pi / 4,
	ops.KindTdag: -math.Pi / 4,
}

// DiagonalToR rewrites Z, S, Sdag, T and Tdag as the phase shift they are.
// Controls carry over.
var DiagonalToR = rules.Module{
	Name:        "diag2r",
	Description: "Z, S, Sdag, T and Tdag into R",
	Registrations: func() []rules.Registration {
		var regs []rules.Registration
		for _, k := range []ops.Kind{ops.KindZ, ops.KindS, ops.KindSdag, ops.KindT, ops.KindTdag} {
			regs = append(regs, rules.Registration{
				Kind: k,
				Rule: rules.Rule{
					Name: "diag2r",
					Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
						b := meta.NewBuilder(cmd.Controls()...)
						b.Apply(ops.R(phaseAngles[cmd.Gate().Kind()]), cmd.Target(0))
						return b.Commands()
					},
				},
			})
		}
		return regs
	}(),
}

// XToHZH conjugates Z with H for a bare X.
var XToHZH = rules.Module{
	Name:        "x2hzh",
	Description: "uncontrolled X into H, Z, H",
	Registrations: []rules.Registration{{
		Kind: ops.KindX,
		Rule: rules.Rule{
			Name:      "x2hzh",
			Recognize: exactControls(0),
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				q := cmd.Target(0)
				b := meta.NewBuilder()
				b.Apply(ops.H, q)
				b.Apply(ops.Z, q)
				b.Apply(ops.H, q)
				return b.Commands()
			},
		},
	}},
}

// YToX uses Y = S X Sdag. Only the X keeps the controls.
var YToX = rules.Module{
	Name:        "y2sxsdag",
	Description: "Y into Sdag, X, S",
	Registrations: []rules.Registration{{
		Kind: ops.KindY,
		Rule: rules.Rule{
			Name: "y2sxsdag",
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				q := cmd.Target(0)
				b := meta.NewBuilder()
				b.Apply(ops.Sdag, q)
				b.ApplyControlled(ops.X, cmd.Controls(), q)
				b.Apply(ops.S, q)
				return b.Commands()
			},
		},
	}},
}

// CHToRyAndX uses H = X Ry(pi/2), so a controlled H is a controlled
// Ry(pi/2) followed by a controlled X.
var CHToRyAndX = rules.Module{
	Name:        "ch2ryandx",
	Description: "controlled H into controlled Ry(pi/2) and X",
	Registrations: []rules.Registration{{
		Kind: ops.KindH,
		Rule: rules.Rule{
			Name:      "ch2ryandx",
			Recognize: withControls(1),
			Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
				q := cmd.Target(0)
				b := meta.NewBuilder(cmd.Controls()...)
				b.Apply(ops.Ry(math.Pi/2), q)
				b.Apply(ops.X, q)
				return b.Commands()
			},
		},
	}},
}
