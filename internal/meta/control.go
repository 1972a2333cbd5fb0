// Package meta holds the scoped control injector and the command builder
// that decomposition rules emit their replacement sequences through.
package meta

import (
	"github.com/HershLalwani/qlower/internal/ops"
)

// Injector is a stack of control-qubit sets. While the stack is non-empty,
// every non-classical command built through it gets the union of all pushed
// sets added to its controls.
//
// An Injector belongs to one construction context and is not safe for
// concurrent use.
type Injector struct {
	stack [][]ops.Qubit
}

// Enter pushes qs and returns the function that pops it. The returned exit
// pops exactly one level no matter how often it is called. Entering with no
// qubits still pushes a (empty) level so enter/exit stay balanced.
func (in *Injector) Enter(qs ...ops.Qubit) (exit func()) {
	in.stack = append(in.stack, append([]ops.Qubit(nil), qs...))
	level := len(in.stack)
	done := false
	return func() {
		if done {
			return
		}
		done = true
		if len(in.stack) >= level {
			in.stack = in.stack[:level-1]
		}
	}
}

// Do runs fn inside a scope controlled by qs. The scope is left on every
// exit path, including a panic unwinding through fn.
func (in *Injector) Do(qs []ops.Qubit, fn func() error) error {
	exit := in.Enter(qs...)
	defer exit()
	return fn()
}

// Depth is the number of active scopes.
func (in *Injector) Depth() int {
	return len(in.stack)
}

// Active returns the union of every active control set, ordered by ID.
func (in *Injector) Active() []ops.Qubit {
	if len(in.stack) == 0 {
		return nil
	}
	return ops.UnionQubits(in.stack...)
}

// NewCommand builds a command with the active controls merged into controls.
// Classical instructions are built unchanged.
func (in *Injector) NewCommand(g ops.Gate, targets, controls []ops.Qubit, tags ...ops.Tag) (ops.Command, error) {
	cmd, err := ops.NewCommand(g, targets, controls, tags...)
	if err != nil || g.Classical() {
		return cmd, err
	}
	return cmd.WithControls(in.Active()...)
}
