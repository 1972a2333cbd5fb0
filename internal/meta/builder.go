package meta

import (
	"github.com/pkg/errors"

	"github.com/HershLalwani/qlower/internal/ops"
)

// Builder records the replacement sequence of a rewrite. The first error is
// kept and every later call becomes a no-op, so rewrites can emit a whole
// sequence and check once at the end.
type Builder struct {
	ctrl Injector
	cmds []ops.Command
	err  error
}

// NewBuilder returns a builder whose outermost scope is controlled by
// controls, which is how a rewrite keeps the controls of the command it
// replaces.
func NewBuilder(controls ...ops.Qubit) *Builder {
	b := &Builder{}
	if len(controls) > 0 {
		b.ctrl.Enter(controls...)
	}
	return b
}

// Control opens a nested scope. Call the returned function to close it.
func (b *Builder) Control(qs ...ops.Qubit) (exit func()) {
	return b.ctrl.Enter(qs...)
}

// WithControl runs fn inside a nested scope controlled by qs.
func (b *Builder) WithControl(qs []ops.Qubit, fn func()) {
	exit := b.ctrl.Enter(qs...)
	defer exit()
	fn()
}

// Apply records g on targets under the active controls.
func (b *Builder) Apply(g ops.Gate, targets ...ops.Qubit) {
	b.ApplyControlled(g, nil, targets...)
}

// ApplyControlled records g with explicit controls on top of the active ones.
func (b *Builder) ApplyControlled(g ops.Gate, controls []ops.Qubit, targets ...ops.Qubit) {
	if b.err != nil {
		return
	}
	cmd, err := b.ctrl.NewCommand(g, targets, controls)
	if err != nil {
		b.err = errors.Wrapf(err, "emit %s", g)
		return
	}
	b.cmds = append(b.cmds, cmd)
}

// ApplyAll records g once per qubit.
func (b *Builder) ApplyAll(g ops.Gate, qs []ops.Qubit) {
	for _, q := range qs {
		b.Apply(g, q)
	}
}

// Emit records an already built command, adding the active controls.
func (b *Builder) Emit(cmd ops.Command) {
	if b.err != nil {
		return
	}
	if cmd.Gate().Classical() {
		b.cmds = append(b.cmds, cmd)
		return
	}
	controlled, err := cmd.WithControls(b.ctrl.Active()...)
	if err != nil {
		b.err = errors.Wrapf(err, "emit %s", cmd.Gate())
		return
	}
	b.cmds = append(b.cmds, controlled)
}

// Len is the number of commands recorded so far.
func (b *Builder) Len() int {
	return len(b.cmds)
}

// Commands returns the recorded sequence or the first error.
func (b *Builder) Commands() ([]ops.Command, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cmds, nil
}
