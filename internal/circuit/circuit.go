// Package circuit is the user-facing construction API. A Circuit issues
// qubits, tracks control scopes and sends every command it builds into the
// head of a pipeline.
package circuit

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/HershLalwani/qlower/internal/engine"
	"github.com/HershLalwani/qlower/internal/meta"
	"github.com/HershLalwani/qlower/internal/ops"
)

// ErrNotAllocated is returned for a command on a qubit this circuit does not
// own.
var ErrNotAllocated = errors.New("qubit not allocated")

// Option configures a Circuit.
type Option func(*Circuit)

// WithAllocator shares an allocation authority, e.g. with rules that need
// work qubits.
func WithAllocator(a *ops.Allocator) Option {
	return func(c *Circuit) {
		if a != nil {
			c.alloc = a
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Circuit) {
		if l != nil {
			c.log = l
		}
	}
}

// Circuit is a construction context. It is not safe for concurrent use.
type Circuit struct {
	head  engine.Sink
	alloc *ops.Allocator
	ctrl  meta.Injector
	live  map[ops.Qubit]bool
	order []ops.Qubit
	log   *zap.Logger
}

// New returns a circuit sending its commands to head.
func New(head engine.Sink, opts ...Option) *Circuit {
	c := &Circuit{
		head:  head,
		alloc: ops.NewAllocator(),
		live:  make(map[ops.Qubit]bool),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Allocator returns the allocation authority of the circuit.
func (c *Circuit) Allocator() *ops.Allocator {
	return c.alloc
}

// Live lists the allocated qubits in allocation order.
func (c *Circuit) Live() []ops.Qubit {
	return append([]ops.Qubit(nil), c.order...)
}

// AllocateQubit allocates a single qubit.
func (c *Circuit) AllocateQubit() (ops.Qubit, error) {
	qs, err := c.AllocateQureg(1)
	if err != nil {
		return ops.Qubit{}, err
	}
	return qs[0], nil
}

// AllocateQureg allocates n qubits sharing one register.
func (c *Circuit) AllocateQureg(n int) ([]ops.Qubit, error) {
	if n <= 0 {
		return nil, errors.Errorf("allocate %d qubits", n)
	}
	qs := c.alloc.Allocate(n)
	for _, q := range qs {
		if err := c.send(ops.Allocate, []ops.Qubit{q}, nil); err != nil {
			return nil, err
		}
		c.live[q] = true
		c.order = append(c.order, q)
	}
	c.log.Debug("register allocated", zap.Int("qubits", n), zap.Stringer("register", qs[0].Register))
	return qs, nil
}

// Deallocate releases qubits. Backends may require them to be classical.
func (c *Circuit) Deallocate(qs ...ops.Qubit) error {
	for _, q := range qs {
		if !c.live[q] {
			return errors.Wrapf(ErrNotAllocated, "deallocate %s", q)
		}
		if err := c.send(ops.Deallocate, []ops.Qubit{q}, nil); err != nil {
			return err
		}
		delete(c.live, q)
		for i, x := range c.order {
			if x == q {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Apply applies g to targets under the active controls.
func (c *Circuit) Apply(g ops.Gate, targets ...ops.Qubit) error {
	return c.send(g, targets, nil)
}

// ApplyAll applies g to every qubit separately.
func (c *Circuit) ApplyAll(g ops.Gate, qs []ops.Qubit) error {
	for _, q := range qs {
		if err := c.send(g, []ops.Qubit{q}, nil); err != nil {
			return err
		}
	}
	return nil
}

// ApplyControlled applies g with explicit controls on top of the active ones.
func (c *Circuit) ApplyControlled(g ops.Gate, controls []ops.Qubit, targets ...ops.Qubit) error {
	return c.send(g, targets, controls)
}

// ApplyTagged applies g and attaches tags to the command.
func (c *Circuit) ApplyTagged(g ops.Gate, tags []ops.Tag, targets ...ops.Qubit) error {
	return c.send(g, targets, nil, tags...)
}

// Measure measures each qubit. Outcomes are read from the backend.
func (c *Circuit) Measure(qs ...ops.Qubit) error {
	for _, q := range qs {
		if err := c.send(ops.Measure, []ops.Qubit{q}, nil); err != nil {
			return err
		}
	}
	return nil
}

// Barrier keeps later stages from reordering across this point on qs.
func (c *Circuit) Barrier(qs ...ops.Qubit) error {
	return c.send(ops.Barrier, qs, nil)
}

// Flush sends a flush instruction through the pipeline.
func (c *Circuit) Flush() error {
	return c.send(ops.Flush, nil, nil)
}

// Control opens a scope in which every gate is additionally controlled by
// qs. Call the returned function to close it.
func (c *Circuit) Control(qs ...ops.Qubit) (exit func()) {
	return c.ctrl.Enter(qs...)
}

// WithControl runs fn inside a scope controlled by qs. The scope is closed
// on every exit path.
func (c *Circuit) WithControl(qs []ops.Qubit, fn func() error) error {
	return c.ctrl.Do(qs, fn)
}

func (c *Circuit) send(g ops.Gate, targets, controls []ops.Qubit, tags ...ops.Tag) error {
	cmd, err := c.ctrl.NewCommand(g, targets, controls, tags...)
	if err != nil {
		return err
	}
	if g.Kind() != ops.KindAllocate {
		for _, q := range cmd.Qubits() {
			if !c.live[q] {
				return errors.Wrapf(ErrNotAllocated, "%s", cmd)
			}
		}
	}
	return c.head.Receive(cmd)
}
