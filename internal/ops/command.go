package ops

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedCommand is returned when a command violates its construction
// invariants. It is never coerced into a valid command.
var ErrMalformedCommand = errors.New("malformed command")

// Tag is an opaque marker carried along with a command.
type Tag string

// Command is one gate application. Commands are immutable: every accessor
// returns a copy and rewrites produce new commands.
type Command struct {
	gate     Gate
	targets  []Qubit
	controls []Qubit
	tags     []Tag
}

// NewCommand validates and builds a command. Controls are stored ordered by
// qubit ID; target order is kept since it defines operand roles.
func NewCommand(g Gate, targets, controls []Qubit, tags ...Tag) (Command, error) {
	if !g.Kind().Known() {
		return Command{}, errors.Wrapf(ErrMalformedCommand, "unknown gate kind %q", g.Kind())
	}
	switch arity := g.Arity(); {
	case arity > 0 && len(targets) != arity:
		return Command{}, errors.Wrapf(ErrMalformedCommand, "%s needs %d target(s), got %d", g, arity, len(targets))
	case arity == 0 && len(targets) == 0:
		return Command{}, errors.Wrapf(ErrMalformedCommand, "%s needs at least one target", g)
	}
	if g.Classical() && len(controls) > 0 {
		return Command{}, errors.Wrapf(ErrMalformedCommand, "classical instruction %s cannot be controlled", g)
	}
	if q, ok := firstDuplicate(targets); ok {
		return Command{}, errors.Wrapf(ErrMalformedCommand, "qubit %s appears twice in targets", q)
	}
	if q, ok := firstDuplicate(controls); ok {
		return Command{}, errors.Wrapf(ErrMalformedCommand, "qubit %s appears twice in controls", q)
	}
	for _, c := range controls {
		if ContainsQubit(targets, c) {
			return Command{}, errors.Wrapf(ErrMalformedCommand, "qubit %s is both control and target", c)
		}
	}

	cmd := Command{
		gate:    g,
		targets: append([]Qubit(nil), targets...),
	}
	if len(controls) > 0 {
		cmd.controls = append([]Qubit(nil), controls...)
		sortQubits(cmd.controls)
	}
	if len(tags) > 0 {
		cmd.tags = append([]Tag(nil), tags...)
	}
	return cmd, nil
}

// MustCommand is NewCommand for statically valid commands. It panics on error.
func MustCommand(g Gate, targets, controls []Qubit, tags ...Tag) Command {
	cmd, err := NewCommand(g, targets, controls, tags...)
	if err != nil {
		panic(err)
	}
	return cmd
}

func firstDuplicate(qs []Qubit) (Qubit, bool) {
	seen := make(map[Qubit]bool, len(qs))
	for _, q := range qs {
		if seen[q] {
			return q, true
		}
		seen[q] = true
	}
	return Qubit{}, false
}

func (c Command) Gate() Gate { return c.gate }

func (c Command) Targets() []Qubit { return append([]Qubit(nil), c.targets...) }

func (c Command) Controls() []Qubit { return append([]Qubit(nil), c.controls...) }

func (c Command) Tags() []Tag { return append([]Tag(nil), c.tags...) }

func (c Command) ControlCount() int { return len(c.controls) }

// Target returns the i-th target.
func (c Command) Target(i int) Qubit { return c.targets[i] }

// Qubits returns targets followed by controls.
func (c Command) Qubits() []Qubit {
	out := make([]Qubit, 0, len(c.targets)+len(c.controls))
	out = append(out, c.targets...)
	return append(out, c.controls...)
}

// HasTag reports whether the command carries t.
func (c Command) HasTag(t Tag) bool {
	for _, x := range c.tags {
		if x == t {
			return true
		}
	}
	return false
}

// WithControls returns a copy whose controls are the union of the current
// controls and extra.
func (c Command) WithControls(extra ...Qubit) (Command, error) {
	if len(extra) == 0 {
		return c, nil
	}
	return NewCommand(c.gate, c.targets, UnionQubits(c.controls, extra), c.tags...)
}

func (c Command) String() string {
	var sb strings.Builder
	if len(c.controls) > 0 {
		fmt.Fprintf(&sb, "C%d(%s) | (", len(c.controls), c.gate)
		sb.WriteString(joinQubits(c.controls))
		sb.WriteString("; ")
	} else {
		fmt.Fprintf(&sb, "%s | (", c.gate)
	}
	sb.WriteString(joinQubits(c.targets))
	sb.WriteString(")")
	return sb.String()
}

func joinQubits(qs []Qubit) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = q.String()
	}
	return strings.Join(parts, ", ")
}
