package qasm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qlower/internal/ops"
)

// ErrUnsupported is returned by Export for a command with no QASM 2.0 form.
var ErrUnsupported = errors.New("command not expressible in OpenQASM 2.0")

var uncontrolledNames = map[ops.Kind]string{
	ops.KindH:    "h",
	ops.KindX:    "x",
	ops.KindY:    "y",
	ops.KindZ:    "z",
	ops.KindS:    "s",
	ops.KindSdag: "sdg",
	ops.KindT:    "t",
	ops.KindTdag: "tdg",
	ops.KindRx:   "rx",
	ops.KindRy:   "ry",
	ops.KindRz:   "rz",
	ops.KindR:    "u1",
	ops.KindSwap: "swap",
}

var singlyControlledNames = map[ops.Kind]string{
	ops.KindX:    "cx",
	ops.KindY:    "cy",
	ops.KindZ:    "cz",
	ops.KindH:    "ch",
	ops.KindRx:   "crx",
	ops.KindRy:   "cry",
	ops.KindRz:   "crz",
	ops.KindR:    "cu1",
	ops.KindSwap: "cswap",
}

// Index numbers qubits in order of first appearance in a command stream.
type Index struct {
	ids   map[ops.Qubit]int
	order []ops.Qubit
}

// NewIndex numbers every qubit used by cmds.
func NewIndex(cmds []ops.Command) *Index {
	ix := &Index{ids: make(map[ops.Qubit]int)}
	for _, cmd := range cmds {
		for _, q := range cmd.Qubits() {
			ix.add(q)
		}
	}
	return ix
}

func (ix *Index) add(q ops.Qubit) int {
	if id, ok := ix.ids[q]; ok {
		return id
	}
	id := len(ix.order)
	ix.ids[q] = id
	ix.order = append(ix.order, q)
	return id
}

// Of returns the index of q.
func (ix *Index) Of(q ops.Qubit) (int, bool) {
	id, ok := ix.ids[q]
	return id, ok
}

// Len is the number of indexed qubits.
func (ix *Index) Len() int {
	return len(ix.order)
}

// Export writes cmds as an OpenQASM 2.0 program over a single register q.
// Allocation, deallocation and flush produce no output; uncontrolled global
// phases are written as "// ph(...)" comments that Parse reads back.
func Export(cmds []ops.Command) (string, error) {
	ix := NewIndex(cmds)
	measures := 0
	for _, cmd := range cmds {
		if cmd.Gate().Kind() == ops.KindMeasure {
			measures++
		}
	}

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", max(ix.Len(), 1))
	if measures > 0 {
		fmt.Fprintf(&sb, "creg c[%d];\n", ix.Len())
	}
	sb.WriteString("\n")

	for _, cmd := range cmds {
		if err := writeCommand(&sb, ix, cmd); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func writeCommand(sb *strings.Builder, ix *Index, cmd ops.Command) error {
	g := cmd.Gate()
	ref := func(q ops.Qubit) string {
		id, _ := ix.Of(q)
		return fmt.Sprintf("q[%d]", id)
	}
	refs := func(qs []ops.Qubit) string {
		parts := make([]string, len(qs))
		for i, q := range qs {
			parts[i] = ref(q)
		}
		return strings.Join(parts, ", ")
	}

	switch g.Kind() {
	case ops.KindAllocate, ops.KindDeallocate, ops.KindFlush:
		return nil
	case ops.KindMeasure:
		id, _ := ix.Of(cmd.Target(0))
		fmt.Fprintf(sb, "measure q[%d] -> c[%d];\n", id, id)
		return nil
	case ops.KindBarrier:
		if len(cmd.Targets()) == 0 {
			sb.WriteString("barrier q;\n")
			return nil
		}
		fmt.Fprintf(sb, "barrier %s;\n", refs(cmd.Targets()))
		return nil
	case ops.KindPh:
		if cmd.ControlCount() > 0 {
			return errors.Wrap(ErrUnsupported, cmd.String())
		}
		fmt.Fprintf(sb, "// ph(%s) %s\n", FormatAngle(signedAngle(g)), ref(cmd.Target(0)))
		return nil
	case ops.KindEntangle:
		return errors.Wrap(ErrUnsupported, cmd.String())
	}

	var name string
	switch n := cmd.ControlCount(); {
	case n == 0:
		name = uncontrolledNames[g.Kind()]
	case n == 1:
		name = singlyControlledNames[g.Kind()]
	case n == 2 && g.Kind() == ops.KindX:
		name = "ccx"
	}
	if name == "" {
		return errors.Wrap(ErrUnsupported, cmd.String())
	}

	if g.Parameterized() {
		name = fmt.Sprintf("%s(%s)", name, FormatAngle(signedAngle(g)))
	}
	operands := append(cmd.Controls(), cmd.Targets()...)
	fmt.Fprintf(sb, "%s %s;\n", name, refs(operands))
	return nil
}
