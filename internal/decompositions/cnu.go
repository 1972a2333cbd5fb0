package decompositions

import (
	"github.com/HershLalwani/qlower/internal/meta"
	"github.com/HershLalwani/qlower/internal/ops"
	"github.com/HershLalwani/qlower/internal/rules"
)

// recognizeCnU matches gates whose controls are worth reducing to a single
// one: more than two controls, or two controls on anything but X, which the
// Toffoli network handles directly.
func recognizeCnU(cmd ops.Command) bool {
	n := cmd.ControlCount()
	return n > 2 || (n == 2 && cmd.Gate().Kind() != ops.KindX)
}

// CnUToToffoliAndCU reduces an n-controlled gate to a Toffoli ladder over
// n-1 work qubits and a singly controlled gate. Work qubits are allocated
// from alloc, returned to |0> and deallocated within the replacement.
func CnUToToffoliAndCU(alloc *ops.Allocator) rules.Module {
	return rules.Module{
		Name:        "cnu2toffoliandcu",
		Description: "multi-controlled gate into Toffoli ladder and singly controlled gate",
		Registrations: []rules.Registration{{
			Kind: rules.AnyKind,
			Rule: rules.Rule{
				Name:      "cnu2toffoliandcu",
				Recognize: recognizeCnU,
				Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
					ctrl := cmd.Controls()
					work := alloc.Allocate(len(ctrl) - 1)

					b := meta.NewBuilder()
					for _, w := range work {
						b.Apply(ops.Allocate, w)
					}

					ladder := func(i int) {
						if i == 0 {
							b.ApplyControlled(ops.X, ctrl[:2], work[0])
							return
						}
						b.ApplyControlled(ops.X, []ops.Qubit{ctrl[i+1], work[i-1]}, work[i])
					}
					for i := range work {
						ladder(i)
					}
					b.ApplyControlled(cmd.Gate(), work[len(work)-1:], cmd.Targets()...)
					for i := len(work) - 1; i >= 0; i-- {
						ladder(i)
					}

					for _, w := range work {
						b.Apply(ops.Deallocate, w)
					}
					return b.Commands()
				},
			},
		}},
	}
}
