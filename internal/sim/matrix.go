package sim

import (
	"math"
	"math/cmplx"

	"github.com/HershLalwani/qlower/internal/ops"
)

// Matrix is a single-qubit unitary in row-major order.
type Matrix [2][2]complex128

var (
	hFactor = complex(1/math.Sqrt2, 0)

	matH    = Matrix{{hFactor, hFactor}, {hFactor, -hFactor}}
	matX    = Matrix{{0, 1}, {1, 0}}
	matY    = Matrix{{0, -1i}, {1i, 0}}
	matZ    = Matrix{{1, 0}, {0, -1}}
	matS    = Matrix{{1, 0}, {0, 1i}}
	matSdag = Matrix{{1, 0}, {0, -1i}}
	matT    = Matrix{{1, 0}, {0, cmplx.Exp(complex(0, math.Pi/4))}}
	matTdag = Matrix{{1, 0}, {0, cmplx.Exp(complex(0, -math.Pi/4))}}
)

// MatrixOf returns the unitary of a single-qubit gate. Swap, Entangle and
// classical instructions have none.
func MatrixOf(g ops.Gate) (Matrix, bool) {
	theta := g.Angle()
	switch g.Kind() {
	case ops.KindH:
		return matH, true
	case ops.KindX:
		return matX, true
	case ops.KindY:
		return matY, true
	case ops.KindZ:
		return matZ, true
	case ops.KindS:
		return matS, true
	case ops.KindSdag:
		return matSdag, true
	case ops.KindT:
		return matT, true
	case ops.KindTdag:
		return matTdag, true
	case ops.KindRx:
		c := complex(math.Cos(theta/2), 0)
		js := complex(0, -math.Sin(theta/2))
		return Matrix{{c, js}, {js, c}}, true
	case ops.KindRy:
		c := complex(math.Cos(theta/2), 0)
		s := complex(math.Sin(theta/2), 0)
		return Matrix{{c, -s}, {s, c}}, true
	case ops.KindRz:
		phase := cmplx.Exp(complex(0, theta/2))
		return Matrix{{cmplx.Conj(phase), 0}, {0, phase}}, true
	case ops.KindR:
		return Matrix{{1, 0}, {0, cmplx.Exp(complex(0, theta))}}, true
	case ops.KindPh:
		phase := cmplx.Exp(complex(0, theta))
		return Matrix{{phase, 0}, {0, phase}}, true
	}
	return Matrix{}, false
}
