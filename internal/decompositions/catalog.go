package decompositions

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qlower/internal/ops"
	"github.com/HershLalwani/qlower/internal/rules"
)

// ErrUnknownModule is returned for a module name missing from the catalog.
var ErrUnknownModule = errors.New("unknown decomposition module")

// DefaultOrder is the module priority used when a configuration names none.
var DefaultOrder = []string{
	"entangle",
	"globalphase",
	"ph2r",
	"r2rzandph",
	"rx2rz",
	"ry2rz",
	"crz2cxandrz",
	"swap2cnot",
	"diag2r",
	"x2hzh",
	"y2sxsdag",
	"ch2ryandx",
	"toffoli2cnotandtgate",
	"cnu2toffoliandcu",
	"cnot2cz",
}

// Catalog maps module names to modules. alloc backs rules that need work
// qubits.
func Catalog(alloc *ops.Allocator) map[string]rules.Module {
	mods := []rules.Module{
		Entangle,
		GlobalPhase,
		PhToR,
		RToRzAndPh,
		RxToRz,
		RyToRz,
		CRzToCXAndRz,
		SwapToCNOT,
		DiagonalToR,
		XToHZH,
		YToX,
		CHToRyAndX,
		Toffoli,
		CnUToToffoliAndCU(alloc),
		CNOTToCZ,
	}
	out := make(map[string]rules.Module, len(mods))
	for _, m := range mods {
		out[m.Name] = m
	}
	return out
}

// Names lists catalog module names alphabetically.
func Names() []string {
	names := make([]string, 0, len(DefaultOrder))
	for name := range Catalog(nil) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Modules resolves names against the catalog, keeping their order.
func Modules(alloc *ops.Allocator, names ...string) ([]rules.Module, error) {
	cat := Catalog(alloc)
	out := make([]rules.Module, 0, len(names))
	for _, name := range names {
		m, ok := cat[name]
		if !ok {
			return nil, errors.Wrap(ErrUnknownModule, name)
		}
		out = append(out, m)
	}
	return out, nil
}

// Registry builds a registry from the named modules. With no names it uses
// DefaultOrder.
func Registry(alloc *ops.Allocator, names ...string) (*rules.Registry, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}
	mods, err := Modules(alloc, names...)
	if err != nil {
		return nil, err
	}
	return rules.NewRegistry(mods...), nil
}
