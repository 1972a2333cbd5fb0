// Package rules holds decomposition rules and the ordered registry the
// rewrite engine selects them from.
package rules

import (
	"github.com/HershLalwani/qlower/internal/ops"
)

// AnyKind registers a rule for every non-classical gate kind. Such rules
// interleave with kind-specific rules by registration order.
const AnyKind ops.Kind = "*"

// Rule rewrites one command into an equivalent, lower-level sequence.
// Recognize and Rewrite must be deterministic and free of side effects
// visible to the engine. The one allowed effect is drawing work-qubit IDs
// from an allocator; IDs spent by a discarded attempt are never reused.
type Rule struct {
	// Name identifies the rule in logs and metrics.
	Name string

	// Recognize narrows applicability beyond the gate kind, e.g. "exactly
	// one control". A nil Recognize accepts every command of the kind.
	Recognize func(cmd ops.Command) bool

	// Rewrite produces the replacement sequence. It must never return the
	// command itself unchanged.
	Rewrite func(cmd ops.Command) ([]ops.Command, error)
}

// Recognizes reports whether the rule applies to cmd.
func (r Rule) Recognizes(cmd ops.Command) bool {
	return r.Recognize == nil || r.Recognize(cmd)
}

// Registration binds a rule to the gate kind it decomposes.
type Registration struct {
	Kind ops.Kind
	Rule Rule
}

// Module is a named, reusable group of registrations.
type Module struct {
	Name          string
	Description   string
	Registrations []Registration
}

// Kinds lists the gate kinds the module registers for, in order, without
// duplicates.
func (m Module) Kinds() []ops.Kind {
	seen := map[ops.Kind]bool{}
	var out []ops.Kind
	for _, reg := range m.Registrations {
		if !seen[reg.Kind] {
			seen[reg.Kind] = true
			out = append(out, reg.Kind)
		}
	}
	return out
}

type entry struct {
	seq  int
	rule Rule
}

// Registry maps gate kinds to candidate rules. Registration order is
// priority order: the first registered rule is tried first. Registries are
// built once and then only read.
type Registry struct {
	byKind map[ops.Kind][]entry
	any    []entry
	seq    int
}

// NewRegistry builds a registry from modules, in the order given.
func NewRegistry(modules ...Module) *Registry {
	r := &Registry{byKind: make(map[ops.Kind][]entry)}
	r.Add(modules...)
	return r
}

// Register appends rule to the candidates for kind.
func (r *Registry) Register(kind ops.Kind, rule Rule) {
	e := entry{seq: r.seq, rule: rule}
	r.seq++
	if kind == AnyKind {
		r.any = append(r.any, e)
		return
	}
	if r.byKind == nil {
		r.byKind = make(map[ops.Kind][]entry)
	}
	r.byKind[kind] = append(r.byKind[kind], e)
}

// Add registers every rule of every module, in order.
func (r *Registry) Add(modules ...Module) {
	for _, m := range modules {
		for _, reg := range m.Registrations {
			r.Register(reg.Kind, reg.Rule)
		}
	}
}

// Merge appends the rules of others after the rules already present. Rules
// keep their relative order within each registry.
func (r *Registry) Merge(others ...*Registry) {
	for _, o := range others {
		for _, kr := range o.ordered() {
			r.Register(kr.Kind, kr.Rule)
		}
	}
}

// Lookup returns the candidates for kind in priority order. An empty result
// means no known decomposition and is not an error.
func (r *Registry) Lookup(kind ops.Kind) []Rule {
	if kind.Classical() {
		return nil
	}
	specific := r.byKind[kind]
	out := make([]Rule, 0, len(specific)+len(r.any))
	i, j := 0, 0
	for i < len(specific) || j < len(r.any) {
		if j >= len(r.any) || (i < len(specific) && specific[i].seq < r.any[j].seq) {
			out = append(out, specific[i].rule)
			i++
		} else {
			out = append(out, r.any[j].rule)
			j++
		}
	}
	return out
}

// Len is the total number of registered rules.
func (r *Registry) Len() int {
	return r.seq
}

// Names lists rule names in registration order.
func (r *Registry) Names() []string {
	regs := r.ordered()
	names := make([]string, len(regs))
	for i, kr := range regs {
		names[i] = kr.Rule.Name
	}
	return names
}

func (r *Registry) ordered() []Registration {
	out := make([]Registration, r.seq)
	for kind, entries := range r.byKind {
		for _, e := range entries {
			out[e.seq] = Registration{Kind: kind, Rule: e.rule}
		}
	}
	for _, e := range r.any {
		out[e.seq] = Registration{Kind: AnyKind, Rule: e.rule}
	}
	return out
}
