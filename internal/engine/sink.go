// Package engine implements the command pipeline: sinks, acceptance
// oracles and the backtracking rewrite engine that lowers commands to a
// target instruction set.
package engine

import (
	"github.com/pkg/errors"

	"github.com/HershLalwani/qlower/internal/ops"
)

var (
	// ErrNoApplicableDecomposition means no registered rule chain lowers a
	// command to the target set. Callers may recover by choosing another
	// rule set or oracle.
	ErrNoApplicableDecomposition = errors.New("no applicable decomposition")

	// ErrResourceExhaustion means rewriting went deeper than the configured
	// limit, which indicates a cyclic or malformed rule set. It is fatal and
	// never retried.
	ErrResourceExhaustion = errors.New("rewrite depth limit exceeded")

	// ErrRejected is returned by a Filter for a command outside its target set.
	ErrRejected = errors.New("command rejected by target set")
)

// Sink consumes fully processed commands.
type Sink interface {
	Receive(cmd ops.Command) error
}

// Oracle decides whether a command belongs to a target instruction set.
type Oracle interface {
	Accepts(cmd ops.Command) bool
}

// Backend is a sink that also knows which commands it can consume.
type Backend interface {
	Sink
	Oracle
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(cmd ops.Command) error

func (f SinkFunc) Receive(cmd ops.Command) error { return f(cmd) }

// OracleFunc adapts a predicate to Oracle.
type OracleFunc func(cmd ops.Command) bool

func (f OracleFunc) Accepts(cmd ops.Command) bool { return f(cmd) }

// AcceptAll accepts every command.
var AcceptAll Oracle = OracleFunc(func(ops.Command) bool { return true })

// Accepts applies o with the classical-instruction guarantee: allocation,
// deallocation, measurement, flush and barrier are always accepted.
func Accepts(o Oracle, cmd ops.Command) bool {
	return cmd.Gate().Classical() || o.Accepts(cmd)
}

// Discard drops every command.
var Discard Sink = SinkFunc(func(ops.Command) error { return nil })

// Recorder keeps every command it receives and forwards it to Next when set.
type Recorder struct {
	Next     Sink
	received []ops.Command
}

// NewRecorder returns a recorder forwarding to next, which may be nil.
func NewRecorder(next Sink) *Recorder {
	return &Recorder{Next: next}
}

func (r *Recorder) Receive(cmd ops.Command) error {
	r.received = append(r.received, cmd)
	if r.Next == nil {
		return nil
	}
	return r.Next.Receive(cmd)
}

// Commands returns a copy of everything received so far.
func (r *Recorder) Commands() []ops.Command {
	return append([]ops.Command(nil), r.received...)
}

// Count returns how many received commands have kind k.
func (r *Recorder) Count(k ops.Kind) int {
	n := 0
	for _, c := range r.received {
		if c.Gate().Kind() == k {
			n++
		}
	}
	return n
}

// Reset forgets recorded commands.
func (r *Recorder) Reset() {
	r.received = nil
}

// Filter forwards commands its oracle accepts and rejects the rest. It is
// the guard placed in front of a backend to prove a lowered stream stays
// inside the target set.
type Filter struct {
	oracle Oracle
	next   Sink
}

func NewFilter(oracle Oracle, next Sink) *Filter {
	if oracle == nil {
		oracle = AcceptAll
	}
	if next == nil {
		next = Discard
	}
	return &Filter{oracle: oracle, next: next}
}

func (f *Filter) Accepts(cmd ops.Command) bool {
	return Accepts(f.oracle, cmd)
}

func (f *Filter) Receive(cmd ops.Command) error {
	if !f.Accepts(cmd) {
		return errors.Wrap(ErrRejected, cmd.String())
	}
	return f.next.Receive(cmd)
}
