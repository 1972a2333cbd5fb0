package engine

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/HershLalwani/qlower/internal/ops"
	"github.com/HershLalwani/qlower/internal/rules"
)

// DefaultMaxDepth bounds nested rewriting. Real rule sets stay far below it.
const DefaultMaxDepth = 256

// Stats counts what a Replacer has done since it was created.
type Stats struct {
	Received   int
	Forwarded  int
	Rewrites   int
	Backtracks int
	MaxDepth   int
	RuleUses   map[string]int
}

// Option configures a Replacer.
type Option func(*Replacer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Replacer) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMaxDepth sets the nesting limit past which ErrResourceExhaustion is
// returned.
func WithMaxDepth(n int) Option {
	return func(r *Replacer) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// Replacer lowers every received command until the oracle accepts it, then
// forwards the result to the next sink.
//
// For a rejected command the registered candidates are tried in priority
// order. The output of each candidate is buffered while its replacement
// sequence is lowered recursively; it is committed only when the whole
// sequence succeeds, otherwise it is dropped and the next candidate is
// tried. Nothing reaches the next sink until a received command is lowered
// completely.
//
// A Replacer is synchronous and not safe for concurrent use.
type Replacer struct {
	rules    *rules.Registry
	oracle   Oracle
	next     Sink
	log      *zap.Logger
	maxDepth int
	stats    Stats
}

// NewReplacer builds a rewrite stage in front of next. A nil registry has
// no rules, a nil oracle accepts everything and a nil next discards.
func NewReplacer(registry *rules.Registry, oracle Oracle, next Sink, opts ...Option) *Replacer {
	if registry == nil {
		registry = rules.NewRegistry()
	}
	if oracle == nil {
		oracle = AcceptAll
	}
	if next == nil {
		next = Discard
	}
	r := &Replacer{
		rules:    registry,
		oracle:   oracle,
		next:     next,
		log:      zap.NewNop(),
		maxDepth: DefaultMaxDepth,
		stats:    Stats{RuleUses: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Accepts reports whether cmd passes through without rewriting.
func (r *Replacer) Accepts(cmd ops.Command) bool {
	return Accepts(r.oracle, cmd)
}

// Receive lowers cmd and forwards the lowered sequence. On failure nothing
// has been forwarded for cmd.
func (r *Replacer) Receive(cmd ops.Command) error {
	r.stats.Received++

	var out []ops.Command
	if err := r.lower(cmd, 0, &out); err != nil {
		rewriteFailures.WithLabelValues(failureReason(err)).Inc()
		r.log.Debug("lowering failed", zap.Stringer("command", cmd), zap.Error(err))
		return err
	}

	for _, c := range out {
		if err := r.next.Receive(c); err != nil {
			rewriteFailures.WithLabelValues(reasonSinkError).Inc()
			return errors.Wrapf(err, "forward %s", c)
		}
	}
	r.stats.Forwarded += len(out)
	commandsForwarded.Add(float64(len(out)))
	return nil
}

// Stats returns a snapshot of the counters.
func (r *Replacer) Stats() Stats {
	s := r.stats
	s.RuleUses = make(map[string]int, len(r.stats.RuleUses))
	for k, v := range r.stats.RuleUses {
		s.RuleUses[k] = v
	}
	return s
}

func (r *Replacer) lower(cmd ops.Command, depth int, out *[]ops.Command) error {
	if depth > r.stats.MaxDepth {
		r.stats.MaxDepth = depth
	}
	if r.Accepts(cmd) {
		*out = append(*out, cmd)
		return nil
	}
	if depth >= r.maxDepth {
		return errors.Wrapf(ErrResourceExhaustion, "at depth %d lowering %s", depth, cmd)
	}

	candidates := r.rules.Lookup(cmd.Gate().Kind())
	if len(candidates) == 0 {
		return errors.Wrapf(ErrNoApplicableDecomposition, "%s: no rules registered", cmd)
	}

	tried := 0
	for _, rule := range candidates {
		if !rule.Recognizes(cmd) {
			continue
		}
		tried++

		replacement, err := rule.Rewrite(cmd)
		if err != nil {
			return errors.Wrapf(err, "rule %s on %s", rule.Name, cmd)
		}

		var buf []ops.Command
		err = r.lowerAll(replacement, depth+1, &buf)
		if err == nil {
			*out = append(*out, buf...)
			r.stats.Rewrites++
			r.stats.RuleUses[rule.Name]++
			ruleApplications.WithLabelValues(rule.Name).Inc()
			r.log.Debug("rule applied",
				zap.String("rule", rule.Name),
				zap.Stringer("command", cmd),
				zap.Int("depth", depth),
				zap.Int("emitted", len(buf)),
			)
			return nil
		}
		if !errors.Is(err, ErrNoApplicableDecomposition) {
			return err
		}

		r.stats.Backtracks++
		ruleBacktracks.WithLabelValues(rule.Name).Inc()
		r.log.Debug("candidate discarded",
			zap.String("rule", rule.Name),
			zap.Stringer("command", cmd),
			zap.Int("depth", depth),
			zap.Error(err),
		)
	}

	if tried == 0 {
		return errors.Wrapf(ErrNoApplicableDecomposition, "%s: none of %d rule(s) recognize it", cmd, len(candidates))
	}
	return errors.Wrapf(ErrNoApplicableDecomposition, "%s: all %d recognized rule(s) failed", cmd, tried)
}

func (r *Replacer) lowerAll(cmds []ops.Command, depth int, out *[]ops.Command) error {
	for _, c := range cmds {
		if err := r.lower(c, depth, out); err != nil {
			return err
		}
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrResourceExhaustion):
		return reasonExhausted
	case errors.Is(err, ErrNoApplicableDecomposition):
		return reasonNoDecomposition
	default:
		return reasonRuleError
	}
}
