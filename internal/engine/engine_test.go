package engine

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HershLalwani/qlower/internal/ops"
	"github.com/HershLalwani/qlower/internal/rules"
)

// kindsOracle accepts uncontrolled gates of the listed kinds.
func kindsOracle(ks ...ops.Kind) Oracle {
	allowed := map[ops.Kind]bool{}
	for _, k := range ks {
		allowed[k] = true
	}
	return OracleFunc(func(cmd ops.Command) bool {
		return cmd.ControlCount() == 0 && allowed[cmd.Gate().Kind()]
	})
}

func rewriteTo(name string, build func(cmd ops.Command) []ops.Command) rules.Rule {
	return rules.Rule{
		Name: name,
		Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
			return build(cmd), nil
		},
	}
}

func TestReplacerForwardsAcceptedCommandUnchanged(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	calls := 0
	reg := rules.NewRegistry()
	reg.Register(ops.KindH, rules.Rule{
		Name: "never",
		Recognize: func(ops.Command) bool {
			calls++
			return true
		},
		Rewrite: func(ops.Command) ([]ops.Command, error) { return nil, nil },
	})

	rec := NewRecorder(nil)
	r := NewReplacer(reg, kindsOracle(ops.KindH), rec)

	cmd := ops.MustCommand(ops.H, q, nil, "keep")
	require.NoError(t, r.Receive(cmd))

	require.Len(t, rec.Commands(), 1)
	assert.Equal(t, cmd, rec.Commands()[0])
	assert.Zero(t, calls, "accepted commands are never decomposed")
	assert.Equal(t, 1, r.Stats().Forwarded)
	assert.Zero(t, r.Stats().Rewrites)
}

func TestReplacerLowersRecursively(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	reg := rules.NewRegistry()
	reg.Register(ops.KindY, rewriteTo("y2zx", func(cmd ops.Command) []ops.Command {
		return []ops.Command{
			ops.MustCommand(ops.S, cmd.Targets(), nil),
			ops.MustCommand(ops.X, cmd.Targets(), nil),
		}
	}))
	reg.Register(ops.KindS, rewriteTo("s2t", func(cmd ops.Command) []ops.Command {
		return []ops.Command{
			ops.MustCommand(ops.T, cmd.Targets(), nil),
			ops.MustCommand(ops.T, cmd.Targets(), nil),
		}
	}))

	rec := NewRecorder(nil)
	r := NewReplacer(reg, kindsOracle(ops.KindT, ops.KindX), rec)
	require.NoError(t, r.Receive(ops.MustCommand(ops.Y, q, nil)))

	var got []ops.Kind
	for _, c := range rec.Commands() {
		got = append(got, c.Gate().Kind())
	}
	assert.Equal(t, []ops.Kind{ops.KindT, ops.KindT, ops.KindX}, got)

	stats := r.Stats()
	assert.Equal(t, 2, stats.Rewrites)
	assert.Equal(t, 1, stats.MaxDepth)
	assert.Equal(t, map[string]int{"y2zx": 1, "s2t": 1}, stats.RuleUses)
}

func TestReplacerBacktracksToNextCandidate(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	reg := rules.NewRegistry()
	// The first candidate produces Y, which nothing lowers.
	reg.Register(ops.KindZ, rewriteTo("dead-end", func(cmd ops.Command) []ops.Command {
		return []ops.Command{
			ops.MustCommand(ops.T, cmd.Targets(), nil),
			ops.MustCommand(ops.Y, cmd.Targets(), nil),
		}
	}))
	reg.Register(ops.KindZ, rewriteTo("via-h", func(cmd ops.Command) []ops.Command {
		return []ops.Command{
			ops.MustCommand(ops.H, cmd.Targets(), nil),
			ops.MustCommand(ops.X, cmd.Targets(), nil),
			ops.MustCommand(ops.H, cmd.Targets(), nil),
		}
	}))

	rec := NewRecorder(nil)
	r := NewReplacer(reg, kindsOracle(ops.KindT, ops.KindH, ops.KindX), rec)
	require.NoError(t, r.Receive(ops.MustCommand(ops.Z, q, nil)))

	assert.Equal(t, 0, rec.Count(ops.KindT), "output of the abandoned candidate is discarded")
	assert.Equal(t, 2, rec.Count(ops.KindH))
	assert.Equal(t, 1, rec.Count(ops.KindX))
	assert.Equal(t, 1, r.Stats().Backtracks)
	assert.Equal(t, map[string]int{"via-h": 1}, r.Stats().RuleUses)
}

func TestReplacerSkipsUnrecognizedCandidates(t *testing.T) {
	q := ops.NewAllocator().Allocate(2)
	reg := rules.NewRegistry()
	reg.Register(ops.KindX, rules.Rule{
		Name:      "controlled-only",
		Recognize: func(cmd ops.Command) bool { return cmd.ControlCount() > 0 },
		Rewrite: func(ops.Command) ([]ops.Command, error) {
			t.Fatal("rewrite called for an unrecognized command")
			return nil, nil
		},
	})
	reg.Register(ops.KindX, rewriteTo("x2hzh", func(cmd ops.Command) []ops.Command {
		return []ops.Command{
			ops.MustCommand(ops.H, cmd.Targets(), nil),
			ops.MustCommand(ops.Z, cmd.Targets(), nil),
			ops.MustCommand(ops.H, cmd.Targets(), nil),
		}
	}))

	rec := NewRecorder(nil)
	r := NewReplacer(reg, kindsOracle(ops.KindH, ops.KindZ), rec)
	require.NoError(t, r.Receive(ops.MustCommand(ops.X, q[:1], nil)))
	assert.Len(t, rec.Commands(), 3)
	assert.Zero(t, r.Stats().Backtracks, "an unrecognized candidate is not a backtrack")
}

func TestReplacerFailureForwardsNothing(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	reg := rules.NewRegistry()
	reg.Register(ops.KindZ, rewriteTo("half", func(cmd ops.Command) []ops.Command {
		return []ops.Command{
			ops.MustCommand(ops.T, cmd.Targets(), nil),
			ops.MustCommand(ops.T, cmd.Targets(), nil),
			ops.MustCommand(ops.Y, cmd.Targets(), nil),
		}
	}))

	rec := NewRecorder(nil)
	r := NewReplacer(reg, kindsOracle(ops.KindT), rec)

	err := r.Receive(ops.MustCommand(ops.Z, q, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoApplicableDecomposition))
	assert.Empty(t, rec.Commands(), "no partial output on failure")
	assert.Zero(t, r.Stats().Forwarded)

	// The engine stays usable after a failure.
	require.NoError(t, r.Receive(ops.MustCommand(ops.T, q, nil)))
	assert.Len(t, rec.Commands(), 1)
}

func TestReplacerNoRulesForKind(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	rec := NewRecorder(nil)
	r := NewReplacer(nil, kindsOracle(ops.KindH), rec)

	err := r.Receive(ops.MustCommand(ops.Y, q, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoApplicableDecomposition))
	assert.Contains(t, err.Error(), "no rules registered")
}

func TestReplacerCyclicRulesExhaustDepth(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	reg := rules.NewRegistry()
	reg.Register(ops.KindX, rewriteTo("x2y", func(cmd ops.Command) []ops.Command {
		return []ops.Command{ops.MustCommand(ops.Y, cmd.Targets(), nil)}
	}))
	reg.Register(ops.KindY, rewriteTo("y2x", func(cmd ops.Command) []ops.Command {
		return []ops.Command{ops.MustCommand(ops.X, cmd.Targets(), nil)}
	}))
	// A later candidate that would succeed must not be reached: exhaustion
	// is fatal, not a reason to backtrack.
	reg.Register(ops.KindX, rewriteTo("x2h", func(cmd ops.Command) []ops.Command {
		return []ops.Command{ops.MustCommand(ops.H, cmd.Targets(), nil)}
	}))

	rec := NewRecorder(nil)
	r := NewReplacer(reg, kindsOracle(ops.KindH), rec, WithMaxDepth(16))

	err := r.Receive(ops.MustCommand(ops.X, q, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceExhaustion))
	assert.False(t, errors.Is(err, ErrNoApplicableDecomposition))
	assert.Empty(t, rec.Commands())
	assert.Zero(t, r.Stats().Backtracks)
}

func TestReplacerRuleErrorIsFatal(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	boom := errors.New("boom")
	secondCalled := false

	reg := rules.NewRegistry()
	reg.Register(ops.KindX, rules.Rule{
		Name:    "broken",
		Rewrite: func(ops.Command) ([]ops.Command, error) { return nil, boom },
	})
	reg.Register(ops.KindX, rules.Rule{
		Name: "fallback",
		Rewrite: func(cmd ops.Command) ([]ops.Command, error) {
			secondCalled = true
			return []ops.Command{ops.MustCommand(ops.H, cmd.Targets(), nil)}, nil
		},
	})

	r := NewReplacer(reg, kindsOracle(ops.KindH), Discard)
	err := r.Receive(ops.MustCommand(ops.X, q, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "rule broken")
	assert.False(t, secondCalled)
}

func TestReplacerClassicalAlwaysAccepted(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	rec := NewRecorder(nil)
	r := NewReplacer(nil, OracleFunc(func(ops.Command) bool { return false }), rec)

	for _, g := range []ops.Gate{ops.Allocate, ops.Measure, ops.Deallocate} {
		require.NoError(t, r.Receive(ops.MustCommand(g, q, nil)))
	}
	require.NoError(t, r.Receive(ops.MustCommand(ops.Flush, nil, nil)))
	assert.Len(t, rec.Commands(), 4)
}

func TestReplacerKeepsControlsThroughRewrite(t *testing.T) {
	q := ops.NewAllocator().Allocate(2)
	reg := rules.NewRegistry()
	reg.Register(ops.KindZ, rewriteTo("z2hxh", func(cmd ops.Command) []ops.Command {
		return []ops.Command{
			ops.MustCommand(ops.H, cmd.Targets(), nil),
			ops.MustCommand(ops.X, cmd.Targets(), cmd.Controls()),
			ops.MustCommand(ops.H, cmd.Targets(), nil),
		}
	}))
	cx := OracleFunc(func(cmd ops.Command) bool {
		switch cmd.Gate().Kind() {
		case ops.KindH:
			return cmd.ControlCount() == 0
		case ops.KindX:
			return cmd.ControlCount() <= 1
		}
		return false
	})

	rec := NewRecorder(nil)
	r := NewReplacer(reg, cx, rec)
	require.NoError(t, r.Receive(ops.MustCommand(ops.Z, q[1:], q[:1])))

	cmds := rec.Commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, []ops.Qubit{q[0]}, cmds[1].Controls())
}

func TestReplacerSinkErrorPropagates(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	full := errors.New("queue full")
	r := NewReplacer(nil, AcceptAll, SinkFunc(func(ops.Command) error { return full }))

	err := r.Receive(ops.MustCommand(ops.H, q, nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, full))
}

func TestReplacerNilOracleAndSink(t *testing.T) {
	q := ops.NewAllocator().Allocate(2)
	r := NewReplacer(nil, nil, nil)

	require.NotPanics(t, func() {
		require.NoError(t, r.Receive(ops.MustCommand(ops.X, q[1:], q[:1])))
	})
	assert.True(t, r.Accepts(ops.MustCommand(ops.H, q[:1], nil)))
	assert.Equal(t, 1, r.Stats().Forwarded)
}

func TestFilterRejectsOutsideTargetSet(t *testing.T) {
	q := ops.NewAllocator().Allocate(2)
	rec := NewRecorder(nil)
	f := NewFilter(kindsOracle(ops.KindH), rec)

	require.NoError(t, f.Receive(ops.MustCommand(ops.H, q[:1], nil)))
	require.NoError(t, f.Receive(ops.MustCommand(ops.Measure, q[:1], nil)))

	err := f.Receive(ops.MustCommand(ops.H, q[1:], q[:1]))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Len(t, rec.Commands(), 2)
}

func TestRecorderForwardsAndResets(t *testing.T) {
	q := ops.NewAllocator().Allocate(1)
	inner := NewRecorder(nil)
	outer := NewRecorder(inner)

	require.NoError(t, outer.Receive(ops.MustCommand(ops.X, q, nil)))
	require.NoError(t, outer.Receive(ops.MustCommand(ops.X, q, nil)))
	assert.Equal(t, 2, outer.Count(ops.KindX))
	assert.Equal(t, 2, inner.Count(ops.KindX))

	outer.Reset()
	assert.Empty(t, outer.Commands())
	assert.Len(t, inner.Commands(), 2)
}
