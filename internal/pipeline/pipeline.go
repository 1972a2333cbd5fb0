// Package pipeline wires a parsed QASM program through the configured
// rewrite engine and, optionally, cross-checks the result on the simulator.
package pipeline

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/HershLalwani/qlower/internal/circuit"
	"github.com/HershLalwani/qlower/internal/config"
	"github.com/HershLalwani/qlower/internal/decompositions"
	"github.com/HershLalwani/qlower/internal/engine"
	"github.com/HershLalwani/qlower/internal/ops"
	"github.com/HershLalwani/qlower/internal/qasm"
	"github.com/HershLalwani/qlower/internal/sim"
)

// MaxCheckQubits bounds the programs the simulator cross-check runs on.
// Work qubits allocated during lowering come on top of this.
const MaxCheckQubits = 10

// ErrTooLarge is returned by Check for programs above MaxCheckQubits.
var ErrTooLarge = errors.New("program too large to simulate")

// Result is one lowering run.
type Result struct {
	Program *qasm.Program
	Lowered []ops.Command
	Stats   engine.Stats

	// Checked is set when both the source and the lowered stream were
	// simulated. Delta is then the largest amplitude difference.
	Checked bool
	Delta   float64
}

// Depth is the moment count of the lowered stream.
func (r *Result) Depth() int {
	return qasm.Depth(r.Lowered)
}

// QASM renders the lowered stream.
func (r *Result) QASM() (string, error) {
	return qasm.Export(r.Lowered)
}

type Option func(*Compiler)

func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCheck simulates every program small enough and fills Result.Delta.
func WithCheck(seed int64) Option {
	return func(c *Compiler) {
		c.check = true
		c.seed = seed
	}
}

// Compiler lowers programs with one configuration. It holds no per-run
// state and may be reused.
type Compiler struct {
	cfg   *config.Config
	log   *zap.Logger
	check bool
	seed  int64
}

func New(cfg *config.Config, opts ...Option) *Compiler {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Compiler{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the configuration the compiler was built with.
func (c *Compiler) Config() *config.Config {
	return c.cfg
}

// Compile parses src and lowers it.
func (c *Compiler) Compile(src string) (*Result, error) {
	prog, err := qasm.Parse(src)
	if err != nil {
		return nil, err
	}
	return c.CompileProgram(prog)
}

// CompileProgram lowers prog. Nothing reaches the recorded stream for a
// command that cannot be lowered; the error names the source line.
func (c *Compiler) CompileProgram(prog *qasm.Program) (*Result, error) {
	res := &Result{Program: prog, Delta: math.NaN()}
	check := c.check && prog.Qubits <= MaxCheckQubits

	var (
		backend engine.Sink = engine.Discard
		lowered *sim.Simulator
	)
	if check {
		lowered = sim.New(sim.WithSeed(c.seed), sim.WithLogger(c.log))
		backend = lowered
	}

	alloc := ops.NewAllocator()
	reg, err := c.cfg.Registry(alloc)
	if err != nil {
		return nil, err
	}
	oracle := c.cfg.Oracle()
	rec := engine.NewRecorder(backend)
	r := engine.NewReplacer(reg, oracle, engine.NewFilter(oracle, rec),
		engine.WithLogger(c.log),
		engine.WithMaxDepth(c.cfg.MaxDepth),
	)
	circ := circuit.New(r, circuit.WithAllocator(alloc), circuit.WithLogger(c.log))

	qs, err := prog.Emit(circ)
	if err == nil {
		err = circ.Flush()
	}
	res.Lowered = rec.Commands()
	res.Stats = r.Stats()
	if err != nil {
		return res, errors.Wrap(err, "lower")
	}
	c.log.Debug("program lowered",
		zap.Int("qubits", prog.Qubits),
		zap.Int("statements", len(prog.Statements)),
		zap.Int("commands", len(res.Lowered)),
		zap.Int("rewrites", res.Stats.Rewrites),
		zap.Int("backtracks", res.Stats.Backtracks),
	)

	if !check {
		return res, nil
	}
	want, err := simulate(prog, c.seed, c.log)
	if err != nil {
		return res, errors.Wrap(err, "simulate source")
	}
	got, err := lowered.Vector(qs)
	if err != nil {
		return res, errors.Wrap(err, "simulate lowered")
	}
	res.Checked = true
	res.Delta = sim.MaxDelta(want, got)
	return res, nil
}

// Check lowers src and compares it against direct simulation. It fails
// when the program is too large to simulate.
func (c *Compiler) Check(src string) (*Result, error) {
	prog, err := qasm.Parse(src)
	if err != nil {
		return nil, err
	}
	if prog.Qubits > MaxCheckQubits {
		return nil, errors.Wrapf(ErrTooLarge, "%d qubits, limit is %d", prog.Qubits, MaxCheckQubits)
	}
	if !c.check {
		return New(c.cfg, WithLogger(c.log), WithCheck(c.seed)).CompileProgram(prog)
	}
	return c.CompileProgram(prog)
}

// simulate runs prog on a fresh simulator. Entangle has no matrix, so it
// is expanded on the way in; everything else goes through unchanged.
func simulate(prog *qasm.Program, seed int64, log *zap.Logger) ([]complex128, error) {
	s := sim.New(sim.WithSeed(seed), sim.WithLogger(log))
	reg, err := decompositions.Registry(nil, "entangle")
	if err != nil {
		return nil, err
	}
	circ := circuit.New(engine.NewReplacer(reg, s, s, engine.WithLogger(log)))
	qs, err := prog.Emit(circ)
	if err != nil {
		return nil, err
	}
	return s.Vector(qs)
}
