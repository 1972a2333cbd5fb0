// Package qasm reads and writes the OpenQASM 2.0 subset the compiler works
// with, and lays command streams out into parallel moments.
package qasm

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/HershLalwani/qlower/internal/circuit"
	"github.com/HershLalwani/qlower/internal/ops"
)

// ErrSyntax is returned for input outside the supported subset.
var ErrSyntax = errors.New("qasm syntax error")

// MaxQubits caps the total size of every qreg (and separately every creg)
// in one program.
const MaxQubits = 4096

var (
	qregRegex      = regexp.MustCompile(`^qreg\s+(\w+)\s*\[\s*(\d+)\s*\];?$`)
	cregRegex      = regexp.MustCompile(`^creg\s+(\w+)\s*\[\s*(\d+)\s*\];?$`)
	measureRegex   = regexp.MustCompile(`^measure\s+(\w+(?:\s*\[\s*\d+\s*\])?)\s*->\s*(\w+(?:\s*\[\s*\d+\s*\])?);?$`)
	barrierRegex   = regexp.MustCompile(`^barrier(?:\s+(.*?))?;?$`)
	statementRegex = regexp.MustCompile(`^(\w+)\s*(?:\(([^()]*)\))?\s+(.+?);?$`)
	operandRegex   = regexp.MustCompile(`^(\w+)(?:\s*\[\s*(\d+)\s*\])?$`)
	// Global phases have no QASM 2.0 form; they travel as comments.
	phaseRegex = regexp.MustCompile(`^//\s*ph\s*\(([^()]*)\)\s+(\w+\s*\[\s*\d+\s*\])$`)
)

type gateDef struct {
	kind     ops.Kind
	controls int
	targets  int // 0 means one or more
	angles   int
}

var gateDefs = map[string]gateDef{
	"h":        {kind: ops.KindH, targets: 1},
	"x":        {kind: ops.KindX, targets: 1},
	"y":        {kind: ops.KindY, targets: 1},
	"z":        {kind: ops.KindZ, targets: 1},
	"s":        {kind: ops.KindS, targets: 1},
	"sdg":      {kind: ops.KindSdag, targets: 1},
	"t":        {kind: ops.KindT, targets: 1},
	"tdg":      {kind: ops.KindTdag, targets: 1},
	"rx":       {kind: ops.KindRx, targets: 1, angles: 1},
	"ry":       {kind: ops.KindRy, targets: 1, angles: 1},
	"rz":       {kind: ops.KindRz, targets: 1, angles: 1},
	"u1":       {kind: ops.KindR, targets: 1, angles: 1},
	"p":        {kind: ops.KindR, targets: 1, angles: 1},
	"ph":       {kind: ops.KindPh, targets: 1, angles: 1},
	"cx":       {kind: ops.KindX, controls: 1, targets: 1},
	"cnot":     {kind: ops.KindX, controls: 1, targets: 1},
	"cy":       {kind: ops.KindY, controls: 1, targets: 1},
	"cz":       {kind: ops.KindZ, controls: 1, targets: 1},
	"ch":       {kind: ops.KindH, controls: 1, targets: 1},
	"crx":      {kind: ops.KindRx, controls: 1, targets: 1, angles: 1},
	"cry":      {kind: ops.KindRy, controls: 1, targets: 1, angles: 1},
	"crz":      {kind: ops.KindRz, controls: 1, targets: 1, angles: 1},
	"cu1":      {kind: ops.KindR, controls: 1, targets: 1, angles: 1},
	"cp":       {kind: ops.KindR, controls: 1, targets: 1, angles: 1},
	"ccx":      {kind: ops.KindX, controls: 2, targets: 1},
	"toffoli":  {kind: ops.KindX, controls: 2, targets: 1},
	"swap":     {kind: ops.KindSwap, targets: 2},
	"cswap":    {kind: ops.KindSwap, controls: 1, targets: 2},
	"entangle": {kind: ops.KindEntangle},
}

// GateSpec describes one supported gate statement.
type GateSpec struct {
	Name     string
	Kind     ops.Kind
	Angles   int
	Operands int // 0 means one or more
}

// Gates lists every supported gate statement, sorted by name.
func Gates() []GateSpec {
	out := make([]GateSpec, 0, len(gateDefs))
	for name, def := range gateDefs {
		n := 0
		if def.targets > 0 {
			n = def.controls + def.targets
		}
		out = append(out, GateSpec{Name: name, Kind: def.kind, Angles: def.angles, Operands: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Statement is one operation on register-relative qubit indices.
type Statement struct {
	Gate     ops.Gate
	Targets  []int
	Controls []int
	Line     int
}

// Program is a parsed QASM source. Qubit indices are global across every
// qreg, in declaration order.
type Program struct {
	Qubits     int
	Cbits      int
	Statements []Statement
}

type register struct {
	offset int
	size   int
}

type parser struct {
	prog  *Program
	qregs map[string]register
	line  int
}

// Parse reads a QASM source.
func Parse(src string) (*Program, error) {
	p := &parser{
		prog:  &Program{},
		qregs: make(map[string]register),
	}
	for i, raw := range strings.Split(src, "\n") {
		p.line = i + 1
		for _, stmt := range splitStatements(raw) {
			if err := p.parseLine(stmt); err != nil {
				return nil, err
			}
		}
	}
	return p.prog, nil
}

// splitStatements separates "h q[0]; x q[1];" into single statements and
// strips trailing comments. A line that is only a comment is kept whole.
func splitStatements(line string) []string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "//") {
		return []string{line}
	}
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	var out []string
	for _, part := range strings.Split(line, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Wrapf(ErrSyntax, "line %d: "+format, append([]any{p.line}, args...)...)
}

func (p *parser) parseLine(line string) error {
	switch {
	case line == "":
		return nil
	case strings.HasPrefix(line, "//"):
		return p.parsePhaseComment(line)
	case strings.HasPrefix(line, "OPENQASM"), strings.HasPrefix(line, "include"):
		return nil
	}

	if m := qregRegex.FindStringSubmatch(line); m != nil {
		if _, dup := p.qregs[m[1]]; dup {
			return p.errorf("qreg %s declared twice", m[1])
		}
		n, err := p.registerSize("qreg", m[1], m[2], p.prog.Qubits)
		if err != nil {
			return err
		}
		p.qregs[m[1]] = register{offset: p.prog.Qubits, size: n}
		p.prog.Qubits += n
		return nil
	}
	if m := cregRegex.FindStringSubmatch(line); m != nil {
		n, err := p.registerSize("creg", m[1], m[2], p.prog.Cbits)
		if err != nil {
			return err
		}
		p.prog.Cbits += n
		return nil
	}
	if m := measureRegex.FindStringSubmatch(line); m != nil {
		qs, err := p.operand(m[1])
		if err != nil {
			return err
		}
		for _, q := range qs {
			p.add(ops.Measure, []int{q}, nil)
		}
		return nil
	}
	if m := barrierRegex.FindStringSubmatch(line); m != nil {
		var qs []int
		if strings.TrimSpace(m[1]) != "" {
			operands, err := p.operands(m[1])
			if err != nil {
				return err
			}
			for _, o := range operands {
				qs = append(qs, o...)
			}
		}
		p.add(ops.Barrier, qs, nil)
		return nil
	}
	if m := statementRegex.FindStringSubmatch(line); m != nil {
		return p.parseGate(strings.ToLower(m[1]), m[2], m[3])
	}
	return p.errorf("unrecognized statement %q", line)
}

// registerSize parses a declared size and checks that the running total
// stays within MaxQubits.
func (p *parser) registerSize(decl, name, size string, total int) (int, error) {
	n, err := strconv.Atoi(size)
	if err != nil {
		return 0, p.errorf("%s %s: bad size %q", decl, name, size)
	}
	if n > MaxQubits-total {
		return 0, p.errorf("%s %s[%d]: more than %d in total", decl, name, n, MaxQubits)
	}
	return n, nil
}

func (p *parser) parsePhaseComment(line string) error {
	m := phaseRegex.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	return p.parseGate("ph", m[1], m[2])
}

func (p *parser) parseGate(name, angleList, operandList string) error {
	def, ok := gateDefs[name]
	if !ok {
		return p.errorf("unsupported gate %q", name)
	}

	var g ops.Gate
	if def.angles > 0 {
		angles, err := ParseAngles(angleList)
		if err != nil {
			return p.errorf("%s: %v", name, err)
		}
		if len(angles) != def.angles {
			return p.errorf("%s takes %d angle(s), got %q", name, def.angles, angleList)
		}
		g = ops.Rotation(def.kind, angles[0])
	} else {
		if strings.TrimSpace(angleList) != "" {
			return p.errorf("%s takes no angle", name)
		}
		g, _ = ops.Named(def.kind)
	}

	operands, err := p.operands(operandList)
	if err != nil {
		return err
	}

	if def.targets == 0 {
		var qs []int
		for _, o := range operands {
			qs = append(qs, o...)
		}
		p.add(g, qs, nil)
		return nil
	}

	want := def.controls + def.targets
	if len(operands) != want {
		return p.errorf("%s takes %d operand(s), got %d", name, want, len(operands))
	}
	return p.broadcast(g, def, operands)
}

// broadcast expands whole-register operands: "h q;" applies h to every
// qubit of q, and "cx a, b;" pairs the registers element-wise.
func (p *parser) broadcast(g ops.Gate, def gateDef, operands [][]int) error {
	width := 1
	for _, o := range operands {
		if len(o) == 1 {
			continue
		}
		if width != 1 && len(o) != width {
			return p.errorf("register operands of different sizes")
		}
		width = len(o)
	}
	for i := 0; i < width; i++ {
		pick := func(o []int) int {
			if len(o) == 1 {
				return o[0]
			}
			return o[i]
		}
		var controls, targets []int
		for j, o := range operands {
			if j < def.controls {
				controls = append(controls, pick(o))
			} else {
				targets = append(targets, pick(o))
			}
		}
		p.add(g, targets, controls)
	}
	return nil
}

func (p *parser) add(g ops.Gate, targets, controls []int) {
	p.prog.Statements = append(p.prog.Statements, Statement{
		Gate:     g,
		Targets:  targets,
		Controls: controls,
		Line:     p.line,
	})
}

func (p *parser) operands(list string) ([][]int, error) {
	var out [][]int
	for _, part := range strings.Split(list, ",") {
		qs, err := p.operand(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, qs)
	}
	return out, nil
}

// operand resolves "q[2]" to one global index and "q" to the whole register.
func (p *parser) operand(s string) ([]int, error) {
	m := operandRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, p.errorf("bad operand %q", s)
	}
	reg, ok := p.qregs[m[1]]
	if !ok {
		return nil, p.errorf("undeclared qreg %q", m[1])
	}
	if m[2] == "" {
		qs := make([]int, reg.size)
		for i := range qs {
			qs[i] = reg.offset + i
		}
		return qs, nil
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil || idx >= reg.size {
		return nil, p.errorf("%s[%s] out of range (size %d)", m[1], m[2], reg.size)
	}
	return []int{reg.offset + idx}, nil
}

// Emit allocates the program's qubits in c and applies every statement.
// It returns the allocated qubits indexed like the program.
func (prog *Program) Emit(c *circuit.Circuit) ([]ops.Qubit, error) {
	if prog.Qubits == 0 {
		return nil, nil
	}
	qs, err := c.AllocateQureg(prog.Qubits)
	if err != nil {
		return nil, err
	}
	pick := func(idx []int) []ops.Qubit {
		out := make([]ops.Qubit, len(idx))
		for i, j := range idx {
			out[i] = qs[j]
		}
		return out
	}

	for _, st := range prog.Statements {
		targets := pick(st.Targets)
		switch st.Gate.Kind() {
		case ops.KindMeasure:
			err = c.Measure(targets...)
		case ops.KindBarrier:
			if len(targets) == 0 {
				targets = qs
			}
			err = c.Barrier(targets...)
		default:
			err = c.ApplyControlled(st.Gate, pick(st.Controls), targets...)
		}
		if err != nil {
			return qs, errors.Wrapf(err, "line %d", st.Line)
		}
	}
	return qs, nil
}
