package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HershLalwani/qlower/internal/config"
	"github.com/HershLalwani/qlower/internal/engine"
)

const program = `OPENQASM 2.0;
qreg q[2];
h q[0];
crz(pi/2) q[0], q[1];
rx(pi/2) q[1];
`

func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompileFromStdin(t *testing.T) {
	out, _, err := run(t, program, "compile", "-", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "OPENQASM 2.0;")
	assert.Contains(t, out, "qreg q[2];")
	assert.NotContains(t, out, "crz")
	assert.NotContains(t, out, "rx(")
	assert.Contains(t, out, "cx q[0], q[1];")
}

func TestCompileToFileWithStats(t *testing.T) {
	src := writeFile(t, "program.qasm", program)
	dst := filepath.Join(t.TempDir(), "out.qasm")

	out, errOut, err := run(t, "", "compile", src, "-o", dst, "--stats", "--metrics", "--log-level", "error")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "rewrites")
	assert.Contains(t, errOut, "rx2rz")
	assert.Contains(t, errOut, "qlower_rule_applications_total")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "h q[")
}

func TestCompileRulesOverride(t *testing.T) {
	src := writeFile(t, "program.qasm", program)

	_, _, err := run(t, "", "compile", src, "--rules", "cnot2cz", "--log-level", "error")
	assert.True(t, errors.Is(err, engine.ErrNoApplicableDecomposition))

	_, _, err = run(t, "", "compile", src, "--rules", "bogus")
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestCheck(t *testing.T) {
	src := writeFile(t, "program.qasm", program)
	out, _, err := run(t, "", "check", src, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "max amplitude delta")
	assert.Contains(t, out, "2 qubits")
}

func TestCheckDetectsDroppedPhase(t *testing.T) {
	// With ph outside the target, globalphase drops it and the state
	// differs from the source by exactly that phase.
	cfgPath := writeFile(t, "qlower.yaml", `
rules: [globalphase]
target:
  - gates: [h]
    controls: 0
`)
	src := writeFile(t, "ph.qasm", "qreg q[1];\nh q[0];\nph(pi/2) q[0];\n")

	_, _, err := run(t, "", "check", src, "--config", cfgPath, "--log-level", "error")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errMismatch))

	_, _, err = run(t, "", "check", src, "--config", cfgPath, "--tolerance", "2", "--log-level", "error")
	assert.NoError(t, err)
}

func TestRules(t *testing.T) {
	out, _, err := run(t, "", "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "MODULE")
	assert.Contains(t, out, "toffoli2cnotandtgate")
	assert.Contains(t, out, "cnu2toffoliandcu")
}

func TestConfigCommand(t *testing.T) {
	out, _, err := run(t, "", "config", "--log-level", "debug")
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.Default().Rules, cfg.Rules)
}

func TestBadConfigAndLevel(t *testing.T) {
	_, _, err := run(t, "", "rules", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, _, err = run(t, "", "rules", "--log-level", "loud")
	assert.Error(t, err)
}
