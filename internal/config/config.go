// Package config loads the pipeline configuration: which rule modules run,
// in what order, and which commands the target accepts.
package config

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/HershLalwani/qlower/internal/decompositions"
	"github.com/HershLalwani/qlower/internal/engine"
	"github.com/HershLalwani/qlower/internal/ops"
	"github.com/HershLalwani/qlower/internal/rules"
)

const (
	// MaxFileSize bounds configuration files read from disk.
	MaxFileSize = 1 << 20

	// MaxRewriteDepth caps max_depth.
	MaxRewriteDepth = 1 << 16
)

// ErrInvalid is returned for a configuration that fails validation.
var ErrInvalid = errors.New("invalid configuration")

//go:embed default.yaml
var defaultYAML []byte

// AnyControls in a target clause matches any number of controls.
const AnyControls = -1

// Controls is a clause's control count: a number or "any".
type Controls int

func (c *Controls) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "any" {
		*c = AnyControls
		return nil
	}
	n, err := strconv.Atoi(node.Value)
	if err != nil || n < 0 {
		return errors.Errorf("line %d: controls must be a non-negative integer or \"any\", got %q", node.Line, node.Value)
	}
	*c = Controls(n)
	return nil
}

func (c Controls) MarshalYAML() (any, error) {
	if c == AnyControls {
		return "any", nil
	}
	return int(c), nil
}

// Clause accepts commands of the listed kinds with the given control count.
type Clause struct {
	Gates    []ops.Kind `yaml:"gates"`
	Controls Controls   `yaml:"controls"`
}

func (cl Clause) matches(cmd ops.Command) bool {
	if cl.Controls != AnyControls && int(cl.Controls) != cmd.ControlCount() {
		return false
	}
	for _, k := range cl.Gates {
		if k == cmd.Gate().Kind() {
			return true
		}
	}
	return false
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root of the YAML document.
type Config struct {
	MaxDepth int      `yaml:"max_depth"`
	Log      Log      `yaml:"log"`
	Rules    []string `yaml:"rules"`
	Target   []Clause `yaml:"target"`
}

// Default returns the embedded configuration.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(errors.Wrap(err, "embedded default configuration"))
	}
	return cfg
}

// Load reads and validates a configuration file. Fields it omits keep
// their default values.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat config")
	}
	if info.Size() > MaxFileSize {
		return nil, errors.Wrapf(ErrInvalid, "%s is %d bytes, limit is %d", path, info.Size(), MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// Parse decodes data over the embedded defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := decode(defaultYAML, cfg); err != nil {
		return nil, errors.Wrap(err, "embedded default configuration")
	}
	if err := decode(data, cfg); err != nil {
		return nil, errors.Wrap(ErrInvalid, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks limits, module names and target kinds.
func (c *Config) Validate() error {
	if c.MaxDepth <= 0 || c.MaxDepth > MaxRewriteDepth {
		return errors.Wrapf(ErrInvalid, "max_depth %d out of range (1..%d)", c.MaxDepth, MaxRewriteDepth)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Wrapf(ErrInvalid, "log.format %q, want console or json", c.Log.Format)
	}

	known := decompositions.Catalog(nil)
	seen := make(map[string]bool, len(c.Rules))
	for _, name := range c.Rules {
		if _, ok := known[name]; !ok {
			return errors.Wrapf(ErrInvalid, "rules: unknown module %q", name)
		}
		if seen[name] {
			return errors.Wrapf(ErrInvalid, "rules: module %q listed twice", name)
		}
		seen[name] = true
	}

	if len(c.Target) == 0 {
		return errors.Wrap(ErrInvalid, "target: at least one clause is required")
	}
	for i, cl := range c.Target {
		if len(cl.Gates) == 0 {
			return errors.Wrapf(ErrInvalid, "target[%d]: no gates", i)
		}
		for _, k := range cl.Gates {
			if !k.Known() || k.Classical() {
				return errors.Wrapf(ErrInvalid, "target[%d]: %q is not a gate kind", i, k)
			}
		}
	}
	return nil
}

// Oracle accepts a command when any target clause matches it.
func (c *Config) Oracle() engine.Oracle {
	clauses := append([]Clause(nil), c.Target...)
	return engine.OracleFunc(func(cmd ops.Command) bool {
		for _, cl := range clauses {
			if cl.matches(cmd) {
				return true
			}
		}
		return false
	})
}

// Registry builds the configured rule registry. An empty rule list gives an
// empty registry. alloc backs rules that need work qubits.
func (c *Config) Registry(alloc *ops.Allocator) (*rules.Registry, error) {
	mods, err := decompositions.Modules(alloc, c.Rules...)
	if err != nil {
		return nil, err
	}
	return rules.NewRegistry(mods...), nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
