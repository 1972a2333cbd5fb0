package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HershLalwani/qlower/internal/pipeline"
)

func (a *app) compileCmd() *cobra.Command {
	var (
		output  string
		rules   []string
		stats   bool
		metrics bool
	)
	cmd := &cobra.Command{
		Use:   "compile <file.qasm|->",
		Short: "Lower a program and print it as OpenQASM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			if cmd.Flags().Changed("rules") {
				cfg.Rules = rules
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			src, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}

			res, err := pipeline.New(&cfg, pipeline.WithLogger(a.log)).Compile(src)
			if err != nil {
				return err
			}
			out, err := res.QASM()
			if err != nil {
				return err
			}
			a.log.Info("compiled",
				zap.String("program", args[0]),
				zap.Int("commands", len(res.Lowered)),
				zap.Int("rewrites", res.Stats.Rewrites),
				zap.Int("backtracks", res.Stats.Backtracks),
			)

			if output == "" {
				if _, err := io.WriteString(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
				return errors.Wrap(err, "write output")
			}
			if stats {
				writeStats(cmd.ErrOrStderr(), res)
			}
			if metrics {
				return writeMetrics(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the lowered program to a file instead of stdout")
	cmd.Flags().StringSliceVar(&rules, "rules", nil, "rule modules in priority order, overriding the configuration")
	cmd.Flags().BoolVar(&stats, "stats", false, "print rewrite statistics to stderr")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print the rewrite counters in Prometheus text format to stderr")
	return cmd
}

func writeStats(w io.Writer, res *pipeline.Result) {
	st := res.Stats
	fmt.Fprintf(w, "received %d  forwarded %d  rewrites %d  backtracks %d  rule depth %d  moments %d\n",
		st.Received, st.Forwarded, st.Rewrites, st.Backtracks, st.MaxDepth, res.Depth())
	names := make([]string, 0, len(st.RuleUses))
	for name := range st.RuleUses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-24s %d\n", name, st.RuleUses[name])
	}
}

func writeMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "qlower_") {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return errors.Wrap(err, "encode metrics")
		}
	}
	return nil
}
