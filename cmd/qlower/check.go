package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HershLalwani/qlower/internal/pipeline"
)

// DefaultTolerance is the largest amplitude difference check accepts.
const DefaultTolerance = 1e-9

var errMismatch = errors.New("lowered program does not match the source")

func (a *app) checkCmd() *cobra.Command {
	var (
		tolerance float64
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "check <file.qasm|->",
		Short: "Simulate a program before and after lowering and compare the states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}
			res, err := pipeline.New(a.cfg, pipeline.WithLogger(a.log), pipeline.WithCheck(seed)).Check(src)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d qubits, %d commands lowered, max amplitude delta %.3e\n",
				args[0], res.Program.Qubits, len(res.Lowered), res.Delta)
			if res.Delta > tolerance {
				a.log.Warn("check failed", zap.Float64("delta", res.Delta), zap.Float64("tolerance", tolerance))
				return errors.Wrapf(errMismatch, "delta %.3e above tolerance %.0e", res.Delta, tolerance)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&tolerance, "tolerance", DefaultTolerance, "largest acceptable amplitude difference")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed for measurement sampling")
	return cmd
}
