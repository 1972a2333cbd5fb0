package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HershLalwani/qlower/internal/tui"
)

const sampleProgram = `OPENQASM 2.0;
include "qelib1.inc";

qreg q[4];
h q[0];
ccx q[0], q[1], q[2];
swap q[2], q[3];
crz(pi/4) q[3], q[0];
ry(pi/3) q[1];
`

func (a *app) viewCmd() *cobra.Command {
	var savePath string
	cmd := &cobra.Command{
		Use:   "view [file.qasm]",
		Short: "Explore lowering interactively in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := sampleProgram
			if len(args) == 1 {
				var err error
				if src, err = readSource(cmd, args[0]); err != nil {
					return err
				}
			}
			// stderr belongs to the terminal UI while it runs.
			m := tui.New(a.cfg, src, tui.WithLogger(zap.NewNop()), tui.WithSavePath(savePath))
			if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
				return errors.Wrap(err, "run explorer")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&savePath, "save", tui.DefaultSavePath, "file ctrl+s writes the lowered program to")
	return cmd
}
