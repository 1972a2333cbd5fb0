package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/HershLalwani/qlower/internal/decompositions"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func (a *app) rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the decomposition modules and their configured priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			priority := make(map[string]int, len(a.cfg.Rules))
			for i, name := range a.cfg.Rules {
				priority[name] = i + 1
			}
			cat := decompositions.Catalog(nil)

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("PRIORITY", "MODULE", "KINDS", "DESCRIPTION").
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, name := range decompositions.Names() {
				m := cat[name]
				p := "-"
				if n, ok := priority[name]; ok {
					p = strconv.Itoa(n)
				}
				kinds := make([]string, 0, len(m.Registrations))
				for _, k := range m.Kinds() {
					kinds = append(kinds, string(k))
				}
				t.Row(p, name, strings.Join(kinds, ","), m.Description)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return err
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
