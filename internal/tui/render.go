package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/HershLalwani/qlower/internal/ops"
	"github.com/HershLalwani/qlower/internal/qasm"
)

// ──────────────────────────── Rendering helpers ────────────────────────────

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	n := ansi.StringWidth(s)
	if n >= width {
		return ansi.Truncate(s, width, "")
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}

// gateLabel returns a short display name for a gate.
func gateLabel(g ops.Gate) string {
	switch g.Kind() {
	case ops.KindSdag:
		return "S†"
	case ops.KindTdag:
		return "T†"
	case ops.KindMeasure:
		return "M"
	case ops.KindEntangle:
		return "ENT"
	default:
		return strings.ToUpper(string(g.Kind()))
	}
}

// targetSymbol returns the wire symbol for a controlled target, or "" when
// the target is drawn as a box.
func targetSymbol(cmd ops.Command) string {
	switch {
	case cmd.Gate().Kind() == ops.KindSwap:
		return "×"
	case cmd.ControlCount() == 0:
		return ""
	case cmd.Gate().Kind() == ops.KindX:
		return "⊕"
	case cmd.Gate().Kind() == ops.KindZ:
		return "●"
	}
	return ""
}

// ──────────────────────────── Grid ────────────────────────────

type cellRole int

const (
	roleEmpty cellRole = iota
	roleTarget
	roleControl
	rolePass
	roleBarrier
)

type cellInfo struct {
	cmd       ops.Command
	role      cellRole
	vertAbove bool
	vertBelow bool
}

// buildGrid places each moment of cmds in a column, one row per qubit in
// order of first appearance.
func buildGrid(cmds []ops.Command) (rows int, grid [][]cellInfo) {
	ix := qasm.NewIndex(cmds)
	rows = ix.Len()
	for _, layer := range qasm.Layers(cmds) {
		col := make([]cellInfo, rows)
		for _, cmd := range layer {
			if cmd.Gate().Kind() == ops.KindBarrier {
				placeBarrier(col, ix, cmd)
				continue
			}
			lo, hi := rows, -1
			mark := func(qs []ops.Qubit, role cellRole) {
				for _, q := range qs {
					r, _ := ix.Of(q)
					col[r] = cellInfo{cmd: cmd, role: role}
					lo, hi = min(lo, r), max(hi, r)
				}
			}
			mark(cmd.Targets(), roleTarget)
			mark(cmd.Controls(), roleControl)
			for r := lo; r <= hi; r++ {
				if col[r].role == roleEmpty {
					col[r] = cellInfo{cmd: cmd, role: rolePass}
				}
				col[r].vertAbove = r > lo
				col[r].vertBelow = r < hi
			}
		}
		grid = append(grid, col)
	}
	return rows, grid
}

func placeBarrier(col []cellInfo, ix *qasm.Index, cmd ops.Command) {
	qs := cmd.Targets()
	if len(qs) == 0 {
		for r := range col {
			col[r] = cellInfo{cmd: cmd, role: roleBarrier}
		}
		return
	}
	for _, q := range qs {
		r, _ := ix.Of(q)
		col[r] = cellInfo{cmd: cmd, role: roleBarrier}
	}
}

// renderCell returns 3 lines (top, mid, bot) for a single cell, each
// exactly cellW visual characters wide.
func renderCell(info cellInfo) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	vertRow := strings.Repeat(" ", halfW) + "│" + strings.Repeat(" ", cellW-halfW-1)
	dashL := (cellW - 1) / 2
	dashR := cellW - dashL - 1

	top, bot = emptyRow, emptyRow
	if info.vertAbove {
		top = vertRow
	}
	if info.vertBelow {
		bot = vertRow
	}

	switch info.role {
	case roleBarrier:
		return vertRow, strings.Repeat("─", dashL) + "┃" + strings.Repeat("─", dashR), vertRow
	case roleControl:
		mid = strings.Repeat("─", dashL) + gateStyle.Render("●") + strings.Repeat("─", dashR)
	case rolePass:
		mid = strings.Repeat("─", dashL) + "┼" + strings.Repeat("─", dashR)
	case roleTarget:
		if sym := targetSymbol(info.cmd); sym != "" {
			mid = strings.Repeat("─", dashL) + gateStyle.Render(sym) + strings.Repeat("─", dashR)
			return
		}
		margin := (cellW - gateBoxW) / 2
		rightMargin := cellW - margin - gateBoxW
		name := padCenter(gateLabel(info.cmd.Gate()), gateNameW)
		boxTop := gateStyle.Render("┌" + strings.Repeat("─", gateNameW) + "┐")
		boxBot := gateStyle.Render("└" + strings.Repeat("─", gateNameW) + "┘")
		if info.vertAbove {
			boxTop = gateStyle.Render("┌" + padCenter("┴", gateNameW) + "┐")
		}
		if info.vertBelow {
			boxBot = gateStyle.Render("└" + padCenter("┬", gateNameW) + "┘")
		}
		top = strings.Repeat(" ", margin) + boxTop + strings.Repeat(" ", rightMargin)
		mid = strings.Repeat("─", margin) + gateStyle.Render("┤"+name+"├") + strings.Repeat("─", rightMargin)
		bot = strings.Repeat(" ", margin) + boxBot + strings.Repeat(" ", rightMargin)
	default:
		mid = strings.Repeat("─", cellW)
	}
	return
}

// ──────────────────────────── Panel rendering ────────────────────────────

// renderDiagram draws the lowered circuit starting at moment start.
func renderDiagram(cmds []ops.Command, start, width int) string {
	rows, grid := buildGrid(cmds)
	if rows == 0 {
		return dimStyle.Render("(empty circuit)") + "\n"
	}

	var sb strings.Builder
	fit := max((width-labelVisualW-4)/cellW, 1)
	start = max(min(start, len(grid)-1), 0)
	end := min(start+fit, len(grid))
	if start > 0 {
		fmt.Fprintf(&sb, "  ◀ showing moments %d–%d of %d\n", start, end-1, len(grid))
	}

	header := strings.Repeat(" ", labelVisualW)
	for step := start; step < end; step++ {
		header += dimStyle.Render(padCenter(fmt.Sprintf("%d", step), cellW))
	}
	sb.WriteString(header + "\n")

	for r := 0; r < rows; r++ {
		topLine := strings.Repeat(" ", labelVisualW)
		midLine := qubitLabelStyle.Render(fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", r))) + "──"
		botLine := strings.Repeat(" ", labelVisualW)
		for step := start; step < end; step++ {
			top, mid, bot := renderCell(grid[step][r])
			topLine += top
			midLine += mid
			botLine += bot
		}
		sb.WriteString(topLine + "\n")
		sb.WriteString(midLine + "\n")
		sb.WriteString(botLine + "\n")
	}
	return sb.String()
}

// renderOutputPanel renders the lowered circuit, as a diagram or as QASM.
func (m Model) renderOutputPanel(width, height int) string {
	var sb strings.Builder

	title := "Lowered Circuit"
	if m.view == viewQASM {
		title = "Lowered QASM"
	}
	if m.focus == focusOutput {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")

	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n\n")
	}
	if m.result != nil {
		switch m.view {
		case viewDiagram:
			sb.WriteString(renderDiagram(m.result.Lowered, m.startLayer, width))
		case viewQASM:
			out, err := m.result.QASM()
			if err != nil {
				sb.WriteString(errorStyle.Render(err.Error()))
			} else {
				sb.WriteString(out)
			}
		}
	}

	return outputStyle.Width(width).Height(height).Render(sb.String())
}

// renderEditorPanel renders the QASM editor panel.
func (m Model) renderEditorPanel(width, height int) string {
	var sb strings.Builder

	title := "QASM Editor"
	if m.focus == focusEditor {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.editor.View())

	return editorStyle.Width(width).Height(height).Render(sb.String())
}

// renderControlsPanel renders the stats line and the key help.
func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder

	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render("✗ "))
	case m.result != nil:
		sb.WriteString(okStyle.Render("✓ "))
	}
	sb.WriteString(m.statsLine())
	if m.statusMsg != "" {
		fmt.Fprintf(&sb, "  │  %s", keyStyle.Render(m.statusMsg))
	}
	sb.WriteString("\n")

	sb.WriteString(keyStyle.Render("Output: "))
	sb.WriteString("←→/hl Scroll  v Diagram/QASM  r Rule modules  ^S Save")
	sb.WriteString("\n")
	sb.WriteString(keyStyle.Render("Global: "))
	sb.WriteString("Tab Switch focus  q/^C Quit")

	return controlsStyle.Width(width).Height(height).Render(sb.String())
}

// ──────────────────────────── Overlay helpers ────────────────────────────

// overlayAt composites the overlay string on top of the background at
// visible position (x, y). ANSI sequences on both sides are preserved.
func overlayAt(bg, overlay string, x, y int) string {
	bgLines := strings.Split(bg, "\n")
	for i, ovLine := range strings.Split(overlay, "\n") {
		row := y + i
		if row < 0 || row >= len(bgLines) {
			continue
		}
		line := bgLines[row]
		if w := ansi.StringWidth(line); w < x {
			line += strings.Repeat(" ", x-w)
		}
		left := ansi.Truncate(line, x, "")
		right := ansi.TruncateLeft(line, x+ansi.StringWidth(ovLine), "")
		bgLines[row] = left + ovLine + right
	}
	return strings.Join(bgLines, "\n")
}
