package tui

import (
	"fmt"
	"strings"

	"github.com/HershLalwani/qlower/internal/decompositions"
	"github.com/HershLalwani/qlower/internal/ops"
)

// moduleItem is one rule module in the toggle menu.
type moduleItem struct {
	name        string
	description string
	kinds       []ops.Kind
	enabled     bool
}

// moduleMenu lists the configured modules first, in priority order and
// enabled, followed by the rest of the catalog, disabled.
func moduleMenu(configured []string) []moduleItem {
	cat := decompositions.Catalog(nil)
	var items []moduleItem
	seen := make(map[string]bool, len(cat))
	add := func(name string, enabled bool) {
		m, ok := cat[name]
		if !ok || seen[name] {
			return
		}
		seen[name] = true
		items = append(items, moduleItem{
			name:        name,
			description: m.Description,
			kinds:       m.Kinds(),
			enabled:     enabled,
		})
	}
	for _, name := range configured {
		add(name, true)
	}
	for _, name := range decompositions.DefaultOrder {
		add(name, false)
	}
	return items
}

// enabledModules returns the enabled module names in menu order.
func enabledModules(items []moduleItem) []string {
	names := []string{}
	for _, it := range items {
		if it.enabled {
			names = append(names, it.name)
		}
	}
	return names
}

func kindList(kinds []ops.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

// renderMenu renders the floating rule-module popup.
func (m Model) renderMenu() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Rule Modules"))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", 58)))
	sb.WriteString("\n")

	for i, it := range m.modules {
		box := "[ ]"
		if it.enabled {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %-22s %-10s", box, it.name, kindList(it.kinds))
		if i == m.menuItem {
			sb.WriteString(menuSelectedStyle.Render(" ▸ " + line))
		} else {
			sb.WriteString("   ")
			sb.WriteString(menuNormalStyle.Render(line))
		}
		sb.WriteString(" ")
		sb.WriteString(dimStyle.Render(it.description))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ↑↓ Select  Space Toggle  K/J Reorder  Esc ✕"))

	return menuBorderStyle.Render(sb.String())
}
