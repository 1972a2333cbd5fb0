// Package tui is the terminal explorer: edit QASM on the left, watch the
// lowered circuit on the right, and toggle rule modules to see how the
// output changes.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/HershLalwani/qlower/internal/config"
	"github.com/HershLalwani/qlower/internal/pipeline"
)

// focus represents which panel has keyboard input.
type focus int

const (
	focusEditor focus = iota
	focusOutput
	focusMenu
)

// outputView selects what the output panel shows.
type outputView int

const (
	viewDiagram outputView = iota
	viewQASM
)

// DefaultSavePath is where ctrl+s writes the lowered program.
const DefaultSavePath = "lowered.qasm"

type Option func(*Model)

func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}

// WithSavePath changes where ctrl+s writes.
func WithSavePath(path string) Option {
	return func(m *Model) {
		m.savePath = path
	}
}

// Model represents the explorer state.
type Model struct {
	base     *config.Config
	log      *zap.Logger
	savePath string

	editor     textarea.Model
	focus      focus
	view       outputView
	lastSource string
	startLayer int
	width      int
	height     int
	statusMsg  string

	modules  []moduleItem
	menuItem int

	result *pipeline.Result
	err    error
}

// New returns an explorer seeded with src and lowering with cfg.
func New(cfg *config.Config, src string, opts ...Option) Model {
	if cfg == nil {
		cfg = config.Default()
	}
	ta := textarea.New()
	ta.Placeholder = "Edit QASM here..."
	ta.SetWidth(40)
	ta.SetHeight(20)
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.KeyMap.InsertNewline.SetEnabled(true)
	ta.SetValue(src)
	ta.Focus()

	m := Model{
		base:     cfg,
		log:      zap.NewNop(),
		savePath: DefaultSavePath,
		editor:   ta,
		focus:    focusEditor,
		modules:  moduleMenu(cfg.Rules),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.recompile()
	return m
}

// recompile lowers the editor contents with the enabled modules.
func (m *Model) recompile() {
	cfg := *m.base
	cfg.Rules = enabledModules(m.modules)
	m.lastSource = m.editor.Value()
	m.result, m.err = pipeline.New(&cfg,
		pipeline.WithLogger(m.log),
		pipeline.WithCheck(1),
	).Compile(m.lastSource)
	if m.result != nil {
		m.startLayer = min(m.startLayer, max(m.result.Depth()-1, 0))
	}
}

func (m *Model) save() {
	if m.result == nil || m.err != nil {
		m.statusMsg = "Nothing to save"
		return
	}
	out, err := m.result.QASM()
	if err != nil {
		m.statusMsg = fmt.Sprintf("Save error: %v", err)
		return
	}
	if err := os.WriteFile(m.savePath, []byte(out), 0o644); err != nil {
		m.statusMsg = fmt.Sprintf("Save error: %v", err)
		return
	}
	m.statusMsg = "Saved " + m.savePath
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.SetWidth(max(msg.Width/3-6, 20))
		ctrlH := 6
		m.editor.SetHeight(max(msg.Height-ctrlH-8, 4))

	case tea.KeyMsg:
		key := msg.String()
		m.statusMsg = ""

		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusEditor:
			switch key {
			case "tab", "esc":
				m.focus = focusOutput
				m.editor.Blur()
			default:
				var cmd tea.Cmd
				m.editor, cmd = m.editor.Update(msg)
				cmds = append(cmds, cmd)
				if m.editor.Value() != m.lastSource {
					m.recompile()
				}
			}

		case focusOutput:
			switch key {
			case "q":
				return m, tea.Quit
			case "tab":
				m.focus = focusEditor
				cmds = append(cmds, m.editor.Focus())
			case "r":
				m.focus = focusMenu
			case "v":
				if m.view == viewDiagram {
					m.view = viewQASM
				} else {
					m.view = viewDiagram
				}
			case "left", "h":
				if m.startLayer > 0 {
					m.startLayer--
				}
			case "right", "l":
				if m.result != nil && m.startLayer < m.result.Depth()-1 {
					m.startLayer++
				}
			case "ctrl+s":
				m.save()
			}

		case focusMenu:
			switch key {
			case "esc", "r":
				m.focus = focusOutput
			case "up", "k":
				if m.menuItem > 0 {
					m.menuItem--
				}
			case "down", "j":
				if m.menuItem < len(m.modules)-1 {
					m.menuItem++
				}
			case "K":
				if m.menuItem > 0 {
					m.modules[m.menuItem-1], m.modules[m.menuItem] = m.modules[m.menuItem], m.modules[m.menuItem-1]
					m.menuItem--
					m.recompile()
				}
			case "J":
				if m.menuItem < len(m.modules)-1 {
					m.modules[m.menuItem+1], m.modules[m.menuItem] = m.modules[m.menuItem], m.modules[m.menuItem+1]
					m.menuItem++
					m.recompile()
				}
			case " ", "enter":
				m.modules[m.menuItem].enabled = !m.modules[m.menuItem].enabled
				m.recompile()
			}
		}
	}

	return m, tea.Batch(cmds...)
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	editorWidth := m.width / 3
	outputWidth := m.width - editorWidth - 4
	controlsHeight := 6
	panelHeight := max(m.height-controlsHeight-2, 6)

	outputPanel := m.renderOutputPanel(outputWidth, panelHeight)
	editorPanel := m.renderEditorPanel(editorWidth, panelHeight)
	controlsPanel := m.renderControlsPanel(m.width-4, controlsHeight-2)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, editorPanel, outputPanel)
	frame := lipgloss.JoinVertical(lipgloss.Left, topRow, controlsPanel)

	if m.focus == focusMenu {
		frame = overlayAt(frame, m.renderMenu(), 2, 2)
	}
	return frame
}

// statsLine summarizes the last lowering run.
func (m Model) statsLine() string {
	if m.result == nil {
		return ""
	}
	st := m.result.Stats
	var sb strings.Builder
	fmt.Fprintf(&sb, "commands %d  rewrites %d  backtracks %d  rule depth %d  moments %d",
		len(m.result.Lowered), st.Rewrites, st.Backtracks, st.MaxDepth, m.result.Depth())
	switch {
	case m.err != nil:
	case m.result.Checked:
		fmt.Fprintf(&sb, "  Δ %.1e", m.result.Delta)
	default:
		fmt.Fprintf(&sb, "  Δ n/a (> %d qubits)", pipeline.MaxCheckQubits)
	}
	return sb.String()
}
