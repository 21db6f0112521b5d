package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"sigtool/internal/analysis"
	"sigtool/internal/logging"
	"sigtool/internal/sigtool/styles"
	"sigtool/internal/ui/colorize"
	"sigtool/internal/workflow"
)

type viewMode int

const (
	viewFunctions viewMode = iota
	viewSignature
)

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <binary>",
		Short: "Pick functions interactively and generate their signatures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.plain {
				return errors.New("browse needs a terminal; use generate instead")
			}
			t, err := a.openELF(args[0], io.Discard)
			if err != nil {
				return err
			}
			defer t.Close()

			program := tea.NewProgram(
				newBrowseModel(cmd.Context(), t, a.logger),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := program.Run(); err != nil {
				slog.Error("TUI run error", "error", err)
				return fmt.Errorf("TUI error: %w", err)
			}
			return nil
		},
	}
}

type functionItem struct {
	fn   *analysis.Function
	name string
}

func (i functionItem) Title() string       { return fmt.Sprintf("%x  %s", i.fn.Addr, i.name) }
func (i functionItem) Description() string { return "" }
func (i functionItem) FilterValue() string { return fmt.Sprintf("%x %s", i.fn.Addr, i.name) }

type functionDelegate struct{}

func (d functionDelegate) Height() int                               { return 1 }
func (d functionDelegate) Spacing() int                              { return 0 }
func (d functionDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

var (
	addrStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	nameStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	sizeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	menuStyle     = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

func (d functionDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(functionItem)
	if !ok {
		return
	}
	indicator, as := " ", addrStyle
	if index == m.Index() {
		indicator, as = ">", selectedStyle
	}
	fmt.Fprintf(w, " %s  %s  %s %s",
		indicator,
		as.Render(fmt.Sprintf("%x", i.fn.Addr)),
		nameStyle.Render(i.name),
		sizeStyle.Render(fmt.Sprintf("(%d bytes)", i.fn.Size)))
}

// generatedMsg carries the outcome of one background generation.
type generatedMsg struct {
	item   functionItem
	res    *workflow.Result
	err    error
	alerts string
}

type browseModel struct {
	ctx    context.Context
	target *target
	logger *logging.LoggerCloser

	functions list.Model
	report    viewport.Model
	spinner   spinner.Model
	mode      viewMode
	busy      bool
	pending   string
	width     int
	height    int
}

func newBrowseModel(ctx context.Context, t *target, lg *logging.LoggerCloser) browseModel {
	funcs := t.index.Functions()
	items := make([]list.Item, 0, len(funcs))
	for _, f := range funcs {
		items = append(items, functionItem{fn: f, name: f.Name()})
	}

	l := list.New(items, functionDelegate{}, 80, 24)
	l.Title = fmt.Sprintf("Functions (%d total)", len(items))
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		MarginLeft(2)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(true)

	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	return browseModel{
		ctx:       ctx,
		target:    t,
		logger:    lg,
		functions: l,
		report:    vp,
		spinner:   s,
		width:     80,
		height:    24,
	}
}

// generateCmd runs the generator off the UI loop. Alerts are captured and
// shown in the report instead of being drawn over the screen.
func (m browseModel) generateCmd(item functionItem) tea.Cmd {
	session := *m.target.session
	return func() tea.Msg {
		var alerts strings.Builder
		session.Observer = &logging.Observer{Logger: m.logger.Logger, Alerts: &alerts}
		res, err := session.GenerateForFunction(m.ctx, item.fn)
		return generatedMsg{item: item, res: res, err: err, alerts: alerts.String()}
	}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case generatedMsg:
		m.busy = false
		m.pending = ""
		m.report.SetContent(m.renderResult(msg))
		m.report.GotoTop()
		m.mode = viewSignature
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.functions.SetWidth(msg.Width)
		m.functions.SetHeight(msg.Height - 2)
		m.report.SetWidth(msg.Width)
		m.report.SetHeight(msg.Height - 2)

	case tea.KeyMsg:
		if m.mode == viewFunctions && m.functions.FilterState() == list.Filtering {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "tab", "shift+tab":
			if m.mode == viewSignature {
				m.mode = viewFunctions
				return m, nil
			}
			if msg.String() != "esc" {
				m.mode = viewSignature
				return m, nil
			}
		case "enter":
			if m.mode != viewFunctions || m.busy {
				return m, nil
			}
			item, ok := m.functions.SelectedItem().(functionItem)
			if !ok {
				return m, nil
			}
			m.busy = true
			m.pending = item.name
			return m, tea.Batch(m.spinner.Tick, m.generateCmd(item))
		}
	}

	switch m.mode {
	case viewSignature:
		m.report, cmd = m.report.Update(msg)
	default:
		m.functions, cmd = m.functions.Update(msg)
	}
	return m, cmd
}

func (m browseModel) renderResult(msg generatedMsg) string {
	var md string
	switch {
	case msg.err != nil:
		md = fmt.Sprintf("# %s\n\n**Failed to get signature:** %s\n", msg.item.name, msg.err)
	default:
		md = generateMarkdown(msg.res)
	}
	if msg.alerts != "" {
		md += "\n```\n" + colorize.Strip(msg.alerts) + "\n```\n"
	}
	out := styles.Render(md, m.width-2)

	if msg.res != nil {
		out += "\n" + m.target.listing(msg.res.Address, msg.res.Length)
	}
	return strings.TrimSuffix(out, "\n")
}

func (m browseModel) View() string {
	var content, menu string
	switch m.mode {
	case viewSignature:
		content = m.report.View()
		menu = " Esc: functions • ↑/↓: scroll • Q: quit "
	default:
		content = m.functions.View()
		menu = " Enter: generate • /: filter • Tab: last signature • Q: quit "
	}
	if m.busy {
		menu = fmt.Sprintf(" %s Generating signature for %s ", m.spinner.View(), m.pending)
	}
	return content + "\n" + menuStyle.Width(m.width).Render(menu)
}
