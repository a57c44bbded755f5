package main

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/midbel/cli"
	"github.com/midbel/xsltc/xslt"
)

var inspectCmd = cli.Command{
	Name:    "inspect",
	Summary: "browse the dispatch procedures of a stylesheet",
	Handler: &InspectCmd{},
}

type InspectCmd struct {
	Mode string
	CompileOptions
}

func (c *InspectCmd) Run(args []string) error {
	set := cli.NewFlagSet("inspect")
	set.StringVar(&c.Mode, "m", "", "browse only the procedures of mode")
	c.CompileOptions.attach(set)
	if err := set.Parse(args); err != nil {
		return err
	}
	prog, err := c.load(set.Arg(0))
	if err := reportDiagnostics(prog, err, true); err != nil {
		return err
	}
	listing, err := writeListing(prog, c.Mode)
	if err != nil {
		return err
	}
	m := newInspector(set.Arg(0), prog, styleListing(listing))
	_, err = tea.NewProgram(m).Run()
	return err
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	footerStyle = lipgloss.NewStyle().Faint(true).Padding(0, 1)
)

type inspector struct {
	file    string
	summary string
	view    viewport.Model
	ready   bool
}

func newInspector(file string, prog *xslt.Program, content string) inspector {
	var sparse int
	list := prog.Dispatches()
	for _, d := range list {
		if d.Sparse() {
			sparse++
		}
	}
	m := inspector{
		file:    file,
		summary: fmt.Sprintf("%d procedure(s), %d sparse, %d template(s)", len(list), sparse, len(prog.Templates)),
		view:    viewport.New(),
	}
	m.view.SetContent(content)
	return m
}

func (m inspector) Init() tea.Cmd {
	return nil
}

func (m inspector) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "g", "home":
			m.view.GotoTop()
			return m, nil
		case "G", "end":
			m.view.GotoBottom()
			return m, nil
		}
	case tea.WindowSizeMsg:
		height := msg.Height - lipgloss.Height(m.header()) - lipgloss.Height(m.footer())
		m.view.SetWidth(msg.Width)
		m.view.SetHeight(max(height, 1))
		m.ready = true
	}
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m inspector) View() tea.View {
	var body string
	if !m.ready {
		body = "loading..."
	} else {
		body = strings.Join([]string{m.header(), m.view.View(), m.footer()}, "\n")
	}
	v := tea.NewView(body)
	v.AltScreen = true
	return v
}

func (m inspector) header() string {
	return titleStyle.Render(m.file) + " " + infoStyle.Render(m.summary)
}

func (m inspector) footer() string {
	return footerStyle.Render(fmt.Sprintf("%3.f%% - q: quit, g/G: top/bottom", m.view.ScrollPercent()*100))
}
