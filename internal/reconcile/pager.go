package reconcile

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
)

// Pager is an interactive terminal pager for rendered reports.
type Pager struct {
	title string
}

var (
	pagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	pagerHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// NewPager creates a pager with a header title.
func NewPager(title string) *Pager {
	return &Pager{title: title}
}

// Run displays content until the user quits.
func (p *Pager) Run(content string) error {
	prog := tea.NewProgram(
		&pagerModel{title: p.title, content: content},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := prog.Run()
	return err
}

// RunLive displays content and re-renders whenever the watched file
// changes.
func (p *Pager) RunLive(path string, render func() (string, error)) error {
	content, err := render()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	prog := tea.NewProgram(
		&pagerModel{
			title:   p.title + " (LIVE)",
			content: content,
			live:    true,
			render:  render,
			watcher: watcher,
		},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = prog.Run()
	watcher.Close()
	return err
}

type fileChangedMsg struct{}

type pagerModel struct {
	viewport viewport.Model
	title    string
	content  string
	ready    bool
	live     bool
	render   func() (string, error)
	watcher  *fsnotify.Watcher
}

func (m *pagerModel) Init() tea.Cmd {
	if m.live {
		return m.waitForChange()
	}
	return nil
}

func (m *pagerModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-m.watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					return fileChangedMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		headerHeight := 2
		footerHeight := 1
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
	case fileChangedMsg:
		if m.render != nil {
			if content, err := m.render(); err == nil {
				m.content = content
				atBottom := m.viewport.AtBottom()
				m.viewport.SetContent(content)
				if atBottom {
					m.viewport.GotoBottom()
				}
			}
		}
		return m, m.waitForChange()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "loading..."
	}
	header := pagerTitleStyle.Render(m.title)
	footer := pagerHelpStyle.Render(fmt.Sprintf("%3.f%%  ↑/↓ scroll · q quit", m.viewport.ScrollPercent()*100))
	return fmt.Sprintf("%s\n\n%s\n%s", header, m.viewport.View(), footer)
}
