package installer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	selStyle   = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("5"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Step is one screen of the wizard. Update returns nil when the step is done.
type Step interface {
	Init() tea.Cmd
	Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd)
	View(state *InstallState) string
}

// skipper is implemented by steps that only apply to some answers.
type skipper interface {
	Skip(state *InstallState) bool
}

type nextMsg struct{}

func next() tea.Msg { return nextMsg{} }

type model struct {
	steps       []Step
	currentStep int
	state       *InstallState
	quitting    bool
}

func newModel(steps []Step, state *InstallState) model {
	m := model{steps: steps, state: state}
	m.currentStep = m.firstApplicable(0)
	return m
}

func (m model) firstApplicable(from int) int {
	for i := from; i < len(m.steps); i++ {
		if s, ok := m.steps[i].(skipper); ok && s.Skip(m.state) {
			continue
		}
		return i
	}
	return len(m.steps)
}

func (m model) done() bool {
	return m.currentStep >= len(m.steps)
}

func (m model) Init() tea.Cmd {
	if m.done() {
		return tea.Quit
	}
	return m.steps[m.currentStep].Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if m.done() {
		return m, tea.Quit
	}

	nextStep, cmd := m.steps[m.currentStep].Update(msg, m.state)
	if nextStep != nil {
		m.steps[m.currentStep] = nextStep
		return m, cmd
	}

	m.currentStep = m.firstApplicable(m.currentStep + 1)
	if m.done() {
		return m, tea.Quit
	}
	return m, m.steps[m.currentStep].Init()
}

func (m model) View() string {
	if m.quitting {
		return "Installation cancelled.\n"
	}
	if m.done() {
		return "Configuration complete!\n"
	}
	return titleStyle.Render("DocQA setup") + "\n\n" + m.steps[m.currentStep].View(m.state)
}

// RunWizard asks for the provider, embedding, harvest and Telegram settings
// and writes them to <runtimePath>/.env.
func RunWizard(runtimePath string) (*InstallState, error) {
	state := NewInstallState(runtimePath)
	p := tea.NewProgram(newModel(Steps(), state), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return nil, err
	}

	final := m.(model)
	if final.quitting {
		return nil, fmt.Errorf("installation interrupted")
	}
	if save, ok := final.steps[len(final.steps)-1].(*saveStep); ok && save.err != nil {
		return nil, save.err
	}
	return final.state, nil
}
