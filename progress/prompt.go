package progress

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

type keyModel struct {
	prompt string
}

func (m keyModel) Init() tea.Cmd { return nil }

func (m keyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return m, tea.Quit
	}
	return m, nil
}

func (m keyModel) View() string { return m.prompt }

// WaitForKey shows prompt on out and blocks until a key is read from in.
func WaitForKey(in io.Reader, out io.Writer, prompt string) error {
	program := tea.NewProgram(keyModel{prompt: prompt},
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("waiting for key: %w", err)
	}
	return nil
}
