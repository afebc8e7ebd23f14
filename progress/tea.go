package progress

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const teaTick = 100 * time.Millisecond

type tickMsg time.Time
type stopMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(teaTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// teaModel redraws the bars of all unfinished indicators.
type teaModel struct {
	agg   *Aggregator
	frame int
	done  bool
}

func (m teaModel) Init() tea.Cmd {
	return tick()
}

func (m teaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		m.frame++
		return m, tick()
	case stopMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m teaModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	for _, ind := range m.agg.active() {
		fmt.Fprintln(&b, formatLine(ind.State(), m.frame))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// teaRenderer drives a bubbletea program. Lines printed while it runs go
// above the live area; once it stops they go straight to out.
type teaRenderer struct {
	out     io.Writer
	program *tea.Program

	mu      sync.Mutex
	running bool
}

func newTeaRenderer(agg *Aggregator, out io.Writer) *teaRenderer {
	program := tea.NewProgram(teaModel{agg: agg},
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	return &teaRenderer{out: out, program: program}
}

func (r *teaRenderer) run(ctx context.Context) {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		_, _ = r.program.Run()

		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	<-ctx.Done()

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.program.Send(stopMsg{})
	<-exited
}

func (r *teaRenderer) attached(*Indicator) {}

func (r *teaRenderer) finished(ind *Indicator) {
	r.print(formatLine(ind.State(), 0))
}

func (r *teaRenderer) print(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		r.program.Send(tea.Println(line)())
		return
	}
	fmt.Fprintln(r.out, line)
}
