package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"redditscraper/internal/downloader"
)

// TUI drives the archive view. It implements downloader.Observer so it
// can be handed straight to an Archiver.
type TUI struct {
	program *tea.Program
	model   *Model
}

// Option configures the underlying program
type Option func(*[]tea.ProgramOption)

// WithIO replaces the terminal, mostly for tests
func WithIO(in io.Reader, out io.Writer) Option {
	return func(opts *[]tea.ProgramOption) {
		*opts = append(*opts, tea.WithInput(in), tea.WithOutput(out))
	}
}

func NewTUI(title string, opts ...Option) *TUI {
	model := NewModel(title)
	popts := []tea.ProgramOption{tea.WithAltScreen()}
	for _, o := range opts {
		o(&popts)
	}
	return &TUI{
		program: tea.NewProgram(&model, popts...),
		model:   &model,
	}
}

func (t *TUI) Begin(total int) {
	t.program.Send(BeginMsg{Total: total})
}

func (t *TUI) Settled(r downloader.Result) {
	t.program.Send(SettledMsg{Result: r})
}

func (t *TUI) Done(r downloader.Report) {
	t.program.Send(DoneMsg{Report: r})
}

// Log adds a line to the log panel
func (t *TUI) Log(level, message string) {
	t.program.Send(LogMsg{Level: level, Message: message})
}

// Run starts the view and calls work with a context that is cancelled
// when the user quits. It returns once the user leaves the view, with
// the error of work if it failed.
func (t *TUI) Run(ctx context.Context, work func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.model.onQuit = cancel

	workErr := make(chan error, 1)
	go func() {
		err := work(ctx)
		if err != nil {
			t.program.Send(AbortMsg{Err: err})
		}
		workErr <- err
	}()

	if _, err := t.program.Run(); err != nil {
		cancel()
		<-workErr
		return err
	}
	cancel()
	return <-workErr
}
