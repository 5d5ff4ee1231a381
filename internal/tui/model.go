// Package tui implements the interactive terminal chat session using
// Bubble Tea: a scrolling transcript viewport, a single-line input, and
// token-by-token rendering of streamed answers.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Assistant is the TUI-facing subset of the chat engine.
type Assistant interface {
	// HandleMessage answers one line of input, streaming increments
	// through emit as they are generated.
	HandleMessage(ctx context.Context, input string, emit func(string) error) (string, error)

	// Welcome returns the greeting shown when the session starts.
	Welcome() string
}

// streamTokenMsg carries one streamed answer increment.
type streamTokenMsg string

// streamDoneMsg signals the end of one exchange. Reply is the complete
// answer, which may extend beyond the streamed tokens (command replies and
// failure notices are never streamed).
type streamDoneMsg struct {
	reply string
	err   error
}

var (
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the Bubble Tea model for the chat session.
type Model struct {
	assistant Assistant
	ctx       context.Context

	input    textinput.Model
	viewport viewport.Model

	// transcript holds the completed exchanges, already styled.
	transcript []string
	// pending accumulates the answer currently being streamed.
	pending string
	// streaming is true while an exchange is in flight; input is ignored.
	streaming bool
	status    string
	ready     bool

	// tokens and done carry one in-flight exchange from the engine
	// goroutine back into the update loop.
	tokens chan string
	done   chan streamDoneMsg
}

// New creates a chat session model bound to the given assistant.
func New(ctx context.Context, assistant Assistant) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents, or type help"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		assistant:  assistant,
		ctx:        ctx,
		input:      ti,
		viewport:   vp,
		transcript: []string{assistant.Welcome()},
		status:     "Ready.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := ih + 2 // input frame + status + spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width-2)
		m.viewport.Height = vh
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.streaming {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			if q == "exit" || q == "quit" {
				return m, tea.Quit
			}
			m.input.Reset()
			return m.submit(q)
		}

	case streamTokenMsg:
		m.pending += string(msg)
		m.refresh()
		return m, m.nextToken()

	case streamDoneMsg:
		m.streaming = false
		m.pending = ""
		if msg.err != nil {
			m.transcript = append(m.transcript, errorStyle.Render("Session aborted: "+msg.err.Error()))
			m.status = "Error."
		} else {
			// The complete reply supersedes the streamed prefix: command
			// replies and failure notices only exist here.
			m.transcript = append(m.transcript, msg.reply)
			m.status = "Ready."
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts one exchange: the engine runs in its own goroutine and
// feeds tokens back through the model's channels.
func (m Model) submit(q string) (tea.Model, tea.Cmd) {
	m.transcript = append(m.transcript, userStyle.Render("You: ")+q)
	m.streaming = true
	m.status = "Thinking..."
	m.pending = ""
	m.tokens = make(chan string, 64)
	m.done = make(chan streamDoneMsg, 1)
	m.refresh()

	assistant, ctx := m.assistant, m.ctx
	tokens, done := m.tokens, m.done
	run := func() tea.Msg {
		reply, err := assistant.HandleMessage(ctx, q, func(s string) error {
			tokens <- s
			return nil
		})
		close(tokens)
		done <- streamDoneMsg{reply: reply, err: err}
		return nil
	}
	return m, tea.Batch(run, m.nextToken())
}

// nextToken waits for the next streamed token, or the final result once the
// token channel is drained.
func (m Model) nextToken() tea.Cmd {
	tokens, done := m.tokens, m.done
	return func() tea.Msg {
		if s, ok := <-tokens; ok {
			return streamTokenMsg(s)
		}
		return <-done
	}
}

// refresh re-renders the transcript into the viewport, keeping the tail
// visible.
func (m *Model) refresh() {
	var b strings.Builder
	for i, entry := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(entry)
	}
	if m.streaming {
		b.WriteString("\n\n")
		b.WriteString(m.pending)
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// View renders the transcript, input line, and status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return transcript + "\n" + input + "\n" + status
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
