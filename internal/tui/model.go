// Package tui is the terminal chat client.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"documentor/internal/server"
)

// ChatPort is the TUI-facing subset of the API client.
type ChatPort interface {
	IngestFile(ctx context.Context, path string) (server.IngestBody, error)
	Ask(ctx context.Context, prompt string) (server.ChatBody, error)
}

type speaker int

const (
	speakerSystem speaker = iota
	speakerUser
	speakerBot
	speakerError
)

type entry struct {
	who      speaker
	text     string
	question string
	context  []string
}

type askDoneMsg struct {
	prompt string
	body   server.ChatBody
	err    error
}

type ingestDoneMsg struct {
	path string
	body server.IngestBody
	err  error
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	port        ChatPort
	input       textinput.Model
	viewport    viewport.Model
	transcript  []entry
	status      string
	server      string
	initialFile string
	timeout     time.Duration
	busy        bool
	showContext bool
	ready       bool
}

// Option configures a Model.
type Option func(*Model)

// WithInitialFile ingests path as soon as the UI starts.
func WithInitialFile(path string) Option {
	return func(m *Model) { m.initialFile = path }
}

func WithTimeout(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// New creates a chat model talking to serverURL through port.
func New(port ChatPort, serverURL string, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your document, or /ingest <path>"
	ti.Focus()
	ti.CharLimit = 8000
	vp := viewport.New(0, 0)

	m := Model{
		port:     port,
		input:    ti,
		viewport: vp,
		server:   serverURL,
		timeout:  3 * time.Minute,
		status:   "Enter sends · /ingest <path> uploads · /context toggles sources · Ctrl+C quits",
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.initialFile != "" {
		m.busy = true
		m.status = "Uploading " + m.initialFile + "..."
	}
	return m
}

// Init starts the cursor blink and the initial upload, if any.
func (m Model) Init() tea.Cmd {
	if m.initialFile == "" {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, ingestCmd(m.port, m.timeout, m.initialFile))
}

// Update handles key, window and request-completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case askDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.append(entry{who: speakerError, text: msg.err.Error()})
			m.status = "Request failed"
		} else {
			m.append(entry{who: speakerBot, text: msg.body.Response, question: msg.prompt, context: msg.body.Context})
			m.status = fmt.Sprintf("Answered from %d chunk(s)", len(msg.body.Context))
		}
		return m, nil

	case ingestDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.append(entry{who: speakerError, text: fmt.Sprintf("ingest %s: %v", msg.path, msg.err)})
			m.status = "Upload failed"
		} else {
			m.append(entry{who: speakerSystem, text: msg.body.Message})
			m.status = fmt.Sprintf("Ready: %d chunk(s) indexed", msg.body.ChunkCount)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			return m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	if m.busy {
		m.status = "Still waiting for the previous request"
		return m, nil
	}
	m.input.SetValue("")

	switch {
	case line == "/quit" || line == "/exit":
		return m, tea.Quit
	case line == "/context":
		m.showContext = !m.showContext
		m.refresh()
		return m, nil
	case strings.HasPrefix(line, "/ingest"):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/ingest"))
		if path == "" {
			m.status = "Usage: /ingest <path>"
			return m, nil
		}
		m.busy = true
		m.status = "Uploading " + path + "..."
		return m, ingestCmd(m.port, m.timeout, path)
	}

	m.append(entry{who: speakerUser, text: line})
	m.busy = true
	m.status = "Thinking..."
	port, timeout := m.port, m.timeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		body, err := port.Ask(ctx, line)
		return askDoneMsg{prompt: line, body: body, err: err}
	}
}

func ingestCmd(port ChatPort, timeout time.Duration, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		body, err := port.IngestFile(ctx, path)
		return ingestDoneMsg{path: path, body: body, err: err}
	}
}

func (m *Model) append(e entry) {
	m.transcript = append(m.transcript, e)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the header, transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("DocuMentor") + " " + dimStyle.Render(m.server)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return dimStyle.Render("No messages yet. Upload a document with /ingest <path>, then ask away.")
	}
	width := max(20, m.viewport.Width-2)
	var b strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch e.who {
		case speakerUser:
			b.WriteString(userStyle.Render("You: ") + e.text)
		case speakerBot:
			b.WriteString(botStyle.Render("Bot: ") + lipgloss.NewStyle().Width(width).Render(e.text))
			if m.showContext {
				for n, chunk := range e.context {
					b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("  [%d] ", n+1)) + highlightBestSentence(chunk, e.question))
				}
			}
		case speakerError:
			b.WriteString(errorStyle.Render("Error: " + e.text))
		default:
			b.WriteString(dimStyle.Render(e.text))
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle        = lipgloss.NewStyle().Bold(true)
	dimStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe      = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe         = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasises the sentence of text sharing the most
// words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
