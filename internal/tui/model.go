package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/plumecli/plume/internal/backend"
	"github.com/plumecli/plume/internal/composer"
	"github.com/plumecli/plume/internal/config"
	"github.com/plumecli/plume/internal/domain"
	"github.com/plumecli/plume/internal/store"
)

// StreamDeltaMsg carries one streamed text fragment from the backend.
type StreamDeltaMsg struct {
	Text string
}

// StreamDoneMsg signals the end of a backend stream.
type StreamDoneMsg struct {
	Err error
}

// SessionListMsg carries the result of a session listing.
type SessionListMsg struct {
	Sessions []domain.Session
	Err      error
}

// historyLoadedMsg carries replayed session messages on resume.
type historyLoadedMsg struct {
	msgs  []domain.TranscriptMessage
	title string
}

// Model is the Bubble Tea model for the plume chat composer.
type Model struct {
	width   int
	height  int
	version string

	// Composer state. The buffer is a value; every mutation swaps in the
	// state returned by the operation.
	input  composer.InputState
	images *composer.ImageStore

	thinking  bool
	streaming bool
	spinner   spinner.Model

	messages []domain.TranscriptMessage

	// Settled-transcript cache: messages before settledCount are already
	// formatted into settledLines and never repainted.
	settledLines []string
	settledCount int

	history      []string
	historyIdx   int
	historyDraft string

	Store    *store.Store
	Session  *domain.Session
	Backend  backend.Streamer
	Prefs    config.Preferences
	Log      *config.Logger
	resuming bool

	cancelStream context.CancelFunc

	// Autocomplete state
	completions   []string
	completionIdx int
	completionOn  bool

	// Paste detection: rapid keystrokes (< 5ms apart) indicate pasted text.
	lastKeypressTime time.Time
}

// InitialModel creates the initial Bubble Tea model.
func InitialModel(b backend.Streamer, version string, st *store.Store, session *domain.Session, resuming bool, prefs config.Preferences, log *config.Logger) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		Backend:    b,
		version:    version,
		spinner:    sp,
		input:      composer.NewInputState(),
		images:     composer.NewImageStore(),
		historyIdx: -1,
		Store:      st,
		Session:    session,
		Prefs:      prefs,
		Log:        log,
		resuming:   resuming,
	}
}

// Init initializes the Bubble Tea model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.resuming {
		cmds = append(cmds, m.loadSessionHistory())
	}
	return tea.Batch(cmds...)
}

// loadSessionHistory replays persisted messages into the transcript.
func (m Model) loadSessionHistory() tea.Cmd {
	sessionID := m.Session.ID
	st := m.Store
	return func() tea.Msg {
		msgs, err := st.GetMessages(sessionID)
		if err != nil {
			return historyLoadedMsg{}
		}
		return historyLoadedMsg{msgs: msgs, title: st.SessionTitle(sessionID)}
	}
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.invalidateSettled()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ClipboardMsg:
		return m.handleClipboard(msg)

	case ClipboardWriteMsg:
		if msg.Err != nil {
			m.pushSystem("Copy failed: " + msg.Err.Error())
		} else if msg.OK {
			m.pushSystem("Copied to clipboard.")
		}
		return m, nil

	case StreamDeltaMsg:
		if !m.streaming {
			m.streaming = true
			m.messages = append(m.messages, domain.TranscriptMessage{Role: "assistant"})
		}
		last := &m.messages[len(m.messages)-1]
		if last.Content == "" {
			msg.Text = strings.TrimLeft(msg.Text, "\n\r")
		}
		last.Content += msg.Text
		return m, nil

	case StreamDoneMsg:
		return m.handleStreamDone(msg)

	case historyLoadedMsg:
		if len(msg.msgs) > 0 {
			m.messages = msg.msgs
			m.pushSystem(fmt.Sprintf("Resumed: %s  (%d messages)", msg.title, len(msg.msgs)))
		}
		return m, nil

	case SessionListMsg:
		return m.handleSessionList(msg)

	case spinner.TickMsg:
		if m.thinking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	default:
		return m, nil
	}
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

// View renders the settled transcript from cache, the streaming tail fresh,
// and the composer line below.
func (m Model) View() string {
	var b strings.Builder

	if len(m.settledLines) == 0 && len(m.messages) == 0 {
		b.WriteString(WelcomeStyle.Render("Welcome to plume. Drop an image or just start typing.") + "\n\n")
	}

	for _, line := range m.settledLines {
		b.WriteString(line + "\n")
	}

	_, tail := SplitTranscript(m.messages, m.streaming)
	for _, msg := range tail {
		for _, line := range FormatMessage(msg, m.viewWidth()) {
			b.WriteString(line + "\n")
		}
	}
	if len(m.settledLines) > 0 || len(tail) > 0 {
		b.WriteString("\n")
	}

	if m.thinking && !m.streaming {
		b.WriteString(ThinkingStyle.Render(m.spinner.View()+" Thinking...") + "\n\n")
	}

	// Composer line with inline cursor and visual wrapping.
	promptLines := strings.Split(withInlineCursor(m.input.Prompt(), m.input.PromptCursor()), "\n")
	first := true
	for _, line := range promptLines {
		for _, wl := range hardWrapLine(line, m.viewWidth()) {
			if first {
				b.WriteString(PromptStyle.Render("❯ ") + InputStyle.Render(wl))
				first = false
			} else {
				b.WriteString("\n" + PromptStyle.Render("  ") + InputStyle.Render(wl))
			}
		}
	}

	if m.completionOn && len(m.completions) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderCompletionMenu(m.completions, m.completionIdx, max(40, m.width)))
	}

	b.WriteString("\n\n")
	footerParts := []string{fmt.Sprintf("plume %s", m.version)}
	if m.Prefs.Model != "" {
		footerParts = append(footerParts, m.Prefs.Model)
	}
	if n := len(m.input.Images()); n > 0 {
		footerParts = append(footerParts, fmt.Sprintf("images: %d", n))
	}
	b.WriteString(FooterHead.Render(strings.Join(footerParts, " · ")))
	if m.Prefs.FooterTokens {
		chars := 0
		for _, msg := range m.messages {
			chars += len(msg.Content)
		}
		// Rough local estimate; the backend does not report usage.
		b.WriteString("\n")
		b.WriteString(FooterMeta.Render(fmt.Sprintf("   ~%.1fk tokens · %d messages", float64(chars)/4000.0, len(m.messages))))
	}
	if m.Prefs.FooterCwd {
		b.WriteString("\n")
		b.WriteString(FooterMeta.Render("   cwd: " + MustGetwd()))
	}
	if m.Prefs.FooterSession {
		b.WriteString("\n")
		sessionLine := "   session: " + m.Session.ID[:8]
		if m.Session.Title != "New Session" {
			sessionLine = "   session: " + m.Session.Title
		}
		b.WriteString(FooterMeta.Render(sessionLine))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewWidth() int {
	if m.width < 12 {
		return 78
	}
	return m.width - 2
}

// ---------------------------------------------------------------------------
// Settled-transcript cache
// ---------------------------------------------------------------------------

func (m *Model) invalidateSettled() {
	m.settledLines = nil
	m.settledCount = 0
}

// settle formats any newly settled messages into the line cache. Called
// after every change to m.messages or m.streaming.
func (m *Model) settle() {
	settled, _ := SplitTranscript(m.messages, m.streaming)
	for i := m.settledCount; i < len(settled); i++ {
		m.settledLines = append(m.settledLines, FormatMessage(settled[i], m.viewWidth())...)
		m.settledLines = append(m.settledLines, "")
	}
	m.settledCount = len(settled)
}

func (m *Model) pushSystem(text string) {
	m.messages = append(m.messages, domain.TranscriptMessage{Role: "system", Content: text})
	m.settle()
}

func (m *Model) pushError(text string) {
	m.messages = append(m.messages, domain.TranscriptMessage{Role: "system", Content: text})
	// Restyle the line we just settled.
	before := len(m.settledLines)
	m.settle()
	for i := before; i < len(m.settledLines); i++ {
		if m.settledLines[i] != "" {
			m.settledLines[i] = ErrorLineStyle.Render(stripANSI(m.settledLines[i]))
		}
	}
}

// ---------------------------------------------------------------------------
// Key handler
// ---------------------------------------------------------------------------

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		if m.completionOn {
			m.dismissCompletions()
			return m, nil
		}
		if m.thinking {
			if m.cancelStream != nil {
				m.cancelStream()
			}
			m.thinking = false
			m.streaming = false
			m.settle()
			m.pushSystem("Generation cancelled.")
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyTab:
		if m.thinking {
			return m, nil
		}
		if strings.HasPrefix(m.input.Text(), "/") {
			if !m.completionOn {
				m.completions = ComputeCompletions(m.input.Text())
				if len(m.completions) > 0 {
					m.completionOn = true
					m.completionIdx = 0
					m.setInputText(m.completions[0])
				}
			} else if len(m.completions) > 0 {
				m.completionIdx = (m.completionIdx + 1) % len(m.completions)
				m.setInputText(m.completions[m.completionIdx])
			}
		}
		return m, nil

	case tea.KeyShiftTab:
		if m.completionOn && len(m.completions) > 0 {
			m.completionIdx = (m.completionIdx - 1 + len(m.completions)) % len(m.completions)
			m.setInputText(m.completions[m.completionIdx])
		}
		return m, nil

	case tea.KeyCtrlJ:
		if !m.thinking {
			m.dismissCompletions()
			m.input = m.input.InsertText("\n", 0)
			m.resetHistory()
		}
		return m, nil

	case tea.KeyEnter:
		if m.thinking {
			return m, nil
		}
		// Bracketed paste flag OR rapid keystrokes (< 5ms) indicate pasted
		// text -- treat Enter as a literal newline, not submit.
		now := time.Now()
		isPaste := msg.Paste || (!m.lastKeypressTime.IsZero() && now.Sub(m.lastKeypressTime) < 5*time.Millisecond)
		m.lastKeypressTime = now
		if isPaste {
			m.input = m.input.InsertText("\n", 0)
			return m, nil
		}
		if m.completionOn {
			selected := m.input.Text()
			m.dismissCompletions()
			if CommandExpectsArgs(selected) {
				m.setInputText(selected + " ")
				return m, nil
			}
			m.setInputText(selected)
		}
		return m.submit()

	case tea.KeyUp:
		if !m.thinking {
			m.dismissCompletions()
			m.browseHistoryBack()
		}
		return m, nil

	case tea.KeyDown:
		if !m.thinking {
			m.dismissCompletions()
			m.browseHistoryForward()
		}
		return m, nil

	case tea.KeyLeft:
		m.input = m.input.MoveCursor(-1)
		return m, nil

	case tea.KeyRight:
		m.input = m.input.MoveCursor(1)
		return m, nil

	case tea.KeyHome, tea.KeyCtrlA:
		m.input = m.input.CursorToStart()
		return m, nil

	case tea.KeyEnd, tea.KeyCtrlE:
		m.input = m.input.CursorToEnd()
		return m, nil

	case tea.KeyBackspace:
		if !m.thinking {
			m.dismissCompletions()
			if next, ok := m.input.DeleteBeforeCursor(); ok {
				m.input = next
				m.resetHistory()
			}
		}
		return m, nil

	case tea.KeyDelete:
		if !m.thinking {
			m.dismissCompletions()
			if next, ok := m.input.DeleteAtCursor(); ok {
				m.input = next
				m.resetHistory()
			}
		}
		return m, nil

	case tea.KeyCtrlV, tea.KeyInsert:
		if m.thinking {
			return m, nil
		}
		m.dismissCompletions()
		return m, ReadClipboardCmd()

	case tea.KeyCtrlY:
		return m, WriteClipboardCmd(m.lastAssistantMessage())

	default:
		if !m.thinking {
			m.dismissCompletions()
			if msg.Paste && len(msg.Runes) > 0 {
				m.classifyPaste(filterNulls(msg.Runes))
				m.resetHistory()
				m.lastKeypressTime = time.Now()
			} else if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 {
				text := filterNulls(msg.Runes)
				now := time.Now()
				if !m.lastKeypressTime.IsZero() && now.Sub(m.lastKeypressTime) < 5*time.Millisecond {
					// Unflagged terminal paste delivered as rapid runes.
					m.classifyPaste(text)
				} else {
					m.input = m.input.InsertText(text, 0)
				}
				m.resetHistory()
				m.lastKeypressTime = now
			}
		}
		return m, nil
	}
}

// classifyPaste routes pasted or dropped text through the composer's
// paste/drop classifier. File drops become image segments; everything else
// inserts as text, collapsing past the configured threshold.
func (m *Model) classifyPaste(raw string) {
	m.input = composer.InsertPaste(m.input, raw, m.Prefs.PasteCollapseThreshold, m.images, func(err error) {
		if m.Log != nil {
			m.Log.Printf("drop failed: %v", err)
		}
		m.pushError("Drop failed: " + err.Error())
	})
}

func (m Model) handleClipboard(msg ClipboardMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil || m.thinking {
		return m, nil
	}
	pasted := strings.ReplaceAll(msg.Text, "\r\n", "\n")
	pasted = strings.ReplaceAll(pasted, "\r", "\n")
	pasted = strings.TrimRight(pasted, "\n")
	if pasted != "" {
		m.classifyPaste(pasted)
		m.resetHistory()
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Submit and streaming
// ---------------------------------------------------------------------------

func (m Model) submit() (tea.Model, tea.Cmd) {
	trimmed := strings.TrimSpace(m.input.Text())
	if trimmed == "" {
		m.input = composer.NewInputState()
		return m, nil
	}
	if strings.HasPrefix(trimmed, "/") {
		return m.handleSlashCommand(trimmed)
	}

	blocks := m.input.Blocks(m.images)
	userMsg := domain.TranscriptMessage{Role: "user", Content: m.input.Text()}
	hasImages := false
	for _, bl := range blocks {
		if bl.Type == "image" {
			hasImages = true
		}
	}
	if hasImages {
		userMsg.Blocks = blocks
	}

	m.messages = append(m.messages, userMsg)
	m.history = append(m.history, m.input.Text())
	m.historyIdx = -1
	m.historyDraft = ""
	m.input = composer.NewInputState()
	m.thinking = true
	m.streaming = false
	m.settle()

	if m.Log != nil {
		m.Log.Printf("submit: %d chars, %d blocks", len(userMsg.Content), len(userMsg.Blocks))
	}
	if err := m.persistMessage(userMsg); err != nil && m.Log != nil {
		m.Log.Printf("persist user message: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelStream = cancel
	return m, tea.Batch(
		StreamFromBackend(ctx, m.Backend, m.Prefs.Model, append([]domain.TranscriptMessage(nil), m.messages...)),
		m.spinner.Tick,
	)
}

func (m *Model) persistMessage(msg domain.TranscriptMessage) error {
	if m.Store == nil {
		return nil
	}
	if msg.HasBlocks() {
		return m.Store.AppendMessageBlocks(m.Session.ID, msg.Role, msg.Blocks)
	}
	return m.Store.AppendMessage(m.Session.ID, msg.Role, msg.Content)
}

func (m Model) handleStreamDone(msg StreamDoneMsg) (tea.Model, tea.Cmd) {
	wasStreaming := m.streaming
	m.thinking = false
	m.streaming = false
	m.cancelStream = nil

	if msg.Err != nil {
		// A cancelled stream already reported through the key handler.
		if errors.Is(msg.Err, context.Canceled) {
			m.settle()
			return m, nil
		}
		// Drop a partial assistant tail rather than settling it.
		if wasStreaming && len(m.messages) > 0 && m.messages[len(m.messages)-1].Role == "assistant" {
			m.messages = m.messages[:len(m.messages)-1]
		}
		if m.Log != nil {
			m.Log.Printf("stream error: %v", msg.Err)
		}
		m.pushError("Error: " + msg.Err.Error())
		return m, nil
	}

	if wasStreaming && len(m.messages) > 0 {
		asst := m.messages[len(m.messages)-1]
		if err := m.persistMessage(asst); err != nil && m.Log != nil {
			m.Log.Printf("persist assistant message: %v", err)
		}
	}
	m.maybeTitleSession()
	m.settle()
	return m, nil
}

// maybeTitleSession derives a session title from the first user message.
func (m *Model) maybeTitleSession() {
	if m.Store == nil || m.Session.Title != "New Session" {
		return
	}
	for _, msg := range m.messages {
		if msg.Role != "user" {
			continue
		}
		title := strings.Join(strings.Fields(msg.TextContent()), " ")
		if len(title) > 48 {
			title = title[:48]
		}
		if title == "" {
			return
		}
		if err := m.Store.UpdateSessionTitle(m.Session.ID, title); err == nil {
			m.Session.Title = title
		}
		return
	}
}

// StreamFromBackend starts a backend stream and forwards its deltas into
// the program as messages.
func StreamFromBackend(ctx context.Context, b backend.Streamer, model string, msgs []domain.TranscriptMessage) tea.Cmd {
	return func() tea.Msg {
		if b == nil {
			return StreamDoneMsg{Err: fmt.Errorf("no backend connection")}
		}
		ch, err := b.Stream(ctx, model, msgs)
		if err != nil {
			return StreamDoneMsg{Err: err}
		}
		for d := range ch {
			switch {
			case d.Err != nil:
				return StreamDoneMsg{Err: d.Err}
			case d.Done:
				return StreamDoneMsg{}
			default:
				if Prog != nil {
					Prog.Send(StreamDeltaMsg{Text: d.Text})
				}
			}
		}
		return StreamDoneMsg{Err: fmt.Errorf("stream closed unexpectedly")}
	}
}

// ---------------------------------------------------------------------------
// Input helpers
// ---------------------------------------------------------------------------

func (m *Model) setInputText(s string) {
	m.input = composer.NewInputState().InsertText(s, 0)
}

func (m *Model) dismissCompletions() {
	m.completions = nil
	m.completionIdx = 0
	m.completionOn = false
}

func (m *Model) resetHistory() {
	m.historyIdx = -1
	m.historyDraft = ""
}

func (m *Model) browseHistoryBack() {
	if len(m.history) == 0 {
		return
	}
	if m.historyIdx == -1 {
		m.historyDraft = m.input.Text()
		m.historyIdx = len(m.history) - 1
	} else if m.historyIdx > 0 {
		m.historyIdx--
	}
	m.setInputText(m.history[m.historyIdx])
}

func (m *Model) browseHistoryForward() {
	if m.historyIdx == -1 {
		return
	}
	if m.historyIdx < len(m.history)-1 {
		m.historyIdx++
		m.setInputText(m.history[m.historyIdx])
		return
	}
	m.historyIdx = -1
	m.setInputText(m.historyDraft)
	m.historyDraft = ""
}

func (m Model) lastAssistantMessage() string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == "assistant" {
			return m.messages[i].TextContent()
		}
	}
	return ""
}

func filterNulls(runes []rune) string {
	out := make([]rune, 0, len(runes))
	for _, r := range runes {
		if r != 0 {
			out = append(out, r)
		}
	}
	return string(out)
}

func withInlineCursor(input string, cursor int) string {
	r := []rune(input)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(r) {
		cursor = len(r)
	}
	with := make([]rune, 0, len(r)+1)
	with = append(with, r[:cursor]...)
	with = append(with, '█')
	with = append(with, r[cursor:]...)
	return string(with)
}

func hardWrapLine(line string, width int) []string {
	if width < 1 {
		width = 1
	}
	runes := []rune(line)
	if len(runes) <= width {
		return []string{line}
	}
	var lines []string
	for len(runes) > width {
		lines = append(lines, string(runes[:width]))
		runes = runes[width:]
	}
	lines = append(lines, string(runes))
	return lines
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}
