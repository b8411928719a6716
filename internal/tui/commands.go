package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/plumecli/plume/internal/composer"
	"github.com/plumecli/plume/internal/config"
	"github.com/plumecli/plume/internal/domain"
)

func (m Model) handleSlashCommand(input string) (tea.Model, tea.Cmd) {
	m.input = composer.NewInputState()

	clean := strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	parts := strings.Fields(clean)
	if len(parts) == 0 {
		return m, nil
	}
	cmd := strings.ToLower(parts[0])
	args := strings.TrimSpace(strings.TrimPrefix(clean, parts[0]))

	switch cmd {
	case "/help":
		m.pushSystem(helpText())
		return m, nil

	case "/clear":
		m.messages = nil
		m.invalidateSettled()
		return m, tea.ClearScreen

	case "/exit", "/quit":
		return m, tea.Quit

	case "/new":
		sess, err := m.Store.CreateSession(MustGetwd(), m.Prefs.Model)
		if err != nil {
			m.pushError("Failed to create session: " + err.Error())
			return m, nil
		}
		m.Session = sess
		m.messages = nil
		m.invalidateSettled()
		m.history = nil
		m.resetHistory()
		m.images = composer.NewImageStore()
		m.pushSystem("New session started.")
		return m, nil

	case "/sessions":
		st := m.Store
		cwd := MustGetwd()
		return m, func() tea.Msg {
			sessions, err := st.ListSessions(cwd, 10)
			return SessionListMsg{Sessions: sessions, Err: err}
		}

	case "/continue":
		if args == "" {
			m.pushError("Usage: /continue <session-id-prefix>")
			return m, nil
		}
		sess, err := m.Store.FindSessionByPrefix(args)
		if err != nil {
			m.pushError("No session matching " + args)
			return m, nil
		}
		m.Session = sess
		m.messages = nil
		m.invalidateSettled()
		m.resuming = true
		return m, m.loadSessionHistory()

	case "/rename":
		if args == "" {
			m.pushError("Usage: /rename <new title>")
			return m, nil
		}
		if err := m.Store.UpdateSessionTitle(m.Session.ID, args); err != nil {
			m.pushError("Rename failed: " + err.Error())
			return m, nil
		}
		m.Session.Title = args
		m.pushSystem("Session renamed to " + args)
		return m, nil

	case "/attach":
		return m.handleAttach(args)

	case "/images":
		return m.handleImages()

	case "/set":
		return m.handleSet(args)

	default:
		m.pushError("Unknown command: " + cmd + " (try /help)")
		return m, nil
	}
}

// handleAttach stages a file by path, without waiting for a terminal drop.
// Images insert as image segments; supported documents insert their
// extracted text.
func (m Model) handleAttach(path string) (tea.Model, tea.Cmd) {
	if path == "" {
		m.pushError("Usage: /attach <path>")
		return m, nil
	}
	path = strings.Trim(path, `"`)

	img, err := composer.PrepareImage(path)
	if err == nil {
		hash := m.images.Add(img.Data, img.MIMEType, img.FileName)
		m.input = m.input.InsertImage(composer.ImageRef{
			Hash:     hash,
			FileName: img.FileName,
			MIMEType: img.MIMEType,
			Source:   "attach",
		})
		m.pushSystem("Attached " + img.FileName)
		return m, nil
	}
	var prepErr *composer.PrepareError
	if errors.As(err, &prepErr) {
		m.pushError("Attach failed: " + prepErr.Error())
		return m, nil
	}
	if errors.Is(err, composer.ErrNotFound) {
		m.pushError("No such file: " + path)
		return m, nil
	}

	doc, err := composer.PrepareDocument(path)
	if err == nil {
		m.input = m.input.InsertText(doc.Text, m.Prefs.PasteCollapseThreshold)
		m.pushSystem(fmt.Sprintf("Attached %s (%s, %d chars)", doc.FileName, doc.Kind, len(doc.Text)))
		return m, nil
	}
	if errors.As(err, &prepErr) {
		m.pushError("Attach failed: " + prepErr.Error())
		return m, nil
	}
	m.pushError("Not an image or supported document: " + path)
	return m, nil
}

func (m Model) handleImages() (tea.Model, tea.Cmd) {
	imgs := m.input.Images()
	if len(imgs) == 0 && m.images.Len() == 0 {
		m.pushSystem("No images staged.")
		return m, nil
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d image(s) in the current message, %d unique in this session:", len(imgs), m.images.Len()))
	for _, img := range imgs {
		b.WriteString(fmt.Sprintf("\n  %s  %s  %s", img.Hash[:12], img.MIMEType, img.FileName))
	}
	m.pushSystem(b.String())
	return m, nil
}

func (m Model) handleSet(args string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		m.pushError("Usage: /set <key> <value>  (keys: " + strings.Join(config.ValidConfigKeys(), ", ") + ")")
		return m, nil
	}
	key := strings.ToLower(fields[0])
	value := strings.Join(fields[1:], " ")

	next, err := config.Set(m.Prefs, key, value)
	if err != nil {
		m.pushError(err.Error())
		return m, nil
	}
	if err := config.SavePreferences(next); err != nil {
		m.pushError("Failed to save preferences: " + err.Error())
		return m, nil
	}
	m.Prefs = next
	m.pushSystem(fmt.Sprintf("Set %s = %s", key, value))
	return m, nil
}

func (m Model) handleSessionList(msg SessionListMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.pushError("Failed to list sessions: " + msg.Err.Error())
		return m, nil
	}
	if len(msg.Sessions) == 0 {
		m.pushSystem("No sessions found for this project.")
		return m, nil
	}
	var b strings.Builder
	b.WriteString("Sessions (switch with /continue <id>):")
	for _, s := range msg.Sessions {
		marker := "  "
		if s.ID == m.Session.ID {
			marker = "* "
		}
		b.WriteString(fmt.Sprintf("\n%s%s  %-32s %3d msgs  %s",
			marker, s.ID[:8], s.Title, s.MessageCount, TimeAgo(s.UpdatedAt)))
	}
	m.pushSystem(b.String())
	return m, nil
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, group := range domain.CommandGroups {
		b.WriteString("\n" + group.Label + ":")
		for _, def := range domain.CommandDefs {
			if def.Group != group.Key {
				continue
			}
			b.WriteString(fmt.Sprintf("\n  %-12s %s", def.Name, def.Description))
		}
	}
	b.WriteString("\nKeys: Ctrl+V paste clipboard · Ctrl+J newline · Ctrl+Y copy last reply · Tab complete")
	return b.String()
}

// TimeAgo returns a human-readable time-ago string.
func TimeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
