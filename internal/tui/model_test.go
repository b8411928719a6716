package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/plumecli/plume/internal/backend"
	"github.com/plumecli/plume/internal/composer"
	"github.com/plumecli/plume/internal/config"
	"github.com/plumecli/plume/internal/domain"
)

func testModel() Model {
	m := InitialModel(nil, "test", nil, &domain.Session{ID: "abcd1234-0000", Title: "New Session"}, false, config.DefaultPreferences(), nil)
	m.width = 80
	m.height = 24
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func updateModel(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm
}

func TestFilterNulls(t *testing.T) {
	tests := []struct {
		name  string
		input []rune
		want  string
	}{
		{"no nulls", []rune("hello"), "hello"},
		{"all nulls", []rune{0, 0, 0}, ""},
		{"mixed", []rune{'a', 0, 'b', 0, 'c'}, "abc"},
		{"empty", []rune{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filterNulls(tt.input); got != tt.want {
				t.Errorf("filterNulls(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTypedRunesInsertText(t *testing.T) {
	m := testModel()
	m = updateModel(t, m, keyRunes("hi"))
	if got := m.input.Text(); got != "hi" {
		t.Errorf("input = %q", got)
	}
}

func TestBracketedPasteRoutesThroughClassifier(t *testing.T) {
	dir := t.TempDir()
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, []byte("img")...)
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, png, 0o600); err != nil {
		t.Fatal(err)
	}

	m := testModel()
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(path), Paste: true})

	imgs := m.input.Images()
	if len(imgs) != 1 {
		t.Fatalf("pasted path should become an image segment, got %#v", m.input.Segments())
	}
	if imgs[0].FileName != "shot.png" {
		t.Errorf("FileName = %q", imgs[0].FileName)
	}
	if m.images.Len() != 1 {
		t.Errorf("image store len = %d", m.images.Len())
	}
}

func TestBracketedPasteTextFallsBack(t *testing.T) {
	m := testModel()
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("plain words"), Paste: true})
	if got := m.input.Text(); got != "plain words" {
		t.Errorf("input = %q", got)
	}
	if len(m.input.Images()) != 0 {
		t.Error("text paste should not stage images")
	}
}

func TestLargePasteCollapses(t *testing.T) {
	m := testModel()
	long := strings.Repeat("x", config.DefaultPasteCollapseThreshold+1)
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(long), Paste: true})
	segs := m.input.Segments()
	if len(segs) != 1 {
		t.Fatalf("got %d segments", len(segs))
	}
	if _, ok := segs[0].(composer.PasteSegment); !ok {
		t.Errorf("segment = %T, want PasteSegment", segs[0])
	}
}

func TestSlashHelpSettlesSystemMessage(t *testing.T) {
	m := testModel()
	m = updateModel(t, m, keyRunes("/help"))
	// Clear the rapid-keystroke timestamp so Enter submits instead of being
	// treated as part of a paste.
	m.lastKeypressTime = time.Time{}
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.messages) != 1 || m.messages[0].Role != "system" {
		t.Fatalf("messages = %+v", m.messages)
	}
	if m.input.Text() != "" {
		t.Errorf("input not cleared: %q", m.input.Text())
	}
	if len(m.settledLines) == 0 {
		t.Error("help output should be settled into the line cache")
	}
}

func TestStreamingTailStaysOutOfSettledCache(t *testing.T) {
	m := testModel()
	m.messages = append(m.messages, domain.TranscriptMessage{Role: "user", Content: "q"})
	m.thinking = true
	m.settle()
	settledBefore := len(m.settledLines)

	m = updateModel(t, m, StreamDeltaMsg{Text: "partial "})
	m = updateModel(t, m, StreamDeltaMsg{Text: "reply"})

	if !m.streaming {
		t.Fatal("deltas should mark the model streaming")
	}
	if len(m.settledLines) != settledBefore {
		t.Error("streaming tail must not enter the settled cache")
	}
	if got := m.messages[len(m.messages)-1].Content; got != "partial reply" {
		t.Errorf("tail content = %q", got)
	}

	m = updateModel(t, m, StreamDoneMsg{})
	if m.streaming || m.thinking {
		t.Error("done should clear streaming state")
	}
	if len(m.settledLines) <= settledBefore {
		t.Error("finished reply should settle")
	}
}

func TestStreamErrorDropsPartialTail(t *testing.T) {
	m := testModel()
	m.thinking = true
	m = updateModel(t, m, StreamDeltaMsg{Text: "half"})
	m = updateModel(t, m, StreamDoneMsg{Err: fmt.Errorf("backend exploded")})

	for _, msg := range m.messages {
		if msg.Role == "assistant" {
			t.Error("partial assistant message should be dropped on error")
		}
	}
	plain := stripANSI(strings.Join(m.settledLines, "\n"))
	if !strings.Contains(plain, "backend exploded") {
		t.Errorf("error not surfaced: %q", plain)
	}
}

func TestHistoryBrowse(t *testing.T) {
	m := testModel()
	m.history = []string{"first", "second"}

	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Text() != "second" {
		t.Errorf("after up: %q", m.input.Text())
	}
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Text() != "first" {
		t.Errorf("after up up: %q", m.input.Text())
	}
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.input.Text() != "" {
		t.Errorf("forward past end should restore draft, got %q", m.input.Text())
	}
}

func TestTabCompletionCycle(t *testing.T) {
	m := testModel()
	m = updateModel(t, m, keyRunes("/he"))
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.input.Text() != "/help" {
		t.Errorf("tab completion = %q", m.input.Text())
	}
	if !m.completionOn {
		t.Error("completion state should be active")
	}
}

// scriptStreamer plays back a fixed set of deltas.
type scriptStreamer struct {
	deltas []string
	err    error
}

func (s scriptStreamer) Stream(ctx context.Context, model string, msgs []domain.TranscriptMessage) (<-chan backend.Delta, error) {
	ch := make(chan backend.Delta)
	go func() {
		defer close(ch)
		for _, d := range s.deltas {
			ch <- backend.Delta{Text: d}
		}
		if s.err != nil {
			ch <- backend.Delta{Err: s.err}
			return
		}
		ch <- backend.Delta{Done: true}
	}()
	return ch, nil
}

func TestStreamFromBackend(t *testing.T) {
	t.Run("clean stream ends with done", func(t *testing.T) {
		cmd := StreamFromBackend(context.Background(), scriptStreamer{deltas: []string{"a", "b"}}, "m", nil)
		if msg, ok := cmd().(StreamDoneMsg); !ok || msg.Err != nil {
			t.Errorf("got %#v", msg)
		}
	})

	t.Run("stream error propagates", func(t *testing.T) {
		cmd := StreamFromBackend(context.Background(), scriptStreamer{err: fmt.Errorf("boom")}, "m", nil)
		msg, ok := cmd().(StreamDoneMsg)
		if !ok || msg.Err == nil {
			t.Errorf("got %#v", msg)
		}
	})

	t.Run("nil backend errors", func(t *testing.T) {
		cmd := StreamFromBackend(context.Background(), nil, "m", nil)
		if msg := cmd().(StreamDoneMsg); msg.Err == nil {
			t.Error("expected error for nil backend")
		}
	})
}
