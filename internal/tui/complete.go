package tui

import (
	"fmt"
	"strings"

	"github.com/plumecli/plume/internal/config"
	"github.com/plumecli/plume/internal/domain"
)

// SlashCommands lists the completable slash commands, derived from the
// command definitions so /help and completion never drift apart.
func SlashCommands() []string {
	names := make([]string, 0, len(domain.CommandDefs))
	for _, def := range domain.CommandDefs {
		names = append(names, def.Name)
	}
	return names
}

// ComputeCompletions returns full-input completion candidates for the given
// input string.
func ComputeCompletions(input string) []string {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	fields := strings.Fields(input)
	if len(fields) == 0 {
		return FilterByPrefix(SlashCommands(), "", "/")
	}

	cmd := strings.ToLower(fields[0])

	// Still typing the command name (no space after it yet).
	if len(fields) == 1 && !strings.HasSuffix(input, " ") {
		return FilterByPrefix(SlashCommands(), "", cmd)
	}

	// Command is complete -- dispatch on argument context.
	switch cmd {
	case "/set":
		if len(fields) <= 2 && !(len(fields) == 2 && strings.HasSuffix(input, " ")) {
			partial := ""
			if len(fields) >= 2 {
				partial = strings.ToLower(fields[1])
			}
			return FilterByPrefix(config.ValidConfigKeys(), "/set ", partial)
		}
	case "/continue", "/attach", "/rename":
		// Arguments are free-form (session ID, path, title).
		return nil
	}

	return nil
}

// FilterByPrefix returns candidates that start with partial, each prefixed
// with the given prefix string. If partial is empty, all candidates match.
func FilterByPrefix(candidates []string, prefix, partial string) []string {
	var result []string
	lower := strings.ToLower(partial)
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lower) {
			result = append(result, prefix+c)
		}
	}
	return result
}

// CommandExpectsArgs returns true if the completed command should have a
// trailing space appended (rather than being submitted) because it accepts
// an argument.
func CommandExpectsArgs(completion string) bool {
	fields := strings.Fields(completion)
	if len(fields) == 0 {
		return false
	}
	cmd := strings.ToLower(fields[0])
	switch cmd {
	case "/continue", "/rename", "/attach":
		return len(fields) == 1
	case "/set":
		// /set → expects key; /set <key> → expects value
		return len(fields) <= 2
	}
	return false
}

// RenderCompletionMenu renders up to maxVisible completion items as a
// vertical menu. The selected item is highlighted.
func RenderCompletionMenu(completions []string, selectedIdx, width int) string {
	const maxVisible = 8
	n := len(completions)
	if n == 0 {
		return ""
	}

	var b strings.Builder
	visible := min(n, maxVisible)
	for i := 0; i < visible; i++ {
		label := completions[i]
		if len(label) > width-4 {
			label = label[:width-4]
		}
		if i == selectedIdx {
			b.WriteString(CompletionSelStyle.Render(" " + label + " "))
		} else {
			b.WriteString(CompletionStyle.Render(" " + label + " "))
		}
		b.WriteString("\n")
	}
	if n > maxVisible {
		more := fmt.Sprintf(" ... and %d more", n-maxVisible)
		b.WriteString(CompletionStyle.Render(more))
		b.WriteString("\n")
	}
	return b.String()
}
