package tui

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/plumecli/plume/internal/domain"
)

var (
	numberedListRe = regexp.MustCompile(`^(\s*)(\d+)\.\s+(.+)`)
	inlineCodeRe   = regexp.MustCompile("`([^`]+)`")
	boldRe         = regexp.MustCompile(`\*\*(.+?)\*\*`)
	strikeRe       = regexp.MustCompile(`~~(.+?)~~`)
	linkRe         = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	hrRe           = regexp.MustCompile(`^[-*_]{3,}\s*$`)
)

// WrapWords word-wraps s to the given width, hard-splitting words longer
// than a full line.
func WrapWords(s string, width int) []string {
	if width < 10 {
		width = 10
	}
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return []string{""}
	}
	lines := make([]string, 0, 8)
	cur := ""
	for _, word := range parts {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if len(next) <= width {
			cur = next
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
		}
		for len(word) > width {
			lines = append(lines, word[:width])
			word = word[width:]
		}
		cur = word
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// RenderAssistantLines converts markdown-ish assistant text into styled,
// word-wrapped terminal lines.
func RenderAssistantLines(content string, width int) []string {
	if width < 20 {
		width = 20
	}
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	rawLines := strings.Split(normalized, "\n")
	out := make([]string, 0, len(rawLines)+8)
	inCode := false
	codeLang := ""
	codeBuf := make([]string, 0, 32)

	for _, raw := range rawLines {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if !inCode {
				inCode = true
				codeLang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				codeBuf = codeBuf[:0]
			} else {
				out = append(out, renderHighlightedCodeBlock(codeLang, strings.Join(codeBuf, "\n"), width)...)
				inCode = false
				codeLang = ""
			}
			continue
		}
		if inCode {
			codeBuf = append(codeBuf, line)
			continue
		}

		switch {
		case trimmed == "":
			out = append(out, "")

		case strings.HasPrefix(trimmed, "#"):
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' {
				level++
			}
			text := strings.TrimSpace(trimmed[level:])
			for _, wl := range WrapWords(text, width) {
				out = append(out, HeadingStyle.Render(wl))
			}

		case hrRe.MatchString(trimmed):
			out = append(out, HrStyle.Render(strings.Repeat("─", min(width, 40))))

		case strings.HasPrefix(trimmed, "> "):
			for _, wl := range WrapWords(strings.TrimPrefix(trimmed, "> "), width-2) {
				out = append(out, BlockquoteStyle.Render("│ "+wl))
			}

		default:
			if indent, item, ok := parseBulletLine(line); ok {
				pad := strings.Repeat(" ", indent)
				wrapped := WrapWords(item, width-indent-2)
				for i, wl := range wrapped {
					if i == 0 {
						out = append(out, pad+BulletStyle.Render("• ")+ApplyInlineFormatting(wl))
					} else {
						out = append(out, pad+"  "+ApplyInlineFormatting(wl))
					}
				}
				continue
			}
			if mm := numberedListRe.FindStringSubmatch(line); mm != nil {
				pad := mm[1]
				marker := mm[2] + ". "
				wrapped := WrapWords(mm[3], width-len(pad)-len(marker))
				for i, wl := range wrapped {
					if i == 0 {
						out = append(out, pad+BulletStyle.Render(marker)+ApplyInlineFormatting(wl))
					} else {
						out = append(out, pad+strings.Repeat(" ", len(marker))+ApplyInlineFormatting(wl))
					}
				}
				continue
			}
			for _, wl := range WrapWords(line, width) {
				out = append(out, ApplyInlineFormatting(wl))
			}
		}
	}

	// An unterminated fence still renders what accumulated.
	if inCode && len(codeBuf) > 0 {
		out = append(out, renderHighlightedCodeBlock(codeLang, strings.Join(codeBuf, "\n"), width)...)
	}

	// Collapse runs of blank lines.
	compact := out[:0]
	blank := false
	for _, l := range out {
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		compact = append(compact, l)
	}
	return compact
}

func parseBulletLine(line string) (indent int, item string, ok bool) {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i+1 < len(line) && (line[i] == '-' || line[i] == '*' || line[i] == '+') && line[i+1] == ' ' {
		return i, strings.TrimSpace(line[i+2:]), true
	}
	return 0, "", false
}

func renderHighlightedCodeBlock(lang, code string, width int) []string {
	if width < 20 {
		width = 20
	}
	if lang == "" || lang == "text" {
		lang = "plaintext"
	}

	var highlighted bytes.Buffer
	if err := quick.Highlight(&highlighted, code, lang, "terminal256", "dracula"); err != nil {
		highlighted.Reset()
		if err := quick.Highlight(&highlighted, code, "plaintext", "terminal256", "dracula"); err != nil {
			highlighted.Reset()
			highlighted.WriteString(code)
		}
	}
	hlLines := strings.Split(strings.TrimSuffix(highlighted.String(), "\n"), "\n")
	if len(hlLines) == 0 {
		hlLines = []string{""}
	}

	out := make([]string, 0, len(hlLines))
	for i, line := range hlLines {
		lineNo := CodeGutterStyle.Render(fmt.Sprintf("%3d", i+1))
		gutter := CodeGutterStyle.Render(" │ ")
		out = append(out, lineNo+gutter+line)
	}
	return out
}

// ApplyInlineFormatting handles inline markdown: `code`, [text](url),
// **bold**, and ~~strikethrough~~. Not applied to code block lines.
func ApplyInlineFormatting(s string) string {
	s = inlineCodeRe.ReplaceAllStringFunc(s, func(match string) string {
		inner := inlineCodeRe.FindStringSubmatch(match)[1]
		return InlineCodeStyle.Render(inner)
	})
	s = linkRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := linkRe.FindStringSubmatch(match)
		return LinkTextStyle.Render(parts[1]) + LinkURLStyle.Render(" ("+parts[2]+")")
	})
	s = strikeRe.ReplaceAllStringFunc(s, func(match string) string {
		inner := strikeRe.FindStringSubmatch(match)[1]
		return StrikethroughStyle.Render(inner)
	})
	s = boldRe.ReplaceAllStringFunc(s, func(match string) string {
		inner := boldRe.FindStringSubmatch(match)[1]
		return BoldInlineStyle.Render(inner)
	})
	return s
}

// FormatMessage renders one transcript message for the settled view. User
// messages that carry content blocks show an image tag per attached image,
// interleaved with the text in block order.
func FormatMessage(msg domain.TranscriptMessage, width int) []string {
	contentWidth := max(20, width-4)

	switch msg.Role {
	case "user":
		if msg.HasBlocks() {
			return formatUserBlocks(msg, contentWidth)
		}
		return iconLines(UserIconStyle, WrapWords(msg.Content, contentWidth-2))

	case "assistant":
		return iconLines(AsstIconStyle, RenderAssistantLines(msg.Content, contentWidth-2))

	default:
		wrapped := WrapWords(msg.Content, contentWidth)
		out := make([]string, 0, len(wrapped))
		for _, line := range wrapped {
			out = append(out, WelcomeStyle.Render(line))
		}
		return out
	}
}

func formatUserBlocks(msg domain.TranscriptMessage, contentWidth int) []string {
	var body []string
	for _, block := range msg.Blocks {
		switch block.Type {
		case "text":
			if strings.TrimSpace(block.Text) == "" {
				continue
			}
			body = append(body, WrapWords(block.Text, contentWidth-2)...)
		case "image":
			body = append(body, ImageTagStyle.Render("[image: "+block.FileName+"]"))
		}
	}
	return iconLines(UserIconStyle, body)
}

func iconLines(icon interface{ Render(...string) string }, lines []string) []string {
	if len(lines) == 0 {
		return []string{icon.Render("● ")}
	}
	out := make([]string, 0, len(lines))
	out = append(out, icon.Render("● ")+lines[0])
	for _, l := range lines[1:] {
		out = append(out, "  "+l)
	}
	return out
}
