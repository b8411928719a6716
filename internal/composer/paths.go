package composer

import (
	"strconv"
	"strings"
)

// Bracketed paste marker sequences. Terminals wrap pasted text in these; some
// deliver the CSI bytes without the leading escape, so both forms are
// stripped before parsing.
const (
	pasteStartMarker = "\x1b[200~"
	pasteEndMarker   = "\x1b[201~"
)

// ExtractPaths parses a raw terminal paste or drop payload into the ordered
// list of file paths it contains. Quoted spans are kept whole, backslash
// escapes for spaces and wrapped newlines are undone, and \uXXXX / \u{...}
// escapes are decoded. Malformed input degrades to best-effort extraction;
// the worst case is an empty result, never an error.
func ExtractPaths(raw string) []string {
	s := stripPasteMarkers(raw)
	var out []string
	for _, t := range tokenize(s) {
		t = decodeUnicodeEscapes(t)
		if t == "" {
			continue
		}
		out = append(out, splitJoinedAbsolutePaths(t)...)
	}
	return out
}

func stripPasteMarkers(s string) string {
	s = strings.ReplaceAll(s, pasteStartMarker, "")
	s = strings.ReplaceAll(s, pasteEndMarker, "")
	s = strings.ReplaceAll(s, "[200~", "")
	s = strings.ReplaceAll(s, "[201~", "")
	return s
}

// tokenize splits s into path candidates. A quoted span is one complete
// token with inner spaces verbatim. Outside quotes, a backslash escapes an
// immediately following space, and a backslash-newline continues a wrapped
// path (the continuation's leading indent is swallowed). Any other backslash
// is literal content so Windows drive paths like C:\Users\x survive intact.
// Tokens split on runs of unescaped ASCII whitespace only: literal U+00A0
// and U+202F spaces are path content, not separators.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	r := []rune(s)
	for i := 0; i < len(r); i++ {
		c := r[i]
		switch {
		case c == '"':
			flush()
			j := i + 1
			for j < len(r) && r[j] != '"' {
				cur.WriteRune(r[j])
				j++
			}
			flush()
			i = j
		case c == '\\' && i+1 < len(r) && r[i+1] == ' ':
			cur.WriteRune(' ')
			i++
		case c == '\\' && i+1 < len(r) && (r[i+1] == '\n' || r[i+1] == '\r'):
			i++
			if r[i] == '\r' && i+1 < len(r) && r[i+1] == '\n' {
				i++
			}
			for i+1 < len(r) && (r[i+1] == ' ' || r[i+1] == '\t') {
				i++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			cur.WriteRune(c)
		}
	}
	flush()
	return tokens
}

// decodeUnicodeEscapes decodes \uXXXX and \u{X...} forms into their code
// points. Sequences that do not parse are left verbatim. Already-decoded
// literal characters pass through untouched.
func decodeUnicodeEscapes(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}
	var b strings.Builder
	r := []rune(s)
	for i := 0; i < len(r); i++ {
		if r[i] != '\\' || i+1 >= len(r) || r[i+1] != 'u' {
			b.WriteRune(r[i])
			continue
		}
		// \u{X...}
		if i+2 < len(r) && r[i+2] == '{' {
			j := i + 3
			for j < len(r) && r[j] != '}' {
				j++
			}
			if j < len(r) {
				if cp, err := strconv.ParseUint(string(r[i+3:j]), 16, 32); err == nil && cp <= 0x10ffff {
					b.WriteRune(rune(cp))
					i = j
					continue
				}
			}
			b.WriteRune(r[i])
			continue
		}
		// \uXXXX
		if i+6 <= len(r) {
			if cp, err := strconv.ParseUint(string(r[i+2:i+6]), 16, 32); err == nil {
				b.WriteRune(rune(cp))
				i += 5
				continue
			}
		}
		b.WriteRune(r[i])
	}
	return b.String()
}

// Root prefixes that mark the start of a new absolute path when found
// mid-token. Used only by splitJoinedAbsolutePaths.
var joinedPathRoots = []string{"file://", "/Users/", "/home/", "/tmp/", "/mnt/", "/media/"}

// splitJoinedAbsolutePaths heuristically splits two or more absolute paths
// that were concatenated with no separator (a known artifact of multi-file
// terminal drops). This is best-effort, not a sound parse: a filename that
// happens to contain a root-like substring (e.g. ".../backup/home/x.png")
// will be mis-split. Disable by removing roots from joinedPathRoots.
func splitJoinedAbsolutePaths(t string) []string {
	var bounds []int
	for i := 1; i < len(t); i++ {
		if isJoinedRootAt(t, i) {
			bounds = append(bounds, i)
		}
	}
	if len(bounds) == 0 {
		return []string{t}
	}
	var parts []string
	prev := 0
	for _, b := range bounds {
		if b > prev {
			parts = append(parts, t[prev:b])
		}
		prev = b
	}
	parts = append(parts, t[prev:])
	return parts
}

func isJoinedRootAt(t string, i int) bool {
	for _, root := range joinedPathRoots {
		if strings.HasPrefix(t[i:], root) {
			return true
		}
	}
	// Windows drive root: X:\ or X:/
	if i+2 < len(t) && isASCIILetter(t[i]) && t[i+1] == ':' && (t[i+2] == '\\' || t[i+2] == '/') {
		return true
	}
	return false
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
