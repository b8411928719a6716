package composer

import (
	"fmt"
	"strings"

	"github.com/plumecli/plume/internal/domain"
)

// Segment is one atomic unit of the input buffer: a text run, an image
// reference, or a collapsed paste block. The variant set is closed.
type Segment interface {
	units() int
}

// TextSegment is a run of literal text. One buffer unit per rune.
type TextSegment struct {
	Content string
}

func (s TextSegment) units() int { return len([]rune(s.Content)) }

// ImageSegment references an image in the session's ImageStore. It occupies
// exactly one buffer unit.
type ImageSegment struct {
	Hash     string
	FileName string
	MIMEType string
	Source   string // "drop" or "paste"
}

func (ImageSegment) units() int { return 1 }

// PasteSegment is a collapsed large paste: atomic for cursor purposes, but
// Content carries the original text verbatim for submission.
type PasteSegment struct {
	Content string
	Summary string
}

func (PasteSegment) units() int { return 1 }

// ImageRef identifies a stored image for insertion into the buffer.
type ImageRef struct {
	Hash     string
	FileName string
	MIMEType string
	Source   string
}

// InputState is the composer's cursor-addressable document: an ordered
// sequence of segments plus a cursor measured in buffer units. All mutation
// goes through the pure methods below, which return a new state and never
// modify the receiver. Invariants: the cursor stays in [0, Units()], no
// segment is empty, and no two text segments are adjacent.
type InputState struct {
	segs   []Segment
	cursor int
}

// NewInputState returns an empty buffer.
func NewInputState() InputState {
	return InputState{}
}

// Units returns the total number of buffer units.
func (s InputState) Units() int {
	n := 0
	for _, seg := range s.segs {
		n += seg.units()
	}
	return n
}

// Cursor returns the cursor offset in buffer units.
func (s InputState) Cursor() int { return s.cursor }

// Empty reports whether the buffer has no segments.
func (s InputState) Empty() bool { return len(s.segs) == 0 }

// Segments returns a copy of the segment sequence.
func (s InputState) Segments() []Segment {
	out := make([]Segment, len(s.segs))
	copy(out, s.segs)
	return out
}

// Images returns the image segments in buffer order.
func (s InputState) Images() []ImageSegment {
	var out []ImageSegment
	for _, seg := range s.segs {
		if img, ok := seg.(ImageSegment); ok {
			out = append(out, img)
		}
	}
	return out
}

// InsertText inserts content at the cursor. Text longer than threshold
// (when threshold > 0) collapses into a single-unit paste block whose full
// content is preserved for submission. The cursor advances past the
// inserted content.
func (s InputState) InsertText(content string, threshold int) InputState {
	if content == "" {
		return s
	}
	var seg Segment
	n := len([]rune(content))
	advance := n
	if threshold > 0 && n > threshold {
		seg = PasteSegment{Content: content, Summary: summarizePaste(content)}
		advance = 1
	} else {
		seg = TextSegment{Content: content}
	}
	before, after := splitSegments(s.segs, s.cursor)
	merged := mergeText(append(append(before, seg), after...))
	return InputState{segs: merged, cursor: s.cursor + advance}
}

// InsertImage inserts a single-unit image segment at the cursor and
// advances the cursor by one unit.
func (s InputState) InsertImage(ref ImageRef) InputState {
	seg := ImageSegment{Hash: ref.Hash, FileName: ref.FileName, MIMEType: ref.MIMEType, Source: ref.Source}
	before, after := splitSegments(s.segs, s.cursor)
	merged := mergeText(append(append(before, Segment(seg)), after...))
	return InputState{segs: merged, cursor: s.cursor + 1}
}

// MoveCursor shifts the cursor by delta units, clamped to [0, Units()].
func (s InputState) MoveCursor(delta int) InputState {
	c := s.cursor + delta
	if c < 0 {
		c = 0
	}
	if max := s.Units(); c > max {
		c = max
	}
	return InputState{segs: s.segs, cursor: c}
}

// CursorToStart moves the cursor to the beginning of the buffer.
func (s InputState) CursorToStart() InputState {
	return InputState{segs: s.segs, cursor: 0}
}

// CursorToEnd moves the cursor past the last unit.
func (s InputState) CursorToEnd() InputState {
	return InputState{segs: s.segs, cursor: s.Units()}
}

// DeleteBeforeCursor removes the unit before the cursor. An image or paste
// block deletes as a whole. Returns false when the cursor is at the start.
func (s InputState) DeleteBeforeCursor() (InputState, bool) {
	if s.cursor == 0 {
		return s, false
	}
	before, after := splitSegments(s.segs, s.cursor)
	before = dropLastUnit(before)
	merged := mergeText(append(before, after...))
	return InputState{segs: merged, cursor: s.cursor - 1}, true
}

// DeleteAtCursor removes the unit at the cursor without moving it. Returns
// false when the cursor is at the end.
func (s InputState) DeleteAtCursor() (InputState, bool) {
	if s.cursor >= s.Units() {
		return s, false
	}
	before, after := splitSegments(s.segs, s.cursor)
	after = dropFirstUnit(after)
	merged := mergeText(append(before, after...))
	return InputState{segs: merged, cursor: s.cursor}, true
}

// Prompt returns the rendered form of the buffer: literal text with
// placeholders standing in for images and collapsed pastes.
func (s InputState) Prompt() string {
	var b strings.Builder
	for _, seg := range s.segs {
		b.WriteString(renderSegment(seg))
	}
	return b.String()
}

// PromptCursor returns the rune offset into Prompt() that corresponds to
// the buffer cursor, for caret positioning.
func (s InputState) PromptCursor() int {
	u, p := 0, 0
	for _, seg := range s.segs {
		n := seg.units()
		if s.cursor >= u+n {
			u += n
			p += len([]rune(renderSegment(seg)))
			continue
		}
		if s.cursor > u {
			// inside a text segment
			return p + (s.cursor - u)
		}
		return p
	}
	return p
}

// Text flattens the buffer to plain text: paste blocks expand to their full
// content, images render as placeholders. Used for history and persistence.
func (s InputState) Text() string {
	var b strings.Builder
	for _, seg := range s.segs {
		switch t := seg.(type) {
		case TextSegment:
			b.WriteString(t.Content)
		case PasteSegment:
			b.WriteString(t.Content)
		case ImageSegment:
			b.WriteString(renderSegment(t))
		}
	}
	return b.String()
}

// Blocks serializes the buffer into model-ready content blocks: text blocks
// (paste blocks expanded to their original text) interleaved with image
// blocks resolved against store, in buffer order. Image segments whose hash
// is missing from the store are dropped.
func (s InputState) Blocks(store *ImageStore) []domain.ContentBlock {
	var blocks []domain.ContentBlock
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			blocks = append(blocks, domain.ContentBlock{Type: "text", Text: text.String()})
			text.Reset()
		}
	}
	for _, seg := range s.segs {
		switch t := seg.(type) {
		case TextSegment:
			text.WriteString(t.Content)
		case PasteSegment:
			text.WriteString(t.Content)
		case ImageSegment:
			rec, ok := store.Get(t.Hash)
			if !ok {
				continue
			}
			flush()
			blocks = append(blocks, domain.ContentBlock{
				Type:      "image",
				ImageData: rec.Base64Data,
				MIMEType:  rec.MIMEType,
				FileName:  rec.FileName,
			})
		}
	}
	flush()
	return blocks
}

func renderSegment(seg Segment) string {
	switch t := seg.(type) {
	case TextSegment:
		return t.Content
	case ImageSegment:
		return "[image: " + t.FileName + "]"
	case PasteSegment:
		return t.Summary
	}
	return ""
}

func summarizePaste(content string) string {
	lines := strings.Count(content, "\n") + 1
	return fmt.Sprintf("[pasted %d lines, %d chars]", lines, len([]rune(content)))
}

// splitSegments partitions segs at a unit offset, splitting the text
// segment under the cursor if necessary. Atomic segments land wholly on one
// side.
func splitSegments(segs []Segment, at int) (before, after []Segment) {
	u := 0
	for _, seg := range segs {
		n := seg.units()
		switch {
		case at >= u+n:
			before = append(before, seg)
		case at <= u:
			after = append(after, seg)
		default:
			t := seg.(TextSegment)
			r := []rune(t.Content)
			k := at - u
			before = append(before, TextSegment{Content: string(r[:k])})
			after = append(after, TextSegment{Content: string(r[k:])})
		}
		u += n
	}
	return before, after
}

// mergeText rebuilds the sequence with empty segments dropped and adjacent
// text segments merged, restoring the InputState invariants.
func mergeText(segs []Segment) []Segment {
	var out []Segment
	for _, seg := range segs {
		if seg.units() == 0 {
			continue
		}
		if t, ok := seg.(TextSegment); ok && len(out) > 0 {
			if prev, ok := out[len(out)-1].(TextSegment); ok {
				out[len(out)-1] = TextSegment{Content: prev.Content + t.Content}
				continue
			}
		}
		out = append(out, seg)
	}
	return out
}

func dropLastUnit(segs []Segment) []Segment {
	if len(segs) == 0 {
		return segs
	}
	last := segs[len(segs)-1]
	if t, ok := last.(TextSegment); ok {
		r := []rune(t.Content)
		if len(r) > 1 {
			segs[len(segs)-1] = TextSegment{Content: string(r[:len(r)-1])}
			return segs
		}
	}
	return segs[:len(segs)-1]
}

func dropFirstUnit(segs []Segment) []Segment {
	if len(segs) == 0 {
		return segs
	}
	first := segs[0]
	if t, ok := first.(TextSegment); ok {
		r := []rune(t.Content)
		if len(r) > 1 {
			segs[0] = TextSegment{Content: string(r[1:])}
			return segs
		}
	}
	return segs[1:]
}
