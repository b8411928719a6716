package composer

import (
	"strings"
	"testing"
)

func TestInsertTextMergesAdjacentSegments(t *testing.T) {
	s := NewInputState()
	s = s.InsertText("hello ", 0)
	s = s.InsertText("world", 0)

	segs := s.Segments()
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1 merged text segment", len(segs))
	}
	txt, ok := segs[0].(TextSegment)
	if !ok {
		t.Fatalf("segment is %T, want TextSegment", segs[0])
	}
	if txt.Content != "hello world" {
		t.Errorf("Content = %q", txt.Content)
	}
	if s.Cursor() != 11 {
		t.Errorf("Cursor = %d, want 11", s.Cursor())
	}
}

func TestInsertTextCollapsesLargePaste(t *testing.T) {
	long := strings.Repeat("line of pasted text\n", 50)
	s := NewInputState().InsertText(long, 100)

	segs := s.Segments()
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	pb, ok := segs[0].(PasteSegment)
	if !ok {
		t.Fatalf("segment is %T, want PasteSegment", segs[0])
	}
	if pb.Content != long {
		t.Error("collapsed paste must preserve the original text exactly")
	}
	if pb.Summary == "" || pb.Summary == long {
		t.Errorf("Summary = %q, want a short stand-in", pb.Summary)
	}
	if s.Units() != 1 {
		t.Errorf("Units = %d, want 1 (paste block is atomic)", s.Units())
	}
}

func TestInsertTextAtThresholdBoundaryStaysText(t *testing.T) {
	s := NewInputState().InsertText(strings.Repeat("a", 100), 100)
	if _, ok := s.Segments()[0].(TextSegment); !ok {
		t.Error("content exactly at threshold should stay literal text")
	}
}

func TestInsertImageSplitsTextAtCursor(t *testing.T) {
	s := NewInputState().InsertText("before after", 0)
	s = s.MoveCursor(-6) // cursor between "before" and " after"
	s = s.InsertImage(ImageRef{Hash: "h1", FileName: "cat.png", MIMEType: "image/png", Source: "drop"})

	segs := s.Segments()
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want text/image/text", len(segs))
	}
	if txt := segs[0].(TextSegment); txt.Content != "before" {
		t.Errorf("segment 0 = %q", txt.Content)
	}
	if img, ok := segs[1].(ImageSegment); !ok || img.Hash != "h1" {
		t.Errorf("segment 1 = %#v", segs[1])
	}
	if txt := segs[2].(TextSegment); txt.Content != " after" {
		t.Errorf("segment 2 = %q", txt.Content)
	}
	if s.Cursor() != 7 {
		t.Errorf("Cursor = %d, want 7", s.Cursor())
	}
}

func TestOperationsArePure(t *testing.T) {
	orig := NewInputState().InsertText("stable", 0)
	origPrompt := orig.Prompt()
	origCursor := orig.Cursor()

	_ = orig.InsertText(" more", 0)
	_ = orig.InsertImage(ImageRef{Hash: "h", FileName: "x.png"})
	_, _ = orig.DeleteBeforeCursor()
	_ = orig.MoveCursor(-3)

	if orig.Prompt() != origPrompt || orig.Cursor() != origCursor {
		t.Error("operations mutated their receiver")
	}
}

func TestDeleteBeforeCursor(t *testing.T) {
	t.Run("deletes one rune of text", func(t *testing.T) {
		s := NewInputState().InsertText("abc", 0)
		s, ok := s.DeleteBeforeCursor()
		if !ok {
			t.Fatal("delete should succeed")
		}
		if s.Prompt() != "ab" || s.Cursor() != 2 {
			t.Errorf("Prompt = %q, Cursor = %d", s.Prompt(), s.Cursor())
		}
	})

	t.Run("deletes an image as one unit", func(t *testing.T) {
		s := NewInputState().InsertText("a", 0)
		s = s.InsertImage(ImageRef{Hash: "h", FileName: "x.png"})
		s, ok := s.DeleteBeforeCursor()
		if !ok {
			t.Fatal("delete should succeed")
		}
		if len(s.Segments()) != 1 || s.Prompt() != "a" {
			t.Errorf("Prompt = %q", s.Prompt())
		}
	})

	t.Run("at start returns false", func(t *testing.T) {
		s := NewInputState().InsertText("ab", 0).CursorToStart()
		if _, ok := s.DeleteBeforeCursor(); ok {
			t.Error("delete at start should report false")
		}
	})

	t.Run("rejoins surrounding text", func(t *testing.T) {
		s := NewInputState().InsertText("ab", 0)
		s = s.MoveCursor(-1)
		s = s.InsertImage(ImageRef{Hash: "h", FileName: "x.png"})
		s, _ = s.DeleteBeforeCursor()
		segs := s.Segments()
		if len(segs) != 1 {
			t.Fatalf("got %d segments, want 1 re-merged text segment", len(segs))
		}
		if segs[0].(TextSegment).Content != "ab" {
			t.Errorf("Content = %q", segs[0].(TextSegment).Content)
		}
	})
}

func TestDeleteAtCursor(t *testing.T) {
	s := NewInputState().InsertText("abc", 0).CursorToStart()
	s, ok := s.DeleteAtCursor()
	if !ok {
		t.Fatal("delete should succeed")
	}
	if s.Prompt() != "bc" || s.Cursor() != 0 {
		t.Errorf("Prompt = %q, Cursor = %d", s.Prompt(), s.Cursor())
	}

	s = s.CursorToEnd()
	if _, ok := s.DeleteAtCursor(); ok {
		t.Error("delete at end should report false")
	}
}

func TestMoveCursorClamps(t *testing.T) {
	s := NewInputState().InsertText("abc", 0)
	if got := s.MoveCursor(10).Cursor(); got != 3 {
		t.Errorf("Cursor = %d, want clamp to 3", got)
	}
	if got := s.MoveCursor(-10).Cursor(); got != 0 {
		t.Errorf("Cursor = %d, want clamp to 0", got)
	}
}

func TestPromptAndPromptCursor(t *testing.T) {
	s := NewInputState().InsertText("see ", 0)
	s = s.InsertImage(ImageRef{Hash: "h", FileName: "cat.png"})
	s = s.InsertText(" here", 0)

	want := "see [image: cat.png] here"
	if got := s.Prompt(); got != want {
		t.Errorf("Prompt = %q, want %q", got, want)
	}
	// Cursor sits at the end: rendered offset equals rendered length.
	if got := s.PromptCursor(); got != len([]rune(want)) {
		t.Errorf("PromptCursor = %d, want %d", got, len([]rune(want)))
	}

	// Move to just after the image (units: 4 text + 1 image = 5).
	s = s.MoveCursor(-5)
	if got := s.PromptCursor(); got != len([]rune("see [image: cat.png]")) {
		t.Errorf("PromptCursor after image = %d", got)
	}

	// Move inside the leading text.
	s = s.CursorToStart().MoveCursor(2)
	if got := s.PromptCursor(); got != 2 {
		t.Errorf("PromptCursor inside text = %d, want 2", got)
	}
}

func TestBlocksInterleaving(t *testing.T) {
	store := NewImageStore()
	hash := store.Add([]byte("img-bytes"), "image/png", "cat.png")

	s := NewInputState().InsertText("look: ", 0)
	s = s.InsertImage(ImageRef{Hash: hash, FileName: "cat.png", MIMEType: "image/png"})
	s = s.InsertText(" done", 0)

	blocks := s.Blocks(store)
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	if blocks[0].Type != "text" || blocks[0].Text != "look: " {
		t.Errorf("block 0 = %#v", blocks[0])
	}
	if blocks[1].Type != "image" || blocks[1].MIMEType != "image/png" || blocks[1].ImageData == "" {
		t.Errorf("block 1 = %#v", blocks[1])
	}
	if blocks[2].Type != "text" || blocks[2].Text != " done" {
		t.Errorf("block 2 = %#v", blocks[2])
	}
}

func TestBlocksExpandsPasteBlock(t *testing.T) {
	long := strings.Repeat("x", 200)
	s := NewInputState().InsertText(long, 100)

	blocks := s.Blocks(NewImageStore())
	if len(blocks) != 1 || blocks[0].Type != "text" {
		t.Fatalf("blocks = %#v", blocks)
	}
	if blocks[0].Text != long {
		t.Error("submission must carry the full paste content, not the summary")
	}
}

func TestBlocksDropsDanglingImageRef(t *testing.T) {
	s := NewInputState().InsertImage(ImageRef{Hash: "missing", FileName: "x.png"})
	if blocks := s.Blocks(NewImageStore()); len(blocks) != 0 {
		t.Errorf("blocks = %#v, want none for unresolvable hash", blocks)
	}
}

func TestTextFlattening(t *testing.T) {
	long := strings.Repeat("y", 150)
	s := NewInputState().InsertText("a ", 0)
	s = s.InsertText(long, 100)
	s = s.InsertImage(ImageRef{Hash: "h", FileName: "p.png"})

	got := s.Text()
	if !strings.HasPrefix(got, "a "+long) {
		t.Error("Text() should expand paste blocks")
	}
	if !strings.HasSuffix(got, "[image: p.png]") {
		t.Errorf("Text() = %q, want image placeholder suffix", got)
	}
}
