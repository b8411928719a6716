package composer

import (
	"errors"
	"strings"
)

// stagedDrop is one attachment resolved during classification, held until
// the whole drop is known to succeed.
type stagedDrop struct {
	img *DroppedImage
	doc *DroppedDocument
}

// InsertPaste classifies one normalized paste/drop payload and applies it to
// state, returning the new state.
//
// A payload with no extractable paths (or no path-separator evidence at all)
// is a literal text paste: it inserts as text, collapsing into a paste block
// when longer than threshold. Otherwise each extracted path is ingested in
// order — images via PrepareImage, then documents via PrepareDocument.
// Missing files and unrecognized content are skipped. An operational
// failure (oversized or unreadable file) aborts the whole drop: report is
// called exactly once and the original state is returned unchanged. If
// every path was skipped, the payload falls back to a literal text paste.
//
// Mutation is two-phase: nothing touches state until every path has been
// resolved, so a failed drop never leaves a partial insertion behind.
func InsertPaste(state InputState, raw string, threshold int, store *ImageStore, report func(error)) InputState {
	paths := ExtractPaths(raw)
	if len(paths) == 0 || !hasPathEvidence(raw) {
		return state.InsertText(raw, threshold)
	}

	var staged []stagedDrop
	for _, p := range paths {
		p = strings.TrimPrefix(p, "file://")

		img, err := PrepareImage(p)
		if err == nil {
			staged = append(staged, stagedDrop{img: &img})
			continue
		}
		var prep *PrepareError
		if errors.As(err, &prep) {
			report(prep)
			return state
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}

		// Readable but not an image: try document extraction.
		doc, derr := PrepareDocument(p)
		if derr == nil {
			staged = append(staged, stagedDrop{doc: &doc})
			continue
		}
		if errors.As(derr, &prep) {
			report(prep)
			return state
		}
		// ErrNotFound / ErrNotDocument: skip.
	}

	if len(staged) == 0 {
		return state.InsertText(raw, threshold)
	}

	out := state
	for _, d := range staged {
		if d.img != nil {
			hash := store.Add(d.img.Data, d.img.MIMEType, d.img.FileName)
			out = out.InsertImage(ImageRef{
				Hash:     hash,
				FileName: d.img.FileName,
				MIMEType: d.img.MIMEType,
				Source:   "drop",
			})
			continue
		}
		out = out.InsertText(d.doc.Text, threshold)
	}
	return out
}

// hasPathEvidence reports whether raw plausibly contains file paths at all.
// Plain prose with no separators never reaches the ingest pipeline.
func hasPathEvidence(raw string) bool {
	return strings.ContainsAny(raw, "/\\") || strings.Contains(raw, "file://")
}
