package composer

import (
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// ErrNotDocument is the skip sentinel for paths that are not an extractable
// document (unsupported extension, or a file that fails to parse).
var ErrNotDocument = errors.New("not an extractable document")

// DroppedDocument is the transient result of extracting text from one
// dropped document file.
type DroppedDocument struct {
	FileName string
	Kind     string // "pdf", "docx" or "xlsx"
	Text     string
}

var docxTagRe = regexp.MustCompile(`<[^>]+>`)
var docxParaRe = regexp.MustCompile(`</w:p>`)

// PrepareDocument extracts plain text from a dropped .pdf, .docx or .xlsx
// file. It shares the ingest taxonomy of PrepareImage: unsupported or
// unparseable files are skips (ErrNotDocument), oversized or unreadable
// files are operational failures (*PrepareError) that abort the drop.
func PrepareDocument(path string) (DroppedDocument, error) {
	kind := ""
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		kind = "pdf"
	case ".docx":
		kind = "docx"
	case ".xlsx":
		kind = "xlsx"
	default:
		return DroppedDocument{}, ErrNotDocument
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return DroppedDocument{}, ErrNotFound
	}
	if info.Size() > MaxImageBytes {
		return DroppedDocument{}, &PrepareError{Kind: PrepareTooLarge, Path: path}
	}

	var text string
	switch kind {
	case "pdf":
		text, err = extractPDF(path)
	case "docx":
		text, err = extractDocx(path)
	case "xlsx":
		text, err = extractXlsx(path)
	}
	if err != nil {
		// Parse failures are classification results, not errors: the file
		// just isn't something we can extract.
		return DroppedDocument{}, fmt.Errorf("%w: %v", ErrNotDocument, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return DroppedDocument{}, ErrNotDocument
	}
	return DroppedDocument{FileName: filepath.Base(path), Kind: kind, Text: text}, nil
}

func extractPDF(path string) (text string, err error) {
	// The pdf package panics on some malformed files; treat that as a
	// parse failure.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extractDocx(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer r.Close()
	content := r.Editable().GetContent()
	content = docxParaRe.ReplaceAllString(content, "\n")
	content = docxTagRe.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}

func extractXlsx(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", err
		}
		if len(sheets) > 1 {
			fmt.Fprintf(&b, "# %s\n", sheet)
		}
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
