package composer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MaxImageBytes is the largest file the composer will ingest from a drop.
const MaxImageBytes = 25 * 1024 * 1024

// Skip sentinels. Neither aborts a drop: the enclosing classifier moves on
// to the next path (or falls back to a text paste).
var (
	ErrNotFound = errors.New("file not found")
	ErrNotImage = errors.New("not an image")
)

// PrepareKind distinguishes operational ingest failures.
type PrepareKind string

const (
	PrepareTooLarge   PrepareKind = "too_large"
	PrepareUnreadable PrepareKind = "unreadable"
)

// PrepareError is an operational ingest failure. Unlike the skip sentinels,
// it aborts the entire drop it occurred in.
type PrepareError struct {
	Kind PrepareKind
	Path string
	Err  error
}

func (e *PrepareError) Error() string {
	switch e.Kind {
	case PrepareTooLarge:
		return fmt.Sprintf("%s exceeds the %d MiB attachment limit", filepath.Base(e.Path), MaxImageBytes/(1024*1024))
	default:
		return fmt.Sprintf("could not read %s: %v", filepath.Base(e.Path), e.Err)
	}
}

func (e *PrepareError) Unwrap() error { return e.Err }

// DroppedImage is the transient result of reading and classifying one
// candidate file. It is either handed to the ImageStore or discarded.
type DroppedImage struct {
	FileName string
	Data     []byte
	MIMEType string
}

// PrepareImage reads and classifies one candidate path from a drop.
//
//   - missing path or non-regular file: ErrNotFound (skip)
//   - larger than MaxImageBytes: *PrepareError (aborts the drop)
//   - unreadable: *PrepareError (aborts the drop)
//   - content not a recognized image: ErrNotImage (skip; the caller may
//     fall back to treating the paste as plain text)
func PrepareImage(path string) (DroppedImage, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return DroppedImage{}, ErrNotFound
	}
	if info.Size() > MaxImageBytes {
		return DroppedImage{}, &PrepareError{Kind: PrepareTooLarge, Path: path}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DroppedImage{}, &PrepareError{Kind: PrepareUnreadable, Path: path, Err: err}
	}
	mime, ok := DetectImageMIME(data)
	if !ok {
		return DroppedImage{}, ErrNotImage
	}
	return DroppedImage{
		FileName: filepath.Base(path),
		Data:     data,
		MIMEType: mime,
	}, nil
}
