package composer

import "bytes"

// Image signatures checked by DetectImageMIME. Detection is purely
// content-based; file names and extensions are never consulted.
var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegMagic = []byte{0xff, 0xd8, 0xff}
	gif87     = []byte("GIF87a")
	gif89     = []byte("GIF89a")
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
	bmpMagic  = []byte("BM")
)

// DetectImageMIME sniffs the content signature at the start of data and
// returns the image MIME type. The second return value is false when the
// bytes do not match any supported image format.
func DetectImageMIME(data []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return "image/png", true
	case bytes.HasPrefix(data, jpegMagic):
		return "image/jpeg", true
	case bytes.HasPrefix(data, gif87), bytes.HasPrefix(data, gif89):
		return "image/gif", true
	case len(data) >= 12 && bytes.HasPrefix(data, riffMagic) && bytes.Equal(data[8:12], webpMagic):
		return "image/webp", true
	case bytes.HasPrefix(data, bmpMagic):
		return "image/bmp", true
	}
	return "", false
}
