package filestorage

import "bytes"

// SniffLength is the number of leading bytes inspected by DetectImageExtension
const SniffLength = 12

// DefaultImageExtension is used when no known signature matches
const DefaultImageExtension = ".jpg"

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// DetectImageExtension derives a file extension from the leading magic bytes.
// Client-supplied names and content types are never consulted.
func DetectImageExtension(data []byte) string {
	head := data
	if len(head) > SniffLength {
		head = head[:SniffLength]
	}

	switch {
	case bytes.HasPrefix(head, []byte{0xFF, 0xD8, 0xFF}):
		return ".jpg"
	case bytes.HasPrefix(head, pngSignature):
		return ".png"
	case bytes.HasPrefix(head, []byte("GIF8")):
		return ".gif"
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		return ".webp"
	case bytes.HasPrefix(head, []byte("BM")):
		return ".bmp"
	default:
		return DefaultImageExtension
	}
}
