package utils

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Skryldev/webpio/bitstream"
)

// Sniffed media types.
const (
	MIMEWebP    = "image/webp"
	MIMEUnknown = "application/octet-stream"
)

// DetectContentType sniffs data and returns its media type.  WebP is
// recognised from the RIFF header, everything else falls back to net/http
// sniffing.
func DetectContentType(data []byte) string {
	if bitstream.IsWebP(data) {
		return MIMEWebP
	}
	if len(data) == 0 {
		return MIMEUnknown
	}
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// HasSuffix reports whether path ends in one of suffixes, ignoring case.
// Suffixes are given without the leading dot.
func HasSuffix(path string, suffixes ...string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, s := range suffixes {
		if ext == strings.ToLower(s) {
			return true
		}
	}
	return false
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
