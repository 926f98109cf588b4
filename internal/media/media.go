// Package media handles uploaded audio: MIME type detection and checks, and
// staging of upload bytes to uniquely named temporary files.
package media

import (
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMIME returns the MIME type from magic bytes (not file extension)
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// ContentTypeFor picks the content type to declare for a file. Magic bytes
// win; headerless data falls back to the filename extension.
func ContentTypeFor(filename string, data []byte) string {
	m := mimetype.Detect(data)
	if m.Is("application/octet-stream") || m.Is("text/plain") {
		if t, ok := audioExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
			return t
		}
	}
	return m.String()
}

var audioExtensions = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
}

// IsAudio reports whether a declared content type is an audio/* media type.
// Parameters (e.g. "; codecs=opus") are ignored.
func IsAudio(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "audio/")
}

// ExtensionFor picks a file extension for staged audio, preferring the
// original filename and falling back to the content type. Returns "" when
// neither gives one.
func ExtensionFor(filename, contentType string) string {
	if ext := filepath.Ext(filename); ext != "" && len(ext) <= 6 {
		return strings.ToLower(ext)
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if m := mimetype.Lookup(mediaType); m != nil {
			return m.Extension()
		}
	}
	return ""
}

// Remove deletes a staged file, ignoring any error (including not-exist).
func Remove(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
