package filestore

import (
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// reserved device names that cannot be used as file names on Windows.
var reserved = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SecureFilename reduces a client supplied file name to a safe base name.
// Accents are folded to ASCII, path separators and whitespace become
// underscores, everything outside [A-Za-z0-9._-] is dropped and leading or
// trailing dots and underscores are trimmed. The result may be empty.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r > unicode.MaxASCII:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	safe := strings.Trim(b.String(), "._")
	stem := strings.ToUpper(strings.TrimSuffix(safe, path.Ext(safe)))
	if _, ok := reserved[stem]; ok {
		safe = "_" + safe
	}
	return safe
}

// uploadName is the name an upload is stored under. When nothing of the stem
// survives sanitizing a random one is generated and the extension kept.
func uploadName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := path.Ext(base)
	if ext == base {
		ext = ""
	}
	if SecureFilename(strings.TrimSuffix(base, ext)) != "" {
		return SecureFilename(name)
	}
	if ext = SecureFilename(ext); ext != "" {
		ext = "." + ext
	}
	return "upload-" + uuid.NewString()[:8] + ext
}
