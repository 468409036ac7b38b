// Package browse describes the content of a served directory: entry kinds, icons
// and the ordering rules of a listing.
package browse

import (
	"path"
	"strings"
)

// Kind classifies an entry for display.
type Kind string

const (
	KindFolder  Kind = "folder"
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
	KindArchive Kind = "archive"
	KindText    Kind = "text"
	KindEbook   Kind = "ebook"
	KindFile    Kind = "file"
)

var extensions = map[Kind][]string{
	KindImage:   {"gif", "ico", "jpeg", "jpg", "png", "svg", "webp", "bmp"},
	KindVideo:   {"mp4", "m4v", "ogv", "webm", "mov"},
	KindAudio:   {"mp3", "wav", "ogg", "m4a", "flac"},
	KindArchive: {"7z", "zip", "rar", "gz", "tar", "bz2"},
	KindText:    {"py", "js", "css", "html", "json", "yaml", "c", "cpp", "java", "go"},
	KindEbook:   {"epub", "mobi", "azw3", "pdf", "txt", "md"},
}

var icons = map[Kind]string{
	KindFolder:  "bi-folder-fill",
	KindImage:   "bi-image",
	KindVideo:   "bi-film",
	KindAudio:   "bi-music-note-beamed",
	KindArchive: "bi-archive-fill",
	KindText:    "bi-file-earmark-text",
	KindEbook:   "bi-book-half",
	KindFile:    "bi-file-earmark",
}

var byExtension = func() map[string]Kind {
	m := make(map[string]Kind)
	for kind, exts := range extensions {
		for _, ext := range exts {
			m[ext] = kind
		}
	}
	return m
}()

// KindOf classifies a file name by its extension.
func KindOf(name string) Kind {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if kind, ok := byExtension[ext]; ok {
		return kind
	}
	return KindFile
}

// Icon returns the Bootstrap icon class for kind.
func (k Kind) Icon() string {
	if icon, ok := icons[k]; ok {
		return icon
	}
	return icons[KindFile]
}

// Viewable reports whether the kind opens in the lightbox.
func (k Kind) Viewable() bool {
	return k == KindImage || k == KindVideo
}
