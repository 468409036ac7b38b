// Package terminal binds the upload controller to a command line session:
// files come from paths, alerts go to the log and a reload fetches the
// directory listing again.
package terminal

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"file-gallery/internal/observability"
	"file-gallery/internal/upload"
)

// File is a file on the local disk.
type File struct {
	path string
}

// NewFile refers to the file at path. Nothing is opened until the upload.
func NewFile(path string) File {
	return File{path: path}
}

func (f File) Name() string { return filepath.Base(f.path) }

func (f File) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// Selection is a fixed list of files.
type Selection []upload.File

// Files implements upload.FileInput.
func (s Selection) Files() []upload.File { return s }

// SelectPaths turns paths into a Selection.
func SelectPaths(paths []string) Selection {
	sel := make(Selection, 0, len(paths))
	for _, p := range paths {
		sel = append(sel, NewFile(p))
	}
	return sel
}

// Form posts to a fixed URL.
type Form struct {
	URL    string
	Values url.Values
	Field  string
}

func (f Form) Action() string     { return f.URL }
func (f Form) Fields() url.Values { return f.Values }
func (f Form) FileField() string  { return f.Field }

// Button tracks the state a submit button would show.
type Button struct {
	mu       sync.Mutex
	label    string
	disabled bool
}

// NewButton returns an enabled button.
func NewButton(label string) *Button {
	return &Button{label: label}
}

func (b *Button) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label
}

func (b *Button) SetLabel(label string) {
	b.mu.Lock()
	b.label = label
	b.mu.Unlock()
}

func (b *Button) SetDisabled(disabled bool) {
	b.mu.Lock()
	b.disabled = disabled
	b.mu.Unlock()
}

// Disabled reports whether a submission holds the button.
func (b *Button) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabled
}

// StatusLog shows alerts as log lines and remembers the last one.
type StatusLog struct {
	logger *observability.Logger

	mu   sync.Mutex
	last *upload.Alert
}

// NewStatusLog writes alerts through logger.
func NewStatusLog(logger *observability.Logger) *StatusLog {
	return &StatusLog{logger: logger}
}

func (s *StatusLog) Show(alert upload.Alert) {
	s.mu.Lock()
	s.last = &alert
	s.mu.Unlock()

	event := s.logger.Zerolog().Info()
	switch alert.Level {
	case upload.AlertWarning:
		event = s.logger.Zerolog().Warn()
	case upload.AlertDanger:
		event = s.logger.Zerolog().Error()
	}
	event.Str("alert", string(alert.Level)).Msg(alert.Message)
}

func (s *StatusLog) Clear() {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
}

// Last returns the alert currently shown.
func (s *StatusLog) Last() (upload.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return upload.Alert{}, false
	}
	return *s.last, true
}

// Dialog stands in for the upload modal.
type Dialog struct {
	logger *observability.Logger

	mu     sync.Mutex
	hidden bool
}

func NewDialog(logger *observability.Logger) *Dialog {
	return &Dialog{logger: logger}
}

func (d *Dialog) Hide() {
	d.mu.Lock()
	d.hidden = true
	d.mu.Unlock()
	d.logger.Zerolog().Debug().Msg("Upload dialog closed")
}

func (d *Dialog) Hidden() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hidden
}
