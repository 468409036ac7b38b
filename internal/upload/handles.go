// Package upload drives a file-upload form: it validates the selection, posts the
// form as multipart data to the form action and reflects progress and outcome on
// the page handles it was bound to.
package upload

import (
	"io"
	"net/http"
	"net/url"
	"time"
)

// File is one selected file of a file input.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileInput is the file-selection control read at submit time.
type FileInput interface {
	Files() []File
}

// Form describes what gets posted: the target action, its plain fields and the
// field name the selected files are sent under.
type Form interface {
	Action() string
	Fields() url.Values
	FileField() string
}

// SubmitControl is the button that triggers a submission.
type SubmitControl interface {
	Label() string
	SetLabel(label string)
	SetDisabled(disabled bool)
}

// StatusArea is the message region above the form.
type StatusArea interface {
	Show(alert Alert)
	Clear()
}

// Modal is the dialog hosting the form.
type Modal interface {
	Hide()
}

// Page is the document the form lives in.
type Page interface {
	Reload()
}

// Scheduler runs f once after d. Implementations must not block the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// Doer sends HTTP requests; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Handles groups the page elements a Controller binds to.
type Handles struct {
	Form   Form
	Submit SubmitControl
	Status StatusArea
	Files  FileInput
	Modal  Modal
	Page   Page
}

// AlertLevel selects the styling of a status message.
type AlertLevel string

const (
	AlertWarning AlertLevel = "warning"
	AlertSuccess AlertLevel = "success"
	AlertDanger  AlertLevel = "danger"
)

// Alert is a message shown in the status area.
type Alert struct {
	Level   AlertLevel
	Message string
}

// Messages holds the user-facing texts of the controller.
type Messages struct {
	NoFiles       string
	Loading       string
	Success       string
	FailurePrefix string
}

// DefaultMessages returns the stock English texts.
func DefaultMessages() Messages {
	return Messages{
		NoFiles:       "Please select the files to upload first.",
		Loading:       "Uploading...",
		Success:       "Upload succeeded! The page will refresh shortly.",
		FailurePrefix: "Upload failed: ",
	}
}
