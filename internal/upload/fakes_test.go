package upload

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

type memFile struct {
	name    string
	content string
}

func (f memFile) Name() string { return f.name }

func (f memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.content)), nil
}

type fakeInput struct{ files []File }

func (i *fakeInput) Files() []File { return i.files }

type fakeForm struct {
	action string
	fields url.Values
}

func (f *fakeForm) Action() string     { return f.action }
func (f *fakeForm) Fields() url.Values { return f.fields }
func (f *fakeForm) FileField() string  { return "files[]" }

type fakeButton struct {
	mu       sync.Mutex
	label    string
	disabled bool
	history  []bool
}

func (b *fakeButton) Label() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label
}

func (b *fakeButton) SetLabel(label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = label
}

func (b *fakeButton) SetDisabled(disabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabled = disabled
	b.history = append(b.history, disabled)
}

func (b *fakeButton) snapshot() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.label, b.disabled
}

type fakeStatus struct {
	mu      sync.Mutex
	current *Alert
	clears  int
}

func (s *fakeStatus) Show(alert Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &alert
}

func (s *fakeStatus) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.clears++
}

func (s *fakeStatus) alert() *Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

type fakeModal struct{ hidden int }

func (m *fakeModal) Hide() { m.hidden++ }

type fakePage struct{ reloads int }

func (p *fakePage) Reload() { p.reloads++ }

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

type fixture struct {
	form      *fakeForm
	input     *fakeInput
	button    *fakeButton
	status    *fakeStatus
	modal     *fakeModal
	page      *fakePage
	scheduler *ManualScheduler
}

func newFixture(action string, files ...File) *fixture {
	return &fixture{
		form:      &fakeForm{action: action, fields: url.Values{}},
		input:     &fakeInput{files: files},
		button:    &fakeButton{label: "Start upload"},
		status:    &fakeStatus{},
		modal:     &fakeModal{},
		page:      &fakePage{},
		scheduler: NewManualScheduler(),
	}
}

func (f *fixture) handles() Handles {
	return Handles{
		Form:   f.form,
		Submit: f.button,
		Status: f.status,
		Files:  f.input,
		Modal:  f.modal,
		Page:   f.page,
	}
}

func (f *fixture) bind(client Doer) *Controller {
	return Bind(f.handles(), Dependencies{Client: client, Scheduler: f.scheduler})
}
