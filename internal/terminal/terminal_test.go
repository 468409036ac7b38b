package terminal_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-gallery/internal/browse"
	"file-gallery/internal/config"
	"file-gallery/internal/observability"
	"file-gallery/internal/platform/filestore"
	"file-gallery/internal/services"
	"file-gallery/internal/terminal"
	"file-gallery/internal/testutils"
	"file-gallery/internal/upload"
	"file-gallery/internal/web/handlers"
)

func startServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	store, _, err := filestore.New(root)
	require.NoError(t, err)
	svc := services.NewGalleryService(store, nil, nil)
	cfg := &config.Config{FileRoot: root, MaxUploadSize: config.DefaultMaxUploadSize}

	srv := httptest.NewServer(handlers.New(svc, cfg, nil, nil).Routes())
	t.Cleanup(srv.Close)
	return srv, root
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

type session struct {
	button *terminal.Button
	status *terminal.StatusLog
	dialog *terminal.Dialog
	page   *terminal.Page
	sched  *upload.ManualScheduler
	ctrl   *upload.Controller
	out    *bytes.Buffer
	logs   *bytes.Buffer
}

func newSession(t *testing.T, target string, paths []string) *session {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := observability.NewLoggerTo(logs, observability.Config{LogLevel: "debug", LogFormat: "json"})

	s := &session{
		button: terminal.NewButton("Start upload"),
		status: terminal.NewStatusLog(logger),
		dialog: terminal.NewDialog(logger),
		sched:  upload.NewManualScheduler(),
		out:    &bytes.Buffer{},
		logs:   logs,
	}
	s.page = terminal.NewPage(context.Background(), target, nil, s.out, logger)
	s.ctrl = upload.Bind(upload.Handles{
		Form:   terminal.Form{URL: target, Values: url.Values{"note": {"cli"}}, Field: handlers.FilesField},
		Submit: s.button,
		Status: s.status,
		Files:  terminal.SelectPaths(paths),
		Modal:  s.dialog,
		Page:   s.page,
	}, upload.Dependencies{Scheduler: s.sched, Logger: logger})
	require.NotNil(t, s.ctrl)
	return s
}

func TestUploadRoundTrip(t *testing.T) {
	srv, root := startServer(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "album"), 0o755))
	local := t.TempDir()
	paths := []string{
		writeFile(t, local, "Beach Day.png", testutils.PNGData(8, 8)),
		writeFile(t, local, "notes.txt", []byte("hello")),
	}

	s := newSession(t, srv.URL+"/album/", paths)
	res := s.ctrl.Submit(context.Background())

	require.Equal(t, upload.OutcomeSuccess, res.Kind, res.Err)
	assert.FileExists(t, filepath.Join(root, "album", "Beach_Day.png"))
	assert.FileExists(t, filepath.Join(root, "album", "notes.txt"))
	assert.False(t, s.button.Disabled())
	assert.Equal(t, "Start upload", s.button.Label())

	alert, ok := s.status.Last()
	require.True(t, ok)
	assert.Equal(t, upload.AlertSuccess, alert.Level)
	assert.Contains(t, s.logs.String(), alert.Message)

	assert.False(t, s.dialog.Hidden())
	s.sched.Advance(upload.DefaultReloadDelay)

	select {
	case <-s.page.Reloaded():
	case <-time.After(5 * time.Second):
		t.Fatal("page was not reloaded")
	}
	assert.True(t, s.dialog.Hidden())

	listing := s.page.Listing()
	require.NotNil(t, listing)
	require.Len(t, listing.Images, 1)
	assert.Equal(t, "Beach_Day.png", listing.Images[0].Name)
	assert.Equal(t, 1, s.page.Lightbox().Len())
	assert.Contains(t, s.out.String(), "notes.txt")
}

func TestUploadRejectedByServer(t *testing.T) {
	srv, _ := startServer(t)
	local := t.TempDir()

	s := newSession(t, srv.URL+"/missing/", []string{writeFile(t, local, "a.txt", []byte("a"))})
	res := s.ctrl.Submit(context.Background())

	assert.Equal(t, upload.OutcomeRemoteRejection, res.Kind)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	var rejection *upload.RemoteRejectionError
	require.True(t, errors.As(res.Err, &rejection))

	alert, ok := s.status.Last()
	require.True(t, ok)
	assert.Equal(t, upload.AlertDanger, alert.Level)
	assert.Contains(t, alert.Message, "Upload failed: ")
	assert.Zero(t, s.sched.Pending())
}

func TestUploadWithoutFiles(t *testing.T) {
	srv, _ := startServer(t)

	s := newSession(t, srv.URL+"/", nil)
	res := s.ctrl.Submit(context.Background())

	assert.Equal(t, upload.OutcomeRejected, res.Kind)
	alert, ok := s.status.Last()
	require.True(t, ok)
	assert.Equal(t, upload.AlertWarning, alert.Level)
	assert.Equal(t, "Start upload", s.button.Label())
}

func TestUploadMissingLocalFile(t *testing.T) {
	srv, root := startServer(t)

	s := newSession(t, srv.URL+"/", []string{filepath.Join(t.TempDir(), "gone.txt")})
	res := s.ctrl.Submit(context.Background())

	assert.True(t, res.Failed())
	assert.NoFileExists(t, filepath.Join(root, "gone.txt"))
	assert.False(t, s.button.Disabled())
}

func TestPageFetchErrors(t *testing.T) {
	srv, _ := startServer(t)
	var out bytes.Buffer

	page := terminal.NewPage(context.Background(), srv.URL+"/nope/", nil, &out, observability.NewNopLogger())
	_, err := page.Fetch(context.Background())
	assert.Error(t, err)

	page.Reload()
	<-page.Reloaded()
	assert.Nil(t, page.Listing())
	assert.Empty(t, out.String())
}

func TestPrint(t *testing.T) {
	listing := &browse.Listing{
		Path:      "docs",
		Items:     []browse.Entry{{Name: "old", IsDir: true}, {Name: "a.pdf", Size: 2048}},
		Images:    []browse.Entry{{Name: "b.png", Size: 10}},
		FileCount: 2,
		DirCount:  1,
		TotalSize: 2058,
	}

	var out bytes.Buffer
	require.NoError(t, terminal.Print(&out, listing))

	text := out.String()
	assert.Contains(t, text, "/docs")
	assert.Contains(t, text, "1 folders, 2 files, 2.1 kB")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("old/")), bytes.Index(out.Bytes(), []byte("b.png")))
	assert.Less(t, bytes.Index(out.Bytes(), []byte("b.png")), bytes.Index(out.Bytes(), []byte("a.pdf")))
}

func TestButtonAndSelection(t *testing.T) {
	b := terminal.NewButton("Go")
	b.SetDisabled(true)
	b.SetLabel("Uploading...")
	assert.True(t, b.Disabled())
	assert.Equal(t, "Uploading...", b.Label())

	sel := terminal.SelectPaths([]string{"/tmp/x/a.jpg", "b.txt"})
	files := sel.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "a.jpg", files[0].Name())
	assert.Equal(t, "b.txt", files[1].Name())
}
