package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-gallery/internal/browse"
	"file-gallery/internal/observability"
	"file-gallery/internal/platform/cache"
	"file-gallery/internal/platform/database"
	"file-gallery/internal/platform/filestore"
	"file-gallery/internal/platform/storage"
	"file-gallery/internal/testutils"
)

type memFile struct {
	name    string
	content string
	openErr error
}

func (f memFile) Filename() string { return f.name }

func (f memFile) Open() (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

type fakeCache struct {
	mu          sync.Mutex
	listings    map[string]*browse.Listing
	thumbs      map[string][]byte
	invalidated []string
	listingHits int
	failWrites  bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{listings: map[string]*browse.Listing{}, thumbs: map[string][]byte{}}
}

func (c *fakeCache) GetListing(_ context.Context, dir string) (*browse.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.listings[dir]; ok {
		c.listingHits++
		return l, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *fakeCache) SetListing(_ context.Context, l *browse.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("read-only replica")
	}
	c.listings[l.Path] = l
	return nil
}

func (c *fakeCache) InvalidateListing(_ context.Context, dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, dir)
	delete(c.listings, dir)
	return nil
}

func (c *fakeCache) GetThumbnail(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.thumbs[key]; ok {
		return d, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *fakeCache) SetThumbnail(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thumbs[key] = data
	return nil
}

func (c *fakeCache) Health(context.Context) error { return nil }

type fakeMirror struct {
	put     []string
	sizes   map[string]int64
	err     error
	statErr error
	// truncate shortens every stored object by this many bytes.
	truncate int64
}

func (m *fakeMirror) PutFile(_ context.Context, rel, localPath string) (storage.ObjectInfo, error) {
	if m.err != nil {
		return storage.ObjectInfo{}, m.err
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if m.sizes == nil {
		m.sizes = map[string]int64{}
	}
	m.put = append(m.put, rel)
	m.sizes[rel] = info.Size() - m.truncate
	return storage.ObjectInfo{Key: rel, Size: m.sizes[rel]}, nil
}

func (m *fakeMirror) Stat(_ context.Context, rel string) (storage.ObjectInfo, error) {
	if m.statErr != nil {
		return storage.ObjectInfo{}, m.statErr
	}
	size, ok := m.sizes[rel]
	if !ok {
		return storage.ObjectInfo{}, errors.New("object not found")
	}
	return storage.ObjectInfo{Key: rel, Size: size}, nil
}

func (m *fakeMirror) Health(context.Context) error { return m.err }

type fakeJournal struct {
	batches [][]*database.Upload
	err     error
}

func (j *fakeJournal) RecordBatch(_ context.Context, uploads []*database.Upload) (uuid.UUID, error) {
	if j.err != nil {
		return uuid.Nil, j.err
	}
	id := uuid.New()
	for _, u := range uploads {
		u.BatchID = id
	}
	j.batches = append(j.batches, uploads)
	return id, nil
}

func (j *fakeJournal) newestFirst() []*database.Upload {
	var all []*database.Upload
	for i := len(j.batches) - 1; i >= 0; i-- {
		all = append(all, j.batches[i]...)
	}
	return all
}

func (j *fakeJournal) ListRecent(_ context.Context, page database.PaginationParams) ([]*database.Upload, error) {
	all := j.newestFirst()
	if page.Limit > 0 && len(all) > page.Limit {
		all = all[:page.Limit]
	}
	return all, nil
}

func (j *fakeJournal) ListByDirectory(_ context.Context, dir string, page database.PaginationParams) ([]*database.Upload, error) {
	var out []*database.Upload
	for _, u := range j.newestFirst() {
		if u.Directory == dir {
			out = append(out, u)
		}
	}
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (j *fakeJournal) ListBatch(_ context.Context, batchID uuid.UUID) ([]*database.Upload, error) {
	var out []*database.Upload
	for _, u := range j.newestFirst() {
		if u.BatchID == batchID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (j *fakeJournal) Count(context.Context) (int, error) {
	if j.err != nil {
		return 0, j.err
	}
	return len(j.newestFirst()), nil
}

func (j *fakeJournal) Health(context.Context) error { return j.err }

func newService(t *testing.T) (*GalleryService, string) {
	t.Helper()
	root := t.TempDir()
	store, _, err := filestore.New(root)
	require.NoError(t, err)
	return NewGalleryService(store, nil, observability.NewNopLogger()), root
}

func TestListingUsesCache(t *testing.T) {
	svc, root := newService(t)
	c := newFakeCache()
	svc.WithCache(c)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("x"), 0o644))

	l, err := svc.Listing(context.Background(), "/")
	require.NoError(t, err)
	require.Len(t, l.Images, 1)
	assert.Equal(t, 0, c.listingHits)

	// a new file is invisible until the cached listing is invalidated
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.jpg"), []byte("x"), 0o644))
	l, err = svc.Listing(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, l.Images, 1)
	assert.Equal(t, 1, c.listingHits)
}

func TestListingSurvivesCacheWriteFailure(t *testing.T) {
	svc, _ := newService(t)
	c := newFakeCache()
	c.failWrites = true
	svc.WithCache(c)

	l, err := svc.Listing(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, l.Items)
}

func TestListingErrors(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Listing(context.Background(), "../etc")
	assert.ErrorIs(t, err, filestore.ErrForbidden)

	_, err = svc.Listing(context.Background(), "missing")
	assert.ErrorIs(t, err, filestore.ErrNotFound)
}

func TestUpload(t *testing.T) {
	svc, root := newService(t)
	c := newFakeCache()
	m := &fakeMirror{}
	j := &fakeJournal{}
	svc.WithCache(c).WithMirror(m).WithJournal(j)
	require.NoError(t, os.Mkdir(filepath.Join(root, "photos"), 0o755))

	report, err := svc.Upload(context.Background(), UploadRequest{
		Directory: "/photos/",
		Files: []IncomingFile{
			memFile{name: "My Cat.png", content: string(testutils.PNGData(2, 2))},
			memFile{name: "notes.txt", content: "hello"},
		},
		Fields:     map[string]string{"note": "holiday"},
		RemoteAddr: "10.0.0.1",
	})
	require.NoError(t, err)

	require.Len(t, report.Saved, 2)
	assert.Equal(t, "photos/My_Cat.png", report.Saved[0].Path)
	assert.Equal(t, 2, report.Mirrored)
	assert.True(t, report.Journaled)
	assert.NotEqual(t, uuid.Nil, report.BatchID)
	assert.FileExists(t, filepath.Join(root, "photos", "notes.txt"))

	assert.Equal(t, []string{"photos"}, c.invalidated)
	assert.Equal(t, []string{"photos/My_Cat.png", "photos/notes.txt"}, m.put)

	require.Len(t, j.batches, 1)
	entry := j.batches[0][0]
	assert.Equal(t, "My_Cat.png", entry.Name)
	assert.Equal(t, "My Cat.png", entry.OriginalName)
	assert.Equal(t, "photos", entry.Directory)
	assert.Equal(t, "image/png", entry.ContentType)
	assert.True(t, entry.Mirrored)
	assert.Equal(t, "10.0.0.1", entry.RemoteAddr)
	assert.Equal(t, "holiday", entry.Fields["note"])
}

func TestUploadSideFailuresDoNotFailRequest(t *testing.T) {
	svc, _ := newService(t)
	svc.WithMirror(&fakeMirror{err: errors.New("bucket gone")}).
		WithJournal(&fakeJournal{err: errors.New("db down")})

	report, err := svc.Upload(context.Background(), UploadRequest{
		Files: []IncomingFile{memFile{name: "a.txt", content: "a"}},
	})
	require.NoError(t, err)
	assert.Len(t, report.Saved, 1)
	assert.Zero(t, report.Mirrored)
	assert.False(t, report.Journaled)
}

func TestUploadErrors(t *testing.T) {
	svc, root := newService(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644))
	one := []IncomingFile{memFile{name: "a.txt", content: "a"}}

	tests := []struct {
		name    string
		req     UploadRequest
		wantErr error
	}{
		{"traversal", UploadRequest{Directory: "../", Files: one}, filestore.ErrForbidden},
		{"missing directory", UploadRequest{Directory: "nope", Files: one}, filestore.ErrNotDirectory},
		{"file target", UploadRequest{Directory: "file.txt", Files: one}, filestore.ErrNotDirectory},
		{"no files", UploadRequest{Directory: ""}, ErrNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUploadStopsAtFirstFailure(t *testing.T) {
	svc, root := newService(t)
	j := &fakeJournal{}
	svc.WithJournal(j)

	report, err := svc.Upload(context.Background(), UploadRequest{
		Files: []IncomingFile{
			memFile{name: "first.txt", content: "1"},
			memFile{name: "broken.txt", openErr: errors.New("disk on fire")},
			memFile{name: "third.txt", content: "3"},
		},
	})

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, "error saving broken.txt: disk on fire", err.Error())
	assert.Len(t, report.Saved, 1)
	assert.FileExists(t, filepath.Join(root, "first.txt"))
	assert.NoFileExists(t, filepath.Join(root, "third.txt"))
	require.Len(t, j.batches, 1, "files saved before the failure are journaled")
}

func TestThumbnail(t *testing.T) {
	svc, root := newService(t)
	c := newFakeCache()
	svc.WithCache(c)
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.png"), testutils.PNGData(300, 150), 0o644))

	thumb, err := svc.Thumbnail(context.Background(), "/big.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", thumb.ContentType)
	assert.Equal(t, 150, thumb.Width)
	assert.Equal(t, 75, thumb.Height)
	require.Len(t, c.thumbs, 1)

	cached, err := svc.Thumbnail(context.Background(), "big.png")
	require.NoError(t, err)
	assert.Equal(t, thumb.Data, cached.Data)
	assert.Equal(t, "image/png", cached.ContentType)
}

func TestThumbnailErrors(t *testing.T) {
	svc, root := newService(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "fake.jpg"), []byte("not really"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.svg"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.png"), 0o755))

	tests := []struct {
		path    string
		wantErr error
	}{
		{"doc.txt", ErrNotImage},
		{"logo.svg", ErrNotImage},
		{"missing.jpg", filestore.ErrNotFound},
		{"dir.png", filestore.ErrNotFound},
		{"../x.png", filestore.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := svc.Thumbnail(context.Background(), tt.path)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.Thumbnail(context.Background(), "fake.jpg")
	assert.Error(t, err)
}

func TestRecentUploads(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.RecentUploads(context.Background(), 10)
	assert.ErrorIs(t, err, ErrJournalDisabled)

	j := &fakeJournal{}
	svc.WithJournal(j)
	_, err = svc.Upload(context.Background(), UploadRequest{Files: []IncomingFile{memFile{name: "a.txt", content: "a"}}})
	require.NoError(t, err)

	recent, err := svc.RecentUploads(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "a.txt", recent[0].Name)
}

func TestUploadMirrorVerification(t *testing.T) {
	tests := []struct {
		name         string
		mirror       *fakeMirror
		wantMirrored int
	}{
		{name: "object matches", mirror: &fakeMirror{}, wantMirrored: 1},
		{name: "object missing after put", mirror: &fakeMirror{statErr: errors.New("no such key")}, wantMirrored: 0},
		{name: "object size differs", mirror: &fakeMirror{truncate: 1}, wantMirrored: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			j := &fakeJournal{}
			svc.WithMirror(tt.mirror).WithJournal(j)

			report, err := svc.Upload(context.Background(), UploadRequest{
				Files: []IncomingFile{memFile{name: "a.txt", content: "abc"}},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantMirrored, report.Mirrored)
			require.Len(t, j.batches, 1)
			assert.Equal(t, tt.wantMirrored == 1, j.batches[0][0].Mirrored)
		})
	}
}

func TestJournalQueries(t *testing.T) {
	svc, root := newService(t)
	ctx := context.Background()

	_, err := svc.DirectoryUploads(ctx, "photos", 10)
	assert.ErrorIs(t, err, ErrJournalDisabled)
	_, err = svc.BatchUploads(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrJournalDisabled)
	_, err = svc.UploadCount(ctx)
	assert.ErrorIs(t, err, ErrJournalDisabled)

	svc.WithJournal(&fakeJournal{})
	require.NoError(t, os.Mkdir(filepath.Join(root, "photos"), 0o755))

	first, err := svc.Upload(ctx, UploadRequest{
		Directory: "photos",
		Files: []IncomingFile{
			memFile{name: "a.txt", content: "a"},
			memFile{name: "b.txt", content: "b"},
		},
	})
	require.NoError(t, err)
	_, err = svc.Upload(ctx, UploadRequest{Files: []IncomingFile{memFile{name: "c.txt", content: "c"}}})
	require.NoError(t, err)

	inPhotos, err := svc.DirectoryUploads(ctx, "/photos/", 10)
	require.NoError(t, err)
	assert.Len(t, inPhotos, 2)

	inRoot, err := svc.DirectoryUploads(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, inRoot, 1)
	assert.Equal(t, "c.txt", inRoot[0].Name)

	_, err = svc.DirectoryUploads(ctx, "../etc", 10)
	assert.ErrorIs(t, err, filestore.ErrForbidden)

	batch, err := svc.BatchUploads(ctx, first.BatchID)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	total, err := svc.UploadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestHealth(t *testing.T) {
	svc, _ := newService(t)

	checks := svc.Health(context.Background())
	assert.Equal(t, map[string]error{"files": nil}, checks)

	svc.WithCache(newFakeCache()).WithMirror(&fakeMirror{err: errors.New("down")})
	checks = svc.Health(context.Background())
	assert.NoError(t, checks["cache"])
	assert.EqualError(t, checks["storage"], "down")
	_, hasDB := checks["database"]
	assert.False(t, hasDB)
}

func TestSaveErrorUnwrap(t *testing.T) {
	err := &SaveError{Name: "a", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
