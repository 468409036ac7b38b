package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-gallery/internal/observability"
	"file-gallery/internal/testutils"
)

func TestMetadata(t *testing.T) {
	v, err := Metadata(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)

	var m Metadata
	require.NoError(t, m.Scan([]byte(`{"note":"holiday"}`)))
	assert.Equal(t, "holiday", m["note"])

	require.NoError(t, m.Scan(nil))
	assert.Empty(t, m)

	assert.Error(t, m.Scan(42))
}

func TestPaginationValidate(t *testing.T) {
	tests := []struct {
		name string
		in   PaginationParams
		want PaginationParams
	}{
		{"defaults kept", DefaultPagination(), PaginationParams{Offset: 0, Limit: 50}},
		{"zero limit", PaginationParams{Limit: 0}, PaginationParams{Limit: 50}},
		{"limit too large", PaginationParams{Limit: 5000}, PaginationParams{Limit: 50}},
		{"negative offset", PaginationParams{Offset: -3, Limit: 10}, PaginationParams{Limit: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Validate()
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestRecordBatchRejectsEmpty(t *testing.T) {
	repo := NewUploadRepository(nil)

	_, err := repo.RecordBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestUploadRepositoryIntegration(t *testing.T) {
	dbURL := testutils.StartPostgres(t)
	ctx := context.Background()

	db, err := NewConnection(ctx, dbURL)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, RunMigrations(ctx, db, observability.NewNopLogger()))

	repo := NewUploadRepository(db)
	require.NoError(t, repo.Health(ctx))

	first := []*Upload{
		{Name: "b.jpg", OriginalName: "b.jpg", Directory: "photos", Path: "photos/b.jpg", Size: 10, ContentType: "image/jpeg"},
		{Name: "a.txt", OriginalName: "a file.txt", Directory: "photos", Path: "photos/a.txt", Size: 3, Fields: Metadata{"note": "hi"}},
	}
	batchID, err := repo.RecordBatch(ctx, first)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, batchID)
	for _, u := range first {
		assert.Equal(t, batchID, u.BatchID)
		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.False(t, u.UploadedAt.IsZero())
	}
	assert.Equal(t, "application/octet-stream", first[1].ContentType)

	_, err = repo.RecordBatch(ctx, []*Upload{
		{Name: "c.png", OriginalName: "c.png", Directory: "", Path: "c.png", Size: 1, Mirrored: true},
	})
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	batch, err := repo.ListBatch(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "a.txt", batch[0].Name)
	assert.Equal(t, "hi", batch[0].Fields["note"])

	inPhotos, err := repo.ListByDirectory(ctx, "/photos/", DefaultPagination())
	require.NoError(t, err)
	assert.Len(t, inPhotos, 2)

	recent, err := repo.ListRecent(ctx, PaginationParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c.png", recent[0].Name)
	assert.True(t, recent[0].Mirrored)

	none, err := repo.ListByDirectory(ctx, "nowhere", DefaultPagination())
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
