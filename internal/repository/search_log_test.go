//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/cloo-solutions/vsearch/internal/pagination"
	"github.com/cloo-solutions/vsearch/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(createdAt time.Time, paths []string) *domain.SearchRecord {
	return &domain.SearchRecord{
		ID:          uuid.NewString(),
		SessionID:   "sess-" + uuid.NewString()[:8],
		Filename:    "chair.jpg",
		MimeType:    "image/jpeg",
		SHA256:      "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		SizeBytes:   1234,
		Status:      domain.SearchStatusOK,
		ResultPaths: paths,
		DurationMs:  42,
		CreatedAt:   createdAt.UTC().Truncate(time.Microsecond),
	}
}

func TestSearchLogRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSearchLogRepository(pool)

	rec := newRecord(time.Now(), []string{"/data/b.jpg", "/data/a.jpg"})
	rec.ArchiveKey = "queries/" + rec.SHA256 + "/chair.jpg"
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, rec.SHA256, got.SHA256)
	assert.Equal(t, rec.ArchiveKey, got.ArchiveKey)
	assert.Equal(t, domain.SearchStatusOK, got.Status)
	assert.Equal(t, []string{"/data/b.jpg", "/data/a.jpg"}, got.ResultPaths)
	assert.Empty(t, got.Error)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestSearchLogRepository_CreateFailed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSearchLogRepository(pool)

	rec := newRecord(time.Now(), nil)
	rec.Status = domain.SearchStatusFailed
	rec.Error = "Search request failed with status: 500"
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchStatusFailed, got.Status)
	assert.Equal(t, rec.Error, got.Error)
	assert.Empty(t, got.ArchiveKey)
	assert.Equal(t, []string{}, got.ResultPaths)
}

func TestSearchLogRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSearchLogRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestSearchLogRepository_ListWithCursor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSearchLogRepository(pool)
	require.NoError(t, testutil.TruncateAll(ctx, pool))

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 5; i++ {
		rec := newRecord(base.Add(time.Duration(i)*time.Minute), []string{"/p.jpg"})
		require.NoError(t, repo.Create(ctx, rec))
		ids = append(ids, rec.ID)
	}

	first, err := repo.ListWithCursor(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, ids[4], first.Items[0].ID)
	assert.Equal(t, ids[3], first.Items[1].ID)

	cursor, err := pagination.DecodeCursor(first.Cursor)
	require.NoError(t, err)

	second, err := repo.ListWithCursor(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, ids[2], second.Items[0].ID)
	assert.Equal(t, ids[1], second.Items[1].ID)

	cursor, err = pagination.DecodeCursor(second.Cursor)
	require.NoError(t, err)

	last, err := repo.ListWithCursor(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.False(t, last.HasMore)
	assert.Empty(t, last.Cursor)
	assert.Equal(t, ids[0], last.Items[0].ID)
}
