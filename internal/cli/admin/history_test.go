package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/cloo-solutions/vsearch/internal/pagination"
	"github.com/cloo-solutions/vsearch/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHistoryLister struct {
	mock.Mock
}

func (m *MockHistoryLister) List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*service.HistoryEntry], error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*service.HistoryEntry]), args.Error(1)
}

func sampleEntry() *service.HistoryEntry {
	return &service.HistoryEntry{
		ID:          "rec-1",
		SessionID:   "5f2b9c1e-0000-4000-8000-000000000000",
		Filename:    "shirt.jpg",
		Status:      "ok",
		ResultPaths: []string{"a.jpg", "b.jpg"},
		ResultCount: 2,
		DurationMs:  120,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRunHistory_Table(t *testing.T) {
	lister := new(MockHistoryLister)
	lister.On("List", mock.Anything, "", 20).Return(&pagination.PageResult[*service.HistoryEntry]{
		Items:   []*service.HistoryEntry{sampleEntry()},
		Cursor:  "next",
		HasMore: true,
	}, nil)

	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), &out, lister, "", 20, false))

	text := out.String()
	assert.Contains(t, text, "2026-01-02 03:04:05")
	assert.Contains(t, text, "shirt.jpg")
	assert.Contains(t, text, "120ms")
	assert.Contains(t, text, "5f2b9c1e")
	assert.NotContains(t, text, "5f2b9c1e-0000")
	assert.Contains(t, text, "--cursor next")
	lister.AssertExpectations(t)
}

func TestRunHistory_JSON(t *testing.T) {
	lister := new(MockHistoryLister)
	lister.On("List", mock.Anything, "abc", 5).Return(&pagination.PageResult[*service.HistoryEntry]{
		Items: []*service.HistoryEntry{sampleEntry()},
	}, nil)

	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), &out, lister, "abc", 5, true))

	var page pagination.PageResult[*service.HistoryEntry]
	require.NoError(t, json.Unmarshal(out.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, page.Items[0].ResultPaths)
	assert.False(t, page.HasMore)
}

func TestRunHistory_Empty(t *testing.T) {
	lister := new(MockHistoryLister)
	lister.On("List", mock.Anything, "", 20).Return(&pagination.PageResult[*service.HistoryEntry]{}, nil)

	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), &out, lister, "", 20, false))
	assert.Contains(t, out.String(), "No searches recorded.")
}

func TestRunHistory_Error(t *testing.T) {
	lister := new(MockHistoryLister)
	lister.On("List", mock.Anything, "bad", 20).Return(nil, domain.ErrInvalidCursor)

	var out bytes.Buffer
	err := runHistory(context.Background(), &out, lister, "bad", 20, false)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
	assert.Empty(t, out.String())
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("123456789"))
	assert.Equal(t, "", shortID("  "))
}
