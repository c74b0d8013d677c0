package pagination

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "4f1c2b9e-8c61-4c3a-9d7f-0b5a2f3e1d00"

func TestCursor_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

	encoded := EncodeCursor(testID, ts)
	require.NotEmpty(t, encoded)
	assert.Equal(t, encoded, url.QueryEscape(encoded), "cursor must survive a query string")

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, testID, decoded.LastID)
	assert.True(t, ts.Equal(decoded.Timestamp))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Equal(t, "", EncodeCursor("", time.Now()))
}

func TestDecodeCursor_Empty(t *testing.T) {
	cursor, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "%%%"},
		{"missing separator", enc(testID)},
		{"id not a uuid", enc("abc|" + strconv.FormatInt(time.Now().UnixNano(), 10))},
		{"bad timestamp", enc(testID + "|yesterday")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.cursor)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

type row struct {
	id string
	at time.Time
}

func rowKey(r row) (string, time.Time) { return r.id, r.at }

func TestTrimPage(t *testing.T) {
	now := time.Now().UTC()
	rows := []row{
		{"11111111-1111-1111-1111-111111111111", now},
		{"22222222-2222-2222-2222-222222222222", now.Add(-time.Second)},
		{"33333333-3333-3333-3333-333333333333", now.Add(-2 * time.Second)},
	}

	t.Run("last page", func(t *testing.T) {
		page := TrimPage(rows, 3, rowKey)
		assert.Len(t, page.Items, 3)
		assert.False(t, page.HasMore)
		assert.Empty(t, page.Cursor)
	})

	t.Run("more available", func(t *testing.T) {
		page := TrimPage(rows, 2, rowKey)
		require.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)

		decoded, err := DecodeCursor(page.Cursor)
		require.NoError(t, err)
		assert.Equal(t, rows[1].id, decoded.LastID)
		assert.True(t, rows[1].at.Equal(decoded.Timestamp))
	})

	t.Run("empty", func(t *testing.T) {
		page := TrimPage([]row{}, 2, rowKey)
		assert.Empty(t, page.Items)
		assert.False(t, page.HasMore)
	})
}

func TestMapPage(t *testing.T) {
	page := &PageResult[int]{Items: []int{1, 2}, Cursor: "c", HasMore: true}
	mapped := MapPage(page, strconv.Itoa)
	assert.Equal(t, []string{"1", "2"}, mapped.Items)
	assert.Equal(t, "c", mapped.Cursor)
	assert.True(t, mapped.HasMore)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-5))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
}
