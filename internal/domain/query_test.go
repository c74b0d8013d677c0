package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueryImage(t *testing.T) {
	now := time.Now()
	q := NewQueryImage("shirt.jpg", "image/jpeg", []byte("abc"), now)

	assert.Equal(t, "shirt.jpg", q.Filename)
	assert.Equal(t, "image/jpeg", q.MimeType)
	assert.Equal(t, []byte("abc"), q.Data)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", q.SHA256)
	assert.Equal(t, int64(3), q.Size())
	assert.Equal(t, now, q.SelectedAt)
}

func TestQueryImage_SizeNil(t *testing.T) {
	var q *QueryImage
	assert.Equal(t, int64(0), q.Size())
}

func TestValidateQueryImage(t *testing.T) {
	tests := []struct {
		name    string
		query   *QueryImage
		wantErr error
		errMsg  string
	}{
		{
			name:  "valid",
			query: NewQueryImage("a.png", "image/png", []byte{1, 2, 3}, time.Now()),
		},
		{
			name:   "nil",
			query:  nil,
			errMsg: "cannot be nil",
		},
		{
			name:   "missing filename",
			query:  NewQueryImage("", "image/png", []byte{1}, time.Now()),
			errMsg: "Filename is required",
		},
		{
			name:    "empty data",
			query:   NewQueryImage("a.png", "image/png", nil, time.Now()),
			wantErr: ErrEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQueryImage(tt.query)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
