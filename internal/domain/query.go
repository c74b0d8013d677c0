package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// QueryImage is the image a user selected as search input.
type QueryImage struct {
	Filename   string
	MimeType   string
	Data       []byte
	SHA256     string
	SelectedAt time.Time
}

// NewQueryImage creates a QueryImage and computes its content hash
func NewQueryImage(filename, mimeType string, data []byte, selectedAt time.Time) *QueryImage {
	sum := sha256.Sum256(data)
	return &QueryImage{
		Filename:   filename,
		MimeType:   mimeType,
		Data:       data,
		SHA256:     hex.EncodeToString(sum[:]),
		SelectedAt: selectedAt,
	}
}

// Size returns the number of bytes in the image.
func (q *QueryImage) Size() int64 {
	if q == nil {
		return 0
	}
	return int64(len(q.Data))
}

// ValidateQueryImage validates a QueryImage instance
func ValidateQueryImage(q *QueryImage) error {
	if q == nil {
		return fmt.Errorf("query image cannot be nil")
	}

	if q.Filename == "" {
		return fmt.Errorf("query image Filename is required")
	}

	if len(q.Data) == 0 {
		return ErrEmptyFile
	}

	return nil
}
