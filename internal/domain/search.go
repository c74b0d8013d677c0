package domain

import (
	"fmt"
	"time"
)

// SearchStatus represents how a finished search ended
type SearchStatus string

const (
	SearchStatusOK     SearchStatus = "ok"
	SearchStatusFailed SearchStatus = "failed"
)

// IsValidSearchStatus checks if the given status is valid
func IsValidSearchStatus(s SearchStatus) bool {
	switch s {
	case SearchStatusOK, SearchStatusFailed:
		return true
	default:
		return false
	}
}

// SearchOutcome describes one completed search cycle.
type SearchOutcome struct {
	SessionID   string
	Query       *QueryImage
	ResultPaths []string
	Err         error
	StartedAt   time.Time
	Duration    time.Duration
}

// Status reports ok when the search produced no error.
func (o SearchOutcome) Status() SearchStatus {
	if o.Err != nil {
		return SearchStatusFailed
	}
	return SearchStatusOK
}

// SearchRecord is a persisted history entry for a finished search.
type SearchRecord struct {
	ID          string
	SessionID   string
	Filename    string
	MimeType    string
	SHA256      string
	SizeBytes   int64
	ArchiveKey  string
	Status      SearchStatus
	ResultPaths []string
	Error       string
	DurationMs  int64
	CreatedAt   time.Time
}

// NewSearchRecord builds a SearchRecord from an outcome.
func NewSearchRecord(id string, outcome SearchOutcome, archiveKey string, createdAt time.Time) *SearchRecord {
	rec := &SearchRecord{
		ID:          id,
		SessionID:   outcome.SessionID,
		ArchiveKey:  archiveKey,
		Status:      outcome.Status(),
		ResultPaths: outcome.ResultPaths,
		DurationMs:  outcome.Duration.Milliseconds(),
		CreatedAt:   createdAt,
	}
	if rec.ResultPaths == nil {
		rec.ResultPaths = []string{}
	}
	if outcome.Query != nil {
		rec.Filename = outcome.Query.Filename
		rec.MimeType = outcome.Query.MimeType
		rec.SHA256 = outcome.Query.SHA256
		rec.SizeBytes = outcome.Query.Size()
	}
	if outcome.Err != nil {
		rec.Error = outcome.Err.Error()
	}
	return rec
}

// ValidateSearchRecord validates a SearchRecord instance
func ValidateSearchRecord(r *SearchRecord) error {
	if r == nil {
		return fmt.Errorf("search record cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("search record ID is required")
	}

	if r.SHA256 == "" {
		return fmt.Errorf("search record SHA256 is required")
	}

	if !IsValidSearchStatus(r.Status) {
		return fmt.Errorf("invalid search status: %s", r.Status)
	}

	return nil
}
