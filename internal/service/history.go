package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/cloo-solutions/vsearch/internal/pagination"
	"github.com/cloo-solutions/vsearch/internal/storage"
	"github.com/cloo-solutions/vsearch/internal/telemetry"
	"github.com/google/uuid"
)

// UUIDGenerator generates UUID strings
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// SearchLogRepository persists finished searches.
type SearchLogRepository interface {
	Create(ctx context.Context, rec *domain.SearchRecord) error
	GetByID(ctx context.Context, id string) (*domain.SearchRecord, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.SearchRecord], error)
}

// ObjectMetadata contains metadata about a stored object
type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	ETag          string
}

// ArchiveStorage keeps a copy of every query image.
type ArchiveStorage interface {
	PutObject(ctx context.Context, key string, contentType string, data []byte) error
	HeadObject(ctx context.Context, key string) (*ObjectMetadata, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// HistoryEntry is the externally visible form of a SearchRecord.
type HistoryEntry struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	SHA256      string    `json:"sha256"`
	SizeBytes   int64     `json:"size_bytes"`
	Status      string    `json:"status"`
	ResultPaths []string  `json:"result_paths"`
	ResultCount int       `json:"result_count"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	ArchiveURL  string    `json:"archive_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryService records finished searches and serves them back as history.
// It satisfies controller.Recorder.
type HistoryService struct {
	repo    SearchLogRepository
	archive ArchiveStorage
	uuidGen UUIDGenerator
	now     func() time.Time
}

// NewHistoryService creates a HistoryService. archive may be nil, in which
// case query images are not archived.
func NewHistoryService(repo SearchLogRepository, archive ArchiveStorage, uuidGen UUIDGenerator) *HistoryService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &HistoryService{
		repo:    repo,
		archive: archive,
		uuidGen: uuidGen,
		now:     time.Now,
	}
}

// Record archives the query image (when storage is configured) and stores a
// history row. Archive failures are logged and do not prevent the row.
func (s *HistoryService) Record(ctx context.Context, outcome domain.SearchOutcome) error {
	if outcome.Query == nil {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "history.record", telemetry.SpanAttributes{
		SessionID: outcome.SessionID,
		Filename:  outcome.Query.Filename,
		Operation: "record",
	})
	defer span.End()

	archiveKey, err := s.archiveQuery(ctx, outcome.Query)
	if err != nil {
		log.Printf("history: archive %s failed: %v", outcome.Query.Filename, err)
		telemetry.CaptureError(ctx, err)
	}

	rec := domain.NewSearchRecord(s.uuidGen.NewString(), outcome, archiveKey, s.now().UTC())
	if err := domain.ValidateSearchRecord(rec); err != nil {
		span.SetError(err)
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid search record", err)
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to store search record: %w", err)
	}
	return nil
}

func (s *HistoryService) archiveQuery(ctx context.Context, q *domain.QueryImage) (string, error) {
	if s.archive == nil {
		return "", nil
	}

	key := storage.ArchiveKey(q.SHA256, q.Filename)
	if meta, err := s.archive.HeadObject(ctx, key); err == nil && meta != nil {
		return key, nil
	}

	if err := s.archive.PutObject(ctx, key, q.MimeType, q.Data); err != nil {
		return "", err
	}
	return key, nil
}

// List returns one page of history, newest first.
func (s *HistoryService) List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*HistoryEntry], error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}

	page, err := s.repo.ListWithCursor(ctx, decoded, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}

	return pagination.MapPage(page, func(rec *domain.SearchRecord) *HistoryEntry {
		return s.toEntry(ctx, rec)
	}), nil
}

// Get returns a single history entry.
func (s *HistoryService) Get(ctx context.Context, id string) (*HistoryEntry, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toEntry(ctx, rec), nil
}

func (s *HistoryService) toEntry(ctx context.Context, rec *domain.SearchRecord) *HistoryEntry {
	entry := &HistoryEntry{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		Filename:    rec.Filename,
		MimeType:    rec.MimeType,
		SHA256:      rec.SHA256,
		SizeBytes:   rec.SizeBytes,
		Status:      string(rec.Status),
		ResultPaths: rec.ResultPaths,
		ResultCount: len(rec.ResultPaths),
		Error:       rec.Error,
		DurationMs:  rec.DurationMs,
		CreatedAt:   rec.CreatedAt,
	}
	if entry.ResultPaths == nil {
		entry.ResultPaths = []string{}
	}

	if s.archive != nil && rec.ArchiveKey != "" {
		url, err := s.archive.GenerateDownloadURL(ctx, rec.ArchiveKey)
		if err != nil {
			log.Printf("history: presign %s failed: %v", rec.ArchiveKey, err)
		} else {
			entry.ArchiveURL = url
		}
	}
	return entry
}

// NoOpHistoryService is used when no database is configured.
type NoOpHistoryService struct{}

func (NoOpHistoryService) Record(ctx context.Context, outcome domain.SearchOutcome) error {
	return nil
}

func (NoOpHistoryService) List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*HistoryEntry], error) {
	return nil, domain.ErrHistoryDisabled
}

func (NoOpHistoryService) Get(ctx context.Context, id string) (*HistoryEntry, error) {
	return nil, domain.ErrHistoryDisabled
}
