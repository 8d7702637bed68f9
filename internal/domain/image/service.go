package image

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/picstash/picstash-api/internal/pkg/imaging"
	"github.com/picstash/picstash-api/internal/pkg/storage"
	"github.com/picstash/picstash-api/internal/pkg/urlcache"
)

// Config holds the service's upload constraints
type Config struct {
	MaxFileSize  int64
	AllowedTypes []string
	SignedURLTTL time.Duration
}

// Service is the upload pipeline and query engine. It only sees the Store
// and Storage interfaces; backends are wired in at startup.
type Service struct {
	store     Store
	storage   storage.Storage
	optimizer *imaging.Optimizer
	urls      urlcache.Cache
	cfg       Config
}

// NewService creates the image service
func NewService(store Store, st storage.Storage, optimizer *imaging.Optimizer, urls urlcache.Cache, cfg Config) *Service {
	if urls == nil {
		urls = urlcache.NewMemoryCache()
	}
	return &Service{
		store:     store,
		storage:   st,
		optimizer: optimizer,
		urls:      urls,
		cfg:       cfg,
	}
}

// Upload validates, optimizes and persists one image. On a metadata failure
// after the storage write, the stored object is deleted best-effort before
// the error is returned; a failed compensating delete leaves an orphaned
// object, which is logged, never surfaced.
func (s *Service) Upload(ctx context.Context, data []byte, contentType, originalName string, keywords []string) (*ImageRecord, error) {
	if err := s.validateFile(data, contentType); err != nil {
		return nil, err
	}

	id := uuid.New().String()

	stored := data
	width, height := 0, 0
	if result, err := s.optimizer.Optimize(data, contentType); err != nil {
		// Best-effort: an image we can't optimize is stored as-is
		log.Warn().Err(err).Str("name", originalName).Msg("Image optimization failed, storing original")
	} else {
		stored = result.Data
		width, height = result.Width, result.Height
	}

	ext := storage.ExtensionForMime(contentType)
	fileName := id + ext
	storageKey := "images/" + fileName

	if err := s.storage.Put(ctx, storageKey, bytes.NewReader(stored), contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	record := &ImageRecord{
		ID:           id,
		StorageKey:   storageKey,
		FileName:     fileName,
		OriginalName: originalName,
		Keywords:     keywords,
		UploadDate:   time.Now().UTC(),
		FileSize:     int64(len(stored)),
		ContentType:  contentType,
		Width:        width,
		Height:       height,
	}
	if record.Keywords == nil {
		record.Keywords = []string{}
	}

	if err := s.store.Put(ctx, record); err != nil {
		// Compensating delete; a failure here orphans the object
		if delErr := s.storage.Delete(ctx, storageKey); delErr != nil {
			log.Error().Err(delErr).Str("key", storageKey).Msg("Compensating delete failed, storage object orphaned")
		}
		return nil, fmt.Errorf("%w: %v", ErrMetadataWrite, err)
	}

	log.Info().Str("id", id).Str("name", originalName).Int64("size", record.FileSize).Msg("Image uploaded")
	return record, nil
}

// UploadFile is one input to a batch upload
type UploadFile struct {
	Data         []byte
	ContentType  string
	OriginalName string
	Keywords     []string
}

// UploadOutcome is the independent result of one file in a batch
type UploadOutcome struct {
	OriginalName string
	Record       *ImageRecord
	Err          error
}

// UploadBatch uploads files concurrently. Each file succeeds or fails on its
// own; one failure neither aborts nor rolls back the others. Outcomes are
// returned in input order.
func (s *Service) UploadBatch(ctx context.Context, files []UploadFile) []UploadOutcome {
	outcomes := make([]UploadOutcome, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file UploadFile) {
			defer wg.Done()
			record, err := s.Upload(ctx, file.Data, file.ContentType, file.OriginalName, file.Keywords)
			outcomes[i] = UploadOutcome{
				OriginalName: file.OriginalName,
				Record:       record,
				Err:          err,
			}
		}(i, file)
	}
	wg.Wait()

	return outcomes
}

// ListResult is one page of records plus its pagination block
type ListResult struct {
	Images     []*ImageRecord
	Pagination Pagination
}

// ListAll returns all images newest-first, paginated
func (s *Service) ListAll(ctx context.Context, page, limit int) (*ListResult, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	sortNewestFirst(records)
	items, pagination := paginate(records, page, limit)
	return &ListResult{Images: items, Pagination: pagination}, nil
}

// Search returns images matching the query, newest-first, paginated. A blank
// query falls back to ListAll.
func (s *Service) Search(ctx context.Context, query string, page, limit int) (*ListResult, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return s.ListAll(ctx, page, limit)
	}

	records, err := s.store.Search(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to search images: %w", err)
	}

	sortNewestFirst(records)
	items, pagination := paginate(records, page, limit)
	return &ListResult{Images: items, Pagination: pagination}, nil
}

// Get returns one record by id
func (s *Service) Get(ctx context.Context, id string) (*ImageRecord, error) {
	return s.store.Get(ctx, id)
}

// Delete removes an image. The storage-side delete is best-effort: its
// failure is logged but never blocks the metadata delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, record.StorageKey); err != nil {
		log.Warn().Err(err).Str("key", record.StorageKey).Msg("Storage delete failed, removing metadata anyway")
	}
	s.urls.Invalidate(ctx, record.StorageKey)

	return s.store.Delete(ctx, id)
}

// Stats aggregates upload statistics
type Stats struct {
	TotalImages   int
	TotalSize     int64
	RecentUploads []*ImageRecord
}

// GetStats returns total count, total optimized byte size and the five most
// recent uploads
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}

	sortNewestFirst(records)

	var totalSize int64
	for _, record := range records {
		totalSize += record.FileSize
	}

	recent := records
	if len(recent) > 5 {
		recent = recent[:5]
	}

	return &Stats{
		TotalImages:   len(records),
		TotalSize:     totalSize,
		RecentUploads: recent,
	}, nil
}

// ResolveURL returns a fresh retrieval URL for a record. Signed URLs are
// cached for slightly less than their signing expiry, so a served URL can
// never be stale.
func (s *Service) ResolveURL(ctx context.Context, record *ImageRecord) string {
	if url, ok := s.urls.Get(ctx, record.StorageKey); ok {
		return url
	}

	url, err := s.storage.SignedURL(ctx, record.StorageKey, s.cfg.SignedURLTTL)
	if err != nil {
		log.Error().Err(err).Str("key", record.StorageKey).Msg("Failed to sign URL")
		return s.storage.URL(record.StorageKey)
	}

	cacheTTL := s.cfg.SignedURLTTL - 5*time.Minute
	if cacheTTL <= 0 {
		cacheTTL = s.cfg.SignedURLTTL / 2
	}
	s.urls.Set(ctx, record.StorageKey, url, cacheTTL)

	return url
}

func (s *Service) validateFile(data []byte, contentType string) error {
	if len(data) == 0 {
		return ErrEmptyFile
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return ErrFileTooLarge
	}
	for _, allowed := range s.cfg.AllowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return ErrInvalidFileType
}
