package image

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore is a MemStore mirrored to a JSON file so metadata survives
// restarts. Every mutation rewrites the whole file; fine at demo scale.
type FileStore struct {
	mem  *MemStore
	path string
	mu   sync.Mutex // serializes file rewrites
}

// NewFileStore creates a file-backed store, loading any existing metadata
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		mem:  NewMemStore(),
		path: path,
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", s.path).Msg("No existing metadata found, starting fresh")
			return nil
		}
		return fmt.Errorf("failed to read metadata file: %w", err)
	}

	var rows map[string]*fileRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to parse metadata file: %w", err)
	}

	for _, row := range rows {
		s.mem.records[row.ID] = row.toRecord()
	}

	log.Info().Int("count", len(rows)).Str("path", s.path).Msg("Loaded image metadata")
	return nil
}

// fileRecord is the on-disk shape. It carries the storage key, which the
// API-facing record deliberately hides from JSON.
type fileRecord struct {
	ID           string    `json:"id"`
	StorageKey   string    `json:"storageKey"`
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	Keywords     []string  `json:"keywords"`
	UploadDate   time.Time `json:"uploadDate"`
	FileSize     int64     `json:"fileSize"`
	ContentType  string    `json:"contentType"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
}

func toFileRecord(r *ImageRecord) *fileRecord {
	return &fileRecord{
		ID:           r.ID,
		StorageKey:   r.StorageKey,
		FileName:     r.FileName,
		OriginalName: r.OriginalName,
		Keywords:     r.Keywords,
		UploadDate:   r.UploadDate,
		FileSize:     r.FileSize,
		ContentType:  r.ContentType,
		Width:        r.Width,
		Height:       r.Height,
	}
}

func (f *fileRecord) toRecord() *ImageRecord {
	return &ImageRecord{
		ID:           f.ID,
		StorageKey:   f.StorageKey,
		FileName:     f.FileName,
		OriginalName: f.OriginalName,
		Keywords:     f.Keywords,
		UploadDate:   f.UploadDate,
		FileSize:     f.FileSize,
		ContentType:  f.ContentType,
		Width:        f.Width,
		Height:       f.Height,
	}
}

func (s *FileStore) persist() error {
	s.mem.mu.RLock()
	rows := make(map[string]*fileRecord, len(s.mem.records))
	for id, record := range s.mem.records {
		rows[id] = toFileRecord(record)
	}
	s.mem.mu.RUnlock()

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}
	return nil
}

func (s *FileStore) Put(ctx context.Context, record *ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.Put(ctx, record); err != nil {
		return err
	}
	return s.persist()
}

func (s *FileStore) Get(ctx context.Context, id string) (*ImageRecord, error) {
	return s.mem.Get(ctx, id)
}

func (s *FileStore) List(ctx context.Context) ([]*ImageRecord, error) {
	return s.mem.List(ctx)
}

func (s *FileStore) Search(ctx context.Context, tokens []string) ([]*ImageRecord, error) {
	return s.mem.Search(ctx, tokens)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.Delete(ctx, id); err != nil {
		return err
	}
	return s.persist()
}

func (s *FileStore) Count(ctx context.Context) (int, error) {
	return s.mem.Count(ctx)
}
