package image

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func seedRecord(id, name string, keywords ...string) *ImageRecord {
	return &ImageRecord{
		ID:           id,
		StorageKey:   "images/" + id + ".jpg",
		FileName:     id + ".jpg",
		OriginalName: name,
		Keywords:     keywords,
		UploadDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		FileSize:     123,
		ContentType:  "image/jpeg",
	}
}

func TestMemStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("get missing: got %v, want ErrImageNotFound", err)
	}

	record := seedRecord("1", "cat.jpg", "cat")
	if err := store.Put(ctx, record); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if got.OriginalName != "cat.jpg" {
		t.Errorf("got %s", got.OriginalName)
	}

	// returned record is a copy, not shared state
	got.OriginalName = "mutated"
	again, _ := store.Get(ctx, "1")
	if again.OriginalName != "cat.jpg" {
		t.Error("store must not expose internal state")
	}

	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	if err := store.Delete(ctx, "1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "1"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("double delete: got %v, want ErrImageNotFound", err)
	}
}

func TestMemStoreSearch(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	for _, r := range []*ImageRecord{
		seedRecord("1", "sunny.jpg", "beach", "summer"),
		seedRecord("2", "BEACH-day.png", "family"),
		seedRecord("3", "peak.jpg", "mountain"),
	} {
		if err := store.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	// substring match on keywords and on the original name
	got, err := store.Search(ctx, []string{"beach"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}

	// partial token
	got, _ = store.Search(ctx, []string{"moun"})
	if len(got) != 1 || got[0].ID != "3" {
		t.Fatalf("partial token: got %d matches", len(got))
	}

	got, _ = store.Search(ctx, []string{"nothing"})
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestFileStorePersistsAcrossReloads(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "metadata.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, seedRecord("1", "cat.jpg", "cat")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, seedRecord("2", "dog.jpg", "dog")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "2"); err != nil {
		t.Fatal(err)
	}

	// a fresh store over the same file sees the surviving record
	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := reloaded.Count(ctx); n != 1 {
		t.Fatalf("count after reload = %d, want 1", n)
	}
	got, err := reloaded.Get(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if got.OriginalName != "cat.jpg" || len(got.Keywords) != 1 {
		t.Errorf("record corrupted across reload: %+v", got)
	}
	// the storage key must survive reloads or deletes break
	if got.StorageKey != "images/1.jpg" {
		t.Errorf("storage key lost across reload: %q", got.StorageKey)
	}
}

func TestFileStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "metadata.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}
}
