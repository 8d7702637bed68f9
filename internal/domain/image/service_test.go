package image

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"testing"
	"time"

	"github.com/picstash/picstash-api/internal/pkg/imaging"
	"github.com/picstash/picstash-api/internal/pkg/urlcache"
)

type fakeStorage struct {
	objects   map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
	signCalls int
	signErr   error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Put(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, _ := io.ReadAll(reader)
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStorage) URL(key string) string {
	return "http://files.test/" + key
}

func (f *fakeStorage) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	f.signCalls++
	if f.signErr != nil {
		return "", f.signErr
	}
	return "http://files.test/" + key + "?sig=abc", nil
}

type failingStore struct {
	*MemStore
	putErr error
}

func (f *failingStore) Put(ctx context.Context, record *ImageRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemStore.Put(ctx, record)
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

func newTestService(store Store, st *fakeStorage) *Service {
	return NewService(store, st, imaging.NewOptimizer(imaging.DefaultConfig()), urlcache.NewMemoryCache(), Config{
		MaxFileSize:  10 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		SignedURLTTL: time.Hour,
	})
}

func TestUploadPersistsOptimizedBytes(t *testing.T) {
	st := newFakeStorage()
	svc := newTestService(NewMemStore(), st)

	record, err := svc.Upload(context.Background(), testJPEG(t, 100, 60), "image/jpeg", "cat.jpg", []string{"cat", "pet"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	stored, ok := st.objects[record.StorageKey]
	if !ok {
		t.Fatalf("no object stored under %s", record.StorageKey)
	}
	if record.FileSize != int64(len(stored)) {
		t.Errorf("FileSize %d does not match stored length %d", record.FileSize, len(stored))
	}
	if record.Width != 100 || record.Height != 60 {
		t.Errorf("dimensions %dx%d, want 100x60", record.Width, record.Height)
	}
	if record.FileName != record.ID+".jpg" {
		t.Errorf("unexpected file name %s", record.FileName)
	}
}

func TestUploadGarbageBytesStoredAsIs(t *testing.T) {
	st := newFakeStorage()
	svc := newTestService(NewMemStore(), st)

	data := []byte("\xff\xd8not really a jpeg")
	record, err := svc.Upload(context.Background(), data, "image/jpeg", "broken.jpg", nil)
	if err != nil {
		t.Fatalf("upload must not fail on undecodable image: %v", err)
	}

	if !bytes.Equal(st.objects[record.StorageKey], data) {
		t.Error("undecodable image must be stored unmodified")
	}
	if record.Keywords == nil || len(record.Keywords) != 0 {
		t.Errorf("nil keywords must default to empty slice, got %#v", record.Keywords)
	}
}

func TestUploadRejectsInvalidFiles(t *testing.T) {
	st := newFakeStorage()
	store := NewMemStore()
	svc := newTestService(store, st)

	cases := []struct {
		name        string
		data        []byte
		contentType string
		want        error
	}{
		{"empty", nil, "image/jpeg", ErrEmptyFile},
		{"wrong type", []byte("%PDF-1.4"), "application/pdf", ErrInvalidFileType},
	}
	for _, c := range cases {
		if _, err := svc.Upload(context.Background(), c.data, c.contentType, c.name, nil); !errors.Is(err, c.want) {
			t.Errorf("%s: got %v, want %v", c.name, err, c.want)
		}
	}

	// oversize
	small := NewService(store, st, imaging.NewOptimizer(imaging.DefaultConfig()), nil, Config{
		MaxFileSize:  10,
		AllowedTypes: []string{"image/jpeg"},
		SignedURLTTL: time.Hour,
	})
	if _, err := small.Upload(context.Background(), testJPEG(t, 10, 10), "image/jpeg", "big.jpg", nil); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("oversize: got %v, want ErrFileTooLarge", err)
	}

	if len(st.objects) != 0 {
		t.Error("rejected uploads must not write to storage")
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Error("rejected uploads must not write metadata")
	}
}

func TestUploadCompensatesOnMetadataFailure(t *testing.T) {
	st := newFakeStorage()
	store := &failingStore{MemStore: NewMemStore(), putErr: errors.New("disk full")}
	svc := newTestService(store, st)

	_, err := svc.Upload(context.Background(), testJPEG(t, 20, 20), "image/jpeg", "x.jpg", nil)
	if !errors.Is(err, ErrMetadataWrite) {
		t.Fatalf("got %v, want ErrMetadataWrite", err)
	}

	if len(st.deleted) != 1 {
		t.Fatalf("expected one compensating delete, got %d", len(st.deleted))
	}
	if len(st.objects) != 0 {
		t.Error("stored object must be removed after metadata failure")
	}
}

func TestUploadBatchOutcomesIndependentAndOrdered(t *testing.T) {
	st := newFakeStorage()
	svc := newTestService(NewMemStore(), st)

	files := []UploadFile{
		{Data: testJPEG(t, 10, 10), ContentType: "image/jpeg", OriginalName: "a.jpg"},
		{Data: []byte("nope"), ContentType: "text/plain", OriginalName: "b.txt"},
		{Data: testJPEG(t, 10, 10), ContentType: "image/jpeg", OriginalName: "c.jpg"},
	}

	outcomes := svc.UploadBatch(context.Background(), files)

	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	for i, file := range files {
		if outcomes[i].OriginalName != file.OriginalName {
			t.Errorf("outcome %d is %s, want %s", i, outcomes[i].OriginalName, file.OriginalName)
		}
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("valid files must succeed: %v, %v", outcomes[0].Err, outcomes[2].Err)
	}
	if !errors.Is(outcomes[1].Err, ErrInvalidFileType) {
		t.Errorf("invalid file must fail independently, got %v", outcomes[1].Err)
	}
	if len(st.objects) != 2 {
		t.Errorf("expected 2 stored objects, got %d", len(st.objects))
	}
}

func TestSearchMatchingAndFallback(t *testing.T) {
	st := newFakeStorage()
	store := NewMemStore()
	svc := newTestService(store, st)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seed := []*ImageRecord{
		{ID: "1", OriginalName: "sunny.jpg", Keywords: []string{"beach", "summer"}, UploadDate: base},
		{ID: "2", OriginalName: "BEACH-day.png", Keywords: []string{"family"}, UploadDate: base.Add(time.Minute)},
		{ID: "3", OriginalName: "peak.jpg", Keywords: []string{"mountain"}, UploadDate: base.Add(2 * time.Minute)},
	}
	for _, r := range seed {
		if err := store.Put(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}

	result, err := svc.Search(context.Background(), "Beach", 1, 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Images) != 2 {
		t.Fatalf("expected 2 beach matches, got %d", len(result.Images))
	}
	// newest first
	if result.Images[0].ID != "2" || result.Images[1].ID != "1" {
		t.Errorf("wrong order: %s, %s", result.Images[0].ID, result.Images[1].ID)
	}

	// multi-token OR
	result, err = svc.Search(context.Background(), "beach mountain", 1, 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Images) != 3 {
		t.Errorf("OR semantics: expected 3 matches, got %d", len(result.Images))
	}

	// blank query falls back to the full listing
	result, err = svc.Search(context.Background(), "   ", 1, 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Images) != 3 || result.Pagination.TotalImages != 3 {
		t.Errorf("blank query must list everything, got %d", len(result.Images))
	}

	// no matches is an empty success
	result, err = svc.Search(context.Background(), "xyzzy", 1, 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Images) != 0 || result.Pagination.TotalImages != 0 {
		t.Errorf("expected empty result, got %d", len(result.Images))
	}
}

func TestDeleteProceedsDespiteStorageFailure(t *testing.T) {
	st := newFakeStorage()
	store := NewMemStore()
	svc := newTestService(store, st)

	record, err := svc.Upload(context.Background(), testJPEG(t, 10, 10), "image/jpeg", "x.jpg", nil)
	if err != nil {
		t.Fatal(err)
	}

	st.deleteErr = errors.New("backend down")
	if err := svc.Delete(context.Background(), record.ID); err != nil {
		t.Fatalf("delete must succeed even when storage delete fails: %v", err)
	}

	if _, err := store.Get(context.Background(), record.ID); !errors.Is(err, ErrImageNotFound) {
		t.Error("metadata must be gone after delete")
	}
}

func TestDeleteUnknownID(t *testing.T) {
	svc := newTestService(NewMemStore(), newFakeStorage())
	if err := svc.Delete(context.Background(), "nope"); !errors.Is(err, ErrImageNotFound) {
		t.Fatalf("got %v, want ErrImageNotFound", err)
	}
}

func TestGetStats(t *testing.T) {
	st := newFakeStorage()
	store := NewMemStore()
	svc := newTestService(store, st)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		record := &ImageRecord{
			ID:         string(rune('a' + i)),
			FileSize:   100,
			UploadDate: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.Put(context.Background(), record); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalImages != 7 {
		t.Errorf("TotalImages = %d, want 7", stats.TotalImages)
	}
	if stats.TotalSize != 700 {
		t.Errorf("TotalSize = %d, want 700", stats.TotalSize)
	}
	if len(stats.RecentUploads) != 5 {
		t.Fatalf("RecentUploads = %d, want 5", len(stats.RecentUploads))
	}
	if stats.RecentUploads[0].ID != "g" {
		t.Errorf("newest upload must come first, got %s", stats.RecentUploads[0].ID)
	}
}

func TestResolveURLCachesSignedURL(t *testing.T) {
	st := newFakeStorage()
	svc := newTestService(NewMemStore(), st)
	record := &ImageRecord{ID: "1", StorageKey: "images/1.jpg"}

	first := svc.ResolveURL(context.Background(), record)
	second := svc.ResolveURL(context.Background(), record)

	if first != second {
		t.Errorf("cached URL differs: %s vs %s", first, second)
	}
	if st.signCalls != 1 {
		t.Errorf("expected 1 signing call, got %d", st.signCalls)
	}
}

func TestResolveURLFallsBackOnSigningFailure(t *testing.T) {
	st := newFakeStorage()
	st.signErr = errors.New("presign unavailable")
	svc := newTestService(NewMemStore(), st)
	record := &ImageRecord{ID: "1", StorageKey: "images/1.jpg"}

	url := svc.ResolveURL(context.Background(), record)
	if url != "http://files.test/images/1.jpg" {
		t.Errorf("expected plain URL fallback, got %s", url)
	}
}
