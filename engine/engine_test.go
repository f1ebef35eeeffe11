package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picvault/picvault-service/cache"
	"github.com/picvault/picvault-service/entity"
	"github.com/picvault/picvault-service/repository"
	"github.com/picvault/picvault-service/storage"
	"github.com/picvault/picvault-service/utils"
)

type fakeMetaStore struct {
	mu     sync.Mutex
	rows   map[string]*entity.Image
	nextID uint
}

func newFakeMetaStore() *fakeMetaStore {
	return &fakeMetaStore{rows: make(map[string]*entity.Image)}
}

func (s *fakeMetaStore) Insert(_ context.Context, image *entity.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[image.Key]; ok {
		return repository.ErrDuplicateKey
	}
	s.nextID++
	image.ID = s.nextID
	image.CreatedAt = time.Now()
	stored := *image
	s.rows[image.Key] = &stored
	return nil
}

func (s *fakeMetaStore) FindByKey(_ context.Context, key string) (*entity.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *fakeMetaStore) IncrementViewCount(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[key]; ok {
		row.ViewCount++
	}
	return nil
}

func (s *fakeMetaStore) SetEnabled(_ context.Context, key string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok {
		return repository.ErrNotFound
	}
	row.Enabled = enabled
	return nil
}

func (s *fakeMetaStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, key)
	return nil
}

func (s *fakeMetaStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *fakeMetaStore) viewCount(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[key]; ok {
		return row.ViewCount
	}
	return 0
}

// failingColdStore injects write/read failures in front of a MemoryStore.
// writeFailures > 0 makes that many writes fail before the store recovers;
// a persistent writeErr/readErr fails every call.
type failingColdStore struct {
	*storage.MemoryStore
	mu            sync.Mutex
	writeErr      error
	readErr       error
	writeFailures int
	writeAttempts int
}

func (s *failingColdStore) Write(ctx context.Context, path string, data []byte, contentType string) error {
	s.mu.Lock()
	s.writeAttempts++
	err := s.writeErr
	if err == nil && s.writeFailures > 0 {
		s.writeFailures--
		err = storage.ErrUnavailable
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Write(ctx, path, data, contentType)
}

func (s *failingColdStore) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAttempts
}

func (s *failingColdStore) Read(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	err := s.readErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.Read(ctx, path)
}

func testOptions() Options {
	return Options{
		MaxUploadSize: 1 << 20,
		AllowedMimes:  []string{"text/plain", "image/png"},
		DefaultTTL:    time.Minute,
		RetryAttempts: 2,
		RetryBase:     time.Millisecond,
	}
}

func newTestEngine() (*Engine, *fakeMetaStore, *cache.Memory, *storage.MemoryStore) {
	meta := newFakeMetaStore()
	hot := cache.NewMemory(1<<20, time.Minute)
	cold := storage.NewMemoryStore()
	return New(meta, hot, cold, testOptions()), meta, hot, cold
}

func TestUploadAndFetch(t *testing.T) {
	eng, meta, _, cold := newTestEngine()
	ctx := context.Background()

	payload := []byte("hello")
	record, err := eng.Upload(ctx, payload, "text/plain", "hello.txt")
	require.NoError(t, err)

	wantKey, _ := utils.ContentKey(payload)
	assert.Equal(t, wantKey, record.Key)
	assert.Equal(t, int64(len(payload)), record.Size)
	assert.Equal(t, "text/plain", record.MimeType)
	assert.Equal(t, utils.StoragePathFor(wantKey), record.StoragePath)
	assert.Equal(t, 1, meta.rowCount())
	assert.Equal(t, 1, cold.Len())

	data, mime, err := eng.Fetch(ctx, record.Key)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "text/plain", mime)
}

func TestUploadValidation(t *testing.T) {
	eng, _, _, _ := newTestEngine()
	ctx := context.Background()

	_, err := eng.Upload(ctx, nil, "text/plain", "empty.txt")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = eng.Upload(ctx, make([]byte, (1<<20)+1), "text/plain", "big.txt")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = eng.Upload(ctx, []byte("<html>"), "text/html", "page.html")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

// Re-uploading identical content stores exactly one cold object and one row,
// and the caller still gets a success with the original record.
func TestUploadDedup(t *testing.T) {
	eng, meta, _, cold := newTestEngine()
	ctx := context.Background()

	payload := []byte("same bytes")
	first, err := eng.Upload(ctx, payload, "text/plain", "a.txt")
	require.NoError(t, err)

	second, err := eng.Upload(ctx, payload, "text/plain", "b.txt")
	require.NoError(t, err)

	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, meta.rowCount())
	assert.Equal(t, 1, cold.Len())
}

func TestConcurrentIdenticalUploadsConverge(t *testing.T) {
	eng, meta, _, cold := newTestEngine()
	ctx := context.Background()

	payload := []byte("contended content")
	const n = 16

	keys := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record, err := eng.Upload(ctx, payload, "text/plain", "c.txt")
			if assert.NoError(t, err) {
				keys[i] = record.Key
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, keys[0], keys[i])
	}
	assert.Equal(t, 1, meta.rowCount())
	assert.Equal(t, 1, cold.Len())
}

func TestDisabledNeverServed(t *testing.T) {
	eng, meta, _, cold := newTestEngine()
	ctx := context.Background()

	record, err := eng.Upload(ctx, []byte("soon disabled"), "text/plain", "d.txt")
	require.NoError(t, err)

	// Warm the hot tier, then disable.
	_, _, err = eng.Fetch(ctx, record.Key)
	require.NoError(t, err)
	require.NoError(t, eng.Disable(ctx, record.Key))

	_, _, err = eng.Fetch(ctx, record.Key)
	assert.ErrorIs(t, err, ErrNotFound)

	// The bytes stay in the cold store; only serving stops.
	assert.Equal(t, 1, cold.Len())
	assert.Equal(t, 1, meta.rowCount())

	// Re-enabling restores serving.
	require.NoError(t, eng.Enable(ctx, record.Key))
	data, _, err := eng.Fetch(ctx, record.Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("soon disabled"), data)
}

func TestDisableUnknownKey(t *testing.T) {
	eng, _, _, _ := newTestEngine()
	assert.ErrorIs(t, eng.Disable(context.Background(), "nope"), ErrNotFound)
	assert.ErrorIs(t, eng.Enable(context.Background(), "nope"), ErrNotFound)
}

// Concurrent reads must each count: M fetches settle at exactly M views.
func TestConcurrentReadsCountViews(t *testing.T) {
	eng, meta, _, _ := newTestEngine()
	ctx := context.Background()

	record, err := eng.Upload(ctx, []byte("counted"), "text/plain", "v.txt")
	require.NoError(t, err)

	const m = 20
	var wg sync.WaitGroup
	for i := 0; i < m; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := eng.Fetch(ctx, record.Key)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Increments run off the read path; wait for them to settle.
	require.Eventually(t, func() bool {
		return meta.viewCount(record.Key) == m
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFetchRepopulatesHotTier(t *testing.T) {
	eng, _, hot, _ := newTestEngine()
	ctx := context.Background()

	record, err := eng.Upload(ctx, []byte("warm me"), "text/plain", "w.txt")
	require.NoError(t, err)

	// Drop the hot entry to force a cold read.
	require.NoError(t, hot.Delete(ctx, record.Key))
	_, err = hot.Get(ctx, record.Key)
	require.ErrorIs(t, err, cache.ErrMiss)

	data, _, err := eng.Fetch(ctx, record.Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("warm me"), data)

	// The miss wrote through.
	_, err = hot.Get(ctx, record.Key)
	assert.NoError(t, err)
}

func TestFetchUnknownKey(t *testing.T) {
	eng, _, _, _ := newTestEngine()
	_, _, err := eng.Fetch(context.Background(), "0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

// A failed cold write must not leave a committed metadata row behind.
func TestUploadColdFailureCompensates(t *testing.T) {
	meta := newFakeMetaStore()
	hot := cache.NewMemory(1<<20, time.Minute)
	cold := &failingColdStore{MemoryStore: storage.NewMemoryStore()}
	cold.writeErr = storage.ErrUnavailable

	eng := New(meta, hot, cold, testOptions())

	_, err := eng.Upload(context.Background(), []byte("doomed"), "text/plain", "x.txt")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, 0, meta.rowCount())
	assert.Equal(t, 0, cold.Len())

	// A later upload of the same content succeeds once the tier recovers.
	cold.mu.Lock()
	cold.writeErr = nil
	cold.mu.Unlock()

	_, err = eng.Upload(context.Background(), []byte("doomed"), "text/plain", "x.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, meta.rowCount())
}

// One transient failure must be absorbed by the write retry; the upload
// succeeds on the second attempt without any caller involvement.
func TestUploadRetriesTransientColdFailure(t *testing.T) {
	meta := newFakeMetaStore()
	hot := cache.NewMemory(1<<20, time.Minute)
	cold := &failingColdStore{MemoryStore: storage.NewMemoryStore(), writeFailures: 1}

	eng := New(meta, hot, cold, testOptions())

	record, err := eng.Upload(context.Background(), []byte("flaky"), "text/plain", "f.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, cold.attempts())
	assert.Equal(t, 1, meta.rowCount())
	assert.Equal(t, 1, cold.Len())

	data, _, err := eng.Fetch(context.Background(), record.Key)
	require.NoError(t, err)
	assert.Equal(t, []byte("flaky"), data)
}

// A deadline-shaped backend error surfaces as a timeout, not as a generic
// storage failure, and the fresh row is still compensated away.
func TestUploadColdDeadlineSurfacesTimeout(t *testing.T) {
	meta := newFakeMetaStore()
	hot := cache.NewMemory(1<<20, time.Minute)
	cold := &failingColdStore{MemoryStore: storage.NewMemoryStore()}
	cold.writeErr = fmt.Errorf("put object: %w", context.DeadlineExceeded)

	eng := New(meta, hot, cold, testOptions())

	_, err := eng.Upload(context.Background(), []byte("slow tier"), "text/plain", "t.txt")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 0, meta.rowCount())
}

func TestFetchColdDeadlineSurfacesTimeout(t *testing.T) {
	meta := newFakeMetaStore()
	hot := cache.NewMemory(1<<20, time.Minute)
	cold := &failingColdStore{MemoryStore: storage.NewMemoryStore()}

	eng := New(meta, hot, cold, testOptions())

	record, err := eng.Upload(context.Background(), []byte("reachable once"), "text/plain", "r.txt")
	require.NoError(t, err)

	// Force the next read to the cold tier and make it time out.
	require.NoError(t, hot.Delete(context.Background(), record.Key))
	cold.mu.Lock()
	cold.readErr = fmt.Errorf("get object: %w", context.DeadlineExceeded)
	cold.mu.Unlock()

	_, _, err = eng.Fetch(context.Background(), record.Key)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestUploadQuotaExceeded(t *testing.T) {
	meta := newFakeMetaStore()
	hot := cache.NewMemory(1<<20, time.Minute)
	cold := &failingColdStore{MemoryStore: storage.NewMemoryStore()}
	cold.writeErr = storage.ErrQuotaExceeded

	eng := New(meta, hot, cold, testOptions())

	_, err := eng.Upload(context.Background(), []byte("too much"), "text/plain", "q.txt")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 0, meta.rowCount())
}

func TestPin(t *testing.T) {
	eng, _, _, _ := newTestEngine()
	ctx := context.Background()

	record, err := eng.Upload(ctx, []byte("pinned content"), "text/plain", "p.txt")
	require.NoError(t, err)

	require.NoError(t, eng.Pin(ctx, record.Key))
	assert.ErrorIs(t, eng.Pin(ctx, "not cached"), ErrNotFound)
}
