package controller

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picvault/picvault-service/cache"
	"github.com/picvault/picvault-service/config"
	"github.com/picvault/picvault-service/engine"
	"github.com/picvault/picvault-service/entity"
	"github.com/picvault/picvault-service/repository"
	"github.com/picvault/picvault-service/storage"
)

type mapMetaStore struct {
	mu   sync.Mutex
	rows map[string]*entity.Image
}

func newMapMetaStore() *mapMetaStore {
	return &mapMetaStore{rows: make(map[string]*entity.Image)}
}

func (s *mapMetaStore) Insert(_ context.Context, image *entity.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[image.Key]; ok {
		return repository.ErrDuplicateKey
	}
	image.CreatedAt = time.Now()
	stored := *image
	s.rows[image.Key] = &stored
	return nil
}

func (s *mapMetaStore) FindByKey(_ context.Context, key string) (*entity.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *mapMetaStore) IncrementViewCount(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[key]; ok {
		row.ViewCount++
	}
	return nil
}

func (s *mapMetaStore) SetEnabled(_ context.Context, key string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[key]
	if !ok {
		return repository.ErrNotFound
	}
	row.Enabled = enabled
	return nil
}

func (s *mapMetaStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, key)
	return nil
}

func uploadTestController(maxSize int64) *Controller {
	cfg := &config.Config{EnvConfig: &config.EnvConfig{}}
	cfg.EnvConfig.Upload.MaxSize = maxSize
	cfg.EnvConfig.Upload.AllowedMimes = []string{"text/plain", "image/png"}

	eng := engine.New(newMapMetaStore(), cache.NewMemory(1<<20, time.Minute), storage.NewMemoryStore(), engine.Options{
		MaxUploadSize: maxSize,
		AllowedMimes:  cfg.EnvConfig.Upload.AllowedMimes,
		DefaultTTL:    time.Minute,
	})

	return &Controller{Config: cfg, Engine: eng}
}

func uploadRouter(ctrl *Controller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/upload", ctrl.UploadImage)
	return r
}

func multipartBody(t *testing.T, filename string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadImageRawBody(t *testing.T) {
	ctrl := uploadTestController(64)
	r := uploadRouter(ctrl)

	req := httptest.NewRequest(http.MethodPost, "/upload?name=hello.txt", bytes.NewReader([]byte("hello")))
	req.Header.Set("Content-Type", "text/plain")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")
}

// An oversized raw body is rejected without buffering past the limit.
func TestUploadImageRawBodyTooLarge(t *testing.T) {
	ctrl := uploadTestController(16)
	r := uploadRouter(ctrl)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(make([]byte, 64)))
	req.Header.Set("Content-Type", "image/png")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadImageMultipartTooLarge(t *testing.T) {
	ctrl := uploadTestController(16)
	r := uploadRouter(ctrl)

	body, contentType := multipartBody(t, "big.png", make([]byte, 64))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadImageUnsupportedMime(t *testing.T) {
	ctrl := uploadTestController(64)
	r := uploadRouter(ctrl)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader([]byte("<html></html>")))
	req.Header.Set("Content-Type", "text/html")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
