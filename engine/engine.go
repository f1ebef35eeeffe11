// Package engine orchestrates the storage tiers: content-addressed dedup on
// write, hot-then-cold lookup with write-through repopulation on read, and
// best-effort access tracking on both paths.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/picvault/picvault-service/cache"
	"github.com/picvault/picvault-service/config"
	"github.com/picvault/picvault-service/entity"
	"github.com/picvault/picvault-service/repository"
	"github.com/picvault/picvault-service/storage"
	"github.com/picvault/picvault-service/utils"
)

// MetadataStore is what the engine needs from the image repository.
type MetadataStore interface {
	FindByKey(ctx context.Context, key string) (*entity.Image, error)
	Insert(ctx context.Context, image *entity.Image) error
	IncrementViewCount(ctx context.Context, key string) error
	SetEnabled(ctx context.Context, key string, enabled bool) error
	Delete(ctx context.Context, key string) error
}

// CleanupPublisher hands records with diverged metadata/cold state to the
// out-of-band reconciliation queue.
type CleanupPublisher interface {
	PublishCleanup(ctx context.Context, key, storagePath, reason string) error
}

// Logger is the subset of the infra logger the engine uses.
type Logger interface {
	InfoWithContextf(ctx context.Context, format string, args ...interface{})
	WarningWithContextf(ctx context.Context, format string, args ...interface{})
	ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{})
}

// Options tune the engine. Zero values fall back to conservative defaults.
type Options struct {
	MaxUploadSize int64
	AllowedMimes  []string
	DefaultTTL    time.Duration
	CacheTimeout  time.Duration
	StoreTimeout  time.Duration
	ColdTimeout   time.Duration
	RetryAttempts int
	RetryBase     time.Duration
	Cleanup       CleanupPublisher
	Logger        Logger
	Metrics       *Metrics
}

func OptionsFromConfig(cfg *config.EnvConfig) Options {
	return Options{
		MaxUploadSize: cfg.Upload.MaxSize,
		AllowedMimes:  cfg.Upload.AllowedMimes,
		DefaultTTL:    cfg.CacheTier.DefaultTTL,
		CacheTimeout:  cfg.Timeouts.Cache,
		StoreTimeout:  cfg.Timeouts.Store,
		ColdTimeout:   cfg.Timeouts.ColdIO,
	}
}

// Engine is the cache engine. It holds no per-request state and no global
// locks; every external call is independently scoped and carries a timeout.
type Engine struct {
	meta    MetadataStore
	hot     cache.Cache
	cold    storage.ColdStore
	opts    Options
	allowed map[string]struct{}
	group   singleflight.Group
}

func New(meta MetadataStore, hot cache.Cache, cold storage.ColdStore, opts Options) *Engine {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = config.DefaultMaxUploadSize
	}
	if opts.CacheTimeout <= 0 {
		opts.CacheTimeout = 2 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.ColdTimeout <= 0 {
		opts.ColdTimeout = 30 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 100 * time.Millisecond
	}

	allowed := make(map[string]struct{}, len(opts.AllowedMimes))
	for _, m := range opts.AllowedMimes {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}

	return &Engine{
		meta:    meta,
		hot:     hot,
		cold:    cold,
		opts:    opts,
		allowed: allowed,
	}
}

// cachedImage is the hot-tier value envelope; the mime type rides along with
// the bytes so a hot hit never needs a metadata lookup.
type cachedImage struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Upload stores a payload and returns its metadata record. Identical content
// is stored exactly once: concurrent and repeated uploads of the same bytes
// race on the metadata unique index, and every caller converges on the same
// record.
func (e *Engine) Upload(ctx context.Context, data []byte, mimeType, originalName string) (*entity.Image, error) {
	if len(data) == 0 {
		return nil, ErrInvalidPayload
	}
	if int64(len(data)) > e.opts.MaxUploadSize {
		return nil, ErrInvalidPayload
	}
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if _, ok := e.allowed[mime]; !ok {
		return nil, ErrUnsupportedType
	}

	key, err := utils.ContentKey(data)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	record := &entity.Image{
		Key:          key,
		OriginalName: originalName,
		Extension:    extensionFor(originalName, mime),
		Size:         int64(len(data)),
		MimeType:     mime,
		StoragePath:  utils.StoragePathFor(key),
		Enabled:      true,
	}

	insertCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	err = e.meta.Insert(insertCtx, record)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Dedup: another upload already owns this content. Fetch the
			// winning record and report success without touching the cold
			// tier again.
			existing, ferr := e.findRecord(ctx, key)
			if ferr != nil {
				return nil, ferr
			}
			if e.opts.Metrics != nil {
				e.opts.Metrics.DedupHits.Inc()
				e.opts.Metrics.Uploads.Inc()
			}
			return existing, nil
		}
		return nil, wrapTimeout(err, "metadata insert")
	}

	if err := e.writeCold(ctx, record.StoragePath, data, mime); err != nil {
		e.compensateInsert(ctx, record)
		return nil, err
	}

	e.populateHot(ctx, key, mime, data)

	if e.opts.Metrics != nil {
		e.opts.Metrics.Uploads.Inc()
	}
	return record, nil
}

// Fetch runs the read state machine: CheckHot, then CheckCold, terminating in
// a hit or a miss. A hot hit never touches the metadata store synchronously.
func (e *Engine) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	hotCtx, cancel := context.WithTimeout(ctx, e.opts.CacheTimeout)
	raw, err := e.hot.Get(hotCtx, key)
	cancel()
	if err == nil {
		var env cachedImage
		if jerr := json.Unmarshal(raw, &env); jerr == nil {
			if e.opts.Metrics != nil {
				e.opts.Metrics.HotHits.Inc()
			}
			e.trackView(key)
			return env.Data, env.MimeType, nil
		}
		// An undecodable entry is treated as a miss and dropped.
		e.deleteHot(ctx, key)
	}
	if e.opts.Metrics != nil {
		e.opts.Metrics.HotMisses.Inc()
	}

	// Concurrent misses on the same key collapse into a single cold read.
	type coldResult struct {
		data []byte
		mime string
	}
	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		record, err := e.findRecord(ctx, key)
		if err != nil {
			return nil, err
		}
		if !record.Enabled {
			return nil, ErrNotFound
		}

		data, err := e.readCold(ctx, record)
		if err != nil {
			return nil, err
		}

		e.populateHot(ctx, key, record.MimeType, data)
		if e.opts.Metrics != nil {
			e.opts.Metrics.ColdReads.Inc()
		}
		return coldResult{data: data, mime: record.MimeType}, nil
	})
	if err != nil {
		return nil, "", err
	}
	// Each caller counts as a view even when the cold read was shared.
	e.trackView(key)
	res := v.(coldResult)
	return res.data, res.mime, nil
}

// Disable excludes a record from reads. The hot entry is purged so the
// record becomes unservable immediately, not when its TTL runs out.
func (e *Engine) Disable(ctx context.Context, key string) error {
	storeCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	err := e.meta.SetEnabled(storeCtx, key, false)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return wrapTimeout(err, "metadata update")
	}

	hotCtx, cancel := context.WithTimeout(ctx, e.opts.CacheTimeout)
	defer cancel()
	if err := e.hot.Delete(hotCtx, key); err != nil {
		// The record is already disabled in metadata; hand the stale hot
		// entry to reconciliation instead of failing the toggle.
		e.publishCleanup(ctx, key, utils.StoragePathFor(key), cleanupReasonDisabled)
		e.logWarning(ctx, "[Engine] Failed to purge hot entry for disabled key %s: %v", key, err)
	}
	return nil
}

func (e *Engine) Enable(ctx context.Context, key string) error {
	storeCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	err := e.meta.SetEnabled(storeCtx, key, true)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return wrapTimeout(err, "metadata update")
	}
	return nil
}

// Pin exempts a hot entry from TTL expiry and eviction pressure. The entry
// must already be cached; fetch it first to warm it.
func (e *Engine) Pin(ctx context.Context, key string) error {
	hotCtx, cancel := context.WithTimeout(ctx, e.opts.CacheTimeout)
	defer cancel()
	if err := e.hot.Pin(hotCtx, key); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return ErrNotFound
		}
		return wrapTimeout(err, "cache pin")
	}
	return nil
}

func (e *Engine) findRecord(ctx context.Context, key string) (*entity.Image, error) {
	storeCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	record, err := e.meta.FindByKey(storeCtx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrapTimeout(err, "metadata lookup")
	}
	return record, nil
}

// writeCold persists the payload with bounded backoff on transient failures.
// Quota errors surface immediately; retrying cannot help them.
func (e *Engine) writeCold(ctx context.Context, path string, data []byte, mime string) error {
	err := utils.Retry(ctx, e.opts.RetryAttempts, e.opts.RetryBase, func() error {
		coldCtx, cancel := context.WithTimeout(ctx, e.opts.ColdTimeout)
		defer cancel()
		return e.cold.Write(coldCtx, path, data, mime)
	}, func(err error) bool {
		return errors.Is(err, storage.ErrUnavailable)
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrQuotaExceeded):
			return ErrQuotaExceeded
		case errors.Is(err, context.DeadlineExceeded):
			return ErrTimeout
		default:
			return ErrStorageUnavailable
		}
	}
	return nil
}

// readCold fetches the bytes behind a metadata record. A record whose bytes
// are missing is an internal inconsistency, not a user-visible not-found; it
// goes to reconciliation and reports the storage tier as unavailable.
func (e *Engine) readCold(ctx context.Context, record *entity.Image) ([]byte, error) {
	var data []byte
	err := utils.Retry(ctx, e.opts.RetryAttempts, e.opts.RetryBase, func() error {
		coldCtx, cancel := context.WithTimeout(ctx, e.opts.ColdTimeout)
		defer cancel()
		var rerr error
		data, rerr = e.cold.Read(coldCtx, record.StoragePath)
		return rerr
	}, func(err error) bool {
		return errors.Is(err, storage.ErrUnavailable)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.publishCleanup(ctx, record.Key, record.StoragePath, cleanupReasonOrphaned)
			e.logError(ctx, err, "[Engine] Metadata row %s points at absent cold object %s", record.Key, record.StoragePath)
			return nil, ErrStorageUnavailable
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrStorageUnavailable
	}
	return data, nil
}

// compensateInsert removes the freshly inserted metadata row after a cold
// write failed, so no committed record points at absent bytes. The delete is
// retried; if it still fails the row goes to the reconciliation queue.
func (e *Engine) compensateInsert(ctx context.Context, record *entity.Image) {
	err := utils.Retry(ctx, 2, e.opts.RetryBase, func() error {
		storeCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
		defer cancel()
		return e.meta.Delete(storeCtx, record.Key)
	}, nil)
	if err != nil {
		e.publishCleanup(ctx, record.Key, record.StoragePath, cleanupReasonOrphaned)
		e.logError(ctx, err, "[Engine] Compensation delete failed for key %s, queued for reconciliation", record.Key)
	}
}

// populateHot write-throughs the payload into the hot tier. Failure costs
// latency on the next read, nothing else, so it is logged and absorbed.
func (e *Engine) populateHot(ctx context.Context, key, mime string, data []byte) {
	raw, err := json.Marshal(cachedImage{MimeType: mime, Data: data})
	if err != nil {
		return
	}
	hotCtx, cancel := context.WithTimeout(ctx, e.opts.CacheTimeout)
	defer cancel()
	if err := e.hot.Put(hotCtx, key, raw, e.opts.DefaultTTL); err != nil {
		e.logWarning(ctx, "[Engine] Hot cache populate failed for key %s: %v", key, err)
	}
}

func (e *Engine) deleteHot(ctx context.Context, key string) {
	hotCtx, cancel := context.WithTimeout(ctx, e.opts.CacheTimeout)
	defer cancel()
	_ = e.hot.Delete(hotCtx, key)
}

// trackView bumps the view counter off the request path. The increment is
// atomic at the storage layer; a failed increment never fails the read.
func (e *Engine) trackView(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.StoreTimeout)
		defer cancel()
		if err := e.meta.IncrementViewCount(ctx, key); err != nil {
			e.logWarning(ctx, "[Engine] View count increment failed for key %s: %v", key, err)
		}
	}()
}

const (
	cleanupReasonOrphaned = "orphaned_metadata"
	cleanupReasonDisabled = "disabled"
)

func (e *Engine) publishCleanup(ctx context.Context, key, storagePath, reason string) {
	if e.opts.Cleanup == nil {
		return
	}
	if err := e.opts.Cleanup.PublishCleanup(ctx, key, storagePath, reason); err != nil {
		e.logError(ctx, err, "[Engine] Failed to publish cleanup message for key %s", key)
	}
}

func (e *Engine) logWarning(ctx context.Context, format string, args ...interface{}) {
	if e.opts.Logger != nil {
		e.opts.Logger.WarningWithContextf(ctx, format, args...)
	}
}

func (e *Engine) logError(ctx context.Context, err error, format string, args ...interface{}) {
	if e.opts.Logger != nil {
		e.opts.Logger.ErrorWithContextf(ctx, err, format, args...)
	}
}

// extensionFor takes the extension from the original name when present,
// otherwise guesses from the mime subtype.
func extensionFor(originalName, mime string) string {
	if ext := strings.TrimPrefix(filepath.Ext(originalName), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if i := strings.Index(mime, "/"); i >= 0 && i+1 < len(mime) {
		sub := mime[i+1:]
		if j := strings.IndexAny(sub, "+;"); j >= 0 {
			sub = sub[:j]
		}
		return sub
	}
	return ""
}
