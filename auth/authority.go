// Package auth validates signed requests against per-client access/secret key
// pairs and mints bearer tokens for interactive clients.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/picvault/picvault-service/config"
	"github.com/picvault/picvault-service/entity"
	"github.com/picvault/picvault-service/utils"
)

// ErrUnauthorized is the only error an authentication attempt can fail with.
// A missing key, a disabled key, an expired key, and a bad signature are
// indistinguishable to the caller.
var ErrUnauthorized = errors.New("unauthorized")

// TimestampTolerance is the maximum allowed clock skew, in seconds, between
// the signed timestamp and server time (anti-replay window).
const TimestampTolerance = 300

// KeyStore is what the authority needs from the access-key repository.
type KeyStore interface {
	FindByAccessKey(ctx context.Context, accessKey string) (*entity.AccessKey, error)
	UpdateLastUsed(ctx context.Context, accessKey string, at time.Time) error
}

// Logger is the subset of the infra logger the authority uses.
type Logger interface {
	ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{})
}

// Identity describes a successfully authenticated client.
type Identity struct {
	AccessKey string
	Name      string
}

type Authority struct {
	keys           KeyStore
	logger         Logger
	cfg            *config.EnvConfig
	lastUseTimeout time.Duration
}

func NewAuthority(keys KeyStore, logger Logger, cfg *config.EnvConfig) *Authority {
	timeout := cfg.Timeouts.LastUse
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Authority{
		keys:           keys,
		logger:         logger,
		cfg:            cfg,
		lastUseTimeout: timeout,
	}
}

// Authenticate verifies an HMAC-signed request. The signature must be the
// keyed MAC of the versioned canonical request form under the client's secret
// key, the timestamp must be within the anti-replay window, and the key must
// be enabled and unexpired. On success the key's last-used timestamp is
// refreshed off the request path.
func (a *Authority) Authenticate(ctx context.Context, accessKey, signature string, req utils.CanonicalRequest) (*Identity, error) {
	if accessKey == "" || signature == "" {
		return nil, ErrUnauthorized
	}
	if utils.Abs(time.Now().Unix()-req.Timestamp) > TimestampTolerance {
		return nil, ErrUnauthorized
	}

	key, err := a.keys.FindByAccessKey(ctx, accessKey)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if !a.usable(key) {
		return nil, ErrUnauthorized
	}

	expected := utils.SignRequest(key.SecretKey, req)
	if !utils.SecureCompare(expected, signature) {
		return nil, ErrUnauthorized
	}

	a.touchLastUsed(accessKey)

	return &Identity{AccessKey: key.AccessKey, Name: key.Name}, nil
}

// IssueToken validates a raw access/secret pair and mints a bearer token for
// it. The secret comparison is constant-time like the signature check.
func (a *Authority) IssueToken(ctx context.Context, accessKey, secretKey string) (string, int, error) {
	if accessKey == "" || secretKey == "" {
		return "", 0, ErrUnauthorized
	}

	key, err := a.keys.FindByAccessKey(ctx, accessKey)
	if err != nil {
		return "", 0, ErrUnauthorized
	}
	if !a.usable(key) {
		return "", 0, ErrUnauthorized
	}
	if !utils.SecureCompare(key.SecretKey, secretKey) {
		return "", 0, ErrUnauthorized
	}

	token, err := utils.GenerateToken(key.AccessKey, key.Name, a.cfg)
	if err != nil {
		return "", 0, err
	}

	a.touchLastUsed(accessKey)

	return token, a.cfg.JWT.Expire, nil
}

func (a *Authority) usable(key *entity.AccessKey) bool {
	if key == nil || !key.IsEnabled {
		return false
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// touchLastUsed updates last_used_at asynchronously; authentication latency
// never depends on this write and its failure never fails the request.
func (a *Authority) touchLastUsed(accessKey string) {
	now := time.Now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.lastUseTimeout)
		defer cancel()
		if err := a.keys.UpdateLastUsed(ctx, accessKey, now); err != nil && a.logger != nil {
			a.logger.ErrorWithContextf(ctx, err, "[Auth] Failed to update last_used_at for access key")
		}
	}()
}
