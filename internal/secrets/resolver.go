package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alarmdesk/console/internal/metrics"
	pkgsecrets "github.com/alarmdesk/console/pkg/secrets"
)

const signingKeyField = "signing_key"

// SigningKeyResolver fetches the JWT signing key from AWS Secrets Manager
// and caches it in-memory.
//
// Secret naming convention: the full secret name is configured, e.g.
// "alarmdesk/authd/signing-key".
// Secret JSON format:       {"signing_key": "..."}
type SigningKeyResolver struct {
	logger     *zap.Logger
	secretName string
	fallback   []byte
	provider   pkgsecrets.Provider
	cache      *pkgsecrets.Cache[[]byte]
}

// NewSigningKeyResolver constructs a resolver. fallback, when non-empty, is
// used whenever the provider cannot serve the secret (local development).
func NewSigningKeyResolver(
	logger *zap.Logger,
	secretName string,
	fallback string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[[]byte],
) *SigningKeyResolver {
	return &SigningKeyResolver{
		logger:     logger,
		secretName: secretName,
		fallback:   []byte(fallback),
		provider:   provider,
		cache:      cache,
	}
}

// Resolve returns the current signing key, from cache when fresh.
func (r *SigningKeyResolver) Resolve(ctx context.Context) ([]byte, error) {
	if key, ok := r.cache.Get(r.secretName); ok {
		metrics.IncCacheHit("hit")
		return key, nil
	}
	metrics.IncCacheHit("miss")

	m, err := r.provider.GetSecret(ctx, r.secretName)
	if err != nil {
		if len(r.fallback) > 0 {
			r.logger.Warn("secrets.fallback_key",
				zap.String("secret", r.secretName),
				zap.Error(err))
			return r.fallback, nil
		}
		return nil, fmt.Errorf("fetching signing key %q: %w", r.secretName, err)
	}

	key := m[signingKeyField]
	if key == "" {
		return nil, fmt.Errorf("secret %q missing required field %q", r.secretName, signingKeyField)
	}

	r.cache.Put(r.secretName, []byte(key))
	return []byte(key), nil
}

// Bust drops the cached key so the next Resolve refetches it.
func (r *SigningKeyResolver) Bust() {
	r.cache.Bust(r.secretName)
}
