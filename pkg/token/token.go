// Package token manages the OAuth2 client-credentials bearer credential
// used by the direct transport. One Cache instance per logical service.
package token

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultMargin is how early a credential is considered expired, so a call
// never goes out with a token about to lapse mid-flight
const DefaultMargin = 30 * time.Second

// fallbackLifetime is assumed when the token endpoint omits expires_in
const fallbackLifetime = 30 * time.Minute

// Credential is a bearer token with its absolute expiry. Replaced as a
// whole on refresh, never mutated.
type Credential struct {
	Value  string
	Kind   string
	Expiry time.Time
}

// ValidAt reports whether the credential can still be used at the given
// instant, honoring the refresh margin
func (c Credential) ValidAt(now time.Time, margin time.Duration) bool {
	if c.Value == "" {
		return false
	}
	return now.Before(c.Expiry.Add(-margin))
}

// AuthError reports a failed client-credentials exchange
type AuthError struct {
	cause error
}

func (e *AuthError) Error() string {
	return "token exchange failed: " + e.cause.Error()
}

func (e *AuthError) Unwrap() error {
	return e.cause
}

// Cache holds the current credential and refreshes it synchronously on
// demand. Safe for concurrent use: the refresh lock is held across the
// exchange round trip, so concurrent cold callers produce exactly one
// exchange and share its result.
type Cache struct {
	conf     *clientcredentials.Config
	margin   time.Duration
	now      func() time.Time
	observer func(error)

	mu   sync.Mutex
	cred Credential
}

// Option configures a Cache
type Option func(*Cache)

// WithMargin overrides the early-refresh margin
func WithMargin(margin time.Duration) Option {
	return func(c *Cache) { c.margin = margin }
}

// WithObserver registers a callback invoked after every exchange attempt
// with its outcome. Used for metrics.
func WithObserver(fn func(error)) Option {
	return func(c *Cache) { c.observer = fn }
}

// NewCache creates a credential cache for one token endpoint
func NewCache(clientID, clientSecret, tokenURL string, opts ...Option) *Cache {
	c := &Cache{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			// Credentials go in the form body, the style the token
			// endpoint documents
			AuthStyle: oauth2.AuthStyleInParams,
		},
		margin: DefaultMargin,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credential returns the cached credential if still valid, otherwise
// performs one client-credentials exchange and caches the result. Returns
// *AuthError when the exchange fails; the cache never retries on its own.
func (c *Cache) Credential(ctx context.Context) (Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cred.ValidAt(c.now(), c.margin) {
		return c.cred, nil
	}

	tok, err := c.conf.Token(ctx)
	if c.observer != nil {
		c.observer(err)
	}
	if err != nil {
		log.Error().Err(err).Str("token_url", c.conf.TokenURL).Msg("OAuth token exchange failed")
		return Credential{}, &AuthError{cause: err}
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = c.now().Add(fallbackLifetime)
	}

	c.cred = Credential{
		Value:  tok.AccessToken,
		Kind:   tok.Type(),
		Expiry: expiry,
	}

	log.Debug().Time("expiry", c.cred.Expiry).Msg("OAuth credential refreshed")

	return c.cred, nil
}

// Invalidate drops the cached credential so the next call refreshes
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.cred = Credential{}
	c.mu.Unlock()
}
