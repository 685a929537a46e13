package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var (
	ErrUnauthenticated          = fmt.Errorf("session token is invalid")
	AuthContextKey              = AuthKey("auth")
	AuthorizationHeaderKey      = "Authorization"
	TokenQueryParameter         = "token"
	DefaultCacheSize            = 10000           // Cache up to 10000 tokens
	DefaultCacheEntryExpiration = 5 * time.Minute // Cache tokens for 5 minutes
)

const bearerPrefix = "Bearer "

type AuthKey string

type Role string

const (
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
	RoleAdmin   Role = "ADMIN"
)

type Auth struct {
	SubjectId string    `json:"subjectId"`
	Role      Role      `json:"role"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"-"`
	Expiry    time.Time `json:"-"`
}

func (a *Auth) IsStaff() bool {
	return a != nil && (a.Role == RoleDoctor || a.Role == RoleAdmin)
}

// Claims are the claims of the session tokens issued by the patient api
type Claims struct {
	UserId string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	TokenSecret string `envconfig:"TIDEPOOL_VITALS_TOKEN_SECRET" required:"true"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	err := envconfig.Process("", cfg)
	return cfg, err
}

type Authenticator interface {
	ValidateAndSetAuthData(token string, ec echo.Context) (bool, error)
}

type AuthMiddlewareOpts struct {
	Skipper middleware.Skipper
}

func NewAuthMiddleware(authenticator Authenticator, opts AuthMiddlewareOpts) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Allow skipping authentication for certain routes (e.g. readiness probe)
			if opts.Skipper != nil {
				if opts.Skipper(c) {
					return next(c)
				}
			}

			token := GetRequestToken(c.Request())
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "session token is missing")
			}

			valid, err := authenticator.ValidateAndSetAuthData(token, c)
			if err != nil {
				return &echo.HTTPError{
					Code:     http.StatusUnauthorized,
					Message:  "session token is invalid",
					Internal: err,
				}
			} else if valid {
				return next(c)
			}
			return echo.ErrUnauthorized
		}
	}
}

// GetRequestToken returns the bearer token of the request. Browsers cannot set headers on
// websocket upgrades so the token query parameter is accepted as well.
func GetRequestToken(r *http.Request) string {
	if header := r.Header.Get(AuthorizationHeaderKey); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	return r.URL.Query().Get(TokenQueryParameter)
}

// NewAuthenticator returns a session token authenticator that caches validated tokens
func NewAuthenticator(cfg *Config) (Authenticator, error) {
	delegate, err := NewTokenAuthenticator(cfg.TokenSecret)
	if err != nil {
		return nil, err
	}
	return NewCachingAuthenticator(
		DefaultCacheSize,
		DefaultCacheEntryExpiration,
		delegate,
	)
}

type TokenAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

var _ Authenticator = &TokenAuthenticator{}

func NewTokenAuthenticator(secret string) (*TokenAuthenticator, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is missing")
	}
	return &TokenAuthenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

func (t *TokenAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	auth, err := t.Validate(token)
	if err != nil {
		return false, err
	}
	SetAuthData(ec, auth)
	return true, nil
}

func (t *TokenAuthenticator) Validate(token string) (*Auth, error) {
	claims := &Claims{}
	_, err := t.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.UserId == "" {
		return nil, fmt.Errorf("%w: user id is missing", ErrUnauthenticated)
	}
	switch claims.Role {
	case RoleDoctor, RolePatient, RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, claims.Role)
	}

	auth := &Auth{
		SubjectId: claims.UserId,
		Role:      claims.Role,
		Email:     claims.Email,
		Name:      claims.Name,
		Token:     token,
	}
	if claims.ExpiresAt != nil {
		auth.Expiry = claims.ExpiresAt.Time
	}
	return auth, nil
}

func GetAuthData(ctx context.Context) *Auth {
	if auth, ok := ctx.Value(AuthContextKey).(*Auth); ok {
		return auth
	}

	return nil
}

func SetAuthData(ec echo.Context, auth *Auth) {
	ctx := context.WithValue(ec.Request().Context(), AuthContextKey, auth)
	ec.SetRequest(ec.Request().WithContext(ctx))
}

type CacheEntry struct {
	token  string
	auth   *Auth
	expiry time.Time
}

func (c CacheEntry) IsExpired() bool {
	return time.Now().After(c.expiry)
}

type CachingAuthenticator struct {
	delegate   Authenticator
	expiration time.Duration
	lru        *simplelru.LRU
	mu         *sync.Mutex
}

var _ Authenticator = &CachingAuthenticator{}

func NewCachingAuthenticator(size int, expiration time.Duration, delegate Authenticator) (Authenticator, error) {
	var onEvict simplelru.EvictCallback
	lru, err := simplelru.NewLRU(size, onEvict)
	if err != nil {
		return nil, err
	}

	return &CachingAuthenticator{
		delegate:   delegate,
		expiration: expiration,
		lru:        lru,
		mu:         &sync.Mutex{},
	}, nil
}

func (c *CachingAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	entry := c.getCachedEntry(token)
	if entry != nil {
		SetAuthData(ec, entry.auth)
		return true, nil
	}

	res, err := c.delegate.ValidateAndSetAuthData(token, ec)
	if err != nil || !res {
		return res, err
	}

	if auth := GetAuthData(ec.Request().Context()); auth != nil {
		expiry := time.Now().Add(c.expiration)
		// Never serve a token from the cache past its own expiry
		if !auth.Expiry.IsZero() && auth.Expiry.Before(expiry) {
			expiry = auth.Expiry
		}
		c.setCacheEntry(CacheEntry{
			token:  token,
			auth:   auth,
			expiry: expiry,
		})
	}

	return res, err
}

func (c *CachingAuthenticator) getCachedEntry(token string) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lru.Get(token); ok {
		entry := e.(CacheEntry)
		if entry.IsExpired() {
			c.lru.Remove(token)
			return nil
		}
		return &entry
	}

	return nil
}

func (c *CachingAuthenticator) setCacheEntry(entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.lru.Add(entry.token, entry)
}
