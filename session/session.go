// Package session owns the signed session cookie and the access/refresh
// token cookies. Reading a session is a pure function of the request's
// cookie bytes; all cookie mutation goes through an explicit
// http.ResponseWriter so it can only happen inside a handler.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	gwerrors "github.com/untools/auth-gateway/internal/errors"
	"github.com/untools/auth-gateway/users"
)

// Cookie names used by the gateway. All are httpOnly, secure, sameSite=lax
// and scoped to path /.
const (
	CookieSession      = "session"
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
	CookieUser         = "user"
)

// Claims is the minimal identity embedded in the session token.
type Claims struct {
	ID   string   `json:"id"`
	Role []string `json:"role"`
}

type sessionClaims struct {
	ID   string   `json:"id"`
	Role []string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies session tokens and manages the cookie jar.
type Service struct {
	secret     []byte
	sessionTTL time.Duration
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowFunc    func() time.Time
}

type Option func(*Service)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) {
		s.nowFunc = now
	}
}

// New creates a session Service. A missing secret or misordered TTLs are
// configuration faults and fail construction; they must never be discovered
// per-call.
func New(secret string, sessionTTL, accessTTL, refreshTTL time.Duration, options ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.Wrap(gwerrors.ErrMissingSecret, "[session.New]")
	}
	if accessTTL > refreshTTL || refreshTTL > sessionTTL {
		return nil, errors.New("[session.New] TTL ordering must be access <= refresh <= session")
	}

	s := &Service{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Encrypt signs a minimal claim set for the user, valid for the session TTL.
func (s *Service) Encrypt(user *users.User) (string, error) {
	now := s.nowFunc()
	claims := sessionClaims{
		ID:   user.ID,
		Role: user.RoleNames(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Encrypt] signing session token")
	}
	return signed, nil
}

// Decrypt verifies a session token and returns its claims. Any verification
// failure (malformed token, wrong signature, expiry) yields nil: callers
// treat "no session" as a normal unauthenticated state, not an error.
func (s *Service) Decrypt(raw string) *Claims {
	if raw == "" {
		return nil
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowFunc),
	)
	if err != nil || !token.Valid {
		return nil
	}

	return &Claims{ID: claims.ID, Role: claims.Role}
}
