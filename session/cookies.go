package session

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/untools/auth-gateway/users"
)

// Tokens are the backend credentials written alongside the session cookie.
// Either may be empty, in which case its cookie is left untouched.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

func (s *Service) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Create signs a new session for the user and writes the session cookie,
// plus the access/refresh token cookies when tokens are provided.
func (s *Service) Create(w http.ResponseWriter, user *users.User, tokens Tokens) error {
	signed, err := s.Encrypt(user)
	if err != nil {
		return errors.Wrap(err, "[Service.Create]")
	}

	s.setCookie(w, CookieSession, signed, int(s.sessionTTL.Seconds()))
	if tokens.AccessToken != "" {
		s.setCookie(w, CookieAccessToken, tokens.AccessToken, int(s.accessTTL.Seconds()))
	}
	if tokens.RefreshToken != "" {
		s.setCookie(w, CookieRefreshToken, tokens.RefreshToken, int(s.refreshTTL.Seconds()))
	}
	return nil
}

// SetAccessToken replaces the access token cookie. Used by the refresh
// coordinator after minting a new token.
func (s *Service) SetAccessToken(w http.ResponseWriter, token string) {
	s.setCookie(w, CookieAccessToken, token, int(s.accessTTL.Seconds()))
}

// Extend re-writes the session cookie with a fresh expiry without re-signing
// its claims. rawSession must be the value read from the request.
func (s *Service) Extend(w http.ResponseWriter, rawSession string) {
	s.setCookie(w, CookieSession, rawSession, int(s.sessionTTL.Seconds()))
}

// SetUserSnapshot caches the denormalized user in its own cookie.
func (s *Service) SetUserSnapshot(w http.ResponseWriter, user *users.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[Service.SetUserSnapshot] marshalling user")
	}
	s.setCookie(w, CookieUser, string(data), int(s.sessionTTL.Seconds()))
	return nil
}

// Delete returns a deferred deletion action. Cookie mutation is only legal
// inside a handler, so callers invoke the returned func with their writer
// rather than having arbitrary read paths clear cookies.
func (s *Service) Delete() func(http.ResponseWriter) {
	log.Warn().Msg("deleting session")
	return func(w http.ResponseWriter) {
		for _, name := range []string{CookieSession, CookieAccessToken, CookieRefreshToken, CookieUser} {
			s.setCookie(w, name, "", -1)
		}
	}
}

// FromRequest resolves the session claims from the request's cookies.
// Returns nil when anonymous. Read-only: never mutates cookies.
func (s *Service) FromRequest(r *http.Request) *Claims {
	cookie, err := r.Cookie(CookieSession)
	if err != nil {
		return nil
	}
	return s.Decrypt(cookie.Value)
}

// RawSession returns the undecoded session cookie value, or "".
func (s *Service) RawSession(r *http.Request) string {
	return cookieValue(r, CookieSession)
}

// AccessToken returns the access token cookie value, or "".
func (s *Service) AccessToken(r *http.Request) string {
	return cookieValue(r, CookieAccessToken)
}

// RefreshToken returns the refresh token cookie value, or "".
func (s *Service) RefreshToken(r *http.Request) string {
	return cookieValue(r, CookieRefreshToken)
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
