package server

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/untools/auth-gateway/internal/config"
)

const oauthStateCookie = "oauthState"

// GoogleOAuth builds Google consent URLs and receives the callback. The
// actual code exchange happens at the backend API; this type only owns the
// browser-facing half of the flow.
type GoogleOAuth struct {
	clientID     string
	clientSecret string
	issuer       string
	redirectURL  string

	mu       sync.Mutex
	oauthCfg *oauth2.Config // built lazily, issuer discovery needs network
}

func NewGoogleOAuth(cfg config.Config) *GoogleOAuth {
	return &GoogleOAuth{
		clientID:     cfg.GetGoogleClientID(),
		clientSecret: cfg.GetGoogleClientSecret(),
		issuer:       cfg.GetGoogleIssuer(),
		redirectURL:  cfg.GetAppURL() + RouteAuthGoogle,
	}
}

func (g *GoogleOAuth) Enabled() bool {
	return g.clientID != "" && g.clientSecret != ""
}

func (g *GoogleOAuth) config(ctx context.Context) (*oauth2.Config, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.oauthCfg != nil {
		return g.oauthCfg, nil
	}

	provider, err := oidc.NewProvider(ctx, g.issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[GoogleOAuth.config] discovering issuer")
	}

	g.oauthCfg = &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  g.redirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return g.oauthCfg, nil
}

// AuthCodeURL returns the consent URL and the state nonce bound to it.
func (g *GoogleOAuth) AuthCodeURL(ctx context.Context) (string, string, error) {
	cfg, err := g.config(ctx)
	if err != nil {
		return "", "", err
	}
	state := uuid.NewString()
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), state, nil
}

// GoogleURLHandler hands the client a consent URL and pins the state nonce
// in a short-lived cookie for the callback to verify.
func (s *Server) GoogleURLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.google.Enabled() {
			respondError(w, http.StatusNotImplemented, "google sign-in is not configured")
			return
		}

		consentURL, state, err := s.google.AuthCodeURL(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to build google consent URL")
			respondError(w, http.StatusBadGateway, "google sign-in unavailable")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			Path:     "/",
			MaxAge:   600,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
		respondJSON(w, http.StatusOK, map[string]string{"url": consentURL})
	}
}

// GoogleCallbackHandler completes the flow: it verifies the state nonce,
// exchanges the code at the backend and establishes a session, then sends
// the browser back into the app.
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if errParam := query.Get("error"); errParam != "" {
			s.redirectAuthFailure(w, r, errParam)
			return
		}

		code := query.Get("code")
		if code == "" {
			s.redirectAuthFailure(w, r, "missing authorization code")
			return
		}

		stateCookie, err := r.Cookie(oauthStateCookie)
		if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
			s.redirectAuthFailure(w, r, "state mismatch")
			return
		}
		// State is single use.
		http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

		payload, err := s.authSvc.GoogleAuth(r.Context(), code, s.google.redirectURL)
		if err != nil {
			log.Warn().Err(err).Msg("google code exchange failed")
			s.redirectAuthFailure(w, r, "authentication failed")
			return
		}

		if err := s.establishSession(w, payload); err != nil {
			log.Error().Err(err).Msg("failed to establish session after google auth")
			s.redirectAuthFailure(w, r, "failed to create session")
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) redirectAuthFailure(w http.ResponseWriter, r *http.Request, reason string) {
	target := RouteAuthFailure + "?" + url.Values{
		"name":  []string{"google"},
		"error": []string{reason},
	}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}
