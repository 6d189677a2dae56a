// Package refresh mints new access tokens from the refresh-token cookie.
// It is used proactively by session updates and reactively by the proxy
// when an upstream call fails authentication.
package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/untools/auth-gateway/gqlclient"
	gwerrors "github.com/untools/auth-gateway/internal/errors"
	"github.com/untools/auth-gateway/session"
)

const refreshTokenMutation = `mutation RefreshToken($token: String!) {
  refreshToken(token: $token) {
    accessToken
  }
}`

// Result is the outcome of a refresh attempt. Refresh is a fallible
// operation, not an exceptional one: failures are reported here and never
// panic past this boundary.
type Result struct {
	Success     bool
	AccessToken string
	Error       string
}

// ShouldForceLogout reports whether the failure means the refresh token
// itself is dead, in which case the only sane client action is a full
// logout rather than another retry.
func (r Result) ShouldForceLogout() bool {
	if r.Success {
		return false
	}
	lower := strings.ToLower(r.Error)
	return strings.Contains(lower, "invalid refresh token") || strings.Contains(lower, "expired")
}

// Coordinator calls the backend refresh mutation and rewrites cookies.
// Concurrent refreshes for the same refresh token collapse into a single
// upstream call; every waiter receives the shared result.
type Coordinator struct {
	client   *gqlclient.Client
	sessions *session.Service
	group    singleflight.Group
}

func New(client *gqlclient.Client, sessions *session.Service) *Coordinator {
	return &Coordinator{client: client, sessions: sessions}
}

// Refresh reads the refreshToken and session cookies from r and, on
// success, writes the new accessToken cookie and extends the session
// cookie's expiry on w without re-signing its claims. A session cookie is
// required so refresh can never silently authenticate an anonymous caller.
func (c *Coordinator) Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) Result {
	refreshToken := c.sessions.RefreshToken(r)
	rawSession := c.sessions.RawSession(r)

	if refreshToken == "" || rawSession == "" {
		return Result{Success: false, Error: gwerrors.ErrNoRefreshToken.Error()}
	}

	accessToken, err := c.mint(ctx, refreshToken)
	if err != nil {
		log.Error().Err(err).Msg("token refresh failed")
		return Result{Success: false, Error: err.Error()}
	}

	// Cookie writes happen per caller; only the upstream call is shared.
	c.sessions.SetAccessToken(w, accessToken)
	c.sessions.Extend(w, rawSession)

	return Result{Success: true, AccessToken: accessToken}
}

func (c *Coordinator) mint(ctx context.Context, refreshToken string) (string, error) {
	token, err, shared := c.group.Do(flightKey(refreshToken), func() (interface{}, error) {
		var data struct {
			RefreshToken struct {
				AccessToken string `json:"accessToken"`
			} `json:"refreshToken"`
		}

		err := c.client.Execute(ctx, gqlclient.Request{
			Query:     refreshTokenMutation,
			Variables: map[string]interface{}{"token": refreshToken},
		}, "", &data)
		if err != nil {
			return "", err
		}
		if data.RefreshToken.AccessToken == "" {
			return "", gwerrors.ErrNoAccessToken
		}
		return data.RefreshToken.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		log.Debug().Msg("refresh joined in-flight call")
	}
	return token.(string), nil
}

// flightKey avoids holding the raw credential as a map key.
func flightKey(refreshToken string) string {
	sum := sha256.Sum256([]byte(refreshToken))
	return hex.EncodeToString(sum[:])
}
