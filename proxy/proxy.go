// Package proxy forwards inbound requests to the backend API, attaching the
// caller's bearer token from the cookie jar and transparently refreshing it
// when the upstream reports an authentication failure. The retried request
// replays the exact buffered body, and retry happens at most once.
package proxy

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/untools/auth-gateway/internal/config"
	gwerrors "github.com/untools/auth-gateway/internal/errors"
	"github.com/untools/auth-gateway/session"
	"github.com/untools/auth-gateway/token/refresh"
)

// MountPath is where the typed forwarder is mounted; the path below it is
// joined onto the REST base URL, or switched to the GraphQL endpoint when
// it mentions graphql.
const MountPath = "/server/"

// LogoutRedirect is the forced-logout location returned on unrecoverable
// auth failures.
const LogoutRedirect = "/auth/logout"

// Handler is the typed request forwarder.
type Handler struct {
	restBase   string
	graphqlURL string
	apiKey     string
	client     *http.Client
	sessions   *session.Service
	refresher  *refresh.Coordinator
}

type HandlerOption func(*Handler)

// WithHTTPClient overrides the outbound client (primarily for testing).
func WithHTTPClient(client *http.Client) HandlerOption {
	return func(h *Handler) {
		h.client = client
	}
}

func NewHandler(cfg config.UpstreamConfig, sessions *session.Service, refresher *refresh.Coordinator, options ...HandlerOption) *Handler {
	h := &Handler{
		restBase:   cfg.GetAPIBaseURL(),
		graphqlURL: cfg.GetGraphQLURL(),
		apiKey:     cfg.GetAPIKey(),
		client:     &http.Client{Timeout: cfg.GetUpstreamTimeout()},
		sessions:   sessions,
		refresher:  refresher,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// ServeHTTP is the top-level catch: nothing below it may escape to the
// transport layer as an unhandled failure.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("proxy panic")
			writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", fmt.Sprint(rec))
		}
	}()

	if err := h.serve(w, r); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("proxy error")
		switch {
		case stderrors.Is(err, gwerrors.ErrMissingTarget):
			writeJSONError(w, http.StatusBadRequest, gwerrors.ErrMissingTarget.Error(), err.Error())
		case stderrors.Is(err, gwerrors.ErrUpstreamTimeout):
			writeJSONError(w, http.StatusGatewayTimeout, "Upstream Timeout", err.Error())
		default:
			writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
		}
	}
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) error {
	path := strings.TrimPrefix(r.URL.Path, MountPath)
	isGraphQL := strings.Contains(r.URL.Path, "graphql")

	target, err := h.resolveTarget(path, isGraphQL, r.URL.RawQuery)
	if err != nil {
		return err
	}

	accessToken := h.sessions.AccessToken(r)
	refreshToken := h.sessions.RefreshToken(r)

	headers := FilterProxyHeaders(r.Header)
	headers.Set("X-Api-Key", h.apiKey)

	env := &Envelope{Method: r.Method, TargetURL: target, Header: headers}
	if _, hasBody := bodyMethods[r.Method]; hasBody {
		body, contentType, err := prepareBody(r)
		if err != nil {
			return err
		}
		env.Body = body
		env.ContentType = contentType
	}

	resp, bodyText, err := h.forward(r.Context(), env, accessToken)
	if err != nil {
		return err
	}

	tokenRefreshed := false
	if resp.StatusCode == http.StatusUnauthorized || (isGraphQL && HasAuthError(bodyText)) {
		log.Warn().Str("target", target).Msg("authentication error detected, attempting token refresh")

		if refreshToken != "" {
			result := h.refresher.Refresh(r.Context(), w, r)
			switch {
			case result.Success:
				tokenRefreshed = true
				resp, bodyText, err = h.forward(r.Context(), env, result.AccessToken)
				if err != nil {
					return err
				}

			case result.ShouldForceLogout():
				// The refresh token itself is dead. Tell the client to log
				// out instead of retrying.
				w.Header().Set("X-Auth-Redirect", LogoutRedirect)
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error":      "Authentication failed",
					"redirectTo": LogoutRedirect,
				})
				return nil

			default:
				// Refresh failed for some other reason; propagate the
				// original upstream response below.
				log.Error().Str("error", result.Error).Msg("token refresh failed")
			}
		}
	}

	relay(w, resp, bodyText, isGraphQL, tokenRefreshed)
	return nil
}

func (h *Handler) resolveTarget(path string, isGraphQL bool, rawQuery string) (string, error) {
	var target string
	if isGraphQL && h.graphqlURL != "" {
		target = h.graphqlURL
	} else {
		if h.restBase == "" {
			return "", errors.Wrap(gwerrors.ErrMissingTarget, "[Handler.resolveTarget] no REST base configured")
		}
		target = strings.TrimRight(h.restBase, "/") + "/v1/" + strings.TrimLeft(path, "/")
	}
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target, nil
}

// forward issues one outbound call with the buffered envelope and reads the
// response body to completion so it can be inspected and relayed.
func (h *Handler) forward(ctx context.Context, env *Envelope, bearer string) (*http.Response, string, error) {
	var bodyReader io.Reader
	if _, hasBody := bodyMethods[env.Method]; hasBody && env.HasBody() {
		bodyReader = bytes.NewReader(env.Body)
	}

	req, err := http.NewRequestWithContext(ctx, env.Method, env.TargetURL, bodyReader)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Handler.forward] building request")
	}
	req.Header = env.Header.Clone()
	if env.ContentType != "" {
		req.Header.Set("Content-Type", env.ContentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, "", errors.Wrap(gwerrors.ErrUpstreamTimeout, err.Error())
		}
		return nil, "", errors.Wrap(err, "[Handler.forward] upstream call")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Handler.forward] reading upstream body")
	}
	return resp, string(body), nil
}

// relay writes the (possibly retried) upstream response back to the caller
// with filtered headers.
func relay(w http.ResponseWriter, resp *http.Response, body string, isGraphQL, tokenRefreshed bool) {
	outHeaders := FilterProxyHeaders(resp.Header)

	if outHeaders.Get("Content-Type") == "" {
		if isGraphQL {
			outHeaders.Set("Content-Type", "application/json")
		} else if contentType := resp.Header.Get("Content-Type"); contentType != "" {
			outHeaders.Set("Content-Type", contentType)
		} else {
			outHeaders.Set("Content-Type", "text/plain")
		}
	}
	if tokenRefreshed {
		outHeaders.Set("X-Token-Refreshed", "true")
	}

	for key, values := range outHeaders {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, body)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
