package proxy_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/untools/auth-gateway/gqlclient"
	"github.com/untools/auth-gateway/proxy"
	"github.com/untools/auth-gateway/session"
	"github.com/untools/auth-gateway/token/refresh"
)

type upstreamConfig struct {
	rest    string
	gql     string
	key     string
	timeout time.Duration
}

func (c upstreamConfig) GetAPIBaseURL() string             { return c.rest }
func (c upstreamConfig) GetGraphQLURL() string             { return c.gql }
func (c upstreamConfig) GetAPIKey() string                 { return c.key }
func (c upstreamConfig) GetUpstreamTimeout() time.Duration { return c.timeout }

type proxyFixture struct {
	handler  *proxy.Handler
	sessions *session.Service
}

func newProxyFixture(t *testing.T, restURL, gqlURL string, options ...proxy.HandlerOption) *proxyFixture {
	t.Helper()

	sessions, err := session.New("proxy-test-secret", 168*time.Hour, 72*time.Hour, 168*time.Hour)
	require.NoError(t, err)

	cfg := upstreamConfig{rest: restURL, gql: gqlURL, key: "test-key", timeout: 5 * time.Second}
	refresher := refresh.New(gqlclient.New(gqlURL, "test-key"), sessions)

	return &proxyFixture{
		handler:  proxy.NewHandler(cfg, sessions, refresher, options...),
		sessions: sessions,
	}
}

// authedRequest builds an inbound request carrying the full cookie set.
func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.AddCookie(&http.Cookie{Name: session.CookieSession, Value: "raw-session"})
	req.AddCookie(&http.Cookie{Name: session.CookieAccessToken, Value: "access-1"})
	req.AddCookie(&http.Cookie{Name: session.CookieRefreshToken, Value: "refresh-1"})
	return req
}

func refreshResponse(token string) string {
	return fmt.Sprintf(`{"data":{"refreshToken":{"accessToken":%q}}}`, token)
}

func isRefreshCall(body string) bool {
	return strings.Contains(body, "RefreshToken")
}

func TestHandler_RESTPassthrough(t *testing.T) {
	var gotPath, gotQuery, gotAPIKey, gotAuth string
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAPIKey = r.Header.Get("X-Api-Key")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"id":"1"}]}`)
	}))
	defer rest.Close()

	f := newProxyFixture(t, rest.URL, "")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/server/users?page=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/v1/users", gotPath)
	require.Equal(t, "page=2", gotQuery)
	require.Equal(t, "test-key", gotAPIKey)
	require.Equal(t, "Bearer access-1", gotAuth)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":[{"id":"1"}]}`, rec.Body.String())
	require.Empty(t, rec.Header().Get("X-Token-Refreshed"))
}

func TestHandler_JSONBodyReserialized(t *testing.T) {
	var gotBody, gotContentType string
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer rest.Close()

	f := newProxyFixture(t, rest.URL, "")

	body := strings.NewReader("{\n  \"name\": \"widget\",\n  \"qty\": 2\n}")
	req := authedRequest(http.MethodPost, "/server/items", body)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", gotContentType)
	require.JSONEq(t, `{"name":"widget","qty":2}`, gotBody)

	var compact interface{}
	require.NoError(t, json.Unmarshal([]byte(gotBody), &compact))
	require.NotContains(t, gotBody, "\n")
}

func TestHandler_GraphQLRefreshAndRetry(t *testing.T) {
	var dataCalls int32
	var retryAuth string
	gql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if isRefreshCall(string(raw)) {
			fmt.Fprint(w, refreshResponse("new-access"))
			return
		}
		if atomic.AddInt32(&dataCalls, 1) == 1 {
			fmt.Fprint(w, `{"errors":[{"message":"jwt expired"}],"data":null}`)
			return
		}
		retryAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"data":{"me":{"id":"1"}}}`)
	}))
	defer gql.Close()

	f := newProxyFixture(t, "", gql.URL)

	req := authedRequest(http.MethodPost, "/server/graphql", strings.NewReader(`{"query":"query Me { me { id } }"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "true", rec.Header().Get("X-Token-Refreshed"))
	require.Equal(t, "Bearer new-access", retryAuth)
	require.JSONEq(t, `{"data":{"me":{"id":"1"}}}`, rec.Body.String())
	require.EqualValues(t, 2, atomic.LoadInt32(&dataCalls))

	cookies := cookiesByName(rec.Result().Cookies())
	require.Equal(t, "new-access", cookies[session.CookieAccessToken].Value)
	require.Equal(t, "raw-session", cookies[session.CookieSession].Value)
}

func TestHandler_RefreshRejectedForcesLogout(t *testing.T) {
	gql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if isRefreshCall(string(raw)) {
			fmt.Fprint(w, `{"errors":[{"message":"Invalid refresh token"}]}`)
			return
		}
		fmt.Fprint(w, `{"errors":[{"message":"Unauthorized"}],"data":null}`)
	}))
	defer gql.Close()

	f := newProxyFixture(t, "", gql.URL)

	req := authedRequest(http.MethodPost, "/server/graphql", strings.NewReader(`{"query":"query Me { me { id } }"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, proxy.LogoutRedirect, rec.Header().Get("X-Auth-Redirect"))
	require.JSONEq(t, fmt.Sprintf(`{"error":"Authentication failed","redirectTo":%q}`, proxy.LogoutRedirect), rec.Body.String())
}

func TestHandler_RefreshFailureForOtherReasonRelaysOriginal(t *testing.T) {
	var dataCalls int32
	gql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if isRefreshCall(string(raw)) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "upstream unavailable")
			return
		}
		atomic.AddInt32(&dataCalls, 1)
		fmt.Fprint(w, `{"errors":[{"message":"jwt expired"}],"data":null}`)
	}))
	defer gql.Close()

	f := newProxyFixture(t, "", gql.URL)

	req := authedRequest(http.MethodPost, "/server/graphql", strings.NewReader(`{"query":"query Me { me { id } }"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	// The refresh token is not dead, so the caller must see the original
	// upstream response untouched, with no retry and no forced logout.
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"errors":[{"message":"jwt expired"}],"data":null}`, rec.Body.String())
	require.Empty(t, rec.Header().Get("X-Auth-Redirect"))
	require.Empty(t, rec.Header().Get("X-Token-Refreshed"))
	require.EqualValues(t, 1, atomic.LoadInt32(&dataCalls), "a failed refresh must not trigger a retry")
}

func TestHandler_MultipartRetryReplaysBodyVerbatim(t *testing.T) {
	var calls int32
	var bodies []string
	var contentTypes []string
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))
		contentTypes = append(contentTypes, r.Header.Get("Content-Type"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"Token expired"}`)
			return
		}
		fmt.Fprint(w, `{"uploaded":true}`)
	}))
	defer rest.Close()

	gql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, refreshResponse("new-access"))
	}))
	defer gql.Close()

	f := newProxyFixture(t, rest.URL, gql.URL)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "report.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("title", "Q3 report"))
	require.NoError(t, mw.Close())
	rawBody := buf.String()

	req := authedRequest(http.MethodPost, "/server/uploads", strings.NewReader(rawBody))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "true", rec.Header().Get("X-Token-Refreshed"))
	require.Len(t, bodies, 2)
	require.Equal(t, rawBody, bodies[0])
	require.Equal(t, bodies[0], bodies[1], "retry must replay the body byte for byte")
	require.Equal(t, mw.FormDataContentType(), contentTypes[0], "boundary must survive")
	require.Equal(t, contentTypes[0], contentTypes[1])
}

func TestHandler_UnauthorizedWithoutRefreshTokenIsRelayed(t *testing.T) {
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Token expired"}`)
	}))
	defer rest.Close()

	f := newProxyFixture(t, rest.URL, "")

	// No refreshToken cookie: nothing to refresh with.
	req := httptest.NewRequest(http.MethodGet, "/server/private", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieSession, Value: "raw-session"})

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Header().Get("X-Auth-Redirect"))
	require.JSONEq(t, `{"message":"Token expired"}`, rec.Body.String())
}

func TestHandler_UpstreamTimeout(t *testing.T) {
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer rest.Close()

	f := newProxyFixture(t, rest.URL, "", proxy.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/server/slow", nil))

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Contains(t, rec.Body.String(), "Upstream Timeout")
}

func TestHandler_MissingRESTBase(t *testing.T) {
	f := newProxyFixture(t, "", "")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/server/users", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "target URL is required")
}

func TestHandler_InvalidJSONBody(t *testing.T) {
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called")
	}))
	defer rest.Close()

	f := newProxyFixture(t, rest.URL, "")

	req := authedRequest(http.MethodPost, "/server/items", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func cookiesByName(cookies []*http.Cookie) map[string]*http.Cookie {
	m := make(map[string]*http.Cookie, len(cookies))
	for _, c := range cookies {
		m[c.Name] = c
	}
	return m
}
