package proxy_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/untools/auth-gateway/proxy"
)

func TestGenericHandler_QueryParamTarget(t *testing.T) {
	var gotPath, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer upstream.Close()

	h := proxy.NewGenericHandler(nil)

	target := "/api/proxy?url=" + upstream.URL + "/things&format=full"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/things", gotPath)
	require.Equal(t, "format=full", gotQuery, "url param itself must not be forwarded")
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestGenericHandler_BodyTarget(t *testing.T) {
	var gotBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		fmt.Fprint(w, `{"created":true}`)
	}))
	defer upstream.Close()

	h := proxy.NewGenericHandler(nil)

	body := fmt.Sprintf(`{"url":%q,"name":"widget"}`, upstream.URL+"/items")
	req := httptest.NewRequest(http.MethodPost, "/api/proxy", strings.NewReader(body))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"name":"widget"}`, gotBody, "the url field must be stripped before forwarding")
}

func TestGenericHandler_DeleteWithBodyTarget(t *testing.T) {
	var gotMethod string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	h := proxy.NewGenericHandler(nil)

	body := fmt.Sprintf(`{"url":%q}`, upstream.URL+"/items/1")
	req := httptest.NewRequest(http.MethodDelete, "/api/proxy", strings.NewReader(body))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, http.MethodDelete, gotMethod)
}

func TestGenericHandler_MissingTarget(t *testing.T) {
	h := proxy.NewGenericHandler(nil)

	t.Run("GET without url param", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxy", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "target URL is required")
	})

	t.Run("POST without url field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/proxy", strings.NewReader(`{"name":"widget"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGenericHandler_InvalidTarget(t *testing.T) {
	h := proxy.NewGenericHandler(nil)

	for _, target := range []string{"not-a-url", "/relative/path", "://missing-scheme"} {
		t.Run(target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/proxy?url="+target, nil))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), "invalid target URL format")
		})
	}
}
