package proxy

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	gwerrors "github.com/untools/auth-gateway/internal/errors"
)

// GenericHandler forwards to an arbitrary target URL supplied by the caller:
// as the url query parameter for read methods, or a url field in the JSON
// body for write methods. It attaches no credentials and performs no refresh;
// it exists for passthrough calls to third-party services.
type GenericHandler struct {
	client *http.Client
}

func NewGenericHandler(client *http.Client) *GenericHandler {
	if client == nil {
		client = http.DefaultClient
	}
	return &GenericHandler{client: client}
}

// genericBodyMethods includes DELETE: the generic form allows a body there
// so the target url can ride in it.
var genericBodyMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

func (h *GenericHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("generic proxy panic")
			writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", fmt.Sprint(rec))
		}
	}()

	if err := h.serve(w, r); err != nil {
		log.Error().Err(err).Msg("generic proxy error")
		switch {
		case stderrors.Is(err, gwerrors.ErrMissingTarget):
			writeJSONError(w, http.StatusBadRequest, gwerrors.ErrMissingTarget.Error(), err.Error())
		case stderrors.Is(err, gwerrors.ErrInvalidTarget):
			writeJSONError(w, http.StatusBadRequest, gwerrors.ErrInvalidTarget.Error(), err.Error())
		case stderrors.Is(err, gwerrors.ErrUpstreamTimeout):
			writeJSONError(w, http.StatusGatewayTimeout, "Upstream Timeout", err.Error())
		default:
			writeJSONError(w, http.StatusInternalServerError, "Internal Server Error", err.Error())
		}
	}
}

func (h *GenericHandler) serve(w http.ResponseWriter, r *http.Request) error {
	target := r.URL.Query().Get("url")

	var body []byte
	if _, hasBody := genericBodyMethods[r.Method]; hasBody {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return errors.Wrap(err, "[GenericHandler.serve] reading body")
		}
		// The target may ride in the JSON body; strip it before forwarding.
		if target == "" {
			target = gjson.GetBytes(raw, "url").String()
		}
		if gjson.GetBytes(raw, "url").Exists() {
			stripped, err := sjson.DeleteBytes(raw, "url")
			if err == nil {
				raw = stripped
			}
		}
		body = raw
	}

	if target == "" {
		return errors.Wrap(gwerrors.ErrMissingTarget, "[GenericHandler.serve]")
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.Wrap(gwerrors.ErrInvalidTarget, "[GenericHandler.serve]")
	}

	// Re-append the remaining query parameters, minus url itself.
	forward := r.URL.Query()
	forward.Del("url")
	if encoded := forward.Encode(); encoded != "" {
		if parsed.RawQuery != "" {
			parsed.RawQuery += "&" + encoded
		} else {
			parsed.RawQuery = encoded
		}
	}

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, parsed.String(), bodyReader)
	if err != nil {
		return errors.Wrap(err, "[GenericHandler.serve] building request")
	}
	req.Header = FilterHeaders(r.Header)

	resp, err := h.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return errors.Wrap(gwerrors.ErrUpstreamTimeout, err.Error())
		}
		return errors.Wrap(err, "[GenericHandler.serve] upstream call")
	}
	defer resp.Body.Close()

	for key, values := range FilterHeaders(resp.Header) {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
	return nil
}
