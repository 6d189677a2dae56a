package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Envelope is the transient, replayable form of one inbound request.
// Request body streams can only be read once, so the body is buffered up
// front: raw bytes for multipart (byte-for-byte replay on retry, boundary
// intact), re-serialized JSON, or plain text. The same buffer backs both
// the first forward and the single retry.
type Envelope struct {
	Method      string
	TargetURL   string
	Header      http.Header
	Body        []byte
	ContentType string // overrides the inbound content-type when non-empty
}

// HasBody reports whether the envelope carries a request body.
func (e *Envelope) HasBody() bool {
	return len(e.Body) > 0
}

// bodyMethods are the methods that conventionally carry a body through the
// typed proxy.
var bodyMethods = map[string]struct{}{
	http.MethodPost:  {},
	http.MethodPut:   {},
	http.MethodPatch: {},
}

// prepareBody buffers the inbound body according to its content type and
// returns the buffered bytes plus the content type to forward ("" means
// keep whatever the filtered headers carry).
func prepareBody(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "[proxy.prepareBody] reading request body")
	}

	switch {
	case strings.Contains(contentType, "multipart/form-data"):
		// Preserved verbatim, including the boundary in the content type.
		return raw, contentType, nil

	case strings.Contains(contentType, "application/json"):
		if len(raw) == 0 {
			return raw, "application/json", nil
		}
		var parsed interface{}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, "", errors.Wrap(err, "[proxy.prepareBody] parsing JSON body")
		}
		reserialized, err := json.Marshal(parsed)
		if err != nil {
			return nil, "", errors.Wrap(err, "[proxy.prepareBody] re-serializing JSON body")
		}
		return reserialized, "application/json", nil

	default:
		return raw, "", nil
	}
}
