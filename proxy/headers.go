package proxy

import (
	"net/http"
	"strings"
)

// Hop-by-hop headers (RFC 7230) are meaningful for a single transport leg
// and must not be blindly forwarded by a proxy.
var hopByHopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailer":             {},
	"transfer-encoding":   {},
	"upgrade":             {},
}

// Entity headers that go stale once the body has been buffered and
// re-serialized; forwarding them verbatim causes decoding errors.
var problematicHeaders = map[string]struct{}{
	"content-encoding": {},
	"content-length":   {},
}

// FilterHeaders returns a copy of h with hop-by-hop headers removed.
// Everything else, including Authorization and custom x-* headers, is
// preserved unchanged. Matching is case-insensitive and the input is never
// mutated.
func FilterHeaders(h http.Header) http.Header {
	return filter(h, false)
}

// FilterProxyHeaders additionally strips content-encoding and
// content-length for the backend-facing leg, where the body is re-buffered.
func FilterProxyHeaders(h http.Header) http.Header {
	return filter(h, true)
}

func filter(h http.Header, stripEntity bool) http.Header {
	filtered := make(http.Header, len(h))
	for key, values := range h {
		lower := strings.ToLower(key)
		if _, hop := hopByHopHeaders[lower]; hop {
			continue
		}
		if stripEntity {
			if _, stale := problematicHeaders[lower]; stale {
				continue
			}
		}
		for _, value := range values {
			filtered.Add(key, value)
		}
	}
	return filtered
}
