package proxy

import (
	"strings"

	"github.com/tidwall/gjson"
)

// BodyKind tags the recognized upstream error shapes. The backend mixes
// GraphQL and REST error conventions and neither uses HTTP status codes
// reliably for auth failures, so the body itself is classified.
type BodyKind int

const (
	KindUnrecognized BodyKind = iota
	KindGraphQLErrors
	KindRESTMessage
)

// Classification is the tagged result of inspecting a response body.
type Classification struct {
	Kind     BodyKind
	Messages []string // populated for KindGraphQLErrors
	Message  string   // populated for KindRESTMessage
}

// graphQLAuthPatterns are matched against every GraphQL error message,
// lower-cased.
var graphQLAuthPatterns = []string{
	"unable to authenticate",
	"unauthenticated",
	"unauthorized",
	"invalid token",
	"expired token",
	"auth failed",
	"not authenticated",
	"authentication failed",
	"jwt expired",
	"invalid auth",
	"auth required",
	"not authorized",
}

// restAuthQualifiers: a REST message is an auth failure only when it
// mentions "token" together with one of these.
var restAuthQualifiers = []string{"expired", "invalid", "auth", "unauthorized"}

// Classify inspects a raw response body. Empty or non-JSON bodies are
// unrecognized; a JSON object with an errors array is GraphQL-shaped; one
// with a message field is REST-shaped.
func Classify(body string) Classification {
	if body == "" || !gjson.Valid(body) {
		return Classification{Kind: KindUnrecognized}
	}

	if gqlErrors := gjson.Get(body, "errors"); gqlErrors.IsArray() {
		c := Classification{Kind: KindGraphQLErrors}
		for _, e := range gqlErrors.Array() {
			c.Messages = append(c.Messages, e.Get("message").String())
		}
		return c
	}

	if message := gjson.Get(body, "message"); message.Exists() {
		return Classification{Kind: KindRESTMessage, Message: message.String()}
	}

	return Classification{Kind: KindUnrecognized}
}

// HasAuthError reports whether a response body looks like an authentication
// failure, even when the transport status was 200.
func HasAuthError(body string) bool {
	classification := Classify(body)

	switch classification.Kind {
	case KindGraphQLErrors:
		for _, message := range classification.Messages {
			lower := strings.ToLower(message)
			for _, pattern := range graphQLAuthPatterns {
				if strings.Contains(lower, pattern) {
					return true
				}
			}
		}
		return false

	case KindRESTMessage:
		lower := strings.ToLower(classification.Message)
		if !strings.Contains(lower, "token") {
			return false
		}
		for _, qualifier := range restAuthQualifiers {
			if strings.Contains(lower, qualifier) {
				return true
			}
		}
		return false
	}

	return false
}
