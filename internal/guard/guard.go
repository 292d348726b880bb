// Package guard holds the transport-level checks shared by the public and
// admin endpoints: the browser origin allow-list and bounded JSON body
// decoding.
package guard

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	ErrForbiddenOrigin  = errors.New("origin not allowed")
	ErrUnsupportedMedia = errors.New("content type must be application/json")
	ErrPayloadTooLarge  = errors.New("request body too large")
	ErrMalformedBody    = errors.New("malformed request body")
)

// OriginAllowed reports whether the Origin header value is acceptable:
// an exact match against the allow-list, the same origin the request was
// served on, or a configured hostname suffix for preview deployments.
func OriginAllowed(origin string, requestHost string, allowed []string, suffixes []string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}

	for _, a := range allowed {
		if strings.EqualFold(origin, a) {
			return true
		}
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	if requestHost != "" && strings.EqualFold(parsed.Host, requestHost) {
		return true
	}

	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(strings.ToLower(parsed.Hostname()), strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

// CheckOrigin validates the request's Origin header against the allow-list.
// A missing header fails: the public submission endpoints only serve
// browsers, and browsers always send Origin on cross-context POSTs.
func CheckOrigin(c *gin.Context, allowed []string, suffixes []string) error {
	if !OriginAllowed(c.GetHeader("Origin"), c.Request.Host, allowed, suffixes) {
		return ErrForbiddenOrigin
	}
	return nil
}

// DecodeJSON reads at most limit bytes of the request body and unmarshals it
// into dst. It rejects non-JSON content types before reading and stops
// reading the moment the ceiling is crossed, so oversized bodies are never
// buffered.
func DecodeJSON(c *gin.Context, limit int64, dst interface{}) error {
	contentType := c.GetHeader("Content-Type")
	if mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])); mediaType != "application/json" {
		return ErrUnsupportedMedia
	}

	reader := http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return ErrPayloadTooLarge
		}
		return ErrMalformedBody
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return ErrMalformedBody
	}
	return nil
}
