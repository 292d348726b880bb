package guard

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://example.com", "https://www.example.com"}
	suffixes := []string{".pages.dev"}

	tests := []struct {
		name        string
		origin      string
		requestHost string
		want        bool
	}{
		{name: "exact match", origin: "https://example.com", want: true},
		{name: "exact match case insensitive", origin: "HTTPS://EXAMPLE.COM", want: true},
		{name: "www variant", origin: "https://www.example.com", want: true},
		{name: "same origin as request", origin: "https://api.example.com", requestHost: "api.example.com", want: true},
		{name: "preview deployment suffix", origin: "https://abc123.site.pages.dev", want: true},
		{name: "missing origin", origin: "", want: false},
		{name: "unlisted origin", origin: "https://evil.example.net", want: false},
		{name: "suffix not at hostname end", origin: "https://pages.dev.evil.net", want: false},
		{name: "garbage origin", origin: "::::", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OriginAllowed(tt.origin, tt.requestHost, allowed, suffixes)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	newCtx := func(contentType, body string) *gin.Context {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/api/waitlist", bytes.NewBufferString(body))
		c.Request.Header.Set("Content-Type", contentType)
		return c
	}

	t.Run("valid payload", func(t *testing.T) {
		var dst struct {
			Email string `json:"email"`
		}
		err := DecodeJSON(newCtx("application/json", `{"email":"a@example.com"}`), 2048, &dst)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", dst.Email)
	})

	t.Run("content type with charset", func(t *testing.T) {
		var dst map[string]interface{}
		err := DecodeJSON(newCtx("application/json; charset=utf-8", `{}`), 2048, &dst)
		assert.NoError(t, err)
	})

	t.Run("wrong content type", func(t *testing.T) {
		var dst map[string]interface{}
		err := DecodeJSON(newCtx("text/plain", `{}`), 2048, &dst)
		assert.ErrorIs(t, err, ErrUnsupportedMedia)
	})

	t.Run("body over limit", func(t *testing.T) {
		big := `{"email":"` + string(bytes.Repeat([]byte("a"), 3000)) + `"}`
		var dst map[string]interface{}
		err := DecodeJSON(newCtx("application/json", big), 2048, &dst)
		assert.ErrorIs(t, err, ErrPayloadTooLarge)
	})

	t.Run("malformed json", func(t *testing.T) {
		var dst map[string]interface{}
		err := DecodeJSON(newCtx("application/json", `{"email":`), 2048, &dst)
		assert.ErrorIs(t, err, ErrMalformedBody)
	})
}
