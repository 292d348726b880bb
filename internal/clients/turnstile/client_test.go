package turnstile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitlist-server/internal/observability"
)

func TestVerify(t *testing.T) {
	t.Run("successful verification", func(t *testing.T) {
		var gotSecret, gotResponse, gotRemoteIP string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotSecret = r.PostFormValue("secret")
			gotResponse = r.PostFormValue("response")
			gotRemoteIP = r.PostFormValue("remoteip")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		client := NewClient("secret-key", observability.NewLogger()).WithVerifyURL(server.URL)
		err := client.Verify(context.Background(), "challenge-token", "203.0.113.9")
		require.NoError(t, err)
		assert.Equal(t, "secret-key", gotSecret)
		assert.Equal(t, "challenge-token", gotResponse)
		assert.Equal(t, "203.0.113.9", gotRemoteIP)
	})

	t.Run("failed verification", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
		}))
		defer server.Close()

		client := NewClient("secret-key", observability.NewLogger()).WithVerifyURL(server.URL)
		err := client.Verify(context.Background(), "bad-token", "")
		assert.ErrorIs(t, err, ErrVerificationFail)
	})

	t.Run("empty token rejected without a request", func(t *testing.T) {
		client := NewClient("secret-key", observability.NewLogger())
		err := client.Verify(context.Background(), "", "")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestIsEnabled(t *testing.T) {
	assert.True(t, NewClient("secret-key", observability.NewLogger()).IsEnabled())
	assert.False(t, NewClient("", observability.NewLogger()).IsEnabled())

	var nilClient *Client
	assert.False(t, nilClient.IsEnabled())
}
