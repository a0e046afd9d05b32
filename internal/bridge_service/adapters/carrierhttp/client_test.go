package carrierhttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/smsbridge/internal/bridge_service/domain"
)

func TestClient_Do_SendsHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(body))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued"))
	}))
	defer server.Close()

	client := NewClient(server.Client())
	resp, err := client.Do(context.Background(), Request{
		Method:      http.MethodPost,
		URL:         server.URL,
		ContentType: ContentTypeJSON,
		Body:        []byte(`{"a":1}`),
		Auth:        Bearer("tok"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Success())
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "queued", string(resp.Body))
}

func TestClient_Do_NonSuccessIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	resp, err := NewClient(server.Client()).Do(context.Background(), Request{URL: server.URL})
	require.NoError(t, err)
	assert.False(t, resp.Success())
	assert.Equal(t, "boom", string(resp.Body))
}

func TestClient_Do_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	resp, err := NewClient(nil).Do(context.Background(), Request{Method: http.MethodPost, URL: server.URL})
	require.Error(t, err)
	assert.Nil(t, resp)
	var transportErr *domain.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.MethodPost, transportErr.Op)
}

func TestClient_Do_BasicAuthAndLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	resp, err := NewClient(server.Client()).Do(context.Background(), Request{
		URL:              server.URL,
		Auth:             Basic("key", "secret"),
		MaxResponseBytes: 10,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Body, 10)
	assert.True(t, resp.Truncated)
	assert.Equal(t, strings.Repeat("x", 10)+"...(truncated)", resp.BodyText())
}

func TestClient_Do_BodyAtLimitIsNotTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("y", 10)))
	}))
	defer server.Close()

	resp, err := NewClient(server.Client()).Do(context.Background(), Request{URL: server.URL, MaxResponseBytes: 10})
	require.NoError(t, err)
	assert.False(t, resp.Truncated)
	assert.Equal(t, strings.Repeat("y", 10), resp.BodyText())
}

func TestHeaderAuth(t *testing.T) {
	h := http.Header{}
	Header("X-Api-Key", "abc").Apply(h)
	assert.Equal(t, "abc", h.Get("X-Api-Key"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate([]byte("short"), 10))
	assert.Equal(t, "abc...(truncated)", Truncate([]byte("abcdef"), 3))
	assert.Equal(t, "abcdef", Truncate([]byte("abcdef"), 0))
}
