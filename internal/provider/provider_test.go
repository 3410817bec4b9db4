package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBody_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	body, err := fetchBody(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, UserAgent, gotUA)
}

func TestFetchBody_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := fetchBody(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchBody_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetchBody(ctx, srv.Client(), srv.URL)
	assert.Error(t, err)
}

func TestNewHTTPClient_NoProxy(t *testing.T) {
	client, err := NewHTTPClient("", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, client.Timeout)
}

func TestNewHTTPClient_DefaultTimeout(t *testing.T) {
	client, err := NewHTTPClient("", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, client.Timeout)
}

func TestNewHTTPClient_SOCKS5(t *testing.T) {
	client, err := NewHTTPClient("socks5://127.0.0.1:1080", 5*time.Second)
	require.NoError(t, err)
	assert.NotNil(t, client.Transport)
}

func TestNewHTTPClient_HTTPProxy(t *testing.T) {
	client, err := NewHTTPClient("http://127.0.0.1:3128", 5*time.Second)
	require.NoError(t, err)
	assert.NotNil(t, client.Transport)
}

func TestNewHTTPClient_UnsupportedScheme(t *testing.T) {
	_, err := NewHTTPClient("ftp://127.0.0.1:21", 5*time.Second)
	assert.Error(t, err)
}

func TestNewChains_Defaults(t *testing.T) {
	chains, err := NewChains(nil, testLogger())
	require.NoError(t, err)

	require.NotNil(t, chains.Coffee)
	require.NotNil(t, chains.Fx)
	require.NotNil(t, chains.Weather)
	require.NotNil(t, chains.News)
}
