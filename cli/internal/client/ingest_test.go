package client

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedXML = `<Siri><ServiceDelivery></ServiceDelivery></Siri>`

func TestSendFeed(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewIngestClient(srv.URL)
	err := c.SendFeed("sub-1", "key-1", []byte(feedXML), false)
	require.NoError(t, err)

	assert.Equal(t, "/data/sub-1", got.URL.Path)
	assert.Equal(t, "key-1", got.URL.Query().Get("apiKey"))
	assert.Empty(t, got.Header.Get("Content-Encoding"))
	assert.Equal(t, feedXML, string(gotBody))
}

func TestSendFeedCompressed(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewIngestClient(srv.URL)
	err := c.SendFeed("sub-1", "key-1", []byte(feedXML), true)
	require.NoError(t, err)

	assert.Equal(t, "gzip", got.Header.Get("Content-Encoding"))

	compressed, err := base64.StdEncoding.DecodeString(string(gotBody))
	require.NoError(t, err)
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	decoded, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, feedXML, string(decoded))
}

func TestSendFeedRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errors":["Unauthorized"]}`))
	}))
	defer srv.Close()

	c := NewIngestClient(srv.URL)
	err := c.SendFeed("sub-1", "wrong", []byte(feedXML), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
	assert.Contains(t, err.Error(), "401")
}

func TestSendFeedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewIngestClient(srv.URL)
	err := c.SendFeed("sub-1", "key-1", []byte(feedXML), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
