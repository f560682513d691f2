// Package client talks to the producer-facing ingest endpoint.
package client

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type IngestClient struct {
	baseURL string
	client  *http.Client
}

func NewIngestClient(baseURL string) *IngestClient {
	return &IngestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SendFeed posts a SIRI-VM payload for a subscription. When compress is set
// the body is gzipped and base64-encoded with a Content-Encoding: gzip
// header, matching what producers behind bandwidth-limited links send.
func (c *IngestClient) SendFeed(subscriptionID, apiKey string, body []byte, compress bool) error {
	endpoint := fmt.Sprintf("%s/data/%s?apiKey=%s",
		c.baseURL, url.PathEscape(subscriptionID), url.QueryEscape(apiKey))

	var payload io.Reader = bytes.NewReader(body)
	if compress {
		encoded, err := gzipBase64(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")
	if compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errBody struct {
		Errors []string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil && len(errBody.Errors) > 0 {
		return fmt.Errorf("ingest rejected feed (status %d): %s",
			resp.StatusCode, strings.Join(errBody.Errors, "; "))
	}
	return fmt.Errorf("ingest failed with status %d", resp.StatusCode)
}

func gzipBase64(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(body); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(encoded, buf.Bytes())
	return encoded, nil
}
