package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// HTTPOptions can be set as Request.Options to customize one request.
type HTTPOptions struct {
	Header http.Header
}

// HTTPFetcher posts the wire payload to URL and expects a JSON list of
// records as answer.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
	Header http.Header
}

func NewHTTPFetcher(url string) *HTTPFetcher {
	return &HTTPFetcher{
		URL:    url,
		Client: http.DefaultClient,
		Header: http.Header{},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) ([]json.RawMessage, error) {

	payload, err := req.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build http request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("X-Request-Id", uuid.NewString())
	copyHeader(httpRequest.Header, f.Header)
	if options, ok := req.Options.(*HTTPOptions); ok && options != nil {
		copyHeader(httpRequest.Header, options.Header)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote responded %d: %s", resp.StatusCode, bytes.TrimSpace(excerpt))
	}

	raws := []json.RawMessage{}
	err = json.NewDecoder(resp.Body).Decode(&raws)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return raws, nil
}

func copyHeader(dst, src http.Header) {
	for k, values := range src {
		dst.Del(k)
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}
