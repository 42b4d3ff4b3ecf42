package defaults

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"

	"github.com/klauspost/compress/zstd"
)

// HTTPClient implements component/resource.HTTPClient over net/http,
// transparently decoding gzip and zstd response bodies. zstd support is
// wired in via github.com/klauspost/compress.
type HTTPClient struct {
	Client *http.Client
}

// NewHTTPClient builds an HTTPClient over http.DefaultTransport.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{Client: &http.Client{}}
}

func (c *HTTPClient) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip, zstd")

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func decodeBody(resp *http.Response) ([]byte, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return io.ReadAll(resp.Body)
	}
}
