// Package resource implements the blocking startup-time loader for config
// references: local file paths and http(s):// URLs. It deliberately has no
// fetch-and-cache machinery: every Load call is a single synchronous read.
package resource

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"
)

// HTTPClient is the collaborator the Loader uses for remote fetches.
type HTTPClient interface {
	Get(ctx context.Context, url string) (status int, body []byte, err error)
}

// DefaultHTTPTimeout bounds load_remote when the caller's HTTPClient
// doesn't already enforce its own deadline.
const DefaultHTTPTimeout = 30 * time.Second

// Loader implements load_local and load_remote.
type Loader struct {
	HTTP HTTPClient
}

// NewLoader builds a Loader backed by the given HTTP collaborator.
func NewLoader(client HTTPClient) *Loader {
	return &Loader{HTTP: client}
}

// Load dispatches on ref's shape: an http(s):// URL is fetched remotely,
// anything else is treated as a local path (with leading "~" expanded to
// the current user's home directory).
func (l *Loader) Load(ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return l.LoadRemote(ref)
	}
	return l.LoadLocal(ref)
}

// LoadLocal reads path as a local file, expanding a leading "~".
func (l *Loader) LoadLocal(path string) ([]byte, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, &ResourceError{PathOrURL: path, Cause: err}
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, &ResourceError{PathOrURL: path, Cause: err}
	}
	return data, nil
}

// LoadRemote issues a blocking GET, requiring status 200 and a non-empty
// body.
func (l *Loader) LoadRemote(url string) ([]byte, error) {
	if l.HTTP == nil {
		return nil, &NetworkError{URL: url, Cause: fmt.Errorf("no HTTP client configured")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultHTTPTimeout)
	defer cancel()

	status, body, err := l.HTTP.Get(ctx, url)
	if err != nil {
		return nil, &NetworkError{URL: url, Cause: err}
	}
	if status != 200 {
		return nil, &NetworkError{URL: url, Status: status}
	}
	if len(body) == 0 {
		return nil, &NetworkError{URL: url, Cause: fmt.Errorf("empty response body")}
	}
	return body, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return u.HomeDir, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(u.HomeDir, path[2:]), nil
	}
	return path, nil
}

// ResourceError reports a failure to load a local path.
type ResourceError struct {
	PathOrURL string
	Cause     error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %q: %s", e.PathOrURL, e.Cause)
}
func (e *ResourceError) Unwrap() error { return e.Cause }

// NetworkError reports a failure to fetch a remote resource.
type NetworkError struct {
	URL    string
	Status int
	Cause  error
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetching %q: %s", e.URL, e.Cause)
	}
	return fmt.Sprintf("fetching %q: unexpected status %d", e.URL, e.Status)
}
func (e *NetworkError) Unwrap() error { return e.Cause }
