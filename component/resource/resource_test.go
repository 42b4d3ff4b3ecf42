package resource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHTTPClient struct {
	status int
	body   []byte
	err    error
}

func (f fakeHTTPClient) Get(ctx context.Context, url string) (int, []byte, error) {
	return f.status, f.body, f.err
}

func TestLoadLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	assert.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	l := NewLoader(nil)
	data, err := l.LoadLocal(path)
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLoadLocalMissing(t *testing.T) {
	l := NewLoader(nil)
	_, err := l.LoadLocal("/does/not/exist")
	assert.Error(t, err)
	var re *ResourceError
	assert.ErrorAs(t, err, &re)
}

func TestLoadRemoteOK(t *testing.T) {
	l := NewLoader(fakeHTTPClient{status: 200, body: []byte("abp-data")})
	data, err := l.LoadRemote("https://example.com/list.txt")
	assert.NoError(t, err)
	assert.Equal(t, "abp-data", string(data))
}

func TestLoadRemoteBadStatus(t *testing.T) {
	l := NewLoader(fakeHTTPClient{status: 404})
	_, err := l.LoadRemote("https://example.com/list.txt")
	assert.Error(t, err)
	var ne *NetworkError
	assert.ErrorAs(t, err, &ne)
}

func TestLoadRemoteEmptyBody(t *testing.T) {
	l := NewLoader(fakeHTTPClient{status: 200, body: nil})
	_, err := l.LoadRemote("https://example.com/list.txt")
	assert.Error(t, err)
}

func TestLoadDispatch(t *testing.T) {
	l := NewLoader(fakeHTTPClient{status: 200, body: []byte("x")})
	data, err := l.Load("https://example.com/list.txt")
	assert.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
