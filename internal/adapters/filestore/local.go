package filestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// URLPrefix is the path stored files are served under.
const URLPrefix = "/files/"

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid file key")

// Store saves blobs and returns the URL they are reachable at.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// Local stores files on disk below a root directory.
type Local struct {
	root string
}

// Ensure Local implements Store interface.
var _ Store = (*Local)(nil)

// NewLocal creates the root directory if needed.
// POST: root exists and is writable
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Local{root: root}, nil
}

// Put writes data under key, replacing any previous file.
// PRE: key is a relative slash-separated path without ".." segments
// POST: returns URLPrefix + escaped key
func (l *Local) Put(ctx context.Context, key string, data []byte) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(l.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", clean, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store %s: %w", clean, err)
	}
	return URL(clean), nil
}

// Handler serves stored files. Mount it at URLPrefix.
func (l *Local) Handler() http.Handler {
	return http.StripPrefix(strings.TrimSuffix(URLPrefix, "/"), http.FileServer(http.Dir(l.root)))
}

// URL returns the public URL for a key, escaping each path segment.
func URL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return URLPrefix + strings.Join(segments, "/")
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidKey
		}
	}
	return path.Clean(key), nil
}
