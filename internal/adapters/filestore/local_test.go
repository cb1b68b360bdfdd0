package filestore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutAndServe(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	key := "reports/s1/3조_kim_1792405800000.png"
	u, err := store.Put(context.Background(), key, []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/files/reports/s1/3%EC%A1%B0_kim_1792405800000.png", u)

	onDisk, err := os.ReadFile(filepath.Join(dir, "uploads", "reports", "s1", "3조_kim_1792405800000.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(onDisk))

	mux := http.NewServeMux()
	mux.Handle(URLPrefix, store.Handler())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, u, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "png-bytes", string(body))
}

func TestLocal_PutOverwrites(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Put(ctx, "a/b.png", []byte("one"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "a/b.png", []byte("two"))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(store.root, "a", "b.png"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestLocal_RejectsBadKeys(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "/abs.png", "../escape.png", "a/../../b.png", "a//b.png", `a\b.png`} {
		_, err := store.Put(context.Background(), key, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}
