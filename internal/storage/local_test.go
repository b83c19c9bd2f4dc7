package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "/files/", "test-signing-key")
	require.NoError(t, err)
	return s
}

func TestLocalStore_PutGetOverwrite(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "documents/u1/a.pdf", []byte("one"), "application/pdf"))
	require.NoError(t, s.Put(ctx, "documents/u1/a.pdf", []byte("two"), "application/pdf"))

	data, err := s.Get(ctx, "documents/u1/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Join(s.baseDir, "documents", "u1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	require.NoError(t, s.Delete(ctx, "documents/u1/a.pdf"))
	_, err = s.Get(ctx, "documents/u1/a.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NoError(t, s.Delete(ctx, "documents/u1/a.pdf"))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s := newLocal(t)
	for _, key := range []string{"", "/etc/passwd", "../x", "a/../../x", ".."} {
		_, err := s.Get(context.Background(), key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	assert.Equal(t, "/files/a/b.pdf", s.URL("a/./b.pdf"))
}

func TestLocalStore_SignedURL(t *testing.T) {
	s := newLocal(t)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	raw, err := s.SignedURL(context.Background(), "documents/u1/a.pdf", time.Minute)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/files/documents/u1/a.pdf", u.Path)

	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	sig := u.Query().Get("sig")

	assert.NoError(t, s.Verify("documents/u1/a.pdf", expires, sig))
	assert.ErrorIs(t, s.Verify("documents/u1/b.pdf", expires, sig), ErrInvalidSig)
	assert.ErrorIs(t, s.Verify("documents/u1/a.pdf", expires+1, sig), ErrInvalidSig)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, s.Verify("documents/u1/a.pdf", expires, sig), ErrInvalidSig)
}

func TestLocalStore_ServeSigned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newLocal(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "documents/u1/a.pdf", []byte("%PDF-1.4"), "application/pdf"))

	r := gin.New()
	r.GET("/files/*path", s.ServeSigned())

	signed, err := s.SignedURL(ctx, "documents/u1/a.pdf", time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, signed, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/documents/u1/a.pdf", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNewObjectKey(t *testing.T) {
	key := NewObjectKey("u1", "My Transcript (final).PDF")
	assert.True(t, strings.HasPrefix(key, "documents/u1/"))
	assert.True(t, strings.HasSuffix(key, "_My_Transcript__final_.pdf"))

	_, err := cleanKey(key)
	assert.NoError(t, err)
}

func TestNewLocalStore_ValidatesKey(t *testing.T) {
	_, err := NewLocalStore(t.TempDir(), "/files", "")
	assert.Error(t, err)
	_, err = NewLocalStore(t.TempDir(), "/files", strings.Repeat("k", 65))
	assert.Error(t, err)
}

func TestLocalStore_ServesPublicKeysUnsigned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := NewLocalStore(t.TempDir(), "/files", "test-signing-key", WithPublicKeys(func(key string) bool {
		return strings.HasPrefix(key, "public/")
	}))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "public/a.pdf", []byte("%PDF-open"), "application/pdf"))
	require.NoError(t, s.Put(ctx, "private/b.pdf", []byte("%PDF-closed"), "application/pdf"))

	r := gin.New()
	r.GET("/files/*path", s.ServeSigned())
	get := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}

	w := get(s.URL("public/a.pdf"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-open", w.Body.String())

	assert.Equal(t, http.StatusForbidden, get(s.URL("private/b.pdf")).Code)
	assert.Equal(t, http.StatusForbidden, get(s.URL("public/a.pdf")+"?expires=1&sig=forged").Code, "a bad signature is never ignored")
	assert.Equal(t, http.StatusForbidden, get("/files/public/../private/b.pdf").Code, "rule applies to the cleaned key")
}
