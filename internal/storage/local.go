package storage

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"docverify/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// LocalStore keeps objects on the local filesystem under baseDir and serves
// them through signed links below publicBase.
type LocalStore struct {
	baseDir    string
	publicBase string
	signingKey []byte
	public     func(key string) bool
	now        func() time.Time
}

type LocalOption func(*LocalStore)

// WithPublicKeys lets keys matching fn be read from URL(key) without a
// signature. All other keys need a SignedURL.
func WithPublicKeys(fn func(key string) bool) LocalOption {
	return func(s *LocalStore) { s.public = fn }
}

func NewLocalStore(baseDir, publicBase, signingKey string, opts ...LocalOption) (*LocalStore, error) {
	if baseDir == "" {
		return nil, errors.New("storage: base dir is required")
	}
	if len(signingKey) == 0 || len(signingKey) > blake2b.Size {
		return nil, fmt.Errorf("storage: signing key must be 1..%d bytes", blake2b.Size)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create base dir: %w", err)
	}
	s := &LocalStore{
		baseDir:    baseDir,
		publicBase: strings.TrimRight(publicBase, "/"),
		signingKey: []byte(signingKey),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *LocalStore) abs(key string) (string, string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(s.baseDir, filepath.FromSlash(cleaned)), nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	_, p, err := s.abs(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return data, err
}

// Put writes to a temp file in the target directory and renames it into
// place so readers never observe a partial object.
func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) error {
	_, p, err := s.abs(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	_, p, err := s.abs(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(key string) string {
	cleaned, err := cleanKey(key)
	if err != nil {
		return ""
	}
	return s.publicBase + "/" + cleaned
}

func (s *LocalStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.sign(cleaned, expires))
	return s.publicBase + "/" + cleaned + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL.
func (s *LocalStore) Verify(key string, expires int64, sig string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	if s.now().Unix() > expires {
		return ErrInvalidSig
	}
	got, err := base58.Decode(sig)
	if err != nil || subtle.ConstantTimeCompare(got, s.mac(cleaned, expires)) != 1 {
		return ErrInvalidSig
	}
	return nil
}

func (s *LocalStore) isPublic(key string) bool {
	return s.public != nil && s.public(key)
}

func (s *LocalStore) sign(key string, expires int64) string {
	return base58.Encode(s.mac(key, expires))
}

func (s *LocalStore) mac(key string, expires int64) []byte {
	h, err := blake2b.New256(s.signingKey)
	if err != nil {
		// key length is checked in NewLocalStore
		panic(err)
	}
	h.Write([]byte(key))
	h.Write([]byte{'\n'})
	h.Write([]byte(strconv.FormatInt(expires, 10)))
	return h.Sum(nil)
}

// ServeSigned serves GET {publicBase}/*path when expires and sig are valid,
// or without them for keys accepted by WithPublicKeys.
func (s *LocalStore) ServeSigned() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, p, err := s.abs(strings.TrimPrefix(c.Param("path"), "/"))
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_PATH", "Invalid path")
			return
		}

		if !s.isPublic(key) || c.Query("sig") != "" {
			expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
			if err != nil {
				response.Error(c, http.StatusForbidden, "INVALID_SIGNATURE", "Missing or malformed link")
				return
			}
			if err := s.Verify(key, expires, c.Query("sig")); err != nil {
				response.Error(c, http.StatusForbidden, "INVALID_SIGNATURE", "Link is invalid or expired")
				return
			}
		}

		if _, err := os.Stat(p); err != nil {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "File not found")
			return
		}
		c.File(p)
	}
}
