package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
	ErrInvalidSig     = errors.New("invalid or expired signature")
)

// ObjectStore keeps document artifacts under slash separated keys.
// Put overwrites an existing object.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL is the stable address stored with the document.
	URL(key string) string
	// SignedURL grants time limited read access to a private object.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewObjectKey builds the key a fresh upload is stored under:
// documents/{owner}/{uuid}_{name}{ext}.
func NewObjectKey(ownerID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".bin"
	}
	return path.Join("documents", ownerID, fmt.Sprintf("%s_%s%s", uuid.NewString(), sanitizeName(fileName), ext))
}

// cleanKey normalises key and rejects anything that would escape the root.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" || name == "." {
		return "file"
	}
	return name
}
