package attestation

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"docverify/internal/storage"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// Relocator uploads an attested artifact next to the original object.
type Relocator struct {
	store storage.ObjectStore
	now   func() time.Time
}

func NewRelocator(store storage.ObjectStore) *Relocator {
	return &Relocator{store: store, now: time.Now}
}

// Relocate stores data as {base}_verified_{unixMillis}{ext} in the directory
// of originalPath and returns the new key and its URL. The original object
// is left in place.
func (r *Relocator) Relocate(ctx context.Context, data []byte, originalPath, originalFileName, contentType string) (string, string, error) {
	if originalPath == "" {
		return "", "", errors.New("relocate: original path is empty")
	}
	name := originalFileName
	if name == "" {
		name = path.Base(originalPath)
	}

	newPath := VerifiedPath(originalPath, name, r.now())
	if err := r.store.Put(ctx, newPath, data, contentType); err != nil {
		return "", "", fmt.Errorf("relocate: upload %s: %w", newPath, err)
	}
	return newPath, r.store.URL(newPath), nil
}

// VerifiedPath replaces the last segment of originalPath with the verified
// file name derived from fileName.
func VerifiedPath(originalPath, fileName string, at time.Time) string {
	ext := path.Ext(fileName)
	base := strings.TrimSuffix(path.Base(fileName), ext)
	newName := fmt.Sprintf("%s_verified_%d%s", base, at.UnixMilli(), ext)

	dir := path.Dir(originalPath)
	if dir == "." || dir == "/" {
		return newName
	}
	return dir + "/" + newName
}

var verifiedName = regexp.MustCompile(`_verified_\d+(\.[^./]+)?$`)

// IsVerifiedPath reports whether p already names an attested artifact.
func IsVerifiedPath(p string) bool {
	return verifiedName.MatchString(path.Base(p))
}

// Fingerprint identifies artifact content in verification history.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return base58.Encode(sum[:])
}
