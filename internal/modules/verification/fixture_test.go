package verification

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docverify/internal/cache"
	"docverify/internal/database"
	"docverify/internal/domain"
	"docverify/internal/modules/attestation"
	"docverify/internal/modules/audit"
	"docverify/internal/modules/notification"
	"docverify/internal/repository"
	"docverify/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = data
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) URL(key string) string { return "/files/" + key }

func (m *memStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "/files/" + key + "?expires=" + ttl.String() + "&sig=test", nil
}

type fakeStamper struct {
	fail  bool
	calls atomic.Int32
}

func (f *fakeStamper) Stamp(_ context.Context, pdf []byte) ([]byte, bool) {
	f.calls.Add(1)
	if f.fail {
		return pdf, false
	}
	return append([]byte("STAMPED:"), pdf...), true
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deletes = append(c.deletes, k)
	}
	return nil
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	docs     *repository.DocumentRepository
	states   *repository.VerificationRepository
	profiles *repository.ProfileRepository
	store    *memStore
	stamper  *fakeStamper
	cache    *fakeCache
}

type fixtureOption func(*Deps, *Options)

func withNotifier(n Notifier, a Auditor) fixtureOption {
	return func(d *Deps, _ *Options) { d.Dispatcher = NewDispatcher(n, a) }
}

func keepOriginal() fixtureOption {
	return func(_ *Deps, o *Options) { o.ReplaceOriginal = false }
}

func withDocuments(wrap func(DocumentRepository) DocumentRepository) fixtureOption {
	return func(d *Deps, _ *Options) { d.Documents = wrap(d.Documents) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "verify.db"), database.Options{MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:       db,
		docs:     repository.NewDocumentRepository(db),
		states:   repository.NewVerificationRepository(db),
		profiles: repository.NewProfileRepository(db),
		store:    newMemStore(),
		stamper:  &fakeStamper{},
		cache:    newFakeCache(),
	}

	notifier := notification.NewService(repository.NewNotificationRepository(db), nil, zap.NewNop())
	auditor := audit.NewService(repository.NewAuditLogRepository(db))

	deps := Deps{
		Documents:  f.docs,
		States:     f.states,
		Profiles:   f.profiles,
		Tx:         repository.NewTransactor(db),
		Store:      f.store,
		Stamper:    f.stamper,
		Relocator:  attestation.NewRelocator(f.store),
		Dispatcher: NewDispatcher(notifier, auditor),
		Cache:      f.cache,
	}
	options := Options{ReplaceOriginal: true, StatusCacheTTL: time.Minute, SignedURLTTL: time.Minute}
	for _, o := range opts {
		o(&deps, &options)
	}

	f.svc = NewService(deps, options, zap.NewNop())
	return f
}

func (f *fixture) seedProfile(t *testing.T, role domain.Role, name string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, f.profiles.Upsert(context.Background(), &domain.Profile{
		ID:       id,
		FullName: name,
		Email:    strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@uni.edu",
		Role:     role,
	}))
	return id
}

func (f *fixture) seedDocument(t *testing.T, ownerID, fileType string) *domain.Document {
	t.Helper()
	name := "transcript.pdf"
	if fileType != domain.ContentTypePDF {
		name = "photo.png"
	}
	key := storage.NewObjectKey(ownerID, name)
	require.NoError(t, f.store.Put(context.Background(), key, []byte("%PDF-1.4 original"), fileType))

	doc := &domain.Document{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Title:       "Official Transcript",
		Category:    "transcript",
		FileName:    name,
		FileType:    fileType,
		FileSize:    17,
		StoragePath: key,
		FileURL:     f.store.URL(key),
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.docs.Create(context.Background(), doc))
	return doc
}

func (f *fixture) document(t *testing.T, id string) *domain.Document {
	t.Helper()
	doc, err := f.docs.GetByID(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (f *fixture) notifications(t *testing.T, userID string) []domain.Notification {
	t.Helper()
	var out []domain.Notification
	require.NoError(t, f.db.Where(map[string]any{"user_id": userID}).Order("created_at").Find(&out).Error)
	return out
}
