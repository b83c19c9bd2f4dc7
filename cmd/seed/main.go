package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docverify/internal/config"
	"docverify/internal/database"
	"docverify/internal/domain"
	"docverify/internal/pkg/logger"
	"docverify/internal/repository"
	"docverify/internal/storage"
)

// ids are derived from emails and titles so the seed can be re-run.
var seedNamespace = uuid.MustParse("6f1c7c4e-4f0b-4c1e-9a56-3d1b8f0e2a11")

type seedUser struct {
	Email string
	Name  string
	Role  domain.Role
}

type seedDoc struct {
	OwnerEmail string
	Title      string
	Category   string
	FileName   string
}

var users = []seedUser{
	{Email: "admin@uni.edu", Name: "Registry Admin", Role: domain.RoleAdmin},
	{Email: "m.okafor@uni.edu", Name: "Dr Miriam Okafor", Role: domain.RoleFaculty},
	{Email: "j.lindqvist@uni.edu", Name: "Prof Jonas Lindqvist", Role: domain.RoleFaculty},
	{Email: "aigerim.s@students.uni.edu", Name: "Aigerim Seitkali", Role: domain.RoleStudent},
	{Email: "tom.becker@students.uni.edu", Name: "Tom Becker", Role: domain.RoleStudent},
	{Email: "priya.n@students.uni.edu", Name: "Priya Nair", Role: domain.RoleStudent},
}

var documents = []seedDoc{
	{OwnerEmail: "aigerim.s@students.uni.edu", Title: "Bachelor Diploma", Category: "diploma", FileName: "diploma.pdf"},
	{OwnerEmail: "aigerim.s@students.uni.edu", Title: "Official Transcript 2025", Category: "transcript", FileName: "transcript.pdf"},
	{OwnerEmail: "tom.becker@students.uni.edu", Title: "Internship Certificate", Category: "certificate", FileName: "internship.pdf"},
	{OwnerEmail: "priya.n@students.uni.edu", Title: "Language Proficiency", Category: "certificate", FileName: "ielts.pdf"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config: ", err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal("logger: ", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL, database.Options{MaxOpenConns: 1}, zl)
	if err != nil {
		log.Fatal("DB connection failed: ", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migrate failed: ", err)
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("storage: ", err)
	}

	// ================== PROFILES ==================
	zl.Info("seeding profiles", zap.Int("count", len(users)))
	profiles := repository.NewProfileRepository(db)
	ids := make(map[string]string, len(users))
	for _, u := range users {
		id := uuid.NewSHA1(seedNamespace, []byte(u.Email)).String()
		ids[u.Email] = id
		if err := profiles.Upsert(ctx, &domain.Profile{ID: id, FullName: u.Name, Email: u.Email, Role: u.Role}); err != nil {
			log.Fatalf("upsert profile %s: %v", u.Email, err)
		}
		fmt.Printf("%-8s %-36s %s\n", u.Role, id, u.Email)
	}

	// ================== DOCUMENTS ==================
	zl.Info("seeding documents", zap.Int("count", len(documents)))
	created := 0
	for _, d := range documents {
		ownerID := ids[d.OwnerEmail]
		docID := uuid.NewSHA1(seedNamespace, []byte(d.OwnerEmail+"/"+d.Title)).String()

		var existing int64
		if err := db.Model(&domain.Document{}).Where("id = ?", docID).Count(&existing).Error; err != nil {
			log.Fatal(err)
		}
		if existing > 0 {
			continue
		}

		pdf := samplePDF(d.Title)
		key := storage.NewObjectKey(ownerID, d.FileName)
		if err := store.Put(ctx, key, pdf, domain.ContentTypePDF); err != nil {
			log.Fatalf("upload %s: %v", d.FileName, err)
		}

		doc := domain.Document{
			ID:          docID,
			UserID:      ownerID,
			Title:       d.Title,
			Category:    d.Category,
			FileName:    d.FileName,
			FileType:    domain.ContentTypePDF,
			FileSize:    int64(len(pdf)),
			StoragePath: key,
			FileURL:     store.URL(key),
			CreatedAt:   time.Now().UTC(),
			UpdatedAt:   time.Now().UTC(),
		}
		if err := insertDocument(db, &doc); err != nil {
			_ = store.Delete(ctx, key)
			log.Fatalf("insert document %s: %v", d.Title, err)
		}
		created++
		fmt.Printf("document %-36s %s\n", docID, d.Title)
	}

	zl.Info("seed completed", zap.Int("documents_created", created))
}

func insertDocument(db *gorm.DB, doc *domain.Document) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(doc).Error
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, error) {
	if cfg.Backend == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return storage.NewLocalStore(cfg.LocalDir, cfg.PublicBase, cfg.SigningKey)
}
