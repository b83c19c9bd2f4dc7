package repository

import (
	"context"
	"errors"

	"docverify/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var p domain.Profile
	err := conn(ctx, r.db).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns the profiles keyed by id. Unknown ids are skipped.
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Profile
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "email", "role", "updated_at"}),
	}).Create(p).Error
}
