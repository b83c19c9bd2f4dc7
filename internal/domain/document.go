package domain

import "time"

const ContentTypePDF = "application/pdf"

// Document is an uploaded file owned by a student. IsPublic is the
// authoritative "currently attested and visible" flag.
type Document struct {
	ID          string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"column:user_id;size:36;index" json:"user_id"`
	Title       string    `gorm:"column:title" json:"title"`
	Category    string    `gorm:"column:category" json:"category"`
	FileName    string    `gorm:"column:file_name" json:"file_name"`
	FileType    string    `gorm:"column:file_type" json:"file_type"`
	FileSize    int64     `gorm:"column:file_size" json:"file_size"`
	StoragePath string    `gorm:"column:storage_path" json:"storage_path"`
	FileURL     string    `gorm:"column:file_url" json:"file_url"`
	IsPublic    bool      `gorm:"column:is_public;not null;default:false;index" json:"is_public"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

func (d *Document) IsPDF() bool {
	return d.FileType == ContentTypePDF
}
