package domain

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// CanVerify reports whether the role may approve or reject documents.
func (r Role) CanVerify() bool {
	return r == RoleFaculty || r == RoleAdmin
}

// Profile mirrors the identity provider's user record. The service only reads
// it to show names next to documents and history entries.
type Profile struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	FullName  string    `gorm:"column:full_name" json:"full_name"`
	Email     string    `gorm:"column:email;uniqueIndex" json:"email"`
	Role      Role      `gorm:"column:role;size:16" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
