package types

import (
	"time"

	"github.com/google/uuid"
)

// Roles a CMS user can hold. The core only ever checks existence; role
// enforcement belongs to the auth collaborator.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Role      string    `gorm:"not null;column:role;default:'editor'" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}
