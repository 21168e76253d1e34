package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// User owns documents and links. Auth is a lookup-by-email stub; there is no
// password or session handling.
type User struct {
	ID        string    `json:"id" gorm:"type:char(27);primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(320);not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"type:varchar(200);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate hook generates KSUID before inserting
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = ksuid.New().String()
	}
	return nil
}

type UserCreate struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserStats summarizes a user's document activity.
type UserStats struct {
	TotalDocuments       int64            `json:"total_documents"`
	DocumentsByStatus    map[string]int64 `json:"documents_by_status"`
	RecentDocumentsCount int64            `json:"recent_documents_count"`
}
