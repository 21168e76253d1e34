package models

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// Link is a saved URL belonging to a user.
type Link struct {
	ID        string    `json:"id" gorm:"type:char(27);primaryKey"`
	UserID    string    `json:"user_id" gorm:"type:char(27);not null;index"`
	URL       string    `json:"url" gorm:"type:text;not null"`
	Title     *string   `json:"title" gorm:"type:varchar(500)"`
	Content   *string   `json:"content" gorm:"type:text"`
	Status    string    `json:"status" gorm:"type:varchar(50);not null;default:'active';index"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate hook generates KSUID before inserting
func (l *Link) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = ksuid.New().String()
	}
	return nil
}

type LinkCreate struct {
	URL   string  `json:"url"`
	Title *string `json:"title,omitempty"`
}

type LinkUpdate struct {
	URL     *string `json:"url,omitempty"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Status  *string `json:"status,omitempty"`
}
