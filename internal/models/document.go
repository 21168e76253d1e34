package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusProcessed DocumentStatus = "processed"
	StatusFailed    DocumentStatus = "failed"
)

// Document is an uploaded PDF plus its extracted text and embedding.
//
// Embedding stays NULL until the lifecycle worker finishes; only documents
// with a non-null embedding and non-null content are eligible for retrieval.
// KSUIDs keep IDs time-ordered, so "most recent document" sorts by ID.
type Document struct {
	ID               string           `json:"id" gorm:"type:char(27);primaryKey"`
	UserID           string           `json:"user_id" gorm:"type:char(27);not null;index"`
	FilePath         string           `json:"file_path" gorm:"type:varchar(1000);not null"`
	OriginalFilename string           `json:"original_filename" gorm:"type:varchar(500);not null"`
	FileSize         int64            `json:"file_size"`
	MimeType         string           `json:"mime_type" gorm:"type:varchar(100)"`
	Title            *string          `json:"title" gorm:"type:varchar(500)"`
	Content          *string          `json:"content" gorm:"type:text"`
	Status           DocumentStatus   `json:"status" gorm:"type:varchar(50);not null;default:'pending';index"`
	Embedding        *pgvector.Vector `json:"-" gorm:"type:vector(768)"`
	CreatedAt        time.Time        `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`

	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate hook generates KSUID before inserting
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = ksuid.New().String()
	}
	return nil
}

// HasEmbedding reports whether the document is eligible for retrieval.
func (d *Document) HasEmbedding() bool {
	return d.Embedding != nil
}

type DocumentUpdate struct {
	Title   *string         `json:"title,omitempty"`
	Content *string         `json:"content,omitempty"`
	Status  *DocumentStatus `json:"status,omitempty"`
}

// SearchScope restricts a nearest-neighbor search to a single document or to
// all documents owned by a user. Exactly one field must be set.
type SearchScope struct {
	DocumentID string
	UserID     string
}

// DocumentMatch is one nearest-neighbor row: the document plus its cosine
// distance to the query vector. Similarity is 1 - distance.
type DocumentMatch struct {
	Document Document
	Distance float64
}

// Similarity returns 1 - cosine distance for this match.
func (m *DocumentMatch) Similarity() float64 {
	return 1 - m.Distance
}
