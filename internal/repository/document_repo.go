package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pdf-rag/internal/apperr"
	"pdf-rag/internal/models"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// DocumentRepositoryImpl handles document rows and the pgvector similarity
// search over their embedding column.
type DocumentRepositoryImpl struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *gorm.DB) *DocumentRepositoryImpl {
	return &DocumentRepositoryImpl{db: db}
}

// Create inserts a new document; the KSUID comes from the BeforeCreate hook.
func (r *DocumentRepositoryImpl) Create(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by its KSUID.
func (r *DocumentRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document

	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("document", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return &doc, nil
}

// ListByUser returns a user's documents, newest first. KSUIDs are
// time-ordered, so sorting by ID sorts by creation time.
func (r *DocumentRepositoryImpl) ListByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	var documents []*models.Document

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&documents).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return documents, nil
}

// Update modifies title, content, or status. Nil pointers leave the column
// untouched.
func (r *DocumentRepositoryImpl) Update(ctx context.Context, id string, update *models.DocumentUpdate) (*models.Document, error) {
	doc, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Title != nil {
		updates["title"] = *update.Title
	}
	if update.Content != nil {
		updates["content"] = *update.Content
	}
	if update.Status != nil {
		updates["status"] = *update.Status
	}

	if len(updates) == 0 {
		return doc, nil
	}

	if err := r.db.WithContext(ctx).Model(doc).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	return doc, nil
}

// Delete permanently removes a document row. The caller is responsible for
// removing the backing file.
func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id)

	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("document", id)
	}

	return nil
}

// UpsertEmbedding stores the document's embedding vector. Called exactly
// once per document by the lifecycle worker, outside any request scope.
func (r *DocumentRepositoryImpl) UpsertEmbedding(ctx context.Context, documentID string, vec pgvector.Vector) error {
	result := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", documentID).
		Update("embedding", vec)

	if result.Error != nil {
		return fmt.Errorf("failed to store embedding: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("document", documentID)
	}

	return nil
}

// neighborRow carries one similarity-search hit; the anonymous Document is
// populated from the selected columns.
type neighborRow struct {
	models.Document
	Distance float64
}

// NearestNeighbors returns up to topK documents ordered by cosine distance
// to the query vector (the pgvector <=> operator), closest first. Only rows
// with a non-null embedding and non-null content are eligible. Scope must
// name exactly one of document ID or user ID.
func (r *DocumentRepositoryImpl) NearestNeighbors(ctx context.Context, queryVec []float32, scope models.SearchScope, topK int) ([]models.DocumentMatch, error) {
	if (scope.DocumentID == "") == (scope.UserID == "") {
		return nil, apperr.Validation("search scope must name exactly one of document_id or user_id")
	}

	vec := pgvector.NewVector(queryVec)

	query := `
		SELECT id, user_id, file_path, original_filename, file_size, mime_type,
		       title, content, status, created_at, updated_at,
		       (embedding <=> ?) AS distance
		FROM documents
		WHERE embedding IS NOT NULL
		  AND content IS NOT NULL`

	args := []interface{}{vec}
	if scope.DocumentID != "" {
		query += " AND id = ?"
		args = append(args, scope.DocumentID)
	} else {
		query += " AND user_id = ?"
		args = append(args, scope.UserID)
	}

	query += " ORDER BY embedding <=> ? LIMIT ?"
	args = append(args, vec, topK)

	var rows []neighborRow
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to perform similarity search: %w", err)
	}

	matches := make([]models.DocumentMatch, len(rows))
	for i, row := range rows {
		matches[i] = models.DocumentMatch{Document: row.Document, Distance: row.Distance}
	}

	return matches, nil
}

// LatestEmbeddedPerUser returns each user's most recent retrieval-eligible
// document, used by the weekly job digest.
func (r *DocumentRepositoryImpl) LatestEmbeddedPerUser(ctx context.Context) ([]*models.Document, error) {
	var documents []*models.Document

	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (user_id) *
		FROM documents
		WHERE embedding IS NOT NULL
		  AND content IS NOT NULL
		ORDER BY user_id, id DESC
	`).Scan(&documents).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list embedded documents: %w", err)
	}

	return documents, nil
}

// Stats summarizes a user's document counts.
func (r *DocumentRepositoryImpl) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats := &models.UserStats{
		DocumentsByStatus: make(map[string]int64),
	}

	err := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalDocuments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	err = r.db.WithContext(ctx).
		Model(&models.Document{}).
		Select("status, count(id) as count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count documents by status: %w", err)
	}
	for _, row := range byStatus {
		stats.DocumentsByStatus[row.Status] = row.Count
	}

	sevenDaysAgo := time.Now().UTC().AddDate(0, 0, -7)
	err = r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("user_id = ? AND created_at >= ?", userID, sevenDaysAgo).
		Count(&stats.RecentDocumentsCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count recent documents: %w", err)
	}

	return stats, nil
}
