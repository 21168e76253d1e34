package repository

import (
	"context"
	"errors"
	"fmt"

	"pdf-rag/internal/apperr"
	"pdf-rag/internal/models"

	"gorm.io/gorm"
)

// LinkRepositoryImpl handles saved-link rows.
type LinkRepositoryImpl struct {
	db *gorm.DB
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(db *gorm.DB) *LinkRepositoryImpl {
	return &LinkRepositoryImpl{db: db}
}

// Create inserts a new link for a user.
func (r *LinkRepositoryImpl) Create(ctx context.Context, userID string, create *models.LinkCreate) (*models.Link, error) {
	link := &models.Link{
		UserID: userID,
		URL:    create.URL,
		Title:  create.Title,
		Status: "active",
	}

	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	return link, nil
}

// ListByUser returns a user's links, newest first.
func (r *LinkRepositoryImpl) ListByUser(ctx context.Context, userID string) ([]*models.Link, error) {
	var links []*models.Link

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&links).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	return links, nil
}

// Update modifies a link; nil pointers leave the column untouched.
func (r *LinkRepositoryImpl) Update(ctx context.Context, id string, update *models.LinkUpdate) (*models.Link, error) {
	var link models.Link

	err := r.db.WithContext(ctx).First(&link, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("link", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}

	updates := make(map[string]interface{})
	if update.URL != nil {
		updates["url"] = *update.URL
	}
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
		return &link, nil
	}

	if err := r.db.WithContext(ctx).Model(&link).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}

	return &link, nil
}

// Delete permanently removes a link.
func (r *LinkRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Link{}, "id = ?", id)

	if result.Error != nil {
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("link", id)
	}

	return nil
}
