package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// VideoRepository exposes data access for video metadata records.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	List(ctx context.Context) ([]models.Video, error)
	FindByID(ctx context.Context, id string) (models.Video, error)
	// IncrementViews bumps the view counter atomically at the store layer
	// and returns the new value.
	IncrementViews(ctx context.Context, id string) (int64, error)
}

// CommentRepository exposes data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
}
