package handlers

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// UserStore captures the persistence operations required by the user
// handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByLogin(ctx context.Context, login string) (models.User, error)
	UpdateProfile(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, url string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, url string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionManager drives the session-credential lifecycle for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Invalidate(ctx context.Context, userID string) error
}

// SubscriptionStore captures operations on subscriber-to-channel edges.
type SubscriptionStore interface {
	Create(ctx context.Context, subscriberID, channelID string) (int64, error)
	Delete(ctx context.Context, subscriberID, channelID string) (int64, error)
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID string) (int64, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// VideoStore captures persistence for video metadata records.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	List(ctx context.Context) ([]models.Video, error)
	FindByID(ctx context.Context, id string) (models.Video, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
}

// CommentStore captures persistence for video comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
}

// MediaStorage uploads a local file to the media host and returns its public
// location.
type MediaStorage interface {
	SaveFile(ctx context.Context, name, localPath string) (string, error)
}
