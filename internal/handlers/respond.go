package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

type apiEnvelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	writeEnvelope(ctx, w, status, apiEnvelope{Success: true, Message: message, Data: data})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeEnvelope(ctx, w, status, apiEnvelope{Success: false, Message: message, StatusCode: status})
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, status int, envelope apiEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	logger := logging.FromContext(ctx)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.Error("encode response body", "status", status, "error", err)
		return
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "message", envelope.Message)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "message", envelope.Message)
	}
}

type userPayload struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

// newUserPayload projects an account for clients; password hash and refresh
// token never leave the server.
func newUserPayload(user models.User) userPayload {
	return userPayload{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		Avatar:     user.Avatar,
		CoverImage: user.CoverImage,
		CreatedAt:  user.CreatedAt,
	}
}

type tokensPayload struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

func newTokensPayload(tokens models.SessionTokens) tokensPayload {
	return tokensPayload{
		AccessToken:      tokens.AccessToken,
		AccessExpiresAt:  tokens.AccessExpiresAt,
		RefreshToken:     tokens.RefreshToken,
		RefreshExpiresAt: tokens.RefreshExpiresAt,
	}
}

type channelPayload struct {
	userPayload
	SubscriberCount   int64 `json:"subscriberCount"`
	SubscribedToCount int64 `json:"subscribedToCount"`
	IsSubscribed      bool  `json:"isSubscribed"`
}

type videoOwnerPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type videoPayload struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	VideoFile   string            `json:"videoFile"`
	Thumbnail   string            `json:"thumbnail"`
	Views       int64             `json:"views"`
	CreatedAt   time.Time         `json:"createdAt"`
	Owner       videoOwnerPayload `json:"owner"`
}

func newVideoPayload(video models.Video) videoPayload {
	return videoPayload{
		ID:          video.ID,
		Title:       video.Title,
		Description: video.Description,
		VideoFile:   video.MediaURL,
		Thumbnail:   video.Thumbnail,
		Views:       video.Views,
		CreatedAt:   video.CreatedAt,
		Owner: videoOwnerPayload{
			ID:       video.OwnerID,
			Username: video.OwnerUsername,
			Avatar:   video.OwnerAvatar,
		},
	}
}

type commentPayload struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

func newCommentPayload(comment models.Comment) commentPayload {
	return commentPayload{
		ID:        comment.ID,
		Text:      comment.Text,
		User:      comment.Author,
		CreatedAt: comment.CreatedAt,
	}
}
