package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const maxVideoUploadBytes = 1 << 30

// VideoHandler provides endpoints for uploading and browsing videos and
// their comments.
type VideoHandler struct {
	Videos   VideoStore
	Comments CommentStore
	Users    UserStore
	Media    MediaStorage
	NowFunc  func() time.Time
}

// Upload handles POST /api/v1/videos/upload (multipart, authenticated).
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxVideoUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart request body")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "title and description are required")
		return
	}

	videoFile, ok := formFile(r, "videoFile")
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}

	ownerID, _ := middleware.UserIDFromContext(ctx)
	videoID := uuid.NewString()

	// The media file is mandatory, so an upload failure fails the request.
	mediaURL, err := uploadMedia(ctx, h.Media, mediaKey("videos", videoID, videoFile.Filename), videoFile)
	if err != nil {
		logger.Error("upload video file", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to upload video file")
		return
	}

	video := models.Video{
		ID:          videoID,
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		MediaURL:    mediaURL,
		Thumbnail:   strings.TrimSpace(r.FormValue("thumbnail")),
		CreatedAt:   h.now(),
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("create video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to save video")
		return
	}

	if owner, err := h.Users.FindByID(ctx, ownerID); err == nil {
		video.OwnerUsername = owner.Username
		video.OwnerAvatar = owner.Avatar
	}

	respondData(ctx, w, http.StatusCreated, "video uploaded successfully", newVideoPayload(video))
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Videos.List(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	payload := make([]videoPayload, 0, len(videos))
	for _, video := range videos {
		payload = append(payload, newVideoPayload(video))
	}

	respondData(ctx, w, http.StatusOK, "videos fetched successfully", payload)
}

// Get handles GET /api/v1/videos/{id}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("load video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load video")
		return
	}

	respondData(ctx, w, http.StatusOK, "video fetched successfully", newVideoPayload(video))
}

// IncrementViews handles PATCH /api/v1/videos/{id}/views. The bump happens
// atomically at the store layer; concurrent calls never lose updates.
func (h VideoHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.Videos.IncrementViews(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("increment views", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update view count")
		return
	}

	respondData(ctx, w, http.StatusOK, "view count updated", viewsResponse{Views: views})
}

// ListComments handles GET /api/v1/videos/{id}/comments.
func (h VideoHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	comments, err := h.Comments.ListForVideo(ctx, r.PathValue("id"))
	if err != nil {
		logging.FromContext(ctx).Error("list comments", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to list comments")
		return
	}

	payload := make([]commentPayload, 0, len(comments))
	for _, comment := range comments {
		payload = append(payload, newCommentPayload(comment))
	}

	respondData(ctx, w, http.StatusOK, "comments fetched successfully", payload)
}

// AddComment handles POST /api/v1/videos/{id}/comments (authenticated).
func (h VideoHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(ctx, w, http.StatusBadRequest, "comment text is required")
		return
	}

	userID, _ := middleware.UserIDFromContext(ctx)
	author, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("load comment author", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to add comment")
		return
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   r.PathValue("id"),
		Author:    author.Username,
		Text:      text,
		CreatedAt: h.now(),
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("create comment", "error", err, "videoId", comment.VideoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to add comment")
		return
	}

	respondData(ctx, w, http.StatusCreated, "comment added successfully", newCommentPayload(comment))
}

type addCommentRequest struct {
	Text string `json:"text"`
}

type viewsResponse struct {
	Views int64 `json:"views"`
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
