package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

type inMemoryVideoStore struct {
	videos map[string]models.Video
	owners *inMemoryUserStore
}

func newInMemoryVideoStore(owners *inMemoryUserStore) *inMemoryVideoStore {
	return &inMemoryVideoStore{videos: make(map[string]models.Video), owners: owners}
}

func (s *inMemoryVideoStore) Create(_ context.Context, video models.Video) error {
	if _, exists := s.videos[video.ID]; exists {
		return repositories.ErrConflict
	}
	s.videos[video.ID] = video
	return nil
}

func (s *inMemoryVideoStore) List(ctx context.Context) ([]models.Video, error) {
	videos := make([]models.Video, 0, len(s.videos))
	for _, video := range s.videos {
		videos = append(videos, s.withOwner(ctx, video))
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].CreatedAt.After(videos[j].CreatedAt) })
	return videos, nil
}

func (s *inMemoryVideoStore) FindByID(ctx context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return s.withOwner(ctx, video), nil
}

func (s *inMemoryVideoStore) IncrementViews(_ context.Context, id string) (int64, error) {
	video, ok := s.videos[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return video.Views, nil
}

func (s *inMemoryVideoStore) withOwner(ctx context.Context, video models.Video) models.Video {
	if s.owners != nil {
		if owner, err := s.owners.FindByID(ctx, video.OwnerID); err == nil {
			video.OwnerUsername = owner.Username
			video.OwnerAvatar = owner.Avatar
		}
	}
	return video
}

type inMemoryCommentStore struct {
	comments map[string][]models.Comment
	videos   *inMemoryVideoStore
}

func newInMemoryCommentStore(videos *inMemoryVideoStore) *inMemoryCommentStore {
	return &inMemoryCommentStore{comments: make(map[string][]models.Comment), videos: videos}
}

func (s *inMemoryCommentStore) Create(_ context.Context, comment models.Comment) error {
	if s.videos != nil {
		if _, ok := s.videos.videos[comment.VideoID]; !ok {
			return repositories.ErrNotFound
		}
	}
	s.comments[comment.VideoID] = append(s.comments[comment.VideoID], comment)
	return nil
}

func (s *inMemoryCommentStore) ListForVideo(_ context.Context, videoID string) ([]models.Comment, error) {
	comments := append([]models.Comment(nil), s.comments[videoID]...)
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.After(comments[j].CreatedAt) })
	return comments, nil
}

func TestVideoHandlerUpload(t *testing.T) {
	users := newInMemoryUserStore()
	seedUser(users, "user-1", "jane", "jane@example.com", "plenty-strong-passphrase")
	videos := newInMemoryVideoStore(users)
	media := &fakeMediaStorage{}
	handler := VideoHandler{Videos: videos, Users: users, Media: media}

	body, contentType := multipartBody(t, map[string]string{
		"title":       "My first clip",
		"description": "A short demo recording.",
	}, map[string]string{"videoFile": "clip.mp4"})

	req := authenticatedRequest(http.MethodPost, "/api/v1/videos/upload", body, "user-1")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var payload videoPayload
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &payload); err != nil {
		t.Fatalf("decode video payload: %v", err)
	}
	if !strings.HasPrefix(payload.VideoFile, "https://media.test/videos/") {
		t.Fatalf("expected uploaded media url, got %q", payload.VideoFile)
	}
	if payload.Owner.Username != "jane" {
		t.Fatalf("expected owner username, got %+v", payload.Owner)
	}

	if _, err := videos.FindByID(context.Background(), payload.ID); err != nil {
		t.Fatalf("expected video to be stored: %v", err)
	}
}

func TestVideoHandlerUploadValidation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		files  map[string]string
	}{
		{
			name:   "missing title",
			fields: map[string]string{"description": "demo"},
			files:  map[string]string{"videoFile": "clip.mp4"},
		},
		{
			name:   "missing description",
			fields: map[string]string{"title": "demo"},
			files:  map[string]string{"videoFile": "clip.mp4"},
		},
		{
			name:   "missing video file",
			fields: map[string]string{"title": "demo", "description": "demo"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := newInMemoryUserStore()
			handler := VideoHandler{Videos: newInMemoryVideoStore(users), Users: users, Media: &fakeMediaStorage{}}

			body, contentType := multipartBody(t, tc.fields, tc.files)
			req := authenticatedRequest(http.MethodPost, "/api/v1/videos/upload", body, "user-1")
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			handler.Upload(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestVideoHandlerUploadMediaFailure(t *testing.T) {
	users := newInMemoryUserStore()
	videos := newInMemoryVideoStore(users)
	handler := VideoHandler{Videos: videos, Users: users, Media: &fakeMediaStorage{failPrefix: "videos/"}}

	body, contentType := multipartBody(t, map[string]string{
		"title":       "My first clip",
		"description": "A short demo recording.",
	}, map[string]string{"videoFile": "clip.mp4"})

	req := authenticatedRequest(http.MethodPost, "/api/v1/videos/upload", body, "user-1")
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}
	if len(videos.videos) != 0 {
		t.Fatal("expected no video record after a failed upload")
	}
}

func TestVideoHandlerList(t *testing.T) {
	users := newInMemoryUserStore()
	seedUser(users, "user-1", "jane", "jane@example.com", "plenty-strong-passphrase")
	videos := newInMemoryVideoStore(users)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"video-1", "video-2"} {
		videos.videos[id] = models.Video{
			ID: id, OwnerID: "user-1", Title: "Clip " + id,
			Description: "demo", MediaURL: "https://media.test/videos/" + id + ".mp4",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}

	handler := VideoHandler{Videos: videos, Users: users}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var payload []videoPayload
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &payload); err != nil {
		t.Fatalf("decode video list: %v", err)
	}
	if len(payload) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(payload))
	}
	if payload[0].ID != "video-2" {
		t.Fatalf("expected newest video first, got %q", payload[0].ID)
	}
}

func TestVideoHandlerGetNotFound(t *testing.T) {
	users := newInMemoryUserStore()
	handler := VideoHandler{Videos: newInMemoryVideoStore(users), Users: users}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/ghost", nil)
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestVideoHandlerIncrementViews(t *testing.T) {
	users := newInMemoryUserStore()
	videos := newInMemoryVideoStore(users)
	videos.videos["video-1"] = models.Video{ID: "video-1", OwnerID: "user-1", Views: 41}

	handler := VideoHandler{Videos: videos, Users: users}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/videos/video-1/views", nil)
	req.SetPathValue("id", "video-1")
	rec := httptest.NewRecorder()

	handler.IncrementViews(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp viewsResponse
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &resp); err != nil {
		t.Fatalf("decode views response: %v", err)
	}
	if resp.Views != 42 {
		t.Fatalf("expected 42 views, got %d", resp.Views)
	}
}

func TestVideoHandlerIncrementViewsNotFound(t *testing.T) {
	users := newInMemoryUserStore()
	handler := VideoHandler{Videos: newInMemoryVideoStore(users), Users: users}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/videos/ghost/views", nil)
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()

	handler.IncrementViews(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestVideoHandlerAddComment(t *testing.T) {
	users := newInMemoryUserStore()
	seedUser(users, "user-1", "jane", "jane@example.com", "plenty-strong-passphrase")
	videos := newInMemoryVideoStore(users)
	videos.videos["video-1"] = models.Video{ID: "video-1", OwnerID: "user-1"}
	comments := newInMemoryCommentStore(videos)

	handler := VideoHandler{Videos: videos, Comments: comments, Users: users}

	body, _ := json.Marshal(addCommentRequest{Text: "nice clip"})
	req := authenticatedRequest(http.MethodPost, "/api/v1/videos/video-1/comments", bytes.NewBuffer(body), "user-1")
	req.SetPathValue("id", "video-1")
	rec := httptest.NewRecorder()

	handler.AddComment(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var payload commentPayload
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &payload); err != nil {
		t.Fatalf("decode comment payload: %v", err)
	}
	if payload.User != "jane" || payload.Text != "nice clip" {
		t.Fatalf("unexpected comment payload %+v", payload)
	}
}

func TestVideoHandlerAddCommentValidation(t *testing.T) {
	users := newInMemoryUserStore()
	seedUser(users, "user-1", "jane", "jane@example.com", "plenty-strong-passphrase")
	videos := newInMemoryVideoStore(users)
	comments := newInMemoryCommentStore(videos)
	handler := VideoHandler{Videos: videos, Comments: comments, Users: users}

	body, _ := json.Marshal(addCommentRequest{Text: "   "})
	req := authenticatedRequest(http.MethodPost, "/api/v1/videos/video-1/comments", bytes.NewBuffer(body), "user-1")
	req.SetPathValue("id", "video-1")
	rec := httptest.NewRecorder()

	handler.AddComment(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestVideoHandlerAddCommentUnknownVideo(t *testing.T) {
	users := newInMemoryUserStore()
	seedUser(users, "user-1", "jane", "jane@example.com", "plenty-strong-passphrase")
	videos := newInMemoryVideoStore(users)
	comments := newInMemoryCommentStore(videos)
	handler := VideoHandler{Videos: videos, Comments: comments, Users: users}

	body, _ := json.Marshal(addCommentRequest{Text: "hello"})
	req := authenticatedRequest(http.MethodPost, "/api/v1/videos/ghost/comments", bytes.NewBuffer(body), "user-1")
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()

	handler.AddComment(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestVideoHandlerListComments(t *testing.T) {
	users := newInMemoryUserStore()
	videos := newInMemoryVideoStore(users)
	videos.videos["video-1"] = models.Video{ID: "video-1", OwnerID: "user-1"}
	comments := newInMemoryCommentStore(videos)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second"} {
		if err := comments.Create(context.Background(), models.Comment{
			ID: text, VideoID: "video-1", Author: "jane", Text: text,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("seed comment: %v", err)
		}
	}

	handler := VideoHandler{Videos: videos, Comments: comments, Users: users}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/video-1/comments", nil)
	req.SetPathValue("id", "video-1")
	rec := httptest.NewRecorder()

	handler.ListComments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var payload []commentPayload
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &payload); err != nil {
		t.Fatalf("decode comment list: %v", err)
	}
	if len(payload) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(payload))
	}
	if payload[0].Text != "second" {
		t.Fatalf("expected newest comment first, got %q", payload[0].Text)
	}
}
