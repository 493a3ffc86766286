package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{
		Users:         deps.Users,
		Sessions:      deps.Sessions,
		Subscriptions: deps.Subscriptions,
		Media:         deps.Media,
		Limiter:       deps.AuthLimiter,
	}
	videos := VideoHandler{
		Videos:   deps.Videos,
		Comments: deps.Comments,
		Users:    deps.Users,
		Media:    deps.Media,
	}

	requireUser := middleware.RequireUser(deps.Access)
	viewerAware := middleware.Authenticate(deps.Access)

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", users.Register)
	mux.HandleFunc("POST /api/v1/users/login", users.Login)
	mux.HandleFunc("POST /api/v1/users/refresh-token", users.Refresh)
	mux.Handle("POST /api/v1/users/logout", requireUser(http.HandlerFunc(users.Logout)))
	mux.Handle("GET /api/v1/users/current-user", requireUser(http.HandlerFunc(users.CurrentUser)))
	mux.Handle("PATCH /api/v1/users/update-account", requireUser(http.HandlerFunc(users.UpdateAccount)))
	mux.Handle("PATCH /api/v1/users/avatar", requireUser(http.HandlerFunc(users.UpdateAvatar)))
	mux.Handle("PATCH /api/v1/users/cover-image", requireUser(http.HandlerFunc(users.UpdateCoverImage)))
	mux.Handle("POST /api/v1/users/change-password", requireUser(http.HandlerFunc(users.ChangePassword)))
	mux.Handle("GET /api/v1/users/c/{username}", viewerAware(http.HandlerFunc(users.ChannelProfile)))
	mux.Handle("POST /api/v1/users/subscribe", requireUser(http.HandlerFunc(users.Subscribe)))
	mux.Handle("POST /api/v1/users/unsubscribe", requireUser(http.HandlerFunc(users.Unsubscribe)))

	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.Handle("POST /api/v1/videos/upload", requireUser(http.HandlerFunc(videos.Upload)))
	mux.HandleFunc("GET /api/v1/videos/{id}", videos.Get)
	mux.HandleFunc("PATCH /api/v1/videos/{id}/views", videos.IncrementViews)
	mux.HandleFunc("GET /api/v1/videos/{id}/comments", videos.ListComments)
	mux.Handle("POST /api/v1/videos/{id}/comments", requireUser(http.HandlerFunc(videos.AddComment)))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Access        middleware.AccessValidator
	Subscriptions SubscriptionStore
	Videos        VideoStore
	Comments      CommentStore
	Media         MediaStorage
	AuthLimiter   RateLimiter
}
