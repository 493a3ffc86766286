package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const (
	// passwordMinEntropyBits is the minimum entropy accepted for new
	// passwords.
	passwordMinEntropyBits = 30

	maxImageUploadBytes = 10 << 20
)

// UserHandler implements registration, authentication, profile, and
// subscription endpoints.
type UserHandler struct {
	Users         UserStore
	Sessions      SessionManager
	Subscriptions SubscriptionStore
	Media         MediaStorage
	Limiter       RateLimiter
	NowFunc       func() time.Time
}

// Register handles POST /api/v1/users/register (multipart).
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart request body")
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullname"))
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := strings.TrimSpace(r.FormValue("password"))

	if fullName == "" || username == "" || email == "" || password == "" {
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}

	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := passwordvalidator.Validate(password, passwordMinEntropyBits); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "password is too weak")
		return
	}

	avatarFile, ok := formFile(r, "avatar")
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "avatar is required")
		return
	}

	// Check uniqueness before uploading media so a doomed registration does
	// not leave an orphaned object in the bucket. The unique constraint on
	// the insert below still decides races.
	for _, login := range []string{username, email} {
		_, err := h.Users.FindByLogin(ctx, login)
		if err == nil {
			respondError(ctx, w, http.StatusConflict, "username or email already exists")
			return
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("check existing user", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
			return
		}
	}

	userID := uuid.NewString()

	avatarURL, err := uploadMedia(ctx, h.Media, mediaKey("avatars", userID, avatarFile.Filename), avatarFile)
	if err != nil {
		logger.Error("upload avatar", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to upload avatar")
		return
	}

	// The cover image is optional; an upload failure skips the field
	// instead of failing registration.
	var coverURL string
	if coverFile, ok := formFile(r, "coverImage"); ok {
		coverURL, err = uploadMedia(ctx, h.Media, mediaKey("covers", userID, coverFile.Filename), coverFile)
		if err != nil {
			logger.Warn("upload cover image", "error", err)
			coverURL = ""
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:         userID,
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Password:   string(hashed),
		Avatar:     avatarURL,
		CoverImage: coverURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "username or email already exists")
			return
		}
		logger.Error("create user", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	respondData(ctx, w, http.StatusCreated, "user registered successfully", newUserPayload(user))
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	login := strings.ToLower(strings.TrimSpace(req.Username))
	if login == "" {
		login = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if login == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	user, err := h.Users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("login lookup", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to log in")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("issue session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, "user logged in successfully", sessionResponse{
		User:   newUserPayload(user),
		Tokens: newTokensPayload(tokens),
	})
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := middleware.UserIDFromContext(ctx)
	if err := h.Sessions.Invalidate(ctx, userID); err != nil {
		logging.FromContext(ctx).Error("invalidate session", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to log out")
		return
	}

	clearSessionCookies(w)
	respondData(ctx, w, http.StatusOK, "user logged out successfully", nil)
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh token is
// taken from the cookie when present, falling back to the request body.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	token := ""
	if cookie, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}
	if token == "" {
		respondError(ctx, w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Rotate(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrStaleRefreshToken),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrTokenExpired):
			// Never tell the caller whether the token was stale, forged,
			// or expired.
			respondError(ctx, w, http.StatusUnauthorized, "invalid or expired refresh token")
		default:
			logger.Error("rotate refresh token", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to refresh session")
		}
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, "session refreshed successfully", newTokensPayload(tokens))
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := middleware.UserIDFromContext(ctx)
	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logging.FromContext(ctx).Error("load current user", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load user")
		return
	}

	respondData(ctx, w, http.StatusOK, "current user fetched successfully", newUserPayload(user))
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" || email == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullname and email are required")
		return
	}

	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	userID, _ := middleware.UserIDFromContext(ctx)
	user, err := h.Users.UpdateProfile(ctx, userID, fullName, email)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "user not found")
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "email already in use")
		default:
			logging.FromContext(ctx).Error("update account", "error", err, "userId", userID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to update account")
		}
		return
	}

	respondData(ctx, w, http.StatusOK, "account details updated successfully", newUserPayload(user))
}

// UpdateAvatar handles PATCH /api/v1/users/avatar (multipart).
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image (multipart).
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.Users.UpdateCoverImage)
}

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, update func(ctx context.Context, id, url string) (models.User, error)) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart request body")
		return
	}

	file, ok := formFile(r, field)
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, field+" is required")
		return
	}

	userID, _ := middleware.UserIDFromContext(ctx)

	prefix := "avatars"
	if field == "coverImage" {
		prefix = "covers"
	}

	url, err := uploadMedia(ctx, h.Media, mediaKey(prefix, userID, file.Filename), file)
	if err != nil {
		logger.Error("upload image", "field", field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to upload "+field)
		return
	}

	user, err := update(ctx, userID, url)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("persist image url", "field", field, "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update "+field)
		return
	}

	respondData(ctx, w, http.StatusOK, field+" updated successfully", newUserPayload(user))
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "current password and new password are required")
		return
	}

	if err := passwordvalidator.Validate(req.NewPassword, passwordMinEntropyBits); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "new password is too weak")
		return
	}

	userID, _ := middleware.UserIDFromContext(ctx)
	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("load user for password change", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to change password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "invalid current password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash new password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		logger.Error("persist new password", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to change password")
		return
	}

	respondData(ctx, w, http.StatusOK, "password changed successfully", nil)
}

// ChannelProfile handles GET /api/v1/users/c/{username}. The viewer identity
// is optional and only affects the isSubscribed flag.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "channel-profile")
	defer span.End()

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	channel, err := h.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logging.FromContext(ctx).Error("load channel", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load channel")
		return
	}

	subscribers, err := h.Subscriptions.CountSubscribers(ctx, channel.ID)
	if err != nil {
		logging.FromContext(ctx).Error("count subscribers", "error", err, "channelId", channel.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load channel")
		return
	}

	subscribedTo, err := h.Subscriptions.CountSubscriptions(ctx, channel.ID)
	if err != nil {
		logging.FromContext(ctx).Error("count subscriptions", "error", err, "channelId", channel.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load channel")
		return
	}

	var subscribed bool
	if viewerID, ok := middleware.UserIDFromContext(ctx); ok {
		subscribed, err = h.Subscriptions.IsSubscribed(ctx, viewerID, channel.ID)
		if err != nil {
			logging.FromContext(ctx).Error("check subscription", "error", err, "channelId", channel.ID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to load channel")
			return
		}
	}

	respondData(ctx, w, http.StatusOK, "channel profile fetched successfully", channelPayload{
		userPayload:       newUserPayload(channel),
		SubscriberCount:   subscribers,
		SubscribedToCount: subscribedTo,
		IsSubscribed:      subscribed,
	})
}

// Subscribe handles POST /api/v1/users/subscribe.
func (h UserHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	channelID := strings.TrimSpace(req.ChannelID)
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}

	subscriberID, _ := middleware.UserIDFromContext(ctx)
	if subscriberID == channelID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to yourself")
		return
	}

	count, err := h.Subscriptions.Create(ctx, subscriberID, channelID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrSelfSubscription):
			respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to yourself")
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "already subscribed")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "channel not found")
		default:
			logging.FromContext(ctx).Error("create subscription", "error", err, "channelId", channelID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to subscribe")
		}
		return
	}

	respondData(ctx, w, http.StatusCreated, "subscribed successfully", subscriptionResponse{SubscriberCount: count})
}

// Unsubscribe handles POST /api/v1/users/unsubscribe. Removing a missing edge
// is a no-op.
func (h UserHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	channelID := strings.TrimSpace(req.ChannelID)
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}

	subscriberID, _ := middleware.UserIDFromContext(ctx)
	count, err := h.Subscriptions.Delete(ctx, subscriberID, channelID)
	if err != nil {
		logging.FromContext(ctx).Error("delete subscription", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}

	respondData(ctx, w, http.StatusOK, "unsubscribed successfully", subscriptionResponse{SubscriberCount: count})
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updateAccountRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type subscriptionRequest struct {
	ChannelID string `json:"channelId"`
}

type subscriptionResponse struct {
	SubscriberCount int64 `json:"subscriberCount"`
}

type sessionResponse struct {
	User   userPayload   `json:"user"`
	Tokens tokensPayload `json:"tokens"`
}

func setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func mediaKey(prefix, ownerID, filename string) string {
	return fmt.Sprintf("%s/%s%s", prefix, ownerID, strings.ToLower(filepath.Ext(filename)))
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
