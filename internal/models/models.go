package models

import "time"

// User represents an account on the ClipTube platform. The RefreshToken field
// mirrors the single currently-valid refresh token stored on the account row;
// nil means the account has no active session.
type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Password     string
	Avatar       string
	CoverImage   string
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Video is a metadata record pointing at an externally hosted media file.
// OwnerUsername and OwnerAvatar are populated by queries that join the owner.
type Video struct {
	ID            string
	OwnerID       string
	Title         string
	Description   string
	MediaURL      string
	Thumbnail     string
	Views         int64
	CreatedAt     time.Time
	OwnerUsername string
	OwnerAvatar   string
}

// Comment is attached to exactly one video and ordered newest first.
type Comment struct {
	ID        string
	VideoID   string
	Author    string
	Text      string
	CreatedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
