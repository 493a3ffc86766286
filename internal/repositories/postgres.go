package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

const userColumns = `id, username, email, full_name, password_hash, avatar, cover_image, refresh_token, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for accounts.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new account record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, password_hash, avatar, cover_image, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Password, user.Avatar, user.CoverImage, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches an account by its identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findWhere(ctx, `id = $1`, id)
}

// FindByUsername fetches an account by its unique username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findWhere(ctx, `username = $1`, username)
}

// FindByLogin fetches an account by username or email address.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, login string) (models.User, error) {
	return r.findWhere(ctx, `username = $1 OR email = $1`, login)
}

func (r *PostgresUserRepository) findWhere(ctx context.Context, predicate string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+predicate, arg)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// UpdateProfile modifies the mutable profile fields and returns the updated
// record.
func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id, fullName, email string) (models.User, error) {
	return r.updateReturning(ctx, `
        UPDATE users
        SET full_name = $2, email = $3, updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns, id, fullName, email)
}

// UpdateAvatar replaces the avatar reference and returns the updated record.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, url string) (models.User, error) {
	return r.updateReturning(ctx, `
        UPDATE users
        SET avatar = $2, updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns, id, url)
}

// UpdateCoverImage replaces the cover image reference and returns the updated
// record.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, url string) (models.User, error) {
	return r.updateReturning(ctx, `
        UPDATE users
        SET cover_image = $2, updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns, id, url)
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = now()
        WHERE id = $1
    `, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresUserRepository) updateReturning(ctx context.Context, query string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.Password,
		&user.Avatar, &user.CoverImage, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video metadata record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, media_url, thumbnail, views, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.MediaURL, video.Thumbnail, video.Views, video.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// List returns videos newest first joined with their owning account.
func (r *PostgresVideoRepository) List(ctx context.Context) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.media_url, v.thumbnail, v.views, v.created_at,
               u.username, u.avatar
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        ORDER BY v.created_at DESC
        LIMIT 100
    `)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var video models.Video
		if err := rows.Scan(
			&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.MediaURL,
			&video.Thumbnail, &video.Views, &video.CreatedAt, &video.OwnerUsername, &video.OwnerAvatar,
		); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

// FindByID fetches a single video joined with its owning account.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.media_url, v.thumbnail, v.views, v.created_at,
               u.username, u.avatar
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, id)

	var video models.Video
	if err := row.Scan(
		&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.MediaURL,
		&video.Thumbnail, &video.Views, &video.CreatedAt, &video.OwnerUsername, &video.OwnerAvatar,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// IncrementViews bumps the counter with a single conditional UPDATE so
// concurrent bumps never lose updates.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos
        SET views = views + 1
        WHERE id = $1
        RETURNING views
    `, id)

	var views int64
	if err := row.Scan(&views); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment views: %w", err)
	}

	return views, nil
}

// PostgresCommentRepository provides PostgreSQL-backed persistence for
// comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by
// PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create stores a new comment attached to a video.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, author, body, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, comment.ID, comment.VideoID, comment.Author, comment.Text, comment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// ListForVideo returns the comments for a video, newest first.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, video_id, author, body, created_at
        FROM comments
        WHERE video_id = $1
        ORDER BY created_at DESC
        LIMIT 200
    `, videoID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.VideoID, &comment.Author, &comment.Text, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ CommentRepository = (*PostgresCommentRepository)(nil)
