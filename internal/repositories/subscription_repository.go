package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
)

// ErrSelfSubscription indicates an attempt to subscribe an account to itself.
var ErrSelfSubscription = errors.New("self subscription forbidden")

// SubscriptionRepository defines data access for subscriber-to-channel edges.
// Uniqueness of the (subscriber, channel) pair and the self-subscription ban
// are enforced by the storage layer, not by existence checks.
type SubscriptionRepository interface {
	// Create inserts the edge and returns the channel's new subscriber count.
	Create(ctx context.Context, subscriberID, channelID string) (int64, error)
	// Delete removes the edge if present and returns the updated count.
	// Deleting a missing edge is not an error.
	Delete(ctx context.Context, subscriberID, channelID string) (int64, error)
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID string) (int64, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for
// subscription edges.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository
// backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Create inserts the edge and reads the new subscriber count within one
// transaction so the returned count reflects the insert.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, subscriberID, channelID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
            VALUES ($1, $2, $3)
        `, subscriberID, channelID, time.Now().UTC()); err != nil {
			return err
		}

		return tx.QueryRow(ctx, `
            SELECT count(*) FROM subscriptions WHERE channel_id = $1
        `, channelID).Scan(&count)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return 0, ErrConflict
			case "23503":
				return 0, ErrNotFound
			case "23514":
				return 0, ErrSelfSubscription
			}
		}
		return 0, fmt.Errorf("insert subscription: %w", err)
	}

	return count, nil
}

// Delete removes the edge and returns the channel's updated subscriber count.
func (r *PostgresSubscriptionRepository) Delete(ctx context.Context, subscriberID, channelID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID); err != nil {
		return 0, fmt.Errorf("delete subscription: %w", err)
	}

	var count int64
	if err := conn.QueryRow(ctx, `
        SELECT count(*) FROM subscriptions WHERE channel_id = $1
    `, channelID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}

	return count, nil
}

// CountSubscribers returns the number of inbound edges for a channel.
func (r *PostgresSubscriptionRepository) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM subscriptions WHERE channel_id = $1`, channelID)
}

// CountSubscriptions returns the number of outbound edges for a subscriber.
func (r *PostgresSubscriptionRepository) CountSubscriptions(ctx context.Context, subscriberID string) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM subscriptions WHERE subscriber_id = $1`, subscriberID)
}

// IsSubscribed reports whether the edge exists.
func (r *PostgresSubscriptionRepository) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var subscribed bool
	if err := conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
        )
    `, subscriberID, channelID).Scan(&subscribed); err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}

	return subscribed, nil
}

func (r *PostgresSubscriptionRepository) count(ctx context.Context, query, arg string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	if err := conn.QueryRow(ctx, query, arg).Scan(&count); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}

	return count, nil
}

var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
