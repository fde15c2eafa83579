package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wormz-app/backend/internal/db"
)

func (c *sqliteClient) CreateChatPost(ctx context.Context, post *db.ChatPost) (*db.ChatPost, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO chat_posts (user_id, channel_id, post_type, conditions, is_active, created_at, expires_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
	`, post.UserID, post.ChannelID, post.PostType, post.Conditions, post.CreatedAt, post.ExpiresAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	post.ID = id
	post.IsActive = true
	return post, nil
}

func (c *sqliteClient) GetChatPost(ctx context.Context, postID int64) (*db.ChatPost, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var post db.ChatPost
	err := c.db.GetContext(ctx, &post, "SELECT * FROM chat_posts WHERE id = ?", postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

func (c *sqliteClient) ListActivePosts(ctx context.Context, postType string, now time.Time, limit int) ([]db.PostListing, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	query := `
		SELECT p.id, p.user_id, p.channel_id, p.post_type, p.conditions, p.is_active, p.created_at, p.expires_at,
		       c.title AS channel_title, c.members_count AS members_count,
		       COALESCE(u.rating, 100) AS creator_rating
		FROM chat_posts p
		JOIN channels c ON c.id = p.channel_id
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.is_active = 1
		  AND p.expires_at > ?
		  AND c.is_active = 1
		  AND COALESCE(u.is_banned, 0) = 0
	`
	args := []any{now}
	if postType != "" {
		query += " AND p.post_type = ?"
		args = append(args, postType)
	}
	query += " ORDER BY p.created_at DESC LIMIT ?"
	args = append(args, limit)

	var posts []db.PostListing
	err := c.db.SelectContext(ctx, &posts, query, args...)
	return posts, err
}

func (c *sqliteClient) CountPostsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM chat_posts WHERE user_id = ? AND created_at > ?
	`, userID, since)
	return count, err
}

func (c *sqliteClient) LastPostTime(ctx context.Context, userID int64) (*time.Time, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var last time.Time
	err := c.db.GetContext(ctx, &last, `
		SELECT created_at FROM chat_posts WHERE user_id = ? ORDER BY created_at DESC LIMIT 1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &last, nil
}

// DeactivateChatPost hides the post and forces its expiry so it can never
// serve a second responder. Returns false when the post was already taken
// or expired.
func (c *sqliteClient) DeactivateChatPost(ctx context.Context, postID int64, now time.Time) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.deactivatePost(ctx, c.db, postID, now)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (c *sqliteClient) deactivatePost(ctx context.Context, ex execer, postID int64, now time.Time) (bool, error) {
	res, err := ex.ExecContext(ctx, `
		UPDATE chat_posts SET is_active = 0, expires_at = ?
		WHERE id = ? AND is_active = 1 AND expires_at > ?
	`, now, postID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (c *sqliteClient) DeleteChatPost(ctx context.Context, postID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, "DELETE FROM chat_posts WHERE id = ?", postID)
	return err
}

// RespondToPost is the match transaction: take the post, materialize a
// mutual per direction with its pair and a pending action for both
// participants, so each pair can reach completion through checks. The
// post take is guarded, so the first responder wins and later ones get
// sql.ErrNoRows.
func (c *sqliteClient) RespondToPost(ctx context.Context, postID int64, posterMutual, responderMutual *db.Mutual, now time.Time) (*db.Mutual, *db.Mutual, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	taken, err := c.deactivatePost(ctx, tx, postID, now)
	if err != nil {
		return nil, nil, err
	}
	if !taken {
		return nil, nil, sql.ErrNoRows
	}

	insertMutual := func(m *db.Mutual) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO mutuals (creator_id, channel_id, exchange_type, required_count, hold_hours, status, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, 'active', ?, ?)
		`, m.CreatorID, m.ChannelID, m.ExchangeType, m.RequiredCount, m.HoldHours, m.CreatedAt, m.ExpiresAt)
		if err != nil {
			return err
		}
		m.ID, err = res.LastInsertId()
		m.Status = db.MutualStatusActive
		return err
	}
	if err := insertMutual(posterMutual); err != nil {
		return nil, nil, err
	}
	if err := insertMutual(responderMutual); err != nil {
		return nil, nil, err
	}

	pairs := []struct {
		mutualID int64
		user1    int64
		user2    int64
	}{
		{posterMutual.ID, posterMutual.CreatorID, responderMutual.CreatorID},
		{responderMutual.ID, responderMutual.CreatorID, posterMutual.CreatorID},
	}
	for _, p := range pairs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO mutual_pairs (mutual_id, user1_id, user2_id, created_at)
			VALUES (?, ?, ?, ?)
		`, p.mutualID, p.user1, p.user2, now); err != nil {
			return nil, nil, err
		}
		for _, userID := range []int64{p.user1, p.user2} {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO actions (mutual_id, user_id, status, created_at)
				VALUES (?, ?, 'pending', ?)
				ON CONFLICT (mutual_id, user_id) DO NOTHING
			`, p.mutualID, userID, now); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return posterMutual, responderMutual, nil
}
