package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iamwavecut/tool"

	"github.com/wormz-app/backend/internal/db"
)

func (c *sqliteClient) UpsertUser(ctx context.Context, userID int64) (*db.User, error) {
	c.mutex.Lock()
	_, err := c.db.ExecContext(ctx, "INSERT OR IGNORE INTO users (id) VALUES (?)", userID)
	c.mutex.Unlock()
	if err != nil {
		return nil, err
	}
	return c.GetUser(ctx, userID)
}

func (c *sqliteClient) GetUser(ctx context.Context, userID int64) (*db.User, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var user db.User
	err := c.db.GetContext(ctx, &user, `
		SELECT id, rating, is_banned, is_admin, created_at
		FROM users
		WHERE id = ?
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// AdjustRating applies delta with a zero floor; the rating never goes
// negative no matter how large the penalty.
func (c *sqliteClient) AdjustRating(ctx context.Context, userID int64, delta int) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, "UPDATE users SET rating = MAX(0, rating + ?) WHERE id = ?", delta, userID)
	return err
}

func (c *sqliteClient) BanUser(ctx context.Context, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, "UPDATE users SET is_banned = 1 WHERE id = ?", userID)
	return err
}

func (c *sqliteClient) GetProfileStats(ctx context.Context, userID int64) (*db.ProfileStats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var stats db.ProfileStats
	err := c.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(DISTINCT c.id) AS channels_count,
			COUNT(DISTINCT CASE WHEN m.status = 'completed' THEN m.id END) AS completed_mutuals,
			COUNT(DISTINCT CASE WHEN m.status = 'active' THEN m.id END) AS active_mutuals
		FROM users u
		LEFT JOIN channels c ON c.owner_id = u.id AND c.is_active = 1
		LEFT JOIN mutuals m ON m.creator_id = u.id
		WHERE u.id = ?
	`, userID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *sqliteClient) UpsertChannel(ctx context.Context, channel *db.Channel) (*db.Channel, error) {
	c.mutex.Lock()
	query := `
		INSERT INTO channels (owner_id, tg_id, username, title, kind, members_count, is_active, created_at)
		VALUES (:owner_id, :tg_id, :username, :title, :kind, :members_count, 1, :created_at)
		ON CONFLICT(tg_id) DO UPDATE SET
			owner_id = excluded.owner_id,
			username = excluded.username,
			title = excluded.title,
			kind = excluded.kind,
			members_count = excluded.members_count,
			is_active = 1
	`
	err := tool.Err(c.db.NamedExecContext(ctx, query, channel))
	c.mutex.Unlock()
	if err != nil {
		return nil, err
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var res db.Channel
	if err := c.db.GetContext(ctx, &res, "SELECT * FROM channels WHERE tg_id = ?", channel.TGID); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *sqliteClient) GetChannel(ctx context.Context, channelID int64) (*db.Channel, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var channel db.Channel
	err := c.db.GetContext(ctx, &channel, "SELECT * FROM channels WHERE id = ?", channelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &channel, nil
}

func (c *sqliteClient) GetOwnedChannel(ctx context.Context, channelID, ownerID int64) (*db.Channel, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var channel db.Channel
	err := c.db.GetContext(ctx, &channel, "SELECT * FROM channels WHERE id = ? AND owner_id = ?", channelID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &channel, nil
}

func (c *sqliteClient) ListChannelsByOwner(ctx context.Context, ownerID int64) ([]db.Channel, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var channels []db.Channel
	err := c.db.SelectContext(ctx, &channels, `
		SELECT * FROM channels
		WHERE owner_id = ? AND is_active = 1
		ORDER BY created_at DESC
	`, ownerID)
	return channels, err
}

func (c *sqliteClient) ListActiveChannels(ctx context.Context) ([]db.Channel, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var channels []db.Channel
	err := c.db.SelectContext(ctx, &channels, "SELECT * FROM channels WHERE is_active = 1")
	return channels, err
}

func (c *sqliteClient) DeactivateChannel(ctx context.Context, channelID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, "UPDATE channels SET is_active = 0 WHERE id = ?", channelID)
	return err
}
