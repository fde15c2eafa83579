package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wormz-app/backend/internal/db"
)

func (c *sqliteClient) CreateMutual(ctx context.Context, mutual *db.Mutual) (*db.Mutual, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO mutuals (creator_id, channel_id, exchange_type, required_count, hold_hours, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, mutual.CreatorID, mutual.ChannelID, mutual.ExchangeType, mutual.RequiredCount, mutual.HoldHours,
		db.MutualStatusActive, mutual.CreatedAt, mutual.ExpiresAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	mutual.ID = id
	mutual.Status = db.MutualStatusActive
	return mutual, nil
}

func (c *sqliteClient) GetMutual(ctx context.Context, mutualID int64) (*db.Mutual, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var mutual db.Mutual
	err := c.db.GetContext(ctx, &mutual, "SELECT * FROM mutuals WHERE id = ?", mutualID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &mutual, nil
}

func (c *sqliteClient) ListAvailableMutuals(ctx context.Context, excludeUserID int64, exchangeType string, now time.Time, limit int) ([]db.MutualListing, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	query := `
		SELECT m.id, m.creator_id, m.channel_id, m.exchange_type, m.required_count, m.hold_hours,
		       m.status, m.created_at, m.expires_at,
		       c.title AS channel_title, c.kind AS channel_kind, c.members_count AS members_count,
		       COALESCE(u.rating, 100) AS creator_rating
		FROM mutuals m
		JOIN channels c ON c.id = m.channel_id
		LEFT JOIN users u ON u.id = m.creator_id
		WHERE m.status = 'active'
		  AND m.expires_at > ?
		  AND m.creator_id != ?
		  AND c.is_active = 1
		  AND COALESCE(u.is_banned, 0) = 0
	`
	args := []any{now, excludeUserID}
	if exchangeType != "" {
		query += " AND m.exchange_type = ?"
		args = append(args, exchangeType)
	}
	query += " ORDER BY m.created_at DESC LIMIT ?"
	args = append(args, limit)

	var mutuals []db.MutualListing
	err := c.db.SelectContext(ctx, &mutuals, query, args...)
	return mutuals, err
}

func (c *sqliteClient) ListMutualsByCreator(ctx context.Context, creatorID int64) ([]db.MutualListing, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var mutuals []db.MutualListing
	err := c.db.SelectContext(ctx, &mutuals, `
		SELECT m.id, m.creator_id, m.channel_id, m.exchange_type, m.required_count, m.hold_hours,
		       m.status, m.created_at, m.expires_at,
		       c.title AS channel_title, c.kind AS channel_kind, c.members_count AS members_count,
		       COALESCE(u.rating, 100) AS creator_rating
		FROM mutuals m
		JOIN channels c ON c.id = m.channel_id
		LEFT JOIN users u ON u.id = m.creator_id
		WHERE m.creator_id = ?
		ORDER BY m.created_at DESC
	`, creatorID)
	return mutuals, err
}

func (c *sqliteClient) CompleteMutual(ctx context.Context, mutualID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, "UPDATE mutuals SET status = ? WHERE id = ?", db.MutualStatusCompleted, mutualID)
	return err
}

func (c *sqliteClient) CreateAction(ctx context.Context, mutualID, userID int64, now time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO actions (mutual_id, user_id, status, created_at)
		VALUES (?, ?, 'pending', ?)
		ON CONFLICT (mutual_id, user_id) DO NOTHING
	`, mutualID, userID, now)
	return err
}

func (c *sqliteClient) GetAction(ctx context.Context, mutualID, userID int64) (*db.Action, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var action db.Action
	err := c.db.GetContext(ctx, &action, "SELECT * FROM actions WHERE mutual_id = ? AND user_id = ?", mutualID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

func (c *sqliteClient) SetActionStatus(ctx context.Context, mutualID, userID int64, status string, checkedAt time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		UPDATE actions SET status = ?, checked_at = ?
		WHERE mutual_id = ? AND user_id = ?
	`, status, checkedAt, mutualID, userID)
	return err
}

func (c *sqliteClient) ListUserActions(ctx context.Context, userID int64) ([]db.ActionListing, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var actions []db.ActionListing
	err := c.db.SelectContext(ctx, &actions, `
		SELECT a.id, a.mutual_id, a.user_id, a.status, a.checked_at, a.created_at,
		       m.exchange_type, m.status AS mutual_status, c.title AS channel_title
		FROM actions a
		JOIN mutuals m ON m.id = a.mutual_id
		JOIN channels c ON c.id = m.channel_id
		WHERE a.user_id = ?
		ORDER BY a.created_at DESC
	`, userID)
	return actions, err
}

func (c *sqliteClient) CreateMutualPair(ctx context.Context, mutualID, user1ID, user2ID int64, now time.Time) (*db.MutualPair, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO mutual_pairs (mutual_id, user1_id, user2_id, created_at)
		VALUES (?, ?, ?, ?)
	`, mutualID, user1ID, user2ID, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &db.MutualPair{
		ID:          id,
		MutualID:    mutualID,
		User1ID:     user1ID,
		User2ID:     user2ID,
		User1Status: db.ActionStatusPending,
		User2Status: db.ActionStatusPending,
		CreatedAt:   now,
	}, nil
}

func (c *sqliteClient) GetPairByMutualAndUser(ctx context.Context, mutualID, userID int64) (*db.MutualPair, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var pair db.MutualPair
	err := c.db.GetContext(ctx, &pair, `
		SELECT * FROM mutual_pairs
		WHERE mutual_id = ? AND (user1_id = ? OR user2_id = ?)
	`, mutualID, userID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &pair, nil
}

// MarkPairSideDone promotes the caller's side from pending to done; done
// and failed sides are left untouched.
func (c *sqliteClient) MarkPairSideDone(ctx context.Context, pairID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE mutual_pairs SET user1_status = 'done'
		WHERE id = ? AND user1_id = ? AND user1_status = 'pending'
	`, pairID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = c.db.ExecContext(ctx, `
		UPDATE mutual_pairs SET user2_status = 'done'
		WHERE id = ? AND user2_id = ? AND user2_status = 'pending'
	`, pairID, userID)
	return err
}

// RewardPairIfComplete flips the rewarded flag when both sides are done.
// The flag converts a second credit attempt into a no-op, so two racing
// check calls pay out exactly once.
func (c *sqliteClient) RewardPairIfComplete(ctx context.Context, pairID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE mutual_pairs SET rewarded = 1
		WHERE id = ? AND user1_status = 'done' AND user2_status = 'done' AND rewarded = 0
	`, pairID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DemotePairSide is the one sanctioned done->failed transition, applied by
// the hold-period sweep. The status guard makes a repeat sweep a no-op.
func (c *sqliteClient) DemotePairSide(ctx context.Context, pairID, userID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE mutual_pairs SET user1_status = 'failed'
		WHERE id = ? AND user1_id = ? AND user1_status = 'done'
	`, pairID, userID)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return true, nil
	}
	res, err = c.db.ExecContext(ctx, `
		UPDATE mutual_pairs SET user2_status = 'failed'
		WHERE id = ? AND user2_id = ? AND user2_status = 'done'
	`, pairID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (c *sqliteClient) ListPairsWithDoneSide(ctx context.Context) ([]db.HoldPair, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var pairs []db.HoldPair
	err := c.db.SelectContext(ctx, &pairs, `
		SELECT p.id, p.mutual_id, p.user1_id, p.user2_id, p.user1_status, p.user2_status, p.rewarded, p.created_at,
		       m.hold_hours, m.created_at AS mutual_created_at, m.channel_id
		FROM mutual_pairs p
		JOIN mutuals m ON m.id = p.mutual_id
		WHERE p.user1_status = 'done' OR p.user2_status = 'done'
	`)
	return pairs, err
}

func (c *sqliteClient) HasMatch(ctx context.Context, creatorID, responderID, channelID int64) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM mutuals m
		JOIN actions a ON a.mutual_id = m.id
		WHERE m.creator_id = ? AND a.user_id = ? AND m.channel_id = ?
	`, creatorID, responderID, channelID)
	return count > 0, err
}
