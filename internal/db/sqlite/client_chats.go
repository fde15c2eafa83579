package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/wormz-app/backend/internal/db"
)

// UpsertChat reuses an existing session for the same pair and mutual,
// refreshing its status and extending the expiry.
func (c *sqliteClient) UpsertChat(ctx context.Context, user1ID, user2ID, mutualID int64, now, expiresAt time.Time) (*db.Chat, error) {
	c.mutex.Lock()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO chats (user1_id, user2_id, mutual_id, status, created_at, expires_at)
		VALUES (?, ?, ?, 'active', ?, ?)
		ON CONFLICT(user1_id, user2_id, mutual_id) DO UPDATE SET
			status = 'active',
			expires_at = excluded.expires_at
	`, user1ID, user2ID, mutualID, now, expiresAt)
	c.mutex.Unlock()
	if err != nil {
		return nil, err
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var chat db.Chat
	err = c.db.GetContext(ctx, &chat, `
		SELECT * FROM chats WHERE user1_id = ? AND user2_id = ? AND mutual_id = ?
	`, user1ID, user2ID, mutualID)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *sqliteClient) GetChat(ctx context.Context, chatID int64) (*db.Chat, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var chat db.Chat
	err := c.db.GetContext(ctx, &chat, "SELECT * FROM chats WHERE id = ?", chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &chat, nil
}

func (c *sqliteClient) ListUserChats(ctx context.Context, userID int64, now time.Time) ([]db.ChatListing, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var chats []db.ChatListing
	err := c.db.SelectContext(ctx, &chats, `
		SELECT ch.id, ch.user1_id, ch.user2_id, ch.mutual_id, ch.status,
		       ch.user1_completed, ch.user2_completed, ch.rewarded, ch.created_at, ch.expires_at,
		       cn.title AS channel_title
		FROM chats ch
		LEFT JOIN mutuals m ON m.id = ch.mutual_id
		LEFT JOIN channels cn ON cn.id = m.channel_id
		WHERE (ch.user1_id = ? OR ch.user2_id = ?)
		  AND ch.status = 'active'
		  AND ch.expires_at > ?
		ORDER BY ch.created_at DESC
	`, userID, userID, now)
	return chats, err
}

func (c *sqliteClient) MarkChatSideCompleted(ctx context.Context, chatID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE chats SET user1_completed = 1 WHERE id = ? AND user1_id = ?
	`, chatID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = c.db.ExecContext(ctx, `
		UPDATE chats SET user2_completed = 1 WHERE id = ? AND user2_id = ?
	`, chatID, userID)
	return err
}

// CompleteChatIfBoth promotes the chat to completed when both sides have
// confirmed, flipping the rewarded flag in the same statement so the
// completion credit pays out exactly once.
func (c *sqliteClient) CompleteChatIfBoth(ctx context.Context, chatID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE chats SET status = 'completed', rewarded = 1
		WHERE id = ? AND user1_completed = 1 AND user2_completed = 1 AND rewarded = 0 AND status = 'active'
	`, chatID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (c *sqliteClient) ExpireChats(ctx context.Context, now time.Time) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE chats SET status = 'expired' WHERE expires_at <= ? AND status = 'active'
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqliteClient) AddMessage(ctx context.Context, chatID, userID int64, text string, now time.Time) (*db.Message, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO messages (chat_id, user_id, text, created_at) VALUES (?, ?, ?, ?)
	`, chatID, userID, text, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &db.Message{ID: id, ChatID: chatID, UserID: userID, Text: text, CreatedAt: now}, nil
}

func (c *sqliteClient) ListMessages(ctx context.Context, chatID int64, limit int) ([]db.Message, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var messages []db.Message
	err := c.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages WHERE chat_id = ? ORDER BY created_at ASC LIMIT ?
	`, chatID, limit)
	return messages, err
}

func (c *sqliteClient) AddGeneralMessage(ctx context.Context, userID int64, text string, now time.Time) (*db.GeneralMessage, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO general_messages (user_id, text, created_at) VALUES (?, ?, ?)
	`, userID, text, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &db.GeneralMessage{ID: id, UserID: userID, Text: text, CreatedAt: now}, nil
}

// ListGeneralMessages returns the most recent messages in chronological
// order.
func (c *sqliteClient) ListGeneralMessages(ctx context.Context, limit int) ([]db.GeneralMessage, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var messages []db.GeneralMessage
	err := c.db.SelectContext(ctx, &messages, `
		SELECT * FROM (
			SELECT * FROM general_messages ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC
	`, limit)
	return messages, err
}
