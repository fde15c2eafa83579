package db

import (
	"database/sql"
	"time"
)

const (
	ExchangeTypeSubscribe = "subscribe"
	ExchangeTypeReaction  = "reaction"

	MutualStatusActive    = "active"
	MutualStatusCompleted = "completed"
	MutualStatusCancelled = "cancelled"

	ActionStatusPending = "pending"
	ActionStatusDone    = "done"
	ActionStatusFailed  = "failed"

	PostTypeChannel  = "channel"
	PostTypeChat     = "chat"
	PostTypeReaction = "reaction"

	ChatStatusActive    = "active"
	ChatStatusCompleted = "completed"
	ChatStatusExpired   = "expired"

	ChannelKindChannel = "channel"
	ChannelKindChat    = "chat"
)

type (
	User struct {
		ID        int64     `db:"id"`
		Rating    int       `db:"rating"`
		IsBanned  bool      `db:"is_banned"`
		IsAdmin   bool      `db:"is_admin"`
		CreatedAt time.Time `db:"created_at"`
	}

	Channel struct {
		ID           int64          `db:"id"`
		OwnerID      int64          `db:"owner_id"`
		TGID         int64          `db:"tg_id"`
		Username     sql.NullString `db:"username"`
		Title        string         `db:"title"`
		Kind         string         `db:"kind"`
		MembersCount int            `db:"members_count"`
		IsActive     bool           `db:"is_active"`
		CreatedAt    time.Time      `db:"created_at"`
	}

	// Mutual is one side's standing offer to exchange a subscribe or
	// reaction action.
	Mutual struct {
		ID            int64     `db:"id"`
		CreatorID     int64     `db:"creator_id"`
		ChannelID     int64     `db:"channel_id"`
		ExchangeType  string    `db:"exchange_type"`
		RequiredCount int       `db:"required_count"`
		HoldHours     int       `db:"hold_hours"`
		Status        string    `db:"status"`
		CreatedAt     time.Time `db:"created_at"`
		ExpiresAt     time.Time `db:"expires_at"`
	}

	// Action is one participant's task-and-verification record within a
	// mutual. Unique per (mutual, user).
	Action struct {
		ID        int64        `db:"id"`
		MutualID  int64        `db:"mutual_id"`
		UserID    int64        `db:"user_id"`
		Status    string       `db:"status"`
		CheckedAt sql.NullTime `db:"checked_at"`
		CreatedAt time.Time    `db:"created_at"`
	}

	// MutualPair binds two users to one mutual once matched. Each side's
	// status is tracked independently; rewarded flips once, when the
	// completion credit has been paid out.
	MutualPair struct {
		ID          int64     `db:"id"`
		MutualID    int64     `db:"mutual_id"`
		User1ID     int64     `db:"user1_id"`
		User2ID     int64     `db:"user2_id"`
		User1Status string    `db:"user1_status"`
		User2Status string    `db:"user2_status"`
		Rewarded    bool      `db:"rewarded"`
		CreatedAt   time.Time `db:"created_at"`
	}

	ChatPost struct {
		ID         int64     `db:"id"`
		UserID     int64     `db:"user_id"`
		ChannelID  int64     `db:"channel_id"`
		PostType   string    `db:"post_type"`
		Conditions string    `db:"conditions"`
		IsActive   bool      `db:"is_active"`
		CreatedAt  time.Time `db:"created_at"`
		ExpiresAt  time.Time `db:"expires_at"`
	}

	Chat struct {
		ID             int64         `db:"id"`
		User1ID        int64         `db:"user1_id"`
		User2ID        int64         `db:"user2_id"`
		MutualID       sql.NullInt64 `db:"mutual_id"`
		Status         string        `db:"status"`
		User1Completed bool          `db:"user1_completed"`
		User2Completed bool          `db:"user2_completed"`
		Rewarded       bool          `db:"rewarded"`
		CreatedAt      time.Time     `db:"created_at"`
		ExpiresAt      time.Time     `db:"expires_at"`
	}

	Message struct {
		ID        int64     `db:"id"`
		ChatID    int64     `db:"chat_id"`
		UserID    int64     `db:"user_id"`
		Text      string    `db:"text"`
		CreatedAt time.Time `db:"created_at"`
	}

	GeneralMessage struct {
		ID        int64     `db:"id"`
		UserID    int64     `db:"user_id"`
		Text      string    `db:"text"`
		CreatedAt time.Time `db:"created_at"`
	}

	// MutualListing is a mutual enriched for browsing.
	MutualListing struct {
		Mutual
		ChannelTitle  string `db:"channel_title"`
		ChannelKind   string `db:"channel_kind"`
		MembersCount  int    `db:"members_count"`
		CreatorRating int    `db:"creator_rating"`
	}

	// PostListing is a chat post enriched for browsing.
	PostListing struct {
		ChatPost
		ChannelTitle  string `db:"channel_title"`
		MembersCount  int    `db:"members_count"`
		CreatorRating int    `db:"creator_rating"`
	}

	// ActionListing is a user's action joined with its mutual and channel.
	ActionListing struct {
		Action
		ExchangeType string `db:"exchange_type"`
		MutualStatus string `db:"mutual_status"`
		ChannelTitle string `db:"channel_title"`
	}

	// HoldPair carries the pair plus the mutual fields the hold-period
	// sweep needs.
	HoldPair struct {
		MutualPair
		HoldHours       int       `db:"hold_hours"`
		MutualCreatedAt time.Time `db:"mutual_created_at"`
		ChannelID       int64     `db:"channel_id"`
	}

	// ChatListing is a chat joined with the channel of its mutual, if any.
	ChatListing struct {
		Chat
		ChannelTitle sql.NullString `db:"channel_title"`
	}

	ProfileStats struct {
		ChannelsCount    int `db:"channels_count"`
		CompletedMutuals int `db:"completed_mutuals"`
		ActiveMutuals    int `db:"active_mutuals"`
	}
)

// Has reports whether userID is one of the pair's sides.
func (p *MutualPair) Has(userID int64) bool {
	return p.User1ID == userID || p.User2ID == userID
}

// StatusOf returns the side status for userID; empty when not a side.
func (p *MutualPair) StatusOf(userID int64) string {
	switch userID {
	case p.User1ID:
		return p.User1Status
	case p.User2ID:
		return p.User2Status
	}
	return ""
}

// Other returns the opposite side of userID.
func (p *MutualPair) Other(userID int64) int64 {
	if p.User1ID == userID {
		return p.User2ID
	}
	return p.User1ID
}

// Has reports whether userID participates in the chat.
func (c *Chat) Has(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}
