package db

import (
	"context"
	"time"
)

// Client is the persistence surface of the exchange engine. Implementations
// must make the conditional-update methods (MarkPairSideDone,
// RewardPairIfComplete, DemotePairSide, CompleteChatIfBoth,
// DeactivateChatPost) atomic: two concurrent callers observe exactly one
// winner.
type Client interface {
	Close() error

	// Users
	UpsertUser(ctx context.Context, userID int64) (*User, error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	AdjustRating(ctx context.Context, userID int64, delta int) error
	BanUser(ctx context.Context, userID int64) error
	GetProfileStats(ctx context.Context, userID int64) (*ProfileStats, error)

	// Channels
	UpsertChannel(ctx context.Context, channel *Channel) (*Channel, error)
	GetChannel(ctx context.Context, channelID int64) (*Channel, error)
	GetOwnedChannel(ctx context.Context, channelID, ownerID int64) (*Channel, error)
	ListChannelsByOwner(ctx context.Context, ownerID int64) ([]Channel, error)
	ListActiveChannels(ctx context.Context) ([]Channel, error)
	DeactivateChannel(ctx context.Context, channelID int64) error

	// Mutuals
	CreateMutual(ctx context.Context, mutual *Mutual) (*Mutual, error)
	GetMutual(ctx context.Context, mutualID int64) (*Mutual, error)
	ListAvailableMutuals(ctx context.Context, excludeUserID int64, exchangeType string, now time.Time, limit int) ([]MutualListing, error)
	ListMutualsByCreator(ctx context.Context, creatorID int64) ([]MutualListing, error)
	CompleteMutual(ctx context.Context, mutualID int64) error

	// Actions
	CreateAction(ctx context.Context, mutualID, userID int64, now time.Time) error
	GetAction(ctx context.Context, mutualID, userID int64) (*Action, error)
	SetActionStatus(ctx context.Context, mutualID, userID int64, status string, checkedAt time.Time) error
	ListUserActions(ctx context.Context, userID int64) ([]ActionListing, error)

	// Pairs
	CreateMutualPair(ctx context.Context, mutualID, user1ID, user2ID int64, now time.Time) (*MutualPair, error)
	GetPairByMutualAndUser(ctx context.Context, mutualID, userID int64) (*MutualPair, error)
	MarkPairSideDone(ctx context.Context, pairID, userID int64) error
	RewardPairIfComplete(ctx context.Context, pairID int64) (bool, error)
	DemotePairSide(ctx context.Context, pairID, userID int64) (bool, error)
	ListPairsWithDoneSide(ctx context.Context) ([]HoldPair, error)
	HasMatch(ctx context.Context, creatorID, responderID, channelID int64) (bool, error)

	// Chat posts
	CreateChatPost(ctx context.Context, post *ChatPost) (*ChatPost, error)
	GetChatPost(ctx context.Context, postID int64) (*ChatPost, error)
	ListActivePosts(ctx context.Context, postType string, now time.Time, limit int) ([]PostListing, error)
	CountPostsSince(ctx context.Context, userID int64, since time.Time) (int, error)
	LastPostTime(ctx context.Context, userID int64) (*time.Time, error)
	DeactivateChatPost(ctx context.Context, postID int64, now time.Time) (bool, error)
	DeleteChatPost(ctx context.Context, postID int64) error
	RespondToPost(ctx context.Context, postID int64, posterMutual, responderMutual *Mutual, now time.Time) (*Mutual, *Mutual, error)

	// Chats
	UpsertChat(ctx context.Context, user1ID, user2ID, mutualID int64, now, expiresAt time.Time) (*Chat, error)
	GetChat(ctx context.Context, chatID int64) (*Chat, error)
	ListUserChats(ctx context.Context, userID int64, now time.Time) ([]ChatListing, error)
	MarkChatSideCompleted(ctx context.Context, chatID, userID int64) error
	CompleteChatIfBoth(ctx context.Context, chatID int64) (bool, error)
	ExpireChats(ctx context.Context, now time.Time) (int64, error)

	// Messages
	AddMessage(ctx context.Context, chatID, userID int64, text string, now time.Time) (*Message, error)
	ListMessages(ctx context.Context, chatID int64, limit int) ([]Message, error)
	AddGeneralMessage(ctx context.Context, userID int64, text string, now time.Time) (*GeneralMessage, error)
	ListGeneralMessages(ctx context.Context, limit int) ([]GeneralMessage, error)
}
