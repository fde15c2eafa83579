package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/wormz-app/backend/internal/db"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()
	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("NewSQLiteClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seedChannel(t *testing.T, c *sqliteClient, ownerID, tgID int64) *db.Channel {
	t.Helper()
	ctx := context.Background()
	if _, err := c.UpsertUser(ctx, ownerID); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	channel, err := c.UpsertChannel(ctx, &db.Channel{
		OwnerID:   ownerID,
		TGID:      tgID,
		Title:     "test channel",
		Kind:      db.ChannelKindChannel,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}
	return channel
}

func seedMutual(t *testing.T, c *sqliteClient, creatorID, channelID int64, createdAt time.Time) *db.Mutual {
	t.Helper()
	mutual, err := c.CreateMutual(context.Background(), &db.Mutual{
		CreatorID:     creatorID,
		ChannelID:     channelID,
		ExchangeType:  db.ExchangeTypeSubscribe,
		RequiredCount: 1,
		HoldHours:     24,
		CreatedAt:     createdAt,
		ExpiresAt:     createdAt.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateMutual: %v", err)
	}
	return mutual
}

func TestUpsertUserDefaults(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	ctx := context.Background()

	user, err := c.UpsertUser(ctx, 100)
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if user.Rating != 100 {
		t.Errorf("rating = %d, want 100", user.Rating)
	}
	if user.IsBanned {
		t.Error("new user must not be banned")
	}

	again, err := c.UpsertUser(ctx, 100)
	if err != nil {
		t.Fatalf("UpsertUser again: %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("upsert created a second row")
	}
}

func TestAdjustRatingFloor(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	ctx := context.Background()

	if _, err := c.UpsertUser(ctx, 200); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := c.AdjustRating(ctx, 200, -250); err != nil {
		t.Fatalf("AdjustRating: %v", err)
	}
	user, err := c.GetUser(ctx, 200)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Rating != 0 {
		t.Errorf("rating = %d, want 0 (floored)", user.Rating)
	}

	if err := c.AdjustRating(ctx, 200, 5); err != nil {
		t.Fatalf("AdjustRating up: %v", err)
	}
	user, _ = c.GetUser(ctx, 200)
	if user.Rating != 5 {
		t.Errorf("rating = %d, want 5", user.Rating)
	}
}

func TestActionUniquePerMutualAndUser(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	ctx := context.Background()
	now := time.Now().UTC()

	channel := seedChannel(t, c, 1, 1001)
	mutual := seedMutual(t, c, 1, channel.ID, now)
	if _, err := c.UpsertUser(ctx, 2); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	if err := c.CreateAction(ctx, mutual.ID, 2, now); err != nil {
		t.Fatalf("CreateAction: %v", err)
	}
	if err := c.CreateAction(ctx, mutual.ID, 2, now.Add(time.Minute)); err != nil {
		t.Fatalf("CreateAction duplicate: %v", err)
	}
	action, err := c.GetAction(ctx, mutual.ID, 2)
	if err != nil {
		t.Fatalf("GetAction: %v", err)
	}
	if action.CreatedAt.Sub(now) > 30*time.Second {
		t.Error("duplicate insert must not overwrite the original action")
	}
}

func TestRewardPairIfCompleteOnce(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	ctx := context.Background()
	now := time.Now().UTC()

	channel := seedChannel(t, c, 1, 1002)
	mutual := seedMutual(t, c, 1, channel.ID, now)
	if _, err := c.UpsertUser(ctx, 2); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	pair, err := c.CreateMutualPair(ctx, mutual.ID, 1, 2, now)
	if err != nil {
		t.Fatalf("CreateMutualPair: %v", err)
	}

	if got, err := c.RewardPairIfComplete(ctx, pair.ID); err != nil || got {
		t.Fatalf("reward with pending sides = %v, %v; want false, nil", got, err)
	}

	if err := c.MarkPairSideDone(ctx, pair.ID, 1); err != nil {
		t.Fatalf("MarkPairSideDone: %v", err)
	}
	if err := c.MarkPairSideDone(ctx, pair.ID, 2); err != nil {
		t.Fatalf("MarkPairSideDone: %v", err)
	}

	first, err := c.RewardPairIfComplete(ctx, pair.ID)
	if err != nil {
		t.Fatalf("RewardPairIfComplete: %v", err)
	}
	if !first {
		t.Fatal("first reward attempt must win")
	}
	second, err := c.RewardPairIfComplete(ctx, pair.ID)
	if err != nil {
		t.Fatalf("RewardPairIfComplete again: %v", err)
	}
	if second {
		t.Fatal("second reward attempt must be a no-op")
	}
}

func TestDemotePairSideOnce(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	ctx := context.Background()
	now := time.Now().UTC()

	channel := seedChannel(t, c, 1, 1003)
	mutual := seedMutual(t, c, 1, channel.ID, now)
	if _, err := c.UpsertUser(ctx, 2); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	pair, err := c.CreateMutualPair(ctx, mutual.ID, 1, 2, now)
	if err != nil {
		t.Fatalf("CreateMutualPair: %v", err)
	}
	if err := c.MarkPairSideDone(ctx, pair.ID, 2); err != nil {
		t.Fatalf("MarkPairSideDone: %v", err)
	}

	demoted, err := c.DemotePairSide(ctx, pair.ID, 2)
	if err != nil {
		t.Fatalf("DemotePairSide: %v", err)
	}
	if !demoted {
		t.Fatal("first demotion must apply")
	}
	demoted, err = c.DemotePairSide(ctx, pair.ID, 2)
	if err != nil {
		t.Fatalf("DemotePairSide again: %v", err)
	}
	if demoted {
		t.Fatal("second demotion must be a no-op")
	}

	// A pending side cannot be demoted either.
	if demoted, _ := c.DemotePairSide(ctx, pair.ID, 1); demoted {
		t.Fatal("pending side must not be demotable")
	}
}

func TestDeactivateChatPostOnce(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	ctx := context.Background()
	now := time.Now().UTC()

	channel := seedChannel(t, c, 1, 1004)
	post, err := c.CreateChatPost(ctx, &db.ChatPost{
		UserID:    1,
		ChannelID: channel.ID,
		PostType:  db.PostTypeChannel,
		IsActive:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateChatPost: %v", err)
	}

	taken, err := c.DeactivateChatPost(ctx, post.ID, now)
	if err != nil {
		t.Fatalf("DeactivateChatPost: %v", err)
	}
	if !taken {
		t.Fatal("first deactivation must win")
	}
	taken, err = c.DeactivateChatPost(ctx, post.ID, now)
	if err != nil {
		t.Fatalf("DeactivateChatPost again: %v", err)
	}
	if taken {
		t.Fatal("second deactivation must lose")
	}
}

func TestExpireChats(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	ctx := context.Background()
	now := time.Now().UTC()

	channel := seedChannel(t, c, 1, 1005)
	mutual := seedMutual(t, c, 1, channel.ID, now)
	if _, err := c.UpsertUser(ctx, 2); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	stale, err := c.UpsertChat(ctx, 1, 2, mutual.ID, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("UpsertChat: %v", err)
	}

	n, err := c.ExpireChats(ctx, now)
	if err != nil {
		t.Fatalf("ExpireChats: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	chat, err := c.GetChat(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if chat.Status != db.ChatStatusExpired {
		t.Errorf("status = %q, want expired", chat.Status)
	}

	listed, err := c.ListUserChats(ctx, 1, now)
	if err != nil {
		t.Fatalf("ListUserChats: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("expired chat still listed")
	}
}

func TestListAvailableMutualsFilters(t *testing.T) {
	t.Parallel()
	c := newTestClient(t)
	ctx := context.Background()
	now := time.Now().UTC()

	channel := seedChannel(t, c, 1, 1006)
	seedMutual(t, c, 1, channel.ID, now)

	// Own offers are hidden.
	own, err := c.ListAvailableMutuals(ctx, 1, "", now, 50)
	if err != nil {
		t.Fatalf("ListAvailableMutuals: %v", err)
	}
	if len(own) != 0 {
		t.Error("creator must not see own mutual")
	}

	others, err := c.ListAvailableMutuals(ctx, 2, "", now, 50)
	if err != nil {
		t.Fatalf("ListAvailableMutuals: %v", err)
	}
	if len(others) != 1 {
		t.Fatalf("listings = %d, want 1", len(others))
	}
	if others[0].ChannelTitle != "test channel" {
		t.Errorf("channel_title = %q", others[0].ChannelTitle)
	}
	if others[0].CreatorRating != 100 {
		t.Errorf("creator_rating = %d, want 100", others[0].CreatorRating)
	}

	// Banned owners disappear from the feed.
	if err := c.BanUser(ctx, 1); err != nil {
		t.Fatalf("BanUser: %v", err)
	}
	banned, err := c.ListAvailableMutuals(ctx, 2, "", now, 50)
	if err != nil {
		t.Fatalf("ListAvailableMutuals: %v", err)
	}
	if len(banned) != 0 {
		t.Error("banned owner's mutual still listed")
	}
}
