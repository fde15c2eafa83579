package matching

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wormz-app/backend/internal/config"
	"github.com/wormz-app/backend/internal/db"
	"github.com/wormz-app/backend/internal/db/sqlite"
	apperrors "github.com/wormz-app/backend/internal/errors"
)

type fakeNotifier struct {
	mu    sync.Mutex
	sent  int
	users []int64
}

func (n *fakeNotifier) Notify(ctx context.Context, userID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	n.users = append(n.users, userID)
}

func newTestService(t *testing.T) (*Service, db.Client, *fakeNotifier) {
	t.Helper()
	store, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	notifier := &fakeNotifier{}
	ratings := config.Ratings{Initial: 100, JoinMin: 60, CreateMin: 80, Reward: 2, HoldPenalty: 10}
	limits := config.Limits{DailyPosts: 3, PostCooldown: time.Hour, PostTTL: 24 * time.Hour, MutualTTL: 24 * time.Hour, ChatTTL: 24 * time.Hour}
	return NewService(store, notifier, ratings, limits), store, notifier
}

func seedChannel(t *testing.T, store db.Client, ownerID, tgID int64) *db.Channel {
	t.Helper()
	ctx := context.Background()
	_, err := store.UpsertUser(ctx, ownerID)
	require.NoError(t, err)
	channel, err := store.UpsertChannel(ctx, &db.Channel{
		OwnerID:   ownerID,
		TGID:      tgID,
		Title:     "channel",
		Kind:      db.ChannelKindChannel,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return channel
}

func seedPostAt(t *testing.T, store db.Client, userID, channelID int64, createdAt time.Time) *db.ChatPost {
	t.Helper()
	post, err := store.CreateChatPost(context.Background(), &db.ChatPost{
		UserID:    userID,
		ChannelID: channelID,
		PostType:  db.PostTypeChannel,
		IsActive:  true,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return post
}

func TestCreatePostCooldown(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, store, 1, 3001)

	seedPostAt(t, store, 1, channel.ID, time.Now().UTC().Add(-30*time.Minute))

	_, err := svc.CreatePost(ctx, 1, channel.ID, db.PostTypeChannel, "")
	var cooldownErr *apperrors.CooldownError
	require.ErrorAs(t, err, &cooldownErr)
	require.Equal(t, 30, cooldownErr.MinutesLeft)
}

func TestCreatePostAfterCooldown(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, store, 1, 3002)

	seedPostAt(t, store, 1, channel.ID, time.Now().UTC().Add(-61*time.Minute))

	post, err := svc.CreatePost(ctx, 1, channel.ID, db.PostTypeChannel, "repost for repost")
	require.NoError(t, err)
	require.True(t, post.IsActive)
}

func TestCreatePostDailyLimit(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, store, 1, 3003)

	now := time.Now().UTC()
	for _, age := range []time.Duration{20 * time.Hour, 10 * time.Hour, 2 * time.Hour} {
		seedPostAt(t, store, 1, channel.ID, now.Add(-age))
	}

	_, err := svc.CreatePost(ctx, 1, channel.ID, db.PostTypeChannel, "")
	require.ErrorIs(t, err, apperrors.ErrDailyLimit)
}

func TestRespondCreatesSymmetricMutuals(t *testing.T) {
	t.Parallel()
	svc, store, notifier := newTestService(t)
	ctx := context.Background()
	posterChannel := seedChannel(t, store, 1, 3004)
	responderChannel := seedChannel(t, store, 2, 3005)

	post, err := svc.CreatePost(ctx, 1, posterChannel.ID, db.PostTypeChannel, "sub for sub")
	require.NoError(t, err)

	posterMutual, responderMutual, err := svc.Respond(ctx, 2, post.ID)
	require.NoError(t, err)
	require.Equal(t, posterChannel.ID, posterMutual.ChannelID)
	require.Equal(t, responderChannel.ID, responderMutual.ChannelID)
	require.Equal(t, db.ExchangeTypeSubscribe, posterMutual.ExchangeType)

	// Both sides of each mutual get a pending action, the same shape a
	// confirmed join produces, so both pairs can complete and pay out.
	for _, mutualID := range []int64{posterMutual.ID, responderMutual.ID} {
		for _, userID := range []int64{1, 2} {
			action, err := store.GetAction(ctx, mutualID, userID)
			require.NoError(t, err)
			require.NotNil(t, action)
			require.Equal(t, db.ActionStatusPending, action.Status)
		}
	}

	taken, err := store.GetChatPost(ctx, post.ID)
	require.NoError(t, err)
	require.False(t, taken.IsActive)

	require.Equal(t, 2, notifier.sent)
}

func TestRespondSecondResponderLoses(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	posterChannel := seedChannel(t, store, 1, 3006)
	seedChannel(t, store, 2, 3007)
	seedChannel(t, store, 3, 3008)

	post, err := svc.CreatePost(ctx, 1, posterChannel.ID, db.PostTypeChannel, "")
	require.NoError(t, err)

	_, _, err = svc.Respond(ctx, 2, post.ID)
	require.NoError(t, err)

	_, _, err = svc.Respond(ctx, 3, post.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRespondSelfRejected(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, store, 1, 3009)
	post, err := svc.CreatePost(ctx, 1, channel.ID, db.PostTypeChannel, "")
	require.NoError(t, err)

	_, _, err = svc.Respond(ctx, 1, post.ID)
	require.ErrorIs(t, err, apperrors.ErrSelfInteraction)
}

func TestRespondWithoutChannelRejected(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, store, 1, 3010)
	post, err := svc.CreatePost(ctx, 1, channel.ID, db.PostTypeChannel, "")
	require.NoError(t, err)

	_, err = store.UpsertUser(ctx, 2)
	require.NoError(t, err)
	_, _, err = svc.Respond(ctx, 2, post.ID)
	require.ErrorIs(t, err, apperrors.ErrNoChannel)
}

func TestDeletePostOwnerOnly(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	channel := seedChannel(t, store, 1, 3011)
	post, err := svc.CreatePost(ctx, 1, channel.ID, db.PostTypeChannel, "")
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeletePost(ctx, 2, post.ID), apperrors.ErrNotOwner)
	require.NoError(t, svc.DeletePost(ctx, 1, post.ID))

	gone, err := store.GetChatPost(ctx, post.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestTimeAgoBuckets(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		age  time.Duration
		want string
	}{
		{15 * time.Second, "15s ago"},
		{59 * time.Second, "59s ago"},
		{5 * time.Minute, "5m ago"},
		{59*time.Minute + 30*time.Second, "59m ago"},
		{3 * time.Hour, "3h ago"},
		{26 * time.Hour, "1d ago"},
		{75 * time.Hour, "3d ago"},
	}
	for _, tc := range cases {
		if got := timeAgo(now.Add(-tc.age), now); got != tc.want {
			t.Errorf("timeAgo(-%v) = %q, want %q", tc.age, got, tc.want)
		}
	}
}
