// Package matching implements the chat-post board: open promotion offers
// that any eligible user can respond to, producing a symmetric pair of
// mutual exchanges.
package matching

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wormz-app/backend/internal/config"
	"github.com/wormz-app/backend/internal/db"
	apperrors "github.com/wormz-app/backend/internal/errors"
	"github.com/wormz-app/backend/internal/observability"
)

const (
	listCap = 50

	defaultHoldHours = 24
)

type Notifier interface {
	Notify(ctx context.Context, userID int64, text string)
}

type Service struct {
	store    db.Client
	notifier Notifier
	ratings  config.Ratings
	limits   config.Limits
}

func NewService(store db.Client, notifier Notifier, ratings config.Ratings, limits config.Limits) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		ratings:  ratings,
		limits:   limits,
	}
}

func (s *Service) getLogEntry() *log.Entry {
	return log.WithField("context", "matching")
}

// PostView is a listing entry with a human-readable age.
type PostView struct {
	db.PostListing
	TimeAgo string
}

// CreatePost publishes a promotion offer. Posting is throttled per user:
// a rolling daily cap and a cooldown between consecutive posts.
func (s *Service) CreatePost(ctx context.Context, userID, channelID int64, postType, conditions string) (*db.ChatPost, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Rating < s.ratings.CreateMin {
		return nil, &apperrors.RatingTooLowError{Required: s.ratings.CreateMin, Actual: user.Rating}
	}
	switch postType {
	case db.PostTypeChannel, db.PostTypeChat, db.PostTypeReaction:
	default:
		return nil, fmt.Errorf("%w: unknown post type %q", apperrors.ErrInvalidInput, postType)
	}

	channel, err := s.store.GetOwnedChannel(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if channel == nil || !channel.IsActive {
		return nil, apperrors.ErrNoChannel
	}

	now := time.Now().UTC()
	count, err := s.store.CountPostsSince(ctx, userID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	if count >= s.limits.DailyPosts {
		return nil, apperrors.ErrDailyLimit
	}
	last, err := s.store.LastPostTime(ctx, userID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		if since := now.Sub(*last); since < s.limits.PostCooldown {
			left := int(math.Ceil((s.limits.PostCooldown - since).Minutes()))
			return nil, &apperrors.CooldownError{MinutesLeft: left}
		}
	}

	post, err := s.store.CreateChatPost(ctx, &db.ChatPost{
		UserID:     userID,
		ChannelID:  channel.ID,
		PostType:   postType,
		Conditions: conditions,
		IsActive:   true,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.limits.PostTTL),
	})
	if err != nil {
		return nil, err
	}
	s.getLogEntry().WithField("post_id", post.ID).WithField("user_id", userID).Info("chat post created")
	return post, nil
}

// ListPosts returns active offers newest first, optionally filtered by type.
func (s *Service) ListPosts(ctx context.Context, userID int64, postType string) ([]PostView, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	listings, err := s.store.ListActivePosts(ctx, postType, now, listCap)
	if err != nil {
		return nil, err
	}
	views := make([]PostView, 0, len(listings))
	for _, l := range listings {
		views = append(views, PostView{PostListing: l, TimeAgo: timeAgo(l.CreatedAt, now)})
	}
	return views, nil
}

// Respond matches the caller against a post. Both sides get a mutual for
// their own channel and a pending action on the opposite one; the post is
// taken atomically, so a concurrent second responder loses.
func (s *Service) Respond(ctx context.Context, userID, postID int64) (*db.Mutual, *db.Mutual, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user.Rating < s.ratings.JoinMin {
		return nil, nil, &apperrors.RatingTooLowError{Required: s.ratings.JoinMin, Actual: user.Rating}
	}

	post, err := s.store.GetChatPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil {
		return nil, nil, apperrors.ErrNotFound
	}
	if post.UserID == userID {
		return nil, nil, apperrors.ErrSelfInteraction
	}
	now := time.Now().UTC()
	// A taken or expired post looks gone to late responders.
	if !post.IsActive || !post.ExpiresAt.After(now) {
		return nil, nil, apperrors.ErrNotFound
	}

	matched, err := s.store.HasMatch(ctx, post.UserID, userID, post.ChannelID)
	if err != nil {
		return nil, nil, err
	}
	if matched {
		return nil, nil, apperrors.ErrAlreadyParticipating
	}

	responderChannel, err := s.activeChannelOf(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	exchangeType := db.ExchangeTypeSubscribe
	if post.PostType == db.PostTypeReaction {
		exchangeType = db.ExchangeTypeReaction
	}
	posterMutual := &db.Mutual{
		CreatorID:     post.UserID,
		ChannelID:     post.ChannelID,
		ExchangeType:  exchangeType,
		RequiredCount: 1,
		HoldHours:     defaultHoldHours,
		Status:        db.MutualStatusActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.limits.MutualTTL),
	}
	responderMutual := &db.Mutual{
		CreatorID:     userID,
		ChannelID:     responderChannel.ID,
		ExchangeType:  exchangeType,
		RequiredCount: 1,
		HoldHours:     defaultHoldHours,
		Status:        db.MutualStatusActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.limits.MutualTTL),
	}

	posterMutual, responderMutual, err = s.store.RespondToPost(ctx, postID, posterMutual, responderMutual, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Someone else took the post first.
			return nil, nil, apperrors.ErrNotFound
		}
		return nil, nil, err
	}
	observability.RecordMatchCreated()

	if s.notifier != nil {
		s.notifier.Notify(ctx, post.UserID, "Someone responded to your post. Open the app to complete the exchange.")
		s.notifier.Notify(ctx, userID, "You are matched. Open the app to complete the exchange.")
	}
	s.getLogEntry().
		WithField("post_id", postID).
		WithField("poster_id", post.UserID).
		WithField("responder_id", userID).
		Info("post matched")
	return posterMutual, responderMutual, nil
}

// DeletePost removes the caller's own post.
func (s *Service) DeletePost(ctx context.Context, userID, postID int64) error {
	post, err := s.store.GetChatPost(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return apperrors.ErrNotFound
	}
	if post.UserID != userID {
		return apperrors.ErrNotOwner
	}
	return s.store.DeleteChatPost(ctx, postID)
}

func (s *Service) requireUser(ctx context.Context, userID int64) (*db.User, error) {
	user, err := s.store.UpsertUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, apperrors.ErrBanned
	}
	return user, nil
}

func (s *Service) activeChannelOf(ctx context.Context, userID int64) (*db.Channel, error) {
	channels, err := s.store.ListChannelsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range channels {
		if channels[i].IsActive {
			return &channels[i], nil
		}
	}
	return nil, apperrors.ErrNoChannel
}

func timeAgo(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
