// Package exchange implements the mutual-promotion exchange flow: offers,
// joins, verification checks and the reputation credits they pay out.
package exchange

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wormz-app/backend/internal/config"
	"github.com/wormz-app/backend/internal/db"
	apperrors "github.com/wormz-app/backend/internal/errors"
	"github.com/wormz-app/backend/internal/observability"
)

const listCap = 50

// Gateway answers membership questions against Telegram.
type Gateway interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
}

// Notifier delivers best-effort direct messages to users.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string)
}

type Engine struct {
	store    db.Client
	gateway  Gateway
	notifier Notifier
	ratings  config.Ratings
	limits   config.Limits
}

func NewEngine(store db.Client, gateway Gateway, notifier Notifier, ratings config.Ratings, limits config.Limits) *Engine {
	return &Engine{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		ratings:  ratings,
		limits:   limits,
	}
}

func (e *Engine) getLogEntry() *log.Entry {
	return log.WithField("context", "exchange")
}

// JoinPreview is the confirmation payload of the first join step.
type JoinPreview struct {
	Mutual        *db.Mutual
	Channel       *db.Channel
	CreatorRating int
}

// CheckResult reports the outcome of a verification check.
type CheckResult struct {
	ActionStatus string
	// Verified is false for reaction exchanges, which are accepted on
	// trust because the Bot API exposes no per-user reaction query.
	Verified       bool
	MutualComplete bool
}

// CreateMutual publishes a new exchange offer for one of the creator's
// active channels.
func (e *Engine) CreateMutual(ctx context.Context, userID, channelID int64, exchangeType string, requiredCount, holdHours int) (*db.Mutual, error) {
	user, err := e.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Rating < e.ratings.CreateMin {
		return nil, &apperrors.RatingTooLowError{Required: e.ratings.CreateMin, Actual: user.Rating}
	}
	if exchangeType != db.ExchangeTypeSubscribe && exchangeType != db.ExchangeTypeReaction {
		return nil, fmt.Errorf("%w: unknown exchange type %q", apperrors.ErrInvalidInput, exchangeType)
	}
	if requiredCount < 1 || holdHours < 1 {
		return nil, fmt.Errorf("%w: required_count and hold_hours must be positive", apperrors.ErrInvalidInput)
	}

	channel, err := e.store.GetOwnedChannel(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if channel == nil || !channel.IsActive {
		return nil, apperrors.ErrNoChannel
	}

	now := time.Now().UTC()
	mutual, err := e.store.CreateMutual(ctx, &db.Mutual{
		CreatorID:     userID,
		ChannelID:     channel.ID,
		ExchangeType:  exchangeType,
		RequiredCount: requiredCount,
		HoldHours:     holdHours,
		Status:        db.MutualStatusActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(e.limits.MutualTTL),
	})
	if err != nil {
		return nil, err
	}
	observability.RecordMutualCreated()
	e.getLogEntry().WithField("mutual_id", mutual.ID).WithField("user_id", userID).Info("mutual created")
	return mutual, nil
}

// ListAvailable returns offers the caller may join, newest first.
func (e *Engine) ListAvailable(ctx context.Context, userID int64, exchangeType string) ([]db.MutualListing, error) {
	if _, err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.ListAvailableMutuals(ctx, userID, exchangeType, time.Now().UTC(), listCap)
}

// ListOwn returns the caller's own offers, any status.
func (e *Engine) ListOwn(ctx context.Context, userID int64) ([]db.MutualListing, error) {
	return e.store.ListMutualsByCreator(ctx, userID)
}

// PreviewJoin validates that the caller may join the mutual and returns
// the details the client shows before confirmation. It records nothing.
func (e *Engine) PreviewJoin(ctx context.Context, userID, mutualID int64) (*JoinPreview, error) {
	mutual, err := e.validateJoin(ctx, userID, mutualID)
	if err != nil {
		return nil, err
	}
	channel, err := e.store.GetChannel(ctx, mutual.ChannelID)
	if err != nil {
		return nil, err
	}
	if channel == nil || !channel.IsActive {
		return nil, apperrors.ErrInactive
	}
	rating := e.ratings.Initial
	if creator, err := e.store.GetUser(ctx, mutual.CreatorID); err == nil && creator != nil {
		rating = creator.Rating
	}
	return &JoinPreview{Mutual: mutual, Channel: channel, CreatorRating: rating}, nil
}

// ConfirmJoin pairs the caller with the mutual's creator and opens a
// pending action for each side. The creator is notified best-effort.
func (e *Engine) ConfirmJoin(ctx context.Context, userID, mutualID int64) (*db.MutualPair, error) {
	mutual, err := e.validateJoin(ctx, userID, mutualID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pair, err := e.store.CreateMutualPair(ctx, mutualID, mutual.CreatorID, userID, now)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateAction(ctx, mutualID, mutual.CreatorID, now); err != nil {
		return nil, err
	}
	if err := e.store.CreateAction(ctx, mutualID, userID, now); err != nil {
		return nil, err
	}
	observability.RecordMatchCreated()

	if e.notifier != nil {
		e.notifier.Notify(ctx, mutual.CreatorID, "Someone joined your mutual exchange. Open the app to complete your part.")
	}
	e.getLogEntry().WithField("mutual_id", mutualID).WithField("user_id", userID).Info("mutual joined")
	return pair, nil
}

// Check verifies the caller's side of a mutual. Subscribe exchanges are
// verified against live membership; failures are recorded on the action
// without a rating penalty. When both sides are done the pair pays out
// the completion credit exactly once. A finished action is reported
// as-is; repeat checks never rewrite it.
func (e *Engine) Check(ctx context.Context, userID, mutualID int64) (*CheckResult, error) {
	if _, err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	action, err := e.store.GetAction(ctx, mutualID, userID)
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, apperrors.ErrNotParticipant
	}
	if action.Status != db.ActionStatusPending {
		// Done and failed are terminal here; only the hold sweep may
		// demote a done side.
		result := &CheckResult{ActionStatus: action.Status}
		if pair, err := e.store.GetPairByMutualAndUser(ctx, mutualID, userID); err == nil && pair != nil {
			result.MutualComplete = pair.Rewarded
		}
		return result, nil
	}
	mutual, err := e.store.GetMutual(ctx, mutualID)
	if err != nil {
		return nil, err
	}
	if mutual == nil {
		return nil, apperrors.ErrNotFound
	}

	now := time.Now().UTC()
	verified := false
	if mutual.ExchangeType == db.ExchangeTypeSubscribe {
		channel, err := e.store.GetChannel(ctx, mutual.ChannelID)
		if err != nil {
			return nil, err
		}
		if channel == nil {
			return nil, apperrors.ErrNotFound
		}
		member, err := e.gateway.IsMember(ctx, channel.TGID, userID)
		if err != nil {
			// Gateway trouble must not pass as a successful check.
			observability.RecordCheck("error")
			return nil, fmt.Errorf("membership check: %w", err)
		}
		if !member {
			if err := e.store.SetActionStatus(ctx, mutualID, userID, db.ActionStatusFailed, now); err != nil {
				return nil, err
			}
			observability.RecordCheck("failed")
			return nil, apperrors.ErrNotVerified
		}
		verified = true
	}

	if err := e.store.SetActionStatus(ctx, mutualID, userID, db.ActionStatusDone, now); err != nil {
		return nil, err
	}
	observability.RecordCheck("done")

	result := &CheckResult{ActionStatus: db.ActionStatusDone, Verified: verified}
	pair, err := e.store.GetPairByMutualAndUser(ctx, mutualID, userID)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return result, nil
	}
	if err := e.store.MarkPairSideDone(ctx, pair.ID, userID); err != nil {
		return nil, err
	}
	rewarded, err := e.store.RewardPairIfComplete(ctx, pair.ID)
	if err != nil {
		return nil, err
	}
	if rewarded {
		result.MutualComplete = true
		for _, id := range []int64{pair.User1ID, pair.User2ID} {
			if err := e.store.AdjustRating(ctx, id, e.ratings.Reward); err != nil {
				e.getLogEntry().WithError(err).WithField("user_id", id).Error("cant credit rating")
			}
			if e.notifier != nil && id != userID {
				e.notifier.Notify(ctx, id, "Your mutual exchange is complete. Rating +2.")
			}
		}
		if err := e.store.CompleteMutual(ctx, mutualID); err != nil {
			e.getLogEntry().WithError(err).WithField("mutual_id", mutualID).Error("cant complete mutual")
		}
	}
	return result, nil
}

// MyActions lists the caller's open and finished tasks.
func (e *Engine) MyActions(ctx context.Context, userID int64) ([]db.ActionListing, error) {
	return e.store.ListUserActions(ctx, userID)
}

// Profile returns the caller's user row and aggregate stats.
func (e *Engine) Profile(ctx context.Context, userID int64) (*db.User, *db.ProfileStats, error) {
	user, err := e.store.UpsertUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	stats, err := e.store.GetProfileStats(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, stats, nil
}

func (e *Engine) requireUser(ctx context.Context, userID int64) (*db.User, error) {
	user, err := e.store.UpsertUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, apperrors.ErrBanned
	}
	return user, nil
}

func (e *Engine) validateJoin(ctx context.Context, userID, mutualID int64) (*db.Mutual, error) {
	user, err := e.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Rating < e.ratings.JoinMin {
		return nil, &apperrors.RatingTooLowError{Required: e.ratings.JoinMin, Actual: user.Rating}
	}
	mutual, err := e.store.GetMutual(ctx, mutualID)
	if err != nil {
		return nil, err
	}
	if mutual == nil {
		return nil, apperrors.ErrNotFound
	}
	if mutual.CreatorID == userID {
		return nil, apperrors.ErrSelfInteraction
	}
	if mutual.Status != db.MutualStatusActive {
		return nil, apperrors.ErrInactive
	}
	if !mutual.ExpiresAt.After(time.Now().UTC()) {
		return nil, apperrors.ErrExpired
	}
	action, err := e.store.GetAction(ctx, mutualID, userID)
	if err != nil {
		return nil, err
	}
	if action != nil {
		return nil, apperrors.ErrAlreadyParticipating
	}
	return mutual, nil
}
