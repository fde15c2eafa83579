// Package scheduler runs the periodic reconciliation sweeps: hold-period
// enforcement, channel liveness and chat expiry.
package scheduler

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wormz-app/backend/internal/config"
	"github.com/wormz-app/backend/internal/db"
	"github.com/wormz-app/backend/internal/infra"
	"github.com/wormz-app/backend/internal/observability"
)

type Gateway interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	BotIsAdmin(ctx context.Context, chatID int64) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, text string)
}

// Scheduler is a lifecycle component driving three independent tickers.
// Every sweep tolerates per-record failures: log and continue, never
// abort the process.
type Scheduler struct {
	store    db.Client
	gateway  Gateway
	notifier Notifier
	ratings  config.Ratings
	schedule config.Schedule

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(store db.Client, gateway Gateway, notifier Notifier, ratings config.Ratings, schedule config.Schedule) *Scheduler {
	return &Scheduler{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		ratings:  ratings,
		schedule: schedule,
	}
}

func (s *Scheduler) getLogEntry() *log.Entry {
	return log.WithField("context", "scheduler")
}

func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loop(runCtx, "hold_check", s.schedule.HoldCheckInterval, s.RunHoldSweep)
	s.loop(runCtx, "channel_check", s.schedule.ChannelCheckInterval, s.RunChannelSweep)
	s.loop(runCtx, "chat_expiry", s.schedule.ChatExpiryInterval, s.RunChatExpirySweep)
	s.getLogEntry().Info("scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, sweep func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		infra.GoRecoverable(1, "scheduler_"+name, func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					observability.RecordSweepRun(name)
					sweep(ctx)
				}
			}
		})
	}()
}

// RunHoldSweep re-verifies every done pair side whose hold window has
// elapsed. A side that left early is demoted, penalized and notified;
// the demotion is a conditional update, so a later run cannot penalize
// the same side twice. Gateway failures and missing channels are
// skipped without penalty.
func (s *Scheduler) RunHoldSweep(ctx context.Context) {
	entry := s.getLogEntry().WithField("sweep", "hold_check")
	pairs, err := s.store.ListPairsWithDoneSide(ctx)
	if err != nil {
		entry.WithError(err).Error("cant list pairs")
		return
	}
	now := time.Now().UTC()
	for i := range pairs {
		pair := &pairs[i]
		holdEnd := pair.MutualCreatedAt.Add(time.Duration(pair.HoldHours) * time.Hour)
		if now.Before(holdEnd) {
			continue
		}
		channel, err := s.store.GetChannel(ctx, pair.ChannelID)
		if err != nil || channel == nil {
			if err != nil {
				entry.WithError(err).WithField("channel_id", pair.ChannelID).Warn("cant load channel")
			}
			continue
		}
		for _, userID := range []int64{pair.User1ID, pair.User2ID} {
			if pair.StatusOf(userID) != db.ActionStatusDone {
				continue
			}
			member, err := s.gateway.IsMember(ctx, channel.TGID, userID)
			if err != nil {
				entry.WithError(err).WithField("user_id", userID).Warn("membership check failed, skipping")
				continue
			}
			if member {
				continue
			}
			demoted, err := s.store.DemotePairSide(ctx, pair.ID, userID)
			if err != nil {
				entry.WithError(err).WithField("pair_id", pair.ID).Error("cant demote pair side")
				continue
			}
			if !demoted {
				continue
			}
			if err := s.store.SetActionStatus(ctx, pair.MutualID, userID, db.ActionStatusFailed, now); err != nil {
				entry.WithError(err).WithField("mutual_id", pair.MutualID).Error("cant fail action")
			}
			if err := s.store.AdjustRating(ctx, userID, -s.ratings.HoldPenalty); err != nil {
				entry.WithError(err).WithField("user_id", userID).Error("cant apply penalty")
				continue
			}
			observability.RecordHoldPenalty()
			if s.notifier != nil {
				s.notifier.Notify(ctx, userID, "You unsubscribed before the hold period ended. Rating -10.")
			}
			entry.WithField("user_id", userID).WithField("pair_id", pair.ID).Info("hold violation penalized")
		}
	}
}

// RunChannelSweep deactivates channels the bot no longer administers.
// An errored status query counts as lapsed: deactivate rather than
// retry.
func (s *Scheduler) RunChannelSweep(ctx context.Context) {
	entry := s.getLogEntry().WithField("sweep", "channel_check")
	channels, err := s.store.ListActiveChannels(ctx)
	if err != nil {
		entry.WithError(err).Error("cant list channels")
		return
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for i := range channels {
		channel := &channels[i]
		group.Go(func() error {
			admin, err := s.gateway.BotIsAdmin(groupCtx, channel.TGID)
			if err != nil {
				entry.WithError(err).WithField("tg_id", channel.TGID).Warn("admin check failed, deactivating")
			}
			if err == nil && admin {
				return nil
			}
			if err := s.store.DeactivateChannel(groupCtx, channel.ID); err != nil {
				entry.WithError(err).WithField("channel_id", channel.ID).Error("cant deactivate channel")
				return nil
			}
			entry.WithField("channel_id", channel.ID).Info("channel deactivated")
			return nil
		})
	}
	_ = group.Wait()
}

// RunChatExpirySweep expires chats past their deadline regardless of
// completion state.
func (s *Scheduler) RunChatExpirySweep(ctx context.Context) {
	entry := s.getLogEntry().WithField("sweep", "chat_expiry")
	n, err := s.store.ExpireChats(ctx, time.Now().UTC())
	if err != nil {
		entry.WithError(err).Error("cant expire chats")
		return
	}
	if n > 0 {
		entry.WithField("expired", n).Info("chats expired")
	}
}
