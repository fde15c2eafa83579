// Package chats implements direct-chat sessions between matched users,
// plus the shared general chat.
package chats

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wormz-app/backend/internal/config"
	"github.com/wormz-app/backend/internal/db"
	apperrors "github.com/wormz-app/backend/internal/errors"
)

const (
	messageLimit        = 200
	generalMessageLimit = 100
	maxMessageLen       = 4096
)

// Pairer performs the join side effects when a chat session starts.
type Pairer interface {
	ConfirmJoin(ctx context.Context, userID, mutualID int64) (*db.MutualPair, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, text string)
}

type Service struct {
	store    db.Client
	pairer   Pairer
	notifier Notifier
	ratings  config.Ratings
	limits   config.Limits
}

func NewService(store db.Client, pairer Pairer, notifier Notifier, ratings config.Ratings, limits config.Limits) *Service {
	return &Service{
		store:    store,
		pairer:   pairer,
		notifier: notifier,
		ratings:  ratings,
		limits:   limits,
	}
}

func (s *Service) getLogEntry() *log.Entry {
	return log.WithField("context", "chats")
}

// Start confirms a join and opens (or refreshes) the chat session between
// the joiner and the mutual's creator. A repeat start for an already
// confirmed join reuses the existing pair and refreshes the session.
func (s *Service) Start(ctx context.Context, userID, mutualID int64) (*db.Chat, error) {
	pair, err := s.pairer.ConfirmJoin(ctx, userID, mutualID)
	if errors.Is(err, apperrors.ErrAlreadyParticipating) {
		pair, err = s.store.GetPairByMutualAndUser(ctx, mutualID, userID)
		if err == nil && pair == nil {
			return nil, apperrors.ErrAlreadyParticipating
		}
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	chat, err := s.store.UpsertChat(ctx, pair.User1ID, pair.User2ID, mutualID, now, now.Add(s.limits.ChatTTL))
	if err != nil {
		return nil, err
	}
	s.getLogEntry().WithField("chat_id", chat.ID).WithField("mutual_id", mutualID).Info("chat started")
	return chat, nil
}

// List returns the caller's active, unexpired chats.
func (s *Service) List(ctx context.Context, userID int64) ([]db.ChatListing, error) {
	return s.store.ListUserChats(ctx, userID, time.Now().UTC())
}

// Messages returns the chat history; participants only.
func (s *Service) Messages(ctx context.Context, userID, chatID int64) ([]db.Message, error) {
	if _, err := s.requireParticipant(ctx, userID, chatID, false); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, chatID, messageLimit)
}

// Send appends a message; the chat must still be active and unexpired.
func (s *Service) Send(ctx context.Context, userID, chatID int64, text string) (*db.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxMessageLen {
		return nil, apperrors.ErrInvalidInput
	}
	chat, err := s.requireParticipant(ctx, userID, chatID, true)
	if err != nil {
		return nil, err
	}
	msg, err := s.store.AddMessage(ctx, chatID, userID, text, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		other := chat.User1ID
		if other == userID {
			other = chat.User2ID
		}
		s.notifier.Notify(ctx, other, "New message in your exchange chat.")
	}
	return msg, nil
}

// Complete marks the caller's side finished. When both sides have
// confirmed, the chat completes and each participant is credited once.
func (s *Service) Complete(ctx context.Context, userID, chatID int64) (*db.Chat, error) {
	chat, err := s.requireParticipant(ctx, userID, chatID, true)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkChatSideCompleted(ctx, chatID, userID); err != nil {
		return nil, err
	}
	completed, err := s.store.CompleteChatIfBoth(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if completed {
		for _, id := range []int64{chat.User1ID, chat.User2ID} {
			if err := s.store.AdjustRating(ctx, id, s.ratings.Reward); err != nil {
				s.getLogEntry().WithError(err).WithField("user_id", id).Error("cant credit rating")
			}
			if s.notifier != nil && id != userID {
				s.notifier.Notify(ctx, id, "Exchange chat completed. Rating +2.")
			}
		}
		s.getLogEntry().WithField("chat_id", chatID).Info("chat completed")
	}
	return s.store.GetChat(ctx, chatID)
}

// GeneralMessages returns the latest general-chat messages in order.
func (s *Service) GeneralMessages(ctx context.Context) ([]db.GeneralMessage, error) {
	return s.store.ListGeneralMessages(ctx, generalMessageLimit)
}

// SendGeneral appends a message to the shared general chat.
func (s *Service) SendGeneral(ctx context.Context, userID int64, text string) (*db.GeneralMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxMessageLen {
		return nil, apperrors.ErrInvalidInput
	}
	user, err := s.store.UpsertUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, apperrors.ErrBanned
	}
	return s.store.AddGeneralMessage(ctx, userID, text, time.Now().UTC())
}

func (s *Service) requireParticipant(ctx context.Context, userID, chatID int64, mustBeActive bool) (*db.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, apperrors.ErrNotFound
	}
	if !chat.Has(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	if mustBeActive {
		if chat.Status != db.ChatStatusActive {
			return nil, apperrors.ErrInactive
		}
		if !chat.ExpiresAt.After(time.Now().UTC()) {
			return nil, apperrors.ErrExpired
		}
	}
	return chat, nil
}
