// Package channels manages the channels and group chats users register
// for promotion.
package channels

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wormz-app/backend/internal/db"
	apperrors "github.com/wormz-app/backend/internal/errors"
	"github.com/wormz-app/backend/internal/gateway/telegram"
)

// Gateway is the subset of Telegram operations registration needs.
type Gateway interface {
	ResolveChat(ctx context.Context, chatID int64, username string) (*telegram.ChatInfo, error)
	IsAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	BotIsAdmin(ctx context.Context, chatID int64) (bool, error)
	MembersCount(ctx context.Context, chatID int64) (int, error)
}

type Service struct {
	store   db.Client
	gateway Gateway
}

func NewService(store db.Client, gateway Gateway) *Service {
	return &Service{store: store, gateway: gateway}
}

func (s *Service) getLogEntry() *log.Entry {
	return log.WithField("context", "channels")
}

// Add registers a channel or chat by t.me link, @username or numeric ID.
// The bot must administer the target and the caller must be one of its
// admins.
func (s *Service) Add(ctx context.Context, userID int64, link string) (*db.Channel, error) {
	user, err := s.store.UpsertUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, apperrors.ErrBanned
	}

	chatID, username, err := parseChatRef(link)
	if err != nil {
		return nil, err
	}
	info, err := s.gateway.ResolveChat(ctx, chatID, username)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve %q", apperrors.ErrNotFound, link)
	}

	botAdmin, err := s.gateway.BotIsAdmin(ctx, info.ID)
	if err != nil {
		return nil, err
	}
	if !botAdmin {
		return nil, fmt.Errorf("%w: add the bot as admin first", apperrors.ErrNotOwner)
	}
	userAdmin, err := s.gateway.IsAdmin(ctx, info.ID, userID)
	if err != nil {
		return nil, err
	}
	if !userAdmin {
		return nil, fmt.Errorf("%w: you must be an admin of the chat", apperrors.ErrNotOwner)
	}

	members, err := s.gateway.MembersCount(ctx, info.ID)
	if err != nil {
		s.getLogEntry().WithError(err).WithField("tg_id", info.ID).Warn("cant get members count")
		members = 0
	}

	kind := db.ChannelKindChat
	if info.Type == "channel" {
		kind = db.ChannelKindChannel
	}
	channel := &db.Channel{
		OwnerID:      userID,
		TGID:         info.ID,
		Title:        info.Title,
		Kind:         kind,
		MembersCount: members,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if info.Username != "" {
		channel.Username.String = info.Username
		channel.Username.Valid = true
	}
	saved, err := s.store.UpsertChannel(ctx, channel)
	if err != nil {
		return nil, err
	}
	s.getLogEntry().WithField("channel_id", saved.ID).WithField("tg_id", info.ID).Info("channel registered")
	return saved, nil
}

// List returns the caller's registered channels.
func (s *Service) List(ctx context.Context, userID int64) ([]db.Channel, error) {
	return s.store.ListChannelsByOwner(ctx, userID)
}

// Remove soft-deletes an owned channel. Existing mutuals referencing it
// stop appearing in listings.
func (s *Service) Remove(ctx context.Context, userID, channelID int64) error {
	channel, err := s.store.GetOwnedChannel(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if channel == nil {
		return apperrors.ErrNotFound
	}
	return s.store.DeactivateChannel(ctx, channelID)
}

// parseChatRef extracts a numeric chat ID or a username from user input:
// "https://t.me/name", "t.me/name", "@name" or a raw numeric ID.
func parseChatRef(link string) (int64, string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return 0, "", fmt.Errorf("%w: empty link", apperrors.ErrInvalidInput)
	}
	if id, err := strconv.ParseInt(link, 10, 64); err == nil {
		return id, "", nil
	}
	if strings.HasPrefix(link, "@") {
		name := strings.TrimPrefix(link, "@")
		if name == "" {
			return 0, "", fmt.Errorf("%w: empty username", apperrors.ErrInvalidInput)
		}
		return 0, "@" + name, nil
	}
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(link, prefix) {
			name := strings.TrimPrefix(link, prefix)
			name = strings.SplitN(name, "/", 2)[0]
			name = strings.SplitN(name, "?", 2)[0]
			if name == "" || strings.HasPrefix(name, "+") {
				// Invite links carry no resolvable username.
				return 0, "", fmt.Errorf("%w: private invite links are not supported", apperrors.ErrInvalidInput)
			}
			return 0, "@" + name, nil
		}
	}
	return 0, "", fmt.Errorf("%w: unrecognized link %q", apperrors.ErrInvalidInput, link)
}
