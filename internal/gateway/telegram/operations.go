package telegram

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Operations wraps the Bot API calls the exchange logic depends on, so
// services can take a narrow interface instead of the whole client.
type Operations struct {
	bot *api.BotAPI
}

func NewOperations(bot *api.BotAPI) *Operations {
	return &Operations{bot: bot}
}

// IsMember reports whether the user currently belongs to the chat.
func (o *Operations) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			UserID: userID,
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "cant get chat member")
	}
	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	case "restricted":
		return member.IsMember, nil
	}
	return false, nil
}

// IsAdmin reports whether the user can manage the chat.
func (o *Operations) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			UserID: userID,
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "cant get chat member")
	}
	return member.IsCreator() || member.IsAdministrator(), nil
}

// BotIsAdmin reports whether the bot itself administers the chat. The
// bot needs admin rights in a channel to see its member list.
func (o *Operations) BotIsAdmin(ctx context.Context, chatID int64) (bool, error) {
	return o.IsAdmin(ctx, chatID, o.bot.Self.ID)
}

// ChatInfo holds the subset of chat metadata persisted on registration.
type ChatInfo struct {
	ID       int64
	Title    string
	Username string
	IsForum  bool
	Type     string
}

// ResolveChat looks a chat up by numeric ID or public @username.
func (o *Operations) ResolveChat(ctx context.Context, chatID int64, username string) (*ChatInfo, error) {
	cfg := api.ChatInfoConfig{}
	if chatID != 0 {
		cfg.ChatConfig = api.ChatConfig{ChatID: chatID}
	} else {
		cfg.ChatConfig = api.ChatConfig{ChannelUsername: username}
	}
	chat, err := o.bot.GetChat(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "cant get chat")
	}
	return &ChatInfo{
		ID:       chat.ID,
		Title:    chat.Title,
		Username: chat.UserName,
		IsForum:  chat.IsForum,
		Type:     chat.Type,
	}, nil
}

// MembersCount returns the chat's current member count.
func (o *Operations) MembersCount(ctx context.Context, chatID int64) (int, error) {
	count, err := o.bot.GetChatMembersCount(api.ChatMemberCountConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
	})
	if err != nil {
		return 0, errors.Wrap(err, "cant get members count")
	}
	return count, nil
}

// Notify sends a plain-text direct message. Delivery is best effort:
// users who never opened the bot cannot receive DMs and that is fine.
func (o *Operations) Notify(ctx context.Context, userID int64, text string) {
	msg := api.NewMessage(userID, text)
	if _, err := o.bot.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("cant notify user")
	}
}
