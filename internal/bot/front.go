// Package bot runs the Telegram long-poll front: the /start entry point
// that hands users the mini-app button.
package bot

import (
	"context"
	"sync"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/wormz-app/backend/internal/db"
	"github.com/wormz-app/backend/internal/infra"
)

type Front struct {
	bot       *api.BotAPI
	store     db.Client
	webAppURL string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFront(botAPI *api.BotAPI, store db.Client, webAppURL string) *Front {
	return &Front{
		bot:       botAPI,
		store:     store,
		webAppURL: webAppURL,
	}
}

func (f *Front) getLogEntry() *log.Entry {
	return log.WithField("context", "bot")
}

func (f *Front) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := f.bot.GetUpdatesChan(updateConfig)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		infra.GoRecoverable(3, "bot_front", func() {
			for {
				select {
				case <-runCtx.Done():
					return
				case update, ok := <-updates:
					if !ok {
						return
					}
					f.processUpdate(runCtx, &update)
				}
			}
		})
	}()
	f.getLogEntry().WithField("bot", f.bot.Self.UserName).Info("long poll started")
	return nil
}

func (f *Front) Stop(ctx context.Context) error {
	f.bot.StopReceivingUpdates()
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
	return nil
}

func (f *Front) processUpdate(ctx context.Context, update *api.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	m := update.Message
	if m.Chat.Type != "private" {
		return
	}
	if _, err := f.store.UpsertUser(ctx, m.From.ID); err != nil {
		f.getLogEntry().WithError(err).WithField("user_id", m.From.ID).Error("cant upsert user")
	}

	if m.IsCommand() && m.Command() == "start" {
		f.sendWelcome(m.Chat.ID)
		return
	}
	msg := api.NewMessage(m.Chat.ID, "Everything happens in the app. Tap the button below.")
	msg.ReplyMarkup = f.appKeyboard()
	if _, err := f.bot.Send(msg); err != nil {
		f.getLogEntry().WithError(err).Error("cant send reply")
	}
}

func (f *Front) sendWelcome(chatID int64) {
	msg := api.NewMessage(chatID, "Welcome to Wormz. Trade subscriptions and reactions with other channel owners, keep your rating up, get promoted.")
	msg.ReplyMarkup = f.appKeyboard()
	if _, err := f.bot.Send(msg); err != nil {
		f.getLogEntry().WithError(err).Error("cant send welcome")
	}
}

func (f *Front) appKeyboard() api.InlineKeyboardMarkup {
	return api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.InlineKeyboardButton{
				Text:   "Open Wormz",
				WebApp: &api.WebAppInfo{URL: f.webAppURL},
			},
		),
	)
}
