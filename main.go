package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	httpapi "github.com/wormz-app/backend/internal/api"
	"github.com/wormz-app/backend/internal/bot"
	"github.com/wormz-app/backend/internal/config"
	"github.com/wormz-app/backend/internal/db/sqlite"
	"github.com/wormz-app/backend/internal/gateway/telegram"
	"github.com/wormz-app/backend/internal/infra"
	"github.com/wormz-app/backend/internal/lifecycle"
	"github.com/wormz-app/backend/internal/observability"
	"github.com/wormz-app/backend/internal/scheduler"
	"github.com/wormz-app/backend/internal/service/channels"
	"github.com/wormz-app/backend/internal/service/chats"
	"github.com/wormz-app/backend/internal/service/exchange"
	"github.com/wormz-app/backend/internal/service/matching"
)

func main() {
	cfg := config.Get()
	log.SetFormatter(&config.WzFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	infra.GoRecoverable(-1, "main", func() {
		if err := observability.Init(ctx, cfg.MetricsAddr); err != nil {
			log.WithError(err).Errorln("cant initialize observability")
		}

		botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		if log.Level(cfg.LogLevel) == log.TraceLevel {
			botAPI.Debug = true
		}

		store, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), cfg.DBFile)
		if err != nil {
			log.WithError(err).Fatalln("cant open database")
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Errorln("cant close database")
			}
		}()

		gateway := telegram.NewOperations(botAPI)
		engine := exchange.NewEngine(store, gateway, gateway, cfg.Ratings, cfg.Limits)
		matchSvc := matching.NewService(store, gateway, cfg.Ratings, cfg.Limits)
		chatSvc := chats.NewService(store, engine, gateway, cfg.Ratings, cfg.Limits)
		channelSvc := channels.NewService(store, gateway)

		runtime := lifecycle.NewRuntime(
			httpapi.NewServer(cfg.ListenAddr, cfg.TelegramAPIToken, engine, matchSvc, chatSvc, channelSvc),
			scheduler.New(store, gateway, gateway, cfg.Ratings, cfg.Schedule),
			bot.NewFront(botAPI, store, cfg.WebAppURL),
		)
		if err := runtime.Start(ctx); err != nil {
			log.WithError(err).Fatalln("cant start runtime")
		}

		<-ctx.Done()
		log.Infoln("shutting down")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Errorln("shutdown finished with errors")
		}
	})
}
