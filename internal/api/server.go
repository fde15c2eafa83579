// Package api exposes the mini-app HTTP JSON API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/wormz-app/backend/internal/service/channels"
	"github.com/wormz-app/backend/internal/service/chats"
	"github.com/wormz-app/backend/internal/service/exchange"
	"github.com/wormz-app/backend/internal/service/matching"
)

type Server struct {
	httpServer *http.Server

	exchange *exchange.Engine
	matching *matching.Service
	chats    *chats.Service
	channels *channels.Service

	botToken string
}

func NewServer(addr, botToken string, ex *exchange.Engine, mt *matching.Service, ch *chats.Service, cn *channels.Service) *Server {
	s := &Server{
		exchange: ex,
		matching: mt,
		chats:    ch,
		channels: cn,
		botToken: botToken,
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithField("context", "api").WithError(err).Error("http server stopped")
		}
	}()
	log.WithField("context", "api").WithField("addr", s.httpServer.Addr).Info("api listening")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := router.Group("/api", s.authMiddleware())
	{
		authed.POST("/auth", s.handleAuth)
		authed.GET("/profile", s.handleProfile)

		authed.GET("/channels", s.handleListChannels)
		authed.POST("/channels/add", s.handleAddChannel)
		authed.DELETE("/channels/:id", s.handleRemoveChannel)

		authed.POST("/mutuals/create", s.handleCreateMutual)
		authed.GET("/mutuals/available", s.handleAvailableMutuals)
		authed.GET("/mutuals/list", s.handleOwnMutuals)
		authed.GET("/mutuals/actions", s.handleMyActions)
		authed.POST("/mutuals/:id/join", s.handleJoinMutual)
		authed.POST("/mutuals/:id/check", s.handleCheckMutual)

		authed.POST("/chat/post", s.handleCreatePost)
		authed.GET("/chat/posts", s.handleListPosts)
		authed.POST("/chat/:id/respond", s.handleRespondPost)
		authed.DELETE("/chat/:id", s.handleDeletePost)

		authed.GET("/chats", s.handleListChats)
		authed.POST("/chats/start", s.handleStartChat)
		authed.GET("/chats/:id/messages", s.handleListMessages)
		authed.POST("/chats/:id/messages", s.handleSendMessage)
		authed.POST("/chats/:id/complete", s.handleCompleteChat)

		authed.GET("/general-chat", s.handleGeneralMessages)
		authed.POST("/general-chat", s.handleSendGeneralMessage)
	}
}
