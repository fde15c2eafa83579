package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wormz-app/backend/internal/errors"
)

type createPostRequest struct {
	ChannelID  int64  `json:"channel_id" binding:"required"`
	PostType   string `json:"post_type" binding:"required"`
	Conditions string `json:"conditions"`
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err.Error()))
		return
	}
	post, err := s.matching.CreatePost(c.Request.Context(), currentUserID(c), req.ChannelID, req.PostType, req.Conditions)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, post)
}

func (s *Server) handleListPosts(c *gin.Context) {
	list, err := s.matching.ListPosts(c.Request.Context(), currentUserID(c), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

func (s *Server) handleRespondPost(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	posterMutual, responderMutual, err := s.matching.Respond(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"poster_mutual":    posterMutual,
		"responder_mutual": responderMutual,
	})
}

func (s *Server) handleDeletePost(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.matching.DeletePost(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func (s *Server) handleListChats(c *gin.Context) {
	list, err := s.chats.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

type startChatRequest struct {
	MutualID int64 `json:"mutual_id" binding:"required"`
}

func (s *Server) handleStartChat(c *gin.Context) {
	var req startChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err.Error()))
		return
	}
	chat, err := s.chats.Start(c.Request.Context(), currentUserID(c), req.MutualID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, chat)
}

func (s *Server) handleListMessages(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	messages, err := s.chats.Messages(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messages)
}

type sendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleSendMessage(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err.Error()))
		return
	}
	msg, err := s.chats.Send(c.Request.Context(), currentUserID(c), id, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, msg)
}

func (s *Server) handleCompleteChat(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	chat, err := s.chats.Complete(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, chat)
}

func (s *Server) handleGeneralMessages(c *gin.Context) {
	messages, err := s.chats.GeneralMessages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messages)
}

func (s *Server) handleSendGeneralMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err.Error()))
		return
	}
	msg, err := s.chats.SendGeneral(c.Request.Context(), currentUserID(c), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, msg)
}
