package api

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/wormz-app/backend/internal/errors"
)

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id", apperrors.ErrInvalidInput)
	}
	return id, nil
}

func (s *Server) handleAuth(c *gin.Context) {
	user, stats, err := s.exchange.Profile(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"user": user, "stats": stats})
}

func (s *Server) handleProfile(c *gin.Context) {
	user, stats, err := s.exchange.Profile(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"user": user, "stats": stats})
}

func (s *Server) handleListChannels(c *gin.Context) {
	list, err := s.channels.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

type addChannelRequest struct {
	Link string `json:"link" binding:"required"`
}

func (s *Server) handleAddChannel(c *gin.Context) {
	var req addChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err.Error()))
		return
	}
	channel, err := s.channels.Add(c.Request.Context(), currentUserID(c), req.Link)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, channel)
}

func (s *Server) handleRemoveChannel(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.channels.Remove(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

type createMutualRequest struct {
	ChannelID     int64  `json:"channel_id" binding:"required"`
	ExchangeType  string `json:"exchange_type" binding:"required"`
	RequiredCount int    `json:"required_count"`
	HoldHours     int    `json:"hold_hours"`
}

func (s *Server) handleCreateMutual(c *gin.Context) {
	var req createMutualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.RequiredCount == 0 {
		req.RequiredCount = 1
	}
	if req.HoldHours == 0 {
		req.HoldHours = 24
	}
	mutual, err := s.exchange.CreateMutual(c.Request.Context(), currentUserID(c), req.ChannelID, req.ExchangeType, req.RequiredCount, req.HoldHours)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, mutual)
}

func (s *Server) handleAvailableMutuals(c *gin.Context) {
	list, err := s.exchange.ListAvailable(c.Request.Context(), currentUserID(c), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

func (s *Server) handleOwnMutuals(c *gin.Context) {
	list, err := s.exchange.ListOwn(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

func (s *Server) handleMyActions(c *gin.Context) {
	list, err := s.exchange.MyActions(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, list)
}

func (s *Server) handleJoinMutual(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	preview, err := s.exchange.PreviewJoin(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"mutual":         preview.Mutual,
		"channel_title":  preview.Channel.Title,
		"channel_tg_id":  preview.Channel.TGID,
		"members_count":  preview.Channel.MembersCount,
		"creator_rating": preview.CreatorRating,
	})
}

func (s *Server) handleCheckMutual(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := s.exchange.Check(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"status":   result.ActionStatus,
		"verified": result.Verified,
		"complete": result.MutualComplete,
	})
}
