package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wolf-tap/internal/service"
)

type progressRequest struct {
	TaskID    int64 `json:"taskId"`
	BadgeID   int64 `json:"badgeId"`
	Progress  int   `json:"progress"`
	Increment bool  `json:"increment"`
}

func (r progressRequest) update() service.ProgressUpdate {
	return service.ProgressUpdate{Value: r.Progress, Increment: r.Increment}
}

type taskRequest struct {
	TaskID int64 `json:"taskId" binding:"required,gt=0"`
}

type badgeRequest struct {
	BadgeID  int64 `json:"badgeId" binding:"required,gt=0"`
	Featured *bool `json:"featured"`
}

func (s *Server) handleTasks(c *gin.Context) {
	tasks, err := s.svc.Tasks.ListForUser(c.Request.Context(), userOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleTaskProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TaskID <= 0 {
		badRequest(c, "taskId and progress are required")
		return
	}
	ut, err := s.svc.Tasks.RecordProgress(c.Request.Context(), userOf(c).ID, req.TaskID, req.update())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ut)
}

func (s *Server) handleTaskClaim(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "taskId is required")
		return
	}
	claim, err := s.svc.Tasks.ClaimReward(c.Request.Context(), userOf(c).ID, req.TaskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (s *Server) handleBadges(c *gin.Context) {
	badges, err := s.svc.Badges.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, badges)
}

func (s *Server) handleMyBadges(c *gin.Context) {
	badges, err := s.svc.Badges.ListForUser(c.Request.Context(), userOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, badges)
}

func (s *Server) handleBadgeProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BadgeID <= 0 {
		badRequest(c, "badgeId and progress are required")
		return
	}
	ub, err := s.svc.Badges.UpdateProgress(c.Request.Context(), userOf(c).ID, req.BadgeID, req.update())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ub)
}

func (s *Server) handleBadgeFeature(c *gin.Context) {
	var req badgeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Featured == nil {
		badRequest(c, "badgeId and featured are required")
		return
	}
	ub, err := s.svc.Badges.SetFeatured(c.Request.Context(), userOf(c).ID, req.BadgeID, *req.Featured)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ub)
}

func (s *Server) handleBadgeClaim(c *gin.Context) {
	var req badgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "badgeId is required")
		return
	}
	claim, err := s.svc.Badges.ClaimReward(c.Request.Context(), userOf(c).ID, req.BadgeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

type referralApplyRequest struct {
	Code string `json:"code" binding:"required"`
}

func (s *Server) handleReferralCode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"referralCode": userOf(c).ReferralCode})
}

func (s *Server) handleReferralStats(c *gin.Context) {
	stats, err := s.svc.Referrals.Stats(c.Request.Context(), userOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleReferralApply(c *gin.Context) {
	var req referralApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code is required")
		return
	}
	if err := s.svc.Referrals.ApplyCode(c.Request.Context(), userOf(c).ID, req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true})
}

type socialClaimRequest struct {
	LinkID int64 `json:"linkId" binding:"required,gt=0"`
}

func (s *Server) handleSocial(c *gin.Context) {
	links, err := s.svc.Social.ListForUser(c.Request.Context(), userOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

func (s *Server) handleSocialClaim(c *gin.Context) {
	var req socialClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "linkId is required")
		return
	}
	claim, err := s.svc.Social.Claim(c.Request.Context(), userOf(c).ID, req.LinkID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

type gameRewardRequest struct {
	Game   string `json:"game" binding:"required"`
	Reward int64  `json:"reward"`
}

func (s *Server) handleGames(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Games.Games())
}

func (s *Server) handleGameReward(c *gin.Context) {
	var req gameRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "game and reward are required")
		return
	}
	res, err := s.svc.Games.ReportReward(c.Request.Context(), userOf(c).ID, req.Game, req.Reward)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
