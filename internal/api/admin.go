package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wolf-tap/internal/model"
)

type coinSettingsRequest struct {
	ImageURL  string `json:"imageUrl"`
	CoinValue int64  `json:"coinValue"`
}

func (s *Server) handleAdminCoinSettings(c *gin.Context) {
	var req coinSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	settings, err := s.svc.Settings.Update(c.Request.Context(), req.ImageURL, req.CoinValue)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// isActive defaults to true when a definition omits it.
func isActive(v *bool) bool {
	return v == nil || *v
}

type taskInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        model.TaskType `json:"type"`
	Icon        string         `json:"icon"`
	IconColor   string         `json:"iconColor"`
	Target      int            `json:"target"`
	Reward      int64          `json:"reward"`
	IsActive    *bool          `json:"isActive"`
}

func (in taskInput) task(id int64) *model.Task {
	return &model.Task{
		ID: id, Title: in.Title, Description: in.Description, Type: in.Type,
		Icon: in.Icon, IconColor: in.IconColor, Target: in.Target, Reward: in.Reward,
		IsActive: isActive(in.IsActive),
	}
}

func (s *Server) handleAdminTasks(c *gin.Context) {
	tasks, err := s.svc.Tasks.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleAdminCreateTask(c *gin.Context) {
	var in taskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	t, err := s.svc.Tasks.Create(c.Request.Context(), in.task(0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) handleAdminUpdateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in taskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	t, err := s.svc.Tasks.Update(c.Request.Context(), in.task(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleAdminDeactivateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := s.svc.Tasks.Deactivate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type badgeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
	IconColor   string `json:"iconColor"`
	Requirement int    `json:"requirement"`
	Rarity      string `json:"rarity"`
	XPReward    int64  `json:"xpReward"`
	CoinReward  int64  `json:"coinReward"`
	IsActive    *bool  `json:"isActive"`
}

func (in badgeInput) badge(id int64) *model.Badge {
	return &model.Badge{
		ID: id, Name: in.Name, Description: in.Description, Category: in.Category,
		Icon: in.Icon, IconColor: in.IconColor, Requirement: in.Requirement, Rarity: in.Rarity,
		XPReward: in.XPReward, CoinReward: in.CoinReward, IsActive: isActive(in.IsActive),
	}
}

func (s *Server) handleAdminBadges(c *gin.Context) {
	badges, err := s.svc.Badges.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, badges)
}

func (s *Server) handleAdminBadgeStats(c *gin.Context) {
	stats, err := s.svc.Badges.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleAdminCreateBadge(c *gin.Context) {
	var in badgeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	b, err := s.svc.Badges.Create(c.Request.Context(), in.badge(0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (s *Server) handleAdminUpdateBadge(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in badgeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	b, err := s.svc.Badges.Update(c.Request.Context(), in.badge(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleAdminDeactivateBadge(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := s.svc.Badges.Deactivate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type socialInput struct {
	Platform string `json:"platform"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
	Reward   int64  `json:"reward"`
	IsActive *bool  `json:"isActive"`
}

func (in socialInput) link(id int64) *model.SocialLink {
	return &model.SocialLink{
		ID: id, Platform: in.Platform, Name: in.Name, URL: in.URL, Icon: in.Icon,
		Reward: in.Reward, IsActive: isActive(in.IsActive),
	}
}

func (s *Server) handleAdminSocial(c *gin.Context) {
	links, err := s.svc.Social.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

func (s *Server) handleAdminCreateSocial(c *gin.Context) {
	var in socialInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	l, err := s.svc.Social.Create(c.Request.Context(), in.link(0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (s *Server) handleAdminUpdateSocial(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in socialInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	l, err := s.svc.Social.Update(c.Request.Context(), in.link(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) handleAdminPendingWithdrawals(c *gin.Context) {
	entries, err := s.svc.Wallet.PendingWithdrawals(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleAdminApproveWithdrawal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := s.svc.Wallet.ApproveWithdrawal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleAdminRejectWithdrawal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := s.svc.Wallet.RejectWithdrawal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleAdminReconcile(c *gin.Context) {
	checked, drift, err := s.svc.Wallet.ReconcileAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checked": checked, "mismatches": drift})
}
