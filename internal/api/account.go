package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wolf-tap/internal/progression"
	"wolf-tap/internal/service"
)

type loginRequest struct {
	ReferralCode string `json:"referralCode"`
}

type loginResponse struct {
	Created bool             `json:"created"`
	Profile *service.Profile `json:"profile"`
}

func (s *Server) handleLogin(c *gin.Context) {
	ident, _ := identityOf(c)

	var req loginRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	code := req.ReferralCode
	if code == "" {
		code = ident.StartParam
	}

	ctx := c.Request.Context()
	u, created, err := s.svc.Accounts.EnsureUser(ctx, ident.Profile, code)
	if err != nil {
		respondError(c, err)
		return
	}
	profile, err := s.svc.Accounts.GetProfile(ctx, u.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, loginResponse{Created: created, Profile: profile})
}

func (s *Server) handleMe(c *gin.Context) {
	profile, err := s.svc.Accounts.GetProfile(c.Request.Context(), userOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleTap(c *gin.Context) {
	res, err := s.svc.Taps.Tap(c.Request.Context(), userOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleCoinSettings(c *gin.Context) {
	settings, err := s.svc.Settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type rankView struct {
	Level      int    `json:"level"`
	Name       string `json:"name"`
	XPRequired int64  `json:"xpRequired"`
	Reward     int64  `json:"levelUpReward"`
}

func (s *Server) handleRanks(c *gin.Context) {
	ranks := progression.All()
	out := make([]rankView, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, rankView{Level: r.Level, Name: r.Name, XPRequired: r.XPRequired, Reward: r.Reward})
	}
	c.JSON(http.StatusOK, out)
}

// queryLimit reads a positive ?limit=, returning 0 when absent or invalid
// so the service applies its default.
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
