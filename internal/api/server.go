// Package api exposes the reward economy to the Mini App and the admin
// panel over HTTP.
package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wolf-tap/internal/config"
	"wolf-tap/internal/service"
)

// Services bundles the engines the handlers call into.
type Services struct {
	Accounts    *service.AccountService
	Settings    *service.SettingsService
	Taps        *service.TapService
	Tasks       *service.TaskService
	Badges      *service.BadgeService
	Referrals   *service.ReferralService
	Wallet      *service.WalletService
	Social      *service.SocialService
	Games       *service.GameService
	Leaderboard *service.LeaderboardService
}

// Server holds the HTTP handlers.
type Server struct {
	svc    Services
	auth   *Authenticator
	hub    http.Handler
	health func(context.Context) error
	cfg    config.HTTPConfig
}

// Option customizes a Server.
type Option func(*Server)

// WithHub mounts the leaderboard push channel at /ws.
func WithHub(hub http.Handler) Option {
	return func(s *Server) { s.hub = hub }
}

// WithHealthCheck makes /health report the result of check.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.health = check }
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, svc Services, opts ...Option) *Server {
	s := &Server{
		svc:  svc,
		auth: NewAuthenticator(cfg.Telegram.BotToken, cfg.HTTP.InitDataTTL, cfg.HTTP.DevMode, cfg.HTTP.DevTelegramID),
		cfg:  cfg.HTTP,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func corsConfig(origins []string) cors.Config {
	cc := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	cc.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cc.AllowHeaders = []string{"Origin", "Content-Type", "Accept", HeaderInitData, HeaderAdminAPIKey, HeaderRequestID}
	cc.ExposeHeaders = []string{HeaderRequestID}
	cc.MaxAge = 12 * time.Hour
	return cc
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	if !s.cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(RequestID(), AccessLog(), Recovery())
	r.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.hub != nil {
		r.GET("/ws", gin.WrapH(s.hub))
	}

	api := r.Group("/api")
	api.GET("/coin/settings", s.handleCoinSettings)
	api.GET("/ranks", s.handleRanks)
	api.GET("/leaderboard", s.handleLeaderboard)
	api.GET("/badges", s.handleBadges)
	api.GET("/games", s.handleGames)

	identified := api.Group("", s.auth.Middleware())
	identified.POST("/auth/login", s.handleLogin)

	user := api.Group("", s.auth.Middleware(), s.requireUser())
	user.GET("/auth/me", s.handleMe)
	user.POST("/coin/tap", s.handleTap)
	user.GET("/tasks", s.handleTasks)
	user.POST("/tasks/progress", s.handleTaskProgress)
	user.POST("/tasks/claim", s.handleTaskClaim)
	user.GET("/badges/me", s.handleMyBadges)
	user.POST("/badges/progress", s.handleBadgeProgress)
	user.POST("/badges/feature", s.handleBadgeFeature)
	user.POST("/badges/claim-reward", s.handleBadgeClaim)
	user.GET("/referrals/code", s.handleReferralCode)
	user.GET("/referrals/stats", s.handleReferralStats)
	user.POST("/referrals/apply", s.handleReferralApply)
	user.GET("/wallet/balance", s.handleBalance)
	user.GET("/wallet/transactions", s.handleTransactions)
	user.POST("/wallet/withdraw", s.handleWithdraw)
	user.GET("/leaderboard/rank", s.handleUserRank)
	user.GET("/social", s.handleSocial)
	user.POST("/social/claim", s.handleSocialClaim)
	user.POST("/games/reward", s.handleGameReward)

	admin := api.Group("/admin", AdminKey(s.cfg.AdminAPIKey))
	admin.PUT("/coin/settings", s.handleAdminCoinSettings)
	admin.GET("/tasks", s.handleAdminTasks)
	admin.POST("/tasks", s.handleAdminCreateTask)
	admin.PUT("/tasks/:id", s.handleAdminUpdateTask)
	admin.DELETE("/tasks/:id", s.handleAdminDeactivateTask)
	admin.GET("/badges", s.handleAdminBadges)
	admin.GET("/badges/stats", s.handleAdminBadgeStats)
	admin.POST("/badges", s.handleAdminCreateBadge)
	admin.PUT("/badges/:id", s.handleAdminUpdateBadge)
	admin.DELETE("/badges/:id", s.handleAdminDeactivateBadge)
	admin.GET("/social", s.handleAdminSocial)
	admin.POST("/social", s.handleAdminCreateSocial)
	admin.PUT("/social/:id", s.handleAdminUpdateSocial)
	admin.GET("/withdrawals", s.handleAdminPendingWithdrawals)
	admin.POST("/withdrawals/:id/approve", s.handleAdminApproveWithdrawal)
	admin.POST("/withdrawals/:id/reject", s.handleAdminRejectWithdrawal)
	admin.GET("/reconcile", s.handleAdminReconcile)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireUser resolves the account of the authenticated identity, opening
// it on first contact.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identityOf(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingInitData.Error()})
			return
		}
		u, _, err := s.svc.Accounts.EnsureUser(c.Request.Context(), ident.Profile, ident.StartParam)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(ctxUser, u)
		c.Next()
	}
}
