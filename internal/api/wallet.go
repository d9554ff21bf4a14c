package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type withdrawRequest struct {
	Amount  int64  `json:"amount"`
	Address string `json:"address"`
}

func (s *Server) handleBalance(c *gin.Context) {
	bal, err := s.svc.Wallet.Balance(c.Request.Context(), userOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

func (s *Server) handleTransactions(c *gin.Context) {
	entries, err := s.svc.Wallet.History(c.Request.Context(), userOf(c).ID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleWithdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	entry, err := s.svc.Wallet.RequestWithdrawal(c.Request.Context(), userOf(c).ID, req.Amount, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	entries, err := s.svc.Leaderboard.Top(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleUserRank(c *gin.Context) {
	rank, err := s.svc.Leaderboard.UserRank(c.Request.Context(), userOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rank)
}
