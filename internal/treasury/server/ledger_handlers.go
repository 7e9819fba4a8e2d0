package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const recentTransactions = 50

func (s *Server) handleTransactions(c *gin.Context) {
	c.JSON(200, gin.H{
		"count": s.cfg.Ledger.Len(),
		"data":  s.cfg.Ledger.Recent(recentTransactions),
	})
}

func (s *Server) handleTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(404, gin.H{"error": "Transaction not found"})
		return
	}
	rec, ok := s.cfg.Ledger.Get(id)
	if !ok {
		c.JSON(404, gin.H{"error": "Transaction not found"})
		return
	}
	c.JSON(200, rec)
}
