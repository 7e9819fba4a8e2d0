package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/con2/treasuryd/internal/treasury/earning"
)

func (s *Server) handleStart(c *gin.Context) {
	err := s.cfg.Earning.Start(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(200, gin.H{
			"success":    true,
			"message":    "Earning started",
			"strategies": len(s.cfg.Earning.Strategies()),
			"tps":        1000000,
		})
	case errors.Is(err, earning.ErrAlreadyRunning):
		c.JSON(200, gin.H{"success": false, "message": "Already earning"})
	default:
		var below *earning.BelowMinimumError
		if errors.As(err, &below) {
			c.JSON(200, gin.H{
				"success": false,
				"message": fmt.Sprintf("Need %s ETH minimum to start", below.Minimum),
				"balance": below.Balance,
			})
			return
		}
		c.JSON(500, gin.H{"success": false, "message": err.Error()})
	}
}

func (s *Server) handleStop(c *gin.Context) {
	stats, err := s.cfg.Earning.Stop()
	if errors.Is(err, earning.ErrNotRunning) {
		c.JSON(200, gin.H{"success": false, "message": "Not earning"})
		return
	}
	c.JSON(200, gin.H{
		"success":     true,
		"totalEarned": stats.TotalEarnedUSD,
		"totalTrades": stats.TotalTrades,
	})
}

func (s *Server) handleEarnings(c *gin.Context) {
	stats := s.cfg.Earning.Stats()
	quote := s.cfg.Oracle.Current()
	priceF, _ := quote.Price.Float64()

	c.JSON(200, gin.H{
		"isEarning":      stats.Running,
		"totalEarned":    fmt.Sprintf("%.2f", stats.TotalEarnedUSD),
		"totalEarnedETH": earnedETH(stats.TotalEarnedUSD, priceF),
		"totalTrades":    stats.TotalTrades,
		"hourlyRate":     fmt.Sprintf("%.2f", stats.HourlyRate()),
		"strategies":     len(s.cfg.Earning.Strategies()),
		"tps":            1000000,
		"runtime":        fmt.Sprintf("%.0fs", stats.Runtime().Seconds()),
		"ethPrice":       priceF,
	})
}

func (s *Server) handleStrategies(c *gin.Context) {
	all := s.cfg.Earning.Strategies()
	shown := all
	if len(shown) > 20 {
		shown = shown[:20]
	}
	c.JSON(200, gin.H{"count": len(all), "strategies": shown})
}
