package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleRoot(c *gin.Context) {
	quote := s.cfg.Oracle.Current()
	stats := s.cfg.Earning.Stats()
	snap, _ := s.cfg.Balances.Current(c.Request.Context(), time.Hour)

	priceF, _ := quote.Price.Float64()
	c.JSON(200, gin.H{
		"status":         "online",
		"version":        serviceVersion,
		"name":           serviceName,
		"wallet":         s.cfg.WalletAddress,
		"ethPrice":       priceF,
		"balance":        snap.AmountETH,
		"isEarning":      stats.Running,
		"totalEarned":    fmt.Sprintf("%.2f", stats.TotalEarnedUSD),
		"totalEarnedETH": earnedETH(stats.TotalEarnedUSD, priceF),
		"totalTrades":    stats.TotalTrades,
		"hourlyRate":     fmt.Sprintf("%.2f", stats.HourlyRate()),
		"strategies":     len(s.cfg.Earning.Strategies()),
		"tps":            1000000,
		"features": []string{
			"450 MEV Strategies", "1M TPS", "Real ETH transactions", "Multi-RPC fallback",
		},
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	quote := s.cfg.Oracle.Current()
	stats := s.cfg.Earning.Stats()
	priceF, _ := quote.Price.Float64()

	liveBalance, err := s.cfg.Wallets.TreasuryBalance(ctx)
	if err != nil {
		snap, _ := s.cfg.Balances.Current(ctx, time.Hour)
		c.JSON(500, gin.H{
			"status":        "error",
			"error":         err.Error(),
			"cachedBalance": snap.AmountETH,
			"isEarning":     stats.Running,
			"totalEarned":   fmt.Sprintf("%.2f", stats.TotalEarnedUSD),
		})
		return
	}

	canAct := liveBalance.GreaterThanOrEqual(s.cfg.MinBalance)
	c.JSON(200, gin.H{
		"status":           "online",
		"wallet":           s.cfg.WalletAddress,
		"balance":          liveBalance,
		"balanceUSD":       liveBalance.Mul(quote.Price),
		"ethPrice":         priceF,
		"lastPriceUpdate":  quote.UpdatedAt,
		"rpc":              s.cfg.Wallets.Connected(),
		"canTrade":         canAct,
		"canEarn":          canAct,
		"canWithdraw":      canAct,
		"isEarning":        stats.Running,
		"totalEarned":      fmt.Sprintf("%.2f", stats.TotalEarnedUSD),
		"totalEarnedETH":   earnedETH(stats.TotalEarnedUSD, priceF),
		"totalTrades":      stats.TotalTrades,
		"hourlyRate":       fmt.Sprintf("%.2f", stats.HourlyRate()),
		"strategies":       len(s.cfg.Earning.Strategies()),
		"tps":              1000000,
		"transactionCount": s.cfg.Ledger.Len(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	priceF, _ := s.cfg.Oracle.Current().Price.Float64()
	c.JSON(200, gin.H{
		"healthy":   true,
		"timestamp": time.Now().UnixMilli(),
		"ethPrice":  priceF,
	})
}

func (s *Server) handleBalance(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	quote := s.cfg.Oracle.Current()
	snap, err := s.cfg.Balances.Current(ctx, balanceStaleness)

	body := gin.H{
		"address":     s.cfg.WalletAddress,
		"balanceETH":  snap.AmountETH,
		"balanceUSD":  snap.AmountETH.Mul(quote.Price),
		"ethPrice":    quote.Price,
		"lastUpdated": snap.UpdatedAt,
		"network":     "Mainnet",
		"source":      snap.Source,
	}
	if err != nil {
		// both RPC and explorer are down: serve the last known value,
		// flagged, rather than failing the read
		body["degraded"] = true
		body["error"] = err.Error()
	}
	c.JSON(200, body)
}

func (s *Server) handlePrice(c *gin.Context) {
	quote := s.cfg.Oracle.Current()
	c.JSON(200, gin.H{
		"price":      quote.Price,
		"lastUpdate": quote.UpdatedAt,
		"source":     quote.Source,
	})
}

func earnedETH(earnedUSD, priceUSD float64) string {
	if priceUSD <= 0 {
		return "0.000000"
	}
	return fmt.Sprintf("%.6f", earnedUSD/priceUSD)
}
