package server

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/con2/treasuryd/internal/treasury/chain"
	"github.com/con2/treasuryd/pkg/logger"
)

// handleConvert serves /convert and every alias. The engine does all
// validation; this handler only translates its errors to HTTP shapes.
func (s *Server) handleConvert(c *gin.Context) {
	var req chain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid json body"})
		return
	}

	rec, err := s.cfg.Engine.Execute(c.Request.Context(), req)
	if err == nil {
		quote := s.cfg.Oracle.Current()
		c.JSON(200, gin.H{
			"success":     true,
			"txHash":      rec.TxHash,
			"amount":      rec.AmountETH,
			"amountUSD":   rec.AmountUSD,
			"ethPrice":    quote.Price,
			"to":          rec.Destination,
			"gasUsed":     rec.GasUsedETH,
			"blockNumber": rec.BlockNumber,
			"confirmed":   true,
		})
		return
	}

	switch {
	case errors.Is(err, chain.ErrInvalidDestination):
		c.JSON(400, gin.H{"error": "Invalid destination address"})
	case errors.Is(err, chain.ErrInvalidAmount):
		c.JSON(400, gin.H{"error": "Invalid amount or price unavailable"})
	default:
		var insufficient *chain.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			c.JSON(400, gin.H{
				"error":           "Insufficient balance (need amount + gas)",
				"available":       insufficient.Available,
				"requested":       insufficient.Requested,
				"gasEstimate":     insufficient.GasEstimate,
				"totalNeeded":     insufficient.TotalNeeded,
				"maxWithdrawable": insufficient.MaxWithdrawable,
				"ethPrice":        s.cfg.Oracle.Current().Price,
			})
			return
		}
		var submission *chain.SubmissionError
		if errors.As(err, &submission) {
			body := gin.H{
				"error":  submission.Err.Error(),
				"stage":  submission.Stage,
				"detail": err.Error(),
			}
			if rec.ID != 0 {
				body["transactionId"] = rec.ID
			}
			c.JSON(500, body)
			return
		}
		logger.Errorf("convert: %v", err)
		c.JSON(500, gin.H{"error": err.Error()})
	}
}
