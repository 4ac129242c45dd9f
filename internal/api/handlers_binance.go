package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"order-desk/internal/credentials"
	"order-desk/internal/exchange"
	"order-desk/internal/exchange/binance"
	"order-desk/internal/logging"
)

type accountModeRequest struct {
	Account string `json:"account"`
}

// handleAccountMode checks whether a Binance account is portfolio margin
func (s *Server) handleAccountMode(c *gin.Context) {
	var req accountModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	account := strings.TrimSpace(req.Account)
	if account == "" {
		errorResponse(c, http.StatusBadRequest, "Account is required")
		return
	}

	ctx := c.Request.Context()
	cred, err := s.credentialSource(c).Credential(ctx, exchange.Binance, account)
	if err != nil {
		if credentials.IsNotFound(err) {
			errorResponse(c, http.StatusBadRequest, "Credential not found for this exchange and account")
			return
		}
		logging.FromContext(ctx).WithComponent("binance").Error("credential resolve failed", "error", err)
		errorResponse(c, http.StatusBadGateway, err.Error())
		return
	}

	mode := binance.DetectAccountMode(ctx, s.deps.Binance.BinanceClient(cred))
	c.JSON(http.StatusOK, mode)
}
