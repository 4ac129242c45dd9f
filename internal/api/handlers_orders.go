package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"order-desk/internal/credentials"
	"order-desk/internal/exchange"
	"order-desk/internal/logging"
	"order-desk/internal/orders"
)

// handleQueryOrders returns the merged open orders of one account
func (s *Server) handleQueryOrders(c *gin.Context) {
	var req orders.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	agg := orders.NewAggregator(s.credentialSource(c), s.deps.Adapters, s.deps.AdapterTimeout, s.deps.Metrics)
	resp, err := agg.Query(c.Request.Context(), req)
	if err != nil {
		s.orderError(c, err)
		return
	}
	s.logOrderJSON(c, "orders query response", resp)
	c.JSON(http.StatusOK, resp)
}

// handleCancelOrders cancels a batch and reports one result per order
func (s *Server) handleCancelOrders(c *gin.Context) {
	var req orders.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	canceller := orders.NewCanceller(s.credentialSource(c), s.deps.Adapters, s.deps.Cancel, s.deps.Metrics)
	resp, err := canceller.Cancel(c.Request.Context(), req)
	if err != nil {
		s.orderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleLookupOrder fetches one order by id or client id
func (s *Server) handleLookupOrder(c *gin.Context) {
	var req orders.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	agg := orders.NewAggregator(s.credentialSource(c), s.deps.Adapters, s.deps.AdapterTimeout, s.deps.Metrics)
	resp, err := agg.Lookup(c.Request.Context(), req)
	if err != nil {
		s.orderError(c, err)
		return
	}
	s.logOrderJSON(c, "order lookup response", resp)
	c.JSON(http.StatusOK, resp)
}

// orderError maps request-level failures. Configuration problems and
// missing credentials are the caller's to fix.
func (s *Server) orderError(c *gin.Context, err error) {
	switch {
	case exchange.IsConfiguration(err):
		errorResponse(c, http.StatusBadRequest, err.Error())
	case credentials.IsNotFound(err):
		errorResponse(c, http.StatusBadRequest, "Credential not found for this exchange and account")
	case errors.Is(err, credentials.ErrDecrypt):
		errorResponse(c, http.StatusBadRequest, "Stored credential cannot be decrypted with this session")
	default:
		logging.FromContext(c.Request.Context()).WithComponent("orders").Error("order request failed", "error", err)
		errorResponse(c, http.StatusInternalServerError, "Internal error")
	}
}

func (s *Server) logOrderJSON(c *gin.Context, msg string, v interface{}) {
	if !s.config.LogOrderJSON {
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		return
	}
	logging.FromContext(c.Request.Context()).WithComponent("orders").Debug(msg, "body", string(body))
}
