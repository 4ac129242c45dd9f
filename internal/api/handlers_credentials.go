package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-desk/internal/auth"
	"order-desk/internal/credentials"
	"order-desk/internal/exchange"
	"order-desk/internal/logging"
)

func (s *Server) handleListCredentials(c *gin.Context) {
	session := auth.GetSession(c)
	list, err := s.deps.Credentials.List(c.Request.Context(), session.Cipher)
	if err != nil {
		logging.FromContext(c.Request.Context()).WithComponent("credentials").Error("list failed", "error", err)
		errorResponse(c, http.StatusInternalServerError, "Failed to list credentials")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleUpsertCredential(c *gin.Context) {
	var in credentials.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	session := auth.GetSession(c)
	summary, err := s.deps.Credentials.Upsert(c.Request.Context(), session.Cipher, in)
	if err != nil {
		if exchange.IsConfiguration(err) {
			errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		logging.FromContext(c.Request.Context()).WithComponent("credentials").Error("save failed", "error", err)
		errorResponse(c, http.StatusInternalServerError, "Failed to save credential")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleDeleteCredential(c *gin.Context) {
	err := s.deps.Credentials.Delete(c.Request.Context(), c.Param("exchange"), c.Param("label"))
	if err != nil {
		if credentials.IsNotFound(err) {
			errorResponse(c, http.StatusNotFound, "Credential not found")
			return
		}
		logging.FromContext(c.Request.Context()).WithComponent("credentials").Error("delete failed", "error", err)
		errorResponse(c, http.StatusInternalServerError, "Failed to delete credential")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
