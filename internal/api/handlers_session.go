package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"order-desk/internal/auth"
	"order-desk/internal/logging"
)

type loginRequest struct {
	MasterKey string `json:"master_key"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.deps.Sessions.Login(c.Request.Context(), req.MasterKey)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidMasterKey) {
			errorResponse(c, http.StatusBadRequest, auth.ErrInvalidMasterKey.Message)
			return
		}
		logging.FromContext(c.Request.Context()).WithComponent("auth").Error("login failed", "error", err)
		errorResponse(c, http.StatusInternalServerError, "Login failed")
		return
	}

	s.setSessionCookie(c, result.Token, int(result.ExpiresIn))
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleLogout(c *gin.Context) {
	ctx := c.Request.Context()
	if token := auth.TokenFromRequest(c, s.config.CookieName); token != "" {
		if session, err := s.deps.Sessions.Authenticate(ctx, token); err == nil {
			if err := s.deps.Sessions.Logout(ctx, session.ID); err != nil {
				logging.FromContext(ctx).WithComponent("auth").Warn("logout failed", "error", err)
			}
		}
	}
	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleSession(c *gin.Context) {
	loggedIn := false
	if token := auth.TokenFromRequest(c, s.config.CookieName); token != "" {
		_, err := s.deps.Sessions.Authenticate(c.Request.Context(), token)
		loggedIn = err == nil
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": loggedIn})
}

func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	path := s.config.BasePath
	if path == "" {
		path = "/"
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.config.CookieName, value, maxAge, path, "", s.config.CookieSecure, true)
}
