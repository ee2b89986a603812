package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/ledgerly/internal/auth/domain"
)

func (s *Server) Register(c *gin.Context) {
	var req authdomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.authSvc.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Me(c *gin.Context) {
	user, err := s.authSvc.Me(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
