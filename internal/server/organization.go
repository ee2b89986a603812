package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
)

func (s *Server) GetOrganization(c *gin.Context) {
	org, err := s.orgSvc.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}

func (s *Server) UpdateOrganization(c *gin.Context) {
	var req orgdomain.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	org, err := s.orgSvc.Update(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, org)
}
