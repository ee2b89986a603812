package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	taxdomain "github.com/smallbiznis/ledgerly/internal/tax/domain"
)

func (s *Server) ListTaxRates(c *gin.Context) {
	var req taxdomain.ListTaxRateRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.taxSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.TaxRates, resp.PageInfo)
}

func (s *Server) CreateTaxRate(c *gin.Context) {
	var req taxdomain.CreateTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	rate, err := s.taxSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rate)
}

func (s *Server) GetTaxRate(c *gin.Context) {
	rate, err := s.taxSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}

func (s *Server) UpdateTaxRate(c *gin.Context) {
	var req taxdomain.UpdateTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	rate, err := s.taxSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}

func (s *Server) DeleteTaxRate(c *gin.Context) {
	if err := s.taxSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
