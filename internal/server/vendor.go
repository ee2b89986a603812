package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	vendordomain "github.com/smallbiznis/ledgerly/internal/vendors/domain"
)

func (s *Server) ListVendors(c *gin.Context) {
	var req vendordomain.ListVendorRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.vendorSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.Vendors, resp.PageInfo)
}

func (s *Server) CreateVendor(c *gin.Context) {
	var req vendordomain.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	vendor, err := s.vendorSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vendor)
}

func (s *Server) GetVendor(c *gin.Context) {
	vendor, err := s.vendorSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendor)
}

func (s *Server) UpdateVendor(c *gin.Context) {
	var req vendordomain.UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	vendor, err := s.vendorSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendor)
}

func (s *Server) DeleteVendor(c *gin.Context) {
	if err := s.vendorSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
