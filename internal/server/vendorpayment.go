package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	vendorpaymentdomain "github.com/smallbiznis/ledgerly/internal/vendorpayment/domain"
)

func (s *Server) ListVendorPayments(c *gin.Context) {
	var req vendorpaymentdomain.ListVendorPaymentRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.vendorPaymentSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.VendorPayments, resp.PageInfo)
}

func (s *Server) CreateVendorPayment(c *gin.Context) {
	var req vendorpaymentdomain.CreateVendorPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.vendorPaymentSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (s *Server) GetVendorPayment(c *gin.Context) {
	detail, err := s.vendorPaymentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdateVendorPayment(c *gin.Context) {
	var req vendorpaymentdomain.UpdateVendorPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.vendorPaymentSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) VoidVendorPayment(c *gin.Context) {
	if err := s.vendorPaymentSvc.Void(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
