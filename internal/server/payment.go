package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/ledgerly/internal/payment/domain"
)

func (s *Server) ListPayments(c *gin.Context) {
	var req paymentdomain.ListPaymentRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.Payments, resp.PageInfo)
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req paymentdomain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.paymentSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (s *Server) GetPayment(c *gin.Context) {
	detail, err := s.paymentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdatePayment(c *gin.Context) {
	var req paymentdomain.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.paymentSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// VoidPayment is the delete verb for payments: applications are removed,
// postings reversed and affected invoices recomputed.
func (s *Server) VoidPayment(c *gin.Context) {
	if err := s.paymentSvc.Void(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
