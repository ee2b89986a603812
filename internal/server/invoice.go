package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/ledgerly/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/ledgerly/internal/payment/domain"
)

func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoiceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.Invoices, resp.PageInfo)
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (s *Server) GetInvoice(c *gin.Context) {
	detail, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.invoiceSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) SendInvoice(c *gin.Context) {
	// The body is optional; send with no payload uses the customer email.
	var req invoicedomain.SendInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.invoiceSvc.Send(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) VoidInvoice(c *gin.Context) {
	detail, err := s.invoiceSvc.Void(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ApplyPaymentToInvoice records a payment against a single invoice; the
// customer comes from the invoice itself.
func (s *Server) ApplyPaymentToInvoice(c *gin.Context) {
	var req paymentdomain.ApplyToInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.paymentSvc.ApplyToInvoice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}
