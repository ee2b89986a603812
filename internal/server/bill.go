package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	billdomain "github.com/smallbiznis/ledgerly/internal/bill/domain"
	vendorpaymentdomain "github.com/smallbiznis/ledgerly/internal/vendorpayment/domain"
)

func (s *Server) ListBills(c *gin.Context) {
	var req billdomain.ListBillRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.billSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.Bills, resp.PageInfo)
}

func (s *Server) CreateBill(c *gin.Context) {
	var req billdomain.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.billSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (s *Server) GetBill(c *gin.Context) {
	detail, err := s.billSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdateBill(c *gin.Context) {
	var req billdomain.UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.billSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) DeleteBill(c *gin.Context) {
	if err := s.billSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PayBill settles a single bill with a new vendor payment.
func (s *Server) PayBill(c *gin.Context) {
	var req vendorpaymentdomain.PayBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.vendorPaymentSvc.PayBill(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) VoidBill(c *gin.Context) {
	detail, err := s.billSvc.Void(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
