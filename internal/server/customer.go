package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
)

func (s *Server) ListCustomers(c *gin.Context) {
	var req customerdomain.ListCustomerRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.Customers, resp.PageInfo)
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req customerdomain.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	customer, err := s.customerSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (s *Server) GetCustomer(c *gin.Context) {
	customer, err := s.customerSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req customerdomain.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	customer, err := s.customerSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (s *Server) DeleteCustomer(c *gin.Context) {
	if err := s.customerSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
