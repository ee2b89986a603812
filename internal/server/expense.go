package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	expensedomain "github.com/smallbiznis/ledgerly/internal/expense/domain"
)

func (s *Server) ListExpenses(c *gin.Context) {
	var req expensedomain.ListExpenseRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.expenseSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.Expenses, resp.PageInfo)
}

func (s *Server) CreateExpense(c *gin.Context) {
	var req expensedomain.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	expense, err := s.expenseSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func (s *Server) GetExpense(c *gin.Context) {
	expense, err := s.expenseSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (s *Server) UpdateExpense(c *gin.Context) {
	var req expensedomain.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	expense, err := s.expenseSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

func (s *Server) DeleteExpense(c *gin.Context) {
	if err := s.expenseSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) VoidExpense(c *gin.Context) {
	if err := s.expenseSvc.Void(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
