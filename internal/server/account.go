package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
)

func (s *Server) ListAccounts(c *gin.Context) {
	var req accountdomain.ListAccountRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.accountSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.Accounts, resp.PageInfo)
}

func (s *Server) CreateAccount(c *gin.Context) {
	var req accountdomain.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	account, err := s.accountSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (s *Server) GetAccount(c *gin.Context) {
	detail, err := s.accountSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdateAccount(c *gin.Context) {
	var req accountdomain.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	account, err := s.accountSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) DeleteAccount(c *gin.Context) {
	if err := s.accountSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListAccountTransactions(c *gin.Context) {
	var req accountdomain.ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.accountSvc.Transactions(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.Transactions, resp.PageInfo)
}
