package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/ledgerly/internal/report/domain"
)

func (s *Server) AccountBalancesReport(c *gin.Context) {
	report, err := s.reportSvc.AccountBalances(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) TrialBalanceReport(c *gin.Context) {
	var req reportdomain.TrialBalanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	report, err := s.reportSvc.TrialBalance(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) ProfitAndLossReport(c *gin.Context) {
	var req reportdomain.ProfitAndLossRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	report, err := s.reportSvc.ProfitAndLoss(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) BalanceSheetReport(c *gin.Context) {
	var req reportdomain.BalanceSheetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	report, err := s.reportSvc.BalanceSheet(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) ReceivableAgingReport(c *gin.Context) {
	report, err := s.reportSvc.ReceivableAging(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) PayableAgingReport(c *gin.Context) {
	report, err := s.reportSvc.PayableAging(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) TransactionJournalReport(c *gin.Context) {
	var req reportdomain.TransactionJournalRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	report, err := s.reportSvc.TransactionJournal(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
