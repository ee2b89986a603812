package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	journaldomain "github.com/smallbiznis/ledgerly/internal/journal/domain"
)

func (s *Server) ListJournalEntries(c *gin.Context) {
	var req journaldomain.ListJournalEntryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.journalSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.JournalEntries, resp.PageInfo)
}

func (s *Server) CreateJournalEntry(c *gin.Context) {
	var req journaldomain.CreateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.journalSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (s *Server) GetJournalEntry(c *gin.Context) {
	detail, err := s.journalSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) UpdateJournalEntry(c *gin.Context) {
	var req journaldomain.UpdateJournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	detail, err := s.journalSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) VoidJournalEntry(c *gin.Context) {
	if err := s.journalSvc.Void(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
