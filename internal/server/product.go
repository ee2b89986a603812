package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
)

func (s *Server) ListProducts(c *gin.Context) {
	var req productdomain.ListProductRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, resp.Products, resp.PageInfo)
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	product, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) GetProduct(c *gin.Context) {
	product, err := s.productSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req productdomain.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, ErrInvalidRequest)
		return
	}

	product, err := s.productSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) DeleteProduct(c *gin.Context) {
	if err := s.productSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
