package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ledgerly/pkg/db/pagination"
)

// pageEnvelope is the wire shape of every list endpoint.
type pageEnvelope struct {
	Data       any                 `json:"data"`
	Pagination pagination.PageInfo `json:"pagination"`
}

func respondPage(c *gin.Context, data any, info pagination.PageInfo) {
	c.JSON(http.StatusOK, pageEnvelope{Data: data, Pagination: info})
}
