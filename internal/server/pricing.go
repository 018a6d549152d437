package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetPricingQuote(c *gin.Context) {
	quote, err := s.pricingSvc.Quote(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}
