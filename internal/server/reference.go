package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListCountries(c *gin.Context) {
	resp, err := s.refrepo.ListCountries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCurrencies(c *gin.Context) {
	resp, err := s.refrepo.ListCurrencies(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
