package session

import (
	"net/http"
	"staffhub/bizerror"
	"time"

	"github.com/gin-gonic/gin"
)

func RegisterSessionRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/session", middleWares...)
	g.GET("", handleDetailSession)
}

// handleDetailSession returns the authenticated identity and slides the token expiration
func handleDetailSession(c *gin.Context) {
	sec := ExtractSessionFromGinContext(c)
	if sec.Token == "" {
		panic(bizerror.ErrUnauthenticated)
	}

	now := time.Now()
	ttl := TokenExpiration - now.Sub(sec.SigningTime)
	if ttl <= 0 {
		panic(bizerror.ErrUnauthenticated)
	}

	renewed := sec.Clone()
	renewed.SigningTime = now
	TokenCache.Set(renewed.Token, &renewed, TokenExpiration)
	c.JSON(http.StatusOK, &renewed)
}
