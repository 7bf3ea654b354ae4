package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bugline/bugline/service"
)

const claimsKey = "bugline.claims"

// requireAuth validates the bearer token and stores the caller's
// claims on the request context.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
			return
		}

		claims, err := s.auth.ValidateAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "invalid bearer token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func callerClaims(c *gin.Context) service.Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(service.Claims)
	return claims
}
