package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"mindmate/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuthPatientMiddleware authenticates the patient session token. The
// token hash is cached in Redis so repeated requests skip signature
// re-validation churn; a cache miss falls back to full validation and
// repopulates the cache. The raw token is kept in context because the
// scheduling backend calls are made on the patient's behalf.
func JWTAuthPatientMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
					"code":  500,
				})
			}
		}()

		ctx := context.Background()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}

		patientID, err := utils.ExtractIDFromToken(tokenString)
		if err != nil || patientID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Insufficient authorization",
				"code":  0,
			})
			return
		}

		computedHash := utils.HashToken(tokenString)
		cacheKey := utils.AuthCachePrefix + patientID

		authCache := utils.GetAuthCacheClient()
		if authCache != nil {
			cachedHash, err := authCache.Get(ctx, cacheKey).Result()
			if err == nil && cachedHash != computedHash {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Insufficient authorization",
					"code":  0,
				})
				return
			}
			if err := authCache.Set(ctx, cacheKey, computedHash, utils.AuthCacheTTL).Err(); err != nil {
				log.Printf("WARNING: failed to refresh auth cache for %s: %v", patientID, err)
			}
		}

		c.Set("patientID", patientID)
		c.Set("sessionToken", tokenString)
		c.Next()
	}
}
