package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/ride-relay/pkg/auth"
)

const ServiceKey = "service"

// Revocations reports tokens that were revoked before they expired.
type Revocations interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RedisRevocations keeps revoked tokens under blacklist:<token> keys.
type RedisRevocations struct {
	rdb *redis.Client
}

func NewRedisRevocations(rdb *redis.Client) *RedisRevocations {
	return &RedisRevocations{rdb: rdb}
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, "blacklist:"+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ServiceAuth checks the caller's bearer token and requires scope.
// revoked may be nil when no revocation store is configured.
func ServiceAuth(jwtManager *auth.JWTManager, revoked Revocations, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), token)
			if err != nil || isRevoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is revoked"})
				return
			}
		}

		claims, err := jwtManager.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if !claims.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing scope " + scope})
			return
		}

		c.Set(ServiceKey, claims.Subject)
		c.Next()
	}
}
