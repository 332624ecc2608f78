package middleware

import (
	"fmt"
	"strings"
	"time"

	"bnpl-service/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxActorKey = "actor"

type Claims struct {
	Role common.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for actor valid for ttl.
func GenerateToken(secret string, actor common.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(401, common.NewErrorResponse(msg, 401))
}

// RequireAuth resolves the bearer token into an actor.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := parseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil || claims.Subject == "" {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		switch claims.Role {
		case common.RoleCustomer, common.RoleMerchant, common.RoleAdmin:
		default:
			abortUnauthorized(c, "Unknown role")
			return
		}

		c.Set(ctxActorKey, common.Actor{ID: claims.Subject, Role: claims.Role})
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(allowed ...common.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			abortUnauthorized(c, "Missing actor")
			return
		}
		for _, r := range allowed {
			if r == actor.Role {
				c.Next()
				return
			}
		}
		abortUnauthorized(c, "Role "+string(actor.Role)+" may not perform this action")
	}
}

func ActorFrom(c *gin.Context) (common.Actor, bool) {
	v, ok := c.Get(ctxActorKey)
	if !ok {
		return common.Actor{}, false
	}
	actor, ok := v.(common.Actor)
	return actor, ok
}
