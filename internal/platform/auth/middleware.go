package auth

import (
	"errors"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"mess-backend/internal/platform/httperr"
)

// RequireAuth: Authorization: Bearer <token> を検証して Session を詰める
func RequireAuth(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			httperr.Abort(c, httperr.ErrUnauth("missing Authorization header"))
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httperr.Abort(c, httperr.ErrUnauth("invalid Authorization header"))
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			httperr.Abort(c, httperr.ErrUnauth("empty token"))
			return
		}

		sess, err := resolver.Resolve(c.Request.Context(), tokenStr)
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				httperr.Abort(c, httperr.ErrUnauth("invalid token"))
				return
			}
			log.Printf("[ERROR] resolve session: %v", err)
			httperr.Abort(c, httperr.ErrInternal("session lookup failed"))
			return
		}

		SetSession(c, sess)
		c.Next()
	}
}

// RequireStaff は RequireAuth の後ろに置く
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			httperr.Abort(c, httperr.ErrUnauth("not authenticated"))
			return
		}
		if !sess.IsStaff() {
			httperr.Abort(c, httperr.ErrForbidden("staff only"))
			return
		}
		c.Next()
	}
}
