package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rental-backend/models"
	"rental-backend/services"
	"rental-backend/utils"
)

const currentUserKey = "currentUser"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.CurrentUser, error)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func attach(c *gin.Context, u *services.CurrentUser) {
	c.Set(currentUserKey, u)
	c.Request = c.Request.WithContext(services.WithCurrentUser(c.Request.Context(), u))
}

// RequireAuth rejects requests without a live session.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			utils.AbortJSONError(c, http.StatusUnauthorized, "error.unauthenticated", "অনুগ্রহ করে লগইন করুন")
			return
		}
		u, err := auth.Authenticate(c.Request.Context(), tok)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidToken) {
				_ = c.Error(err)
			}
			utils.AbortJSONError(c, http.StatusUnauthorized, "error.unauthenticated", "সেশন শেষ হয়েছে, আবার লগইন করুন")
			return
		}
		attach(c, u)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := map[models.Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			utils.AbortJSONError(c, http.StatusUnauthorized, "error.unauthenticated", "অনুগ্রহ করে লগইন করুন")
			return
		}
		if _, ok := allowed[u.Role]; !ok {
			utils.AbortJSONError(c, http.StatusForbidden, "error.forbidden", "এই কাজের অনুমতি নেই")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the identity attached by RequireAuth.
func CurrentUser(c *gin.Context) *services.CurrentUser {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*services.CurrentUser)
	return u
}
