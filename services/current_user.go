package services

import (
	"context"

	"rental-backend/models"
)

// CurrentUser is the authenticated identity for one request.
type CurrentUser struct {
	ID        string
	Email     string
	Role      models.Role
	SessionID string
	Profile   *models.User
}

func (u *CurrentUser) CanManage(ownerID string) bool {
	return u != nil && (u.ID == ownerID || u.Role == models.RoleAdmin)
}

type currentUserKey struct{}

func WithCurrentUser(ctx context.Context, u *CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserKey{}, u)
}

// Current returns the identity stored on ctx, or nil when there is none.
func Current(ctx context.Context) *CurrentUser {
	u, _ := ctx.Value(currentUserKey{}).(*CurrentUser)
	return u
}
