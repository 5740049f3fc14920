package auth

import (
	"errors"

	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
)

// ErrForbidden is returned when the caller's role does not satisfy a route
var ErrForbidden = errors.New("insufficient role")

// Authorize decides whether claims may access a route requiring role.
// Admins satisfy every role. Pre-auth claims never authorize anything.
func Authorize(claims *TokenClaims, required model.Role) error {
	if claims == nil || claims.Temporary {
		return ErrForbidden
	}
	switch {
	case claims.Role == model.RoleAdmin:
		return nil
	case required == model.RoleUser && claims.Role == model.RoleUser:
		return nil
	default:
		return ErrForbidden
	}
}
