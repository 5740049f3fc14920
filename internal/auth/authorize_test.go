package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iuliaszarics/WhiskersWonderland/internal/model"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	user := &TokenClaims{UserID: 1, Role: model.RoleUser}
	admin := &TokenClaims{UserID: 2, Role: model.RoleAdmin}
	preAuth := &TokenClaims{UserID: 2, Role: model.RoleAdmin, Temporary: true}
	unknown := &TokenClaims{UserID: 3, Role: "owner"}

	tests := []struct {
		name     string
		claims   *TokenClaims
		required model.Role
		allowed  bool
	}{
		{"user on user route", user, model.RoleUser, true},
		{"user on admin route", user, model.RoleAdmin, false},
		{"admin on admin route", admin, model.RoleAdmin, true},
		{"admin on user route", admin, model.RoleUser, true},
		{"pre-auth never", preAuth, model.RoleUser, false},
		{"unknown role", unknown, model.RoleUser, false},
		{"nil claims", nil, model.RoleUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.claims, tt.required)
			if tt.allowed {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}
