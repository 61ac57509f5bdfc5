package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"restaurant-api/apperrors"
	"restaurant-api/models"
)

func TestCheck(t *testing.T) {
	customer := &Caller{UserID: "c1", Role: models.RoleCustomer}
	admin := &Caller{UserID: "a1", Role: models.RoleAdmin}

	tests := []struct {
		name   string
		req    Requirement
		caller *Caller
		owner  string
		kind   apperrors.Kind
	}{
		{"public anonymous", Public, nil, "", ""},
		{"authenticated anonymous", Authenticated, nil, "", apperrors.KindUnauthenticated},
		{"authenticated empty id", Authenticated, &Caller{Role: models.RoleAdmin}, "", apperrors.KindUnauthenticated},
		{"authenticated customer", Authenticated, customer, "", ""},
		{"owner", OwnerOrAdmin, customer, "c1", ""},
		{"not owner", OwnerOrAdmin, customer, "c2", apperrors.KindForbidden},
		{"admin for someone else", OwnerOrAdmin, admin, "c2", ""},
		{"admin only customer", AdminOnly, customer, "", apperrors.KindForbidden},
		{"admin only anonymous", AdminOnly, nil, "", apperrors.KindUnauthenticated},
		{"admin only admin", AdminOnly, admin, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.req, tt.caller, tt.owner)
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestRequirementString(t *testing.T) {
	assert.Equal(t, "owner-or-admin", OwnerOrAdmin.String())
	assert.Equal(t, "unknown", Requirement(42).String())
}
