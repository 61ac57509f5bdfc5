package services

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"restaurant-api/access"
	"restaurant-api/apperrors"
	"restaurant-api/models"
	"restaurant-api/repository"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(newTestStore(t).Users, zaptest.NewLogger(t)).WithBcryptCost(bcrypt.MinCost)
}

func register(t *testing.T, svc *UserService, name, email string) (*models.User, *access.Caller) {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "secret1"})
	require.NoError(t, err)
	return user, &access.Caller{UserID: user.ID, Role: user.Role}
}

func TestRegister(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Name:        "Ada Lovelace",
		Email:       "  Ada@Example.COM ",
		Password:    "engine1",
		PhoneNumber: "555-123-4567",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.NotEqual(t, "engine1", user.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Name: "Ada Again", Email: "ada@example.com", Password: "engine1"})
	requireKind(t, err, apperrors.KindConflict)
}

func TestRegister_Validation(t *testing.T) {
	svc := newUserService(t)

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"short name", RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1"}, "name"},
		{"bad email", RegisterInput{Name: "Ada", Email: "not-an-email", Password: "secret1"}, "email"},
		{"short password", RegisterInput{Name: "Ada", Email: "a@example.com", Password: "abc1"}, "password"},
		{"password without digit", RegisterInput{Name: "Ada", Email: "a@example.com", Password: "abcdefg"}, "password"},
		{"bad phone", RegisterInput{Name: "Ada", Email: "a@example.com", Password: "secret1", PhoneNumber: "12"}, "phone_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			requireKind(t, err, apperrors.KindValidation)

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			require.NotEmpty(t, appErr.Fields)
			assert.Equal(t, tt.field, appErr.Fields[0].Field)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()
	register(t, svc, "Ada", "ada@example.com")

	user, err := svc.Authenticate(ctx, "ADA@example.com", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong1", "")
	requireKind(t, err, apperrors.KindUnauthenticated)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret1", "")
	requireKind(t, err, apperrors.KindUnauthenticated)

	_, err = svc.Authenticate(ctx, "ada@example.com", "secret1", models.RoleAdmin)
	requireKind(t, err, apperrors.KindUnauthenticated)
}

func TestResolve(t *testing.T) {
	svc := newUserService(t)
	user, _ := register(t, svc, "Ada", "ada@example.com")

	caller, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, caller.UserID)
	assert.Equal(t, models.RoleCustomer, caller.Role)

	_, err = svc.Resolve(context.Background(), "gone")
	requireKind(t, err, apperrors.KindUnauthenticated)
}

func TestProfileAndPassword(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()
	_, ada := register(t, svc, "Ada", "ada@example.com")
	register(t, svc, "Grace", "grace@example.com")

	address := "12 Analytical Way"
	updated, err := svc.UpdateProfile(ctx, ada, ProfileUpdate{Address: &address})
	require.NoError(t, err)
	assert.Equal(t, address, updated.Address)

	taken := "grace@example.com"
	_, err = svc.UpdateProfile(ctx, ada, ProfileUpdate{Email: &taken})
	requireKind(t, err, apperrors.KindConflict)

	profile, err := svc.Profile(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, address, profile.Address)

	requireKind(t, svc.ChangePassword(ctx, ada, "wrong1", "newpass2"), apperrors.KindValidation)
	requireKind(t, svc.ChangePassword(ctx, ada, "secret1", "short"), apperrors.KindValidation)
	require.NoError(t, svc.ChangePassword(ctx, ada, "secret1", "newpass2"))

	_, err = svc.Authenticate(ctx, "ada@example.com", "newpass2", "")
	require.NoError(t, err)

	_, err = svc.Profile(ctx, nil)
	requireKind(t, err, apperrors.KindUnauthenticated)
}

func TestAdminUserOperations(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass1")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass1")
	require.NoError(t, err)
	assert.False(t, created)

	rootUser, err := svc.Authenticate(ctx, "root@example.com", "rootpass1", models.RoleAdmin)
	require.NoError(t, err)
	root := &access.Caller{UserID: rootUser.ID, Role: rootUser.Role}

	adaUser, ada := register(t, svc, "Ada", "ada@example.com")
	graceUser, _ := register(t, svc, "Grace", "grace@example.com")

	users, err := svc.List(ctx, root, "")
	require.NoError(t, err)
	assert.Len(t, users, 3)

	customers, err := svc.List(ctx, root, models.RoleCustomer)
	require.NoError(t, err)
	assert.Len(t, customers, 2)

	_, err = svc.List(ctx, ada, "")
	requireKind(t, err, apperrors.KindForbidden)

	_, err = svc.Get(ctx, ada, graceUser.ID)
	requireKind(t, err, apperrors.KindForbidden)
	_, err = svc.Get(ctx, ada, adaUser.ID)
	require.NoError(t, err)

	promote := models.RoleAdmin
	_, err = svc.Update(ctx, ada, adaUser.ID, UserUpdate{Role: &promote})
	requireKind(t, err, apperrors.KindForbidden)

	requireKind(t, svc.Delete(ctx, root, rootUser.ID), apperrors.KindConflict)

	_, err = svc.Update(ctx, root, adaUser.ID, UserUpdate{Role: &promote})
	require.NoError(t, err)
	count, err := svc.users.CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	requireKind(t, svc.Delete(ctx, ada, graceUser.ID), apperrors.KindForbidden)
	require.NoError(t, svc.Delete(ctx, root, graceUser.ID))
	requireKind(t, svc.Delete(ctx, root, graceUser.ID), apperrors.KindNotFound)
	require.NoError(t, svc.Delete(ctx, root, adaUser.ID))
}

func TestEnsureAdmin_PromotesExistingAccount(t *testing.T) {
	svc := newUserService(t)
	ctx := context.Background()
	register(t, svc, "Ada", "ada@example.com")

	changed, err := svc.EnsureAdmin(ctx, "Ada", "ada@example.com", "ignored1")
	require.NoError(t, err)
	assert.True(t, changed)

	user, err := svc.Authenticate(ctx, "ada@example.com", "secret1", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

// noUpdateUsers fails every Update so a create path that relies on a
// follow-up write is caught.
type noUpdateUsers struct {
	repository.UserRepository
	updates int
}

func (r *noUpdateUsers) Update(context.Context, *models.User) error {
	r.updates++
	return errors.New("update unavailable")
}

func TestEnsureAdmin_CreatesAdminInOneWrite(t *testing.T) {
	users := &noUpdateUsers{UserRepository: newTestStore(t).Users}
	svc := NewUserService(users, zaptest.NewLogger(t)).WithBcryptCost(bcrypt.MinCost)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "Root", "root@example.com", "rootpass1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, users.updates)

	stored, err := users.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stored.Role)

	customers, err := users.CountByRole(ctx, models.RoleCustomer)
	require.NoError(t, err)
	assert.Zero(t, customers)
}
