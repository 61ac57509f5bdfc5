package services

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"restaurant-api/access"
	"restaurant-api/apperrors"
	"restaurant-api/models"
	"restaurant-api/repository"
)

var phonePattern = regexp.MustCompile(`^[+]?[(]?[0-9]{3}[)]?[-\s.]?[0-9]{3}[-\s.]?[0-9]{4,6}$`)

type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
	Address     string
}

// ProfileUpdate carries the profile fields to change; nil means unchanged.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	PhoneNumber *string
	Address     *string
}

// UserUpdate is a profile update that an admin may extend with a role change.
type UserUpdate struct {
	ProfileUpdate
	Role *models.UserRole
}

type UserService struct {
	users      repository.UserRepository
	lg         *zap.Logger
	bcryptCost int
	runtime
}

func NewUserService(users repository.UserRepository, lg *zap.Logger, opts ...Option) *UserService {
	return &UserService{
		users:      users,
		lg:         lg.Named("users"),
		bcryptCost: bcrypt.DefaultCost,
		runtime:    newRuntime(opts),
	}
}

// WithBcryptCost lowers hashing cost, for tests.
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

// Register creates a customer account. Admin accounts are created through
// EnsureAdmin or promoted by an existing admin.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := s.create(ctx, in, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	s.lg.Info("User registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// create validates, hashes and stores a new account with its final role in a
// single write.
func (s *UserService) create(ctx context.Context, in RegisterInput, role models.UserRole) (*models.User, error) {
	now := s.timestamp()
	user := &models.User{
		ID:          s.newID(),
		Name:        strings.TrimSpace(in.Name),
		Email:       normalizeEmail(in.Email),
		Role:        role,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Address:     strings.TrimSpace(in.Address),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	fields := validateUser(user)
	fields = append(fields, validatePassword("password", in.Password)...)
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid registration", fields...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Store(err, "failed to hash password")
	}
	user.PasswordHash = string(hash)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, s.writeErr(err, user.ID, "failed to create user")
	}
	return user, nil
}

// Authenticate checks credentials. A non-empty role must match the account's.
func (s *UserService) Authenticate(ctx context.Context, email, password string, role models.UserRole) (*models.User, error) {
	invalid := apperrors.Unauthenticated("invalid email or password")

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, invalid
	case err != nil:
		return nil, apperrors.Store(err, "failed to load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, invalid
	}
	if role != "" && user.Role != role {
		return nil, apperrors.Unauthenticated("invalid role for this account")
	}
	return user, nil
}

// Resolve turns a token subject into a Caller, reloading the account so that
// deleted users and role changes take effect immediately.
func (s *UserService) Resolve(ctx context.Context, userID string) (*access.Caller, error) {
	user, err := s.users.GetByID(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.Unauthenticated("user not found")
	case err != nil:
		return nil, apperrors.Store(err, "failed to load user")
	}
	return &access.Caller{UserID: user.ID, Role: user.Role}, nil
}

func (s *UserService) Profile(ctx context.Context, caller *access.Caller) (*models.User, error) {
	if err := access.Check(access.Authenticated, caller, ""); err != nil {
		return nil, err
	}
	return s.load(ctx, caller.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, caller *access.Caller, upd ProfileUpdate) (*models.User, error) {
	if err := access.Check(access.Authenticated, caller, ""); err != nil {
		return nil, err
	}
	return s.update(ctx, caller.UserID, UserUpdate{ProfileUpdate: upd})
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, caller *access.Caller, current, next string) error {
	if err := access.Check(access.Authenticated, caller, ""); err != nil {
		return err
	}
	if fields := validatePassword("new_password", next); len(fields) > 0 {
		return apperrors.Validation("invalid password", fields...)
	}
	user, err := s.load(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return apperrors.Validation("invalid password", apperrors.FieldError{
			Field:   "current_password",
			Message: "current password is incorrect",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.bcryptCost)
	if err != nil {
		return apperrors.Store(err, "failed to hash password")
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.timestamp()
	if err := s.users.Update(ctx, user); err != nil {
		return s.writeErr(err, user.ID, "failed to update password")
	}
	s.lg.Info("Password changed", zap.String("user_id", user.ID))
	return nil
}

// List returns all users, optionally narrowed to one role. Admin only.
func (s *UserService) List(ctx context.Context, caller *access.Caller, role models.UserRole) ([]models.User, error) {
	if role != "" && !role.Valid() {
		return nil, apperrors.Validation("invalid filter", apperrors.FieldError{
			Field: "role", Message: "must be admin or customer",
		})
	}
	if err := access.Check(access.AdminOnly, caller, ""); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list users")
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, caller *access.Caller, id string) (*models.User, error) {
	if err := access.Check(access.OwnerOrAdmin, caller, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Update changes another account. Owners may edit their own profile; only
// admins may change roles.
func (s *UserService) Update(ctx context.Context, caller *access.Caller, id string, upd UserUpdate) (*models.User, error) {
	if err := access.Check(access.OwnerOrAdmin, caller, id); err != nil {
		return nil, err
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return nil, apperrors.Validation("invalid user", apperrors.FieldError{
				Field: "role", Message: "must be admin or customer",
			})
		}
		if err := access.Check(access.AdminOnly, caller, ""); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, id, upd)
}

// Delete removes an account. The last admin cannot be removed.
func (s *UserService) Delete(ctx context.Context, caller *access.Caller, id string) error {
	if err := access.Check(access.AdminOnly, caller, ""); err != nil {
		return err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		if err := s.keepOneAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return s.writeErr(err, id, "failed to delete user")
	}
	s.lg.Info("User deleted", zap.String("user_id", id), zap.String("by", caller.UserID))
	return nil
}

// EnsureAdmin creates the bootstrap admin account, or promotes the account
// with that email if it already exists. It reports whether anything changed.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return false, nil
		}
		existing.Role = models.RoleAdmin
		existing.UpdatedAt = s.timestamp()
		if err := s.users.Update(ctx, existing); err != nil {
			return false, s.writeErr(err, existing.ID, "failed to promote admin")
		}
		s.lg.Info("Promoted bootstrap admin", zap.String("user_id", existing.ID))
		return true, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, apperrors.Store(err, "failed to load user")
	}

	user, err := s.create(ctx, RegisterInput{Name: name, Email: email, Password: password}, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	s.lg.Info("Created bootstrap admin", zap.String("user_id", user.ID))
	return true, nil
}

func (s *UserService) update(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		user.Email = normalizeEmail(*upd.Email)
	}
	if upd.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*upd.PhoneNumber)
	}
	if upd.Address != nil {
		user.Address = strings.TrimSpace(*upd.Address)
	}
	if fields := validateUser(user); len(fields) > 0 {
		return nil, apperrors.Validation("invalid user", fields...)
	}

	if upd.Email != nil {
		other, err := s.users.GetByEmail(ctx, user.Email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, apperrors.Conflict("email is already taken")
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.Store(err, "failed to check email")
		}
	}
	if upd.Role != nil && *upd.Role != user.Role {
		if user.IsAdmin() {
			if err := s.keepOneAdmin(ctx); err != nil {
				return nil, err
			}
		}
		user.Role = *upd.Role
	}

	user.UpdatedAt = s.timestamp()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, s.writeErr(err, user.ID, "failed to update user")
	}
	return user, nil
}

func (s *UserService) keepOneAdmin(ctx context.Context) error {
	admins, err := s.users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return apperrors.Store(err, "failed to count admins")
	}
	if admins <= 1 {
		return apperrors.Conflict("cannot remove the last admin user")
	}
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NotFound("user %s not found", id)
	case err != nil:
		return nil, apperrors.Store(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) writeErr(err error, id, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("user %s not found", id)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.Conflict("user already exists with this email")
	}
	return apperrors.Store(err, op)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUser(u *models.User) []apperrors.FieldError {
	var fields []apperrors.FieldError
	if n := len([]rune(u.Name)); n < 2 || n > 50 {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "name must be between 2 and 50 characters"})
	}
	if validate.Var(u.Email, "required,email") != nil {
		fields = append(fields, apperrors.FieldError{Field: "email", Message: "please enter a valid email"})
	}
	if u.PhoneNumber != "" && !phonePattern.MatchString(u.PhoneNumber) {
		fields = append(fields, apperrors.FieldError{Field: "phone_number", Message: "please enter a valid phone number"})
	}
	if len(u.Address) > 200 {
		fields = append(fields, apperrors.FieldError{Field: "address", Message: "address cannot exceed 200 characters"})
	}
	return fields
}

func validatePassword(field, password string) []apperrors.FieldError {
	if len(password) < 6 {
		return []apperrors.FieldError{{Field: field, Message: "password must be at least 6 characters long"}}
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return []apperrors.FieldError{{Field: field, Message: "password must contain at least one number"}}
	}
	return nil
}
