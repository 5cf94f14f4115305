package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physiokit/portal-api/internal/model"
	"github.com/physiokit/portal-api/pkg/auth"
	apperrors "github.com/physiokit/portal-api/pkg/errors"
	"github.com/physiokit/portal-api/pkg/security"
)

type fakeAdminRepo struct {
	users map[string]*model.AdminUser
}

func (r *fakeAdminRepo) Get(_ context.Context, id uuid.UUID) (*model.AdminUser, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("admin user", nil)
}

func (r *fakeAdminRepo) GetByEmail(_ context.Context, email string) (*model.AdminUser, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, apperrors.NotFound("admin user", nil)
	}
	return u, nil
}

func newTestService(t *testing.T, password string) (*Service, *model.AdminUser) {
	t.Helper()

	hasher := security.NewBcryptHasher(4)
	hash, err := hasher.Hash(password)
	require.NoError(t, err)

	user := &model.AdminUser{
		ClinicID:     uuid.New(),
		Name:         "Clinic Owner",
		Email:        "owner@clinic.test",
		PasswordHash: hash,
		Role:         string(model.AdminRoleOwner),
	}
	user.ID = uuid.New()

	repo := &fakeAdminRepo{users: map[string]*model.AdminUser{user.Email: user}}
	jwt := auth.NewJWTService("test-secret", time.Hour)
	return NewService(repo, jwt, hasher), user
}

func TestLogin(t *testing.T) {
	svc, user := newTestService(t, "correct horse")

	resp, err := svc.Login(context.Background(), user.Email, "correct horse")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.ClinicID, claims.ClinicID)
	assert.Equal(t, string(model.AdminRoleOwner), claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, user := newTestService(t, "correct horse")

	_, err := svc.Login(context.Background(), user.Email, "battery staple")

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestLoginUnknownEmailIsUnauthorized(t *testing.T) {
	svc, _ := newTestService(t, "correct horse")

	_, err := svc.Login(context.Background(), "nobody@clinic.test", "whatever")

	// Unknown accounts look identical to bad passwords.
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t, "correct horse")

	_, err := svc.ValidateToken(context.Background(), "not.a.token")

	require.Error(t, err)
}
