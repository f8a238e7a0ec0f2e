package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medbook/booking-api/internal/model"
	apperrors "github.com/medbook/booking-api/pkg/errors"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	u.ID = uuid.New()
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

func (f *fakeUserRepo) Update(ctx context.Context, u *model.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return apperrors.NotFound("user")
	}
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return apperrors.NotFound("user")
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func registerRequest() *model.CreateUserRequest {
	return &model.CreateUserRequest{
		Name:     "Alex Morgan",
		Email:    "alex@example.com",
		Password: "s3cret-password",
	}
}

func TestCreateUser(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	created, err := svc.CreateUser(context.Background(), registerRequest())

	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, created.Role, "role defaults to patient")
	assert.NotEqual(t, "s3cret-password", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("s3cret-password")))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	_, err := svc.CreateUser(context.Background(), registerRequest())
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), registerRequest())
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestCreateUserInvalidDateOfBirth(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	req := registerRequest()
	bad := "01/02/1990"
	req.DateOfBirth = &bad

	_, err := svc.CreateUser(context.Background(), req)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
}

func TestValidateCredentials(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	created, err := svc.CreateUser(context.Background(), registerRequest())
	require.NoError(t, err)

	user, err := svc.ValidateCredentials(context.Background(), "alex@example.com", "s3cret-password")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.ValidateCredentials(context.Background(), "alex@example.com", "wrong")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))

	_, err = svc.ValidateCredentials(context.Background(), "nobody@example.com", "s3cret-password")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func TestUpdateUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	created, err := svc.CreateUser(context.Background(), registerRequest())
	require.NoError(t, err)

	name := "Alexandra Morgan"
	password := "new-password-123"
	updated, err := svc.UpdateUser(context.Background(), created.ID, &model.UpdateUserRequest{
		Name:     &name,
		Password: &password,
	})

	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(password)))

	// old password no longer works
	_, err = svc.ValidateCredentials(context.Background(), "alex@example.com", "s3cret-password")
	assert.Error(t, err)
}

func TestUpdateUserEmailTaken(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	first, err := svc.CreateUser(context.Background(), registerRequest())
	require.NoError(t, err)

	second := registerRequest()
	second.Email = "morgan@example.com"
	_, err = svc.CreateUser(context.Background(), second)
	require.NoError(t, err)

	taken := "morgan@example.com"
	_, err = svc.UpdateUser(context.Background(), first.ID, &model.UpdateUserRequest{Email: &taken})
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	created, err := svc.CreateUser(context.Background(), registerRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(context.Background(), created.ID))

	_, err = svc.GetUser(context.Background(), created.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
