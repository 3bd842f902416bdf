package service

import (
	"context"
	"errors"
	"testing"

	"inkwell/internal/access"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAccountService(users *userRepoStub) (*AccountService, *access.JWTProvider) {
	tokens := access.NewJWTProvider("test-secret", 0)
	svc := NewAccountService(users, tokens)
	svc.hashCost = bcrypt.MinCost
	return svc, tokens
}

func TestAccountService_Signup(t *testing.T) {
	t.Parallel()

	var created *models.User
	users := usersByName()
	users.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 12
		created = u
		return nil
	}
	svc, tokens := newTestAccountService(users)

	res, err := svc.Signup(context.Background(), SignupInput{
		Username: " leo ",
		Email:    "Leo@Example.com",
		Password: "tolstoy1828",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "leo", created.Username)
	assert.Equal(t, "leo@example.com", created.Email)
	assert.NotEqual(t, "tolstoy1828", created.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("tolstoy1828")))

	id, err := tokens.Resolve(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(12), id.UserID)
	assert.Equal(t, "leo", id.Username)
}

func TestAccountService_Signup_Validation(t *testing.T) {
	t.Parallel()

	existing := usersByName()
	existing.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 1, Email: email}, nil
	}

	tests := []struct {
		name  string
		users *userRepoStub
		input SignupInput
		field string
	}{
		{"short username", usersByName(), SignupInput{Username: "ab", Email: "a@b.co", Password: "password1"}, "username"},
		{"bad username chars", usersByName(), SignupInput{Username: "leo tolstoy", Email: "a@b.co", Password: "password1"}, "username"},
		{"bad email", usersByName(), SignupInput{Username: "leo", Email: "nope", Password: "password1"}, "email"},
		{"weak password", usersByName(), SignupInput{Username: "leo", Email: "a@b.co", Password: "short"}, "password"},
		{"taken email", existing, SignupInput{Username: "leo", Email: "a@b.co", Password: "password1"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestAccountService(tt.users)
			_, err := svc.Signup(context.Background(), tt.input)
			assertFieldError(t, err, tt.field)
		})
	}
}

func TestAccountService_Login(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	users := usersByName(&models.User{ID: 3, Username: "leo", Password: string(hash)})
	svc, tokens := newTestAccountService(users)
	ctx := context.Background()

	res, err := svc.Login(ctx, "leo", "password1")
	require.NoError(t, err)
	id, err := tokens.Resolve(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), id.UserID)

	_, err = svc.Login(ctx, "leo", "wrong-pass1")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = svc.Login(ctx, "ghost", "password1")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	boom := errors.New("db down")
	users.getByUsernameFn = func(_ context.Context, _ string) (*models.User, error) { return nil, boom }
	_, err = svc.Login(ctx, "leo", "password1")
	assert.ErrorIs(t, err, boom)
}
