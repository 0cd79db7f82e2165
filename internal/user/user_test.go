package user

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ahinestrog/bookstore/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := store.OpenAndMigrate(filepath.Join(t.TempDir(), "users.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc := NewService(NewRepository(db))
	svc.cost = bcrypt.MinCost
	return svc
}

func TestSignupAndAuthenticate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{
		Email: " Reader@Example.com ", Username: "reader", Phone: "555",
		Password: "longenough", Password2: "longenough",
	})
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", u.Email)
	assert.NotEqual(t, "longenough", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "READER@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "reader@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "longenough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignup_Validation(t *testing.T) {
	svc := newService(t)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email: "not-an-email", Password: "longenough", Password2: "different",
	})
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "username")
	assert.Equal(t, "Password fields didn't match.", fe["password"])

	_, err = svc.Signup(context.Background(), SignupInput{
		Email: "a@b.co", Username: "a", Password: "short", Password2: "short",
	})
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe["password"], "too short")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc := newService(t)
	in := SignupInput{Email: "a@b.co", Username: "a", Password: "longenough", Password2: "longenough"}

	_, err := svc.Signup(context.Background(), in)
	require.NoError(t, err)
	_, err = svc.Signup(context.Background(), in)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateAdmin(t *testing.T) {
	svc := newService(t)
	u, err := svc.CreateAdmin(context.Background(), "admin@example.com", "admin", "adminpass")
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
}
