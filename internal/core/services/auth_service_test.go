package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/pkg/password"
)

// approvedUser seeds an approved, active member with a real password hash.
func approvedUser(t *testing.T, f *fixture, email, plain string) *models.User {
	t.Helper()
	hash, err := password.Hash(plain)
	require.NoError(t, err)
	return f.users.add(&models.User{
		FirstName:      "Jane",
		LastName:       "Saver",
		Email:          email,
		Password:       hash,
		Role:           domain.RoleMember,
		ApprovalStatus: domain.ApprovalApproved,
		IsActive:       true,
	})
}

func TestRegisterCreatesPendingMember(t *testing.T) {
	f := newFixture()
	svc := f.authService()

	user, err := svc.Register(context.Background(), &RegisterInput{
		FirstName: "Jane",
		LastName:  "Saver",
		Email:     "jane@example.com",
		Password:  "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleMember, user.Role)
	assert.Equal(t, domain.ApprovalPending, user.ApprovalStatus)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "secret123", user.Password, "password must be stored hashed")
	assert.True(t, password.Verify("secret123", user.Password))

	_, err = svc.Register(context.Background(), &RegisterInput{
		FirstName: "Jane", LastName: "Again",
		Email: "jane@example.com", Password: "secret456",
	})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestRegisterValidatesBranch(t *testing.T) {
	f := newFixture()
	f.branches.add(&models.Branch{ID: 2, Name: "Closed", IsActive: false})
	svc := f.authService()
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterInput{
		FirstName: "Jane", LastName: "Saver",
		Email: "jane@example.com", Password: "secret123", BranchID: ptrUint(9),
	})
	assert.ErrorIs(t, err, ErrBranchNotFound)

	_, err = svc.Register(ctx, &RegisterInput{
		FirstName: "Jane", LastName: "Saver",
		Email: "jane@example.com", Password: "secret123", BranchID: ptrUint(2),
	})
	assert.ErrorIs(t, err, ErrBranchInactive)
}

func TestLoginGates(t *testing.T) {
	f := newFixture()
	approvedUser(t, f, "jane@example.com", "secret123")
	svc := f.authService()
	ctx := context.Background()

	_, err := svc.Login(ctx, &LoginInput{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginInput{Email: "jane@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	resp, err := svc.Login(ctx, &LoginInput{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Equal(t, "jane@example.com", resp.User.Email)
}

func TestLoginRequiresApprovedActiveAccount(t *testing.T) {
	f := newFixture()
	svc := f.authService()
	ctx := context.Background()

	waiting := approvedUser(t, f, "pending@example.com", "secret123")
	waiting.ApprovalStatus = domain.ApprovalPending
	_, err := svc.Login(ctx, &LoginInput{Email: "pending@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, domain.ErrUserNotApproved)

	dormant := approvedUser(t, f, "dormant@example.com", "secret123")
	dormant.IsActive = false
	_, err = svc.Login(ctx, &LoginInput{Email: "dormant@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newFixture()
	approvedUser(t, f, "jane@example.com", "secret123")
	svc := f.authService()
	ctx := context.Background()

	login, err := svc.Login(ctx, &LoginInput{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// The spent token is dead; only the rotated one refreshes.
	_, err = svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.RefreshToken(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	f := newFixture()
	svc := f.authService()

	_, err := svc.RefreshToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture()
	approvedUser(t, f, "jane@example.com", "secret123")
	svc := f.authService()
	ctx := context.Background()

	login, err := svc.Login(ctx, &LoginInput{Email: "jane@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, login.RefreshToken))

	_, err = svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture()
	approvedUser(t, f, "jane@example.com", "old-secret1")
	svc := f.authService()
	ctx := context.Background()

	// Keep a session open so the reset can revoke it.
	login, err := svc.Login(ctx, &LoginInput{Email: "jane@example.com", Password: "old-secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "jane@example.com"))
	require.Len(t, f.notifier.resets, 1)

	link := f.notifier.resets[0]
	_, rawToken, found := strings.Cut(link, "?token=")
	require.True(t, found, "reset link must carry the token: %s", link)

	require.NoError(t, svc.ResetPassword(ctx, rawToken, "new-secret1"))

	_, err = svc.Login(ctx, &LoginInput{Email: "jane@example.com", Password: "old-secret1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginInput{Email: "jane@example.com", Password: "new-secret1"})
	assert.NoError(t, err)

	// The old session died with the old password.
	_, err = svc.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// A token only works once.
	err = svc.ResetPassword(ctx, rawToken, "another-secret1")
	assert.ErrorIs(t, err, ErrResetTokenInvalid)
}

func TestForgotPasswordHidesUnknownAccounts(t *testing.T) {
	f := newFixture()
	svc := f.authService()

	err := svc.ForgotPassword(context.Background(), "ghost@example.com")
	assert.NoError(t, err, "unknown emails get the same answer as known ones")
	assert.Empty(t, f.notifier.resets)
}

func TestResetPasswordRejectsWeakPassword(t *testing.T) {
	f := newFixture()
	svc := f.authService()

	err := svc.ResetPassword(context.Background(), "whatever", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}
