package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/token"
)

func newUserFixture() (UserService, *fakeUserRepo, *fakeTokenRepo, *token.JWTManager) {
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	jwtManager := token.NewJWTManager("test-secret", 1, 7)
	return NewUserService(users, tokens, jwtManager), users, tokens, jwtManager
}

func TestRegister_IssuesTokens(t *testing.T) {
	svc, users, _, jwtManager := newUserFixture()

	res, err := svc.Register(context.Background(), "  Alice@Example.com ", "secret123", "Alice")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, "user", res.User.Role)
	assert.NotEqual(t, "secret123", users.users[res.User.ID].Password)

	claims, err := jwtManager.VerifyToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, token.TypeAccess, claims.TokenType)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _, _ := newUserFixture()

	_, err := svc.Register(context.Background(), "", "", "")
	var verr *errs.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ElementsMatch(t, []string{"email is required", "password is required"}, verr.Fields)

	_, err = svc.Register(context.Background(), "not-an-email", "pw", "")
	assert.True(t, errs.IsValidation(err))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	_, err := svc.Register(context.Background(), "bob@example.com", "pw", "Bob")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "BOB@example.com", "pw", "Bob")
	var conflict *errs.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, errs.CodeEmailExists, conflict.Code)
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	_, err := svc.Register(context.Background(), "carol@example.com", "right", "Carol")
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), "carol@example.com", "right")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.RefreshToken)

	_, err = svc.Login(context.Background(), "carol@example.com", "wrong")
	assert.Same(t, errs.ErrInvalidCredentials, err)

	_, err = svc.Login(context.Background(), "nobody@example.com", "right")
	assert.Same(t, errs.ErrInvalidCredentials, err)
}

func TestGetProfile_NotFound(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	_, err := svc.GetProfile(context.Background(), "missing")
	var nf *errs.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, errs.CodeUserNotFound, nf.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _, tokens, jwtManager := newUserFixture()
	res, err := svc.Register(context.Background(), "dan@example.com", "pw", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), res.Token))
	claims, err := jwtManager.VerifyToken(res.Token)
	require.NoError(t, err)
	revoked, _ := tokens.IsRevoked(context.Background(), claims.ID)
	assert.True(t, revoked)
	assert.True(t, tokens.revoked[claims.ID] > 0)

	var unauthorized *errs.UnauthorizedError
	assert.True(t, errors.As(svc.Logout(context.Background(), "garbage"), &unauthorized))
}

func TestRefreshToken_RotatesAndRejectsReuse(t *testing.T) {
	svc, _, _, _ := newUserFixture()
	res, err := svc.Register(context.Background(), "eve@example.com", "pw", "")
	require.NoError(t, err)

	// access token 不能用来刷新
	_, err = svc.RefreshToken(context.Background(), res.Token)
	assert.Error(t, err)

	rotated, err := svc.RefreshToken(context.Background(), res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, rotated.RefreshToken)

	_, err = svc.RefreshToken(context.Background(), res.RefreshToken)
	var unauthorized *errs.UnauthorizedError
	require.True(t, errors.As(err, &unauthorized))
	assert.Equal(t, "Refresh token has been revoked", unauthorized.Message)
}
