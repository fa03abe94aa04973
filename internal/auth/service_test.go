package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/internal/store/memstore"
	"gochangi/pkg/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(memstore.New(), "test-secret", time.Hour, logger.Discard())
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, "  Alice ", "correct-horse", models.RoleMain)
	require.NoError(t, err)
	assert.Equal(t, "alice", admin.Username)

	result, err := svc.Login(ctx, "ALICE", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMain, result.Role)

	claims, err := svc.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID)
	assert.Equal(t, "alice", claims.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateAdmin(ctx, "bob", "password123", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "bob", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	svc := newTestService(t)
	admin := &models.Admin{ID: "a1", Username: "carol", Role: models.RoleAdmin}

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.issueToken(admin)
	require.NoError(t, err)
	_, err = svc.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(memstore.New(), "other-secret", time.Hour, logger.Discard())
	foreign, err := other.issueToken(admin)
	require.NoError(t, err)
	_, err = svc.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AdminID: "a1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateChecksStoredAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	main1, err := svc.CreateAdmin(ctx, "main1", "password123", models.RoleMain)
	require.NoError(t, err)
	helper, err := svc.CreateAdmin(ctx, "helper", "password123", models.RoleAdmin)
	require.NoError(t, err)
	res, err := svc.Login(ctx, "helper", "password123")
	require.NoError(t, err)

	claims, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	actor := &Claims{AdminID: main1.ID, Role: models.RoleMain}
	require.NoError(t, svc.DeleteAdmin(ctx, actor, helper.ID))

	_, err = svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCreateAdminValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "", "password123", "")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = svc.CreateAdmin(ctx, "dave", "short", "")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = svc.CreateAdmin(ctx, "dave", "password123", "superuser")
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	admin, err := svc.CreateAdmin(ctx, "dave", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = svc.CreateAdmin(ctx, "DAVE", "password123", "")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestDeleteAdminProtections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	main1, err := svc.CreateAdmin(ctx, "main1", "password123", models.RoleMain)
	require.NoError(t, err)
	helper, err := svc.CreateAdmin(ctx, "helper", "password123", models.RoleAdmin)
	require.NoError(t, err)
	actor := &Claims{AdminID: main1.ID, Username: main1.Username, Role: models.RoleMain}

	assert.ErrorIs(t, svc.DeleteAdmin(ctx, actor, main1.ID), ErrDeleteSelf)

	main2, err := svc.CreateAdmin(ctx, "main2", "password123", models.RoleMain)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteAdmin(ctx, actor, main2.ID))

	// main1 is now the only main admin
	otherActor := &Claims{AdminID: helper.ID, Role: models.RoleMain}
	assert.ErrorIs(t, svc.DeleteAdmin(ctx, otherActor, main1.ID), ErrLastMainAdmin)

	require.NoError(t, svc.DeleteAdmin(ctx, actor, helper.ID))
	_, err = svc.GetAdmin(ctx, helper.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	boss, err := svc.CreateAdmin(ctx, "boss", "password123", models.RoleMain)
	require.NoError(t, err)
	helper, err := svc.CreateAdmin(ctx, "helper", "password123", models.RoleAdmin)
	require.NoError(t, err)

	helperClaims := &Claims{AdminID: helper.ID, Role: models.RoleAdmin}
	assert.ErrorIs(t, svc.ChangePassword(ctx, helperClaims, boss.ID, "newpassword"), ErrNotAllowed)
	require.NoError(t, svc.ChangePassword(ctx, helperClaims, helper.ID, "newpassword"))

	_, err = svc.Login(ctx, "helper", "newpassword")
	require.NoError(t, err)

	mainClaims := &Claims{AdminID: boss.ID, Role: models.RoleMain}
	require.NoError(t, svc.ChangePassword(ctx, mainClaims, helper.ID, "resetpassword"))
	_, err = svc.Login(ctx, "helper", "resetpassword")
	require.NoError(t, err)
}

func TestBootstrap(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Bootstrap(ctx, "root", "password123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Bootstrap(ctx, "root2", "password123")
	require.NoError(t, err)
	assert.False(t, created)

	admins, err := svc.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, models.RoleMain, admins[0].Role)
}
