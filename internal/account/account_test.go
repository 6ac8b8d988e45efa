package account_test

import (
	"context"
	"testing"
	"time"

	"healthportal/backend/internal/account"
	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/authz"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"
	"healthportal/backend/internal/storage"
	"healthportal/backend/internal/storage/storagetest"
	"healthportal/backend/internal/uploads"
	"healthportal/backend/internal/uploads/uploadstest"
	"healthportal/backend/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, s *storage.Service, throttle account.Throttle) *account.Service {
	t.Helper()
	images := &uploads.Store{Dir: t.TempDir(), Allowed: config.ProfileImageExtensions}
	return account.NewService(s, audit.NewLogger(s, nil), images, throttle, nil)
}

func auditRows(t *testing.T, s *storage.Service, action string) []models.AuditLog {
	t.Helper()
	var rows []models.AuditLog
	require.NoError(t, s.DB.Where("action = ?", action).Order("id").Find(&rows).Error)
	return rows
}

func register(t *testing.T, svc *account.Service, username string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), account.Registration{
		Username:      username,
		Email:         username + "@example.com",
		FullName:      "Kim " + username,
		Phone:         "010-1234-5678",
		Password:      "pw12345678",
		AgreeRequired: true,
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	s := storagetest.New(t)
	svc := newService(t, s, account.Throttle{})

	u, err := svc.Register(context.Background(), account.Registration{
		Username:      "u1",
		Email:         "U1@Example.com ",
		FullName:      "Kim",
		Phone:         "010-1234-5678",
		Password:      "pw12345678",
		AgreeRequired: true,
		AgreeOptional: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", u.Email, "emails are stored lower-cased")
	assert.Equal(t, config.RoleUser, u.Role)
	assert.True(t, u.RequiredTermsAgreed)
	assert.NotNil(t, u.RequiredTermsAgreedAt)
	assert.True(t, u.OptionalTermsAgreed)
	assert.True(t, u.CheckPassword("pw12345678"))

	rows := auditRows(t, s, "register")
	require.Len(t, rows, 1)
	assert.Equal(t, u.ID, *rows[0].ActorID)
}

func TestRegister_Duplicates(t *testing.T) {
	s := storagetest.New(t)
	svc := newService(t, s, account.Throttle{})
	register(t, svc, "u1")

	_, err := svc.Register(context.Background(), account.Registration{
		Username: "u1", Email: "fresh@example.com", FullName: "A", Phone: "010-1234-5678",
		Password: "pw12345678", AgreeRequired: true,
	})
	assert.ErrorIs(t, err, account.ErrDuplicateAccount)

	_, err = svc.Register(context.Background(), account.Registration{
		Username: "u2", Email: "U1@EXAMPLE.COM", FullName: "A", Phone: "010-1234-5678",
		Password: "pw12345678", AgreeRequired: true,
	})
	assert.ErrorIs(t, err, account.ErrDuplicateAccount, "email duplicates ignore case")
}

// staleStore answers every duplicate check with "free", like a check that
// ran before a concurrent registration committed.
type staleStore struct {
	*storage.Service
}

func (staleStore) IsUsernameOrEmailTaken(string, string) (bool, error) { return false, nil }

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	s := storagetest.New(t)
	register(t, newService(t, s, account.Throttle{}), "u1")

	images := &uploads.Store{Dir: t.TempDir(), Allowed: config.ProfileImageExtensions}
	svc := account.NewService(staleStore{s}, audit.NewLogger(s, nil), images, account.Throttle{}, nil)

	_, err := svc.Register(context.Background(), account.Registration{
		Username: "u1", Email: "late@example.com", FullName: "A", Phone: "010-1234-5678",
		Password: "pw12345678", AgreeRequired: true,
	})
	assert.ErrorIs(t, err, account.ErrDuplicateAccount)
	assert.Len(t, auditRows(t, s, "register"), 1)
}

func TestRegister_ValidationAndTerms(t *testing.T) {
	s := storagetest.New(t)
	svc := newService(t, s, account.Throttle{})

	_, err := svc.Register(context.Background(), account.Registration{Username: "x", Email: "bad", Password: "pw"})
	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, validation.MsgAllFieldsRequired)

	_, err = svc.Register(context.Background(), account.Registration{
		Username: "u1", Email: "u1@example.com", FullName: "A", Phone: "010-1234-5678", Password: "pw12345678",
	})
	assert.ErrorIs(t, err, account.ErrTermsRequired)
}

func TestAuthenticate_AuditTrail(t *testing.T) {
	s := storagetest.New(t)
	svc := newService(t, s, account.Throttle{})
	u := register(t, svc, "u1")

	ctx := audit.WithRequest(context.Background(), audit.RequestInfo{IP: "203.0.113.5", UserAgent: "probe", Query: "next=/"})

	_, err := svc.Authenticate(ctx, "u1", "wrong-password")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	attempts := auditRows(t, s, "login_attempt")
	failed := auditRows(t, s, "login_failed")
	require.Len(t, attempts, 1)
	require.Len(t, failed, 1)
	for _, row := range []models.AuditLog{attempts[0], failed[0]} {
		assert.Nil(t, row.ActorID)
		assert.Contains(t, row.Meta, "result=failed")
		assert.Contains(t, row.Meta, "ip=203.0.113.5")
		assert.Contains(t, row.Meta, "ua=probe")
		assert.Contains(t, row.Meta, "query=next=/")
	}

	got, err := svc.Authenticate(ctx, "u1", "pw12345678")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	logins := auditRows(t, s, "login")
	require.Len(t, logins, 1)
	assert.Equal(t, u.ID, *logins[0].ActorID)
	assert.Len(t, auditRows(t, s, "login_attempt"), 2)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	s := storagetest.New(t)
	svc := newService(t, s, account.Throttle{})

	_, err := svc.Authenticate(context.Background(), "ghost", "pw12345678")

	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	assert.Len(t, auditRows(t, s, "login_failed"), 1)
}

func TestAuthenticate_Throttle(t *testing.T) {
	s, mr := storagetest.NewWithRedis(t)
	svc := newService(t, s, account.Throttle{MaxFailures: 2, Window: time.Minute})
	register(t, svc, "u1")
	ctx := audit.WithRequest(context.Background(), audit.RequestInfo{IP: "10.0.0.1"})

	for i := 0; i < 2; i++ {
		_, err := svc.Authenticate(ctx, "u1", "nope")
		assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	}
	_, err := svc.Authenticate(ctx, "u1", "pw12345678")
	assert.ErrorIs(t, err, account.ErrTooManyAttempts, "correct password is refused while throttled")
	assert.Len(t, auditRows(t, s, "login_throttled"), 1)

	other := audit.WithRequest(context.Background(), audit.RequestInfo{IP: "10.0.0.2"})
	_, err = svc.Authenticate(other, "u1", "pw12345678")
	assert.NoError(t, err, "throttle is per client address")

	mr.FastForward(2 * time.Minute)
	_, err = svc.Authenticate(ctx, "u1", "pw12345678")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	s := storagetest.New(t)
	svc := newService(t, s, account.Throttle{})
	u := register(t, svc, "u1")
	register(t, svc, "u2")

	err := svc.UpdateProfile(context.Background(), u, account.ProfileUpdate{
		FullName: "Kim", Phone: "010-1234-5678", Email: "U2@example.com",
	})
	assert.ErrorIs(t, err, account.ErrDuplicateEmail)

	err = svc.UpdateProfile(context.Background(), u, account.ProfileUpdate{
		FullName:      "Kim Updated",
		Phone:         "010-9999-0000",
		Email:         "new@example.com",
		AgreeOptional: true,
		Image:         uploadstest.FileHeader(t, "me.png", uploadstest.PNG),
	})
	require.NoError(t, err)

	fresh, err := s.GetUserByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kim Updated", fresh.FullName)
	assert.Equal(t, "new@example.com", fresh.Email)
	assert.True(t, fresh.OptionalTermsAgreed)
	assert.NotNil(t, fresh.OptionalTermsAgreedAt)
	assert.NotEmpty(t, fresh.ProfileImageName)
	assert.Len(t, auditRows(t, s, "profile_update"), 1)

	err = svc.UpdateProfile(context.Background(), fresh, account.ProfileUpdate{
		FullName: "Kim", Phone: "010-1234-5678", Email: "new@example.com",
		Image: uploadstest.FileHeader(t, "script.svg", []byte("<svg/>")),
	})
	assert.ErrorIs(t, err, uploads.ErrNotAllowed)
}

func TestChangeRole(t *testing.T) {
	s := storagetest.New(t)
	svc := newService(t, s, account.Throttle{})
	u1 := register(t, svc, "u1")
	admin := register(t, svc, "ops")
	_, err := svc.SetRole(context.Background(), "ops", config.RoleAdmin)
	require.NoError(t, err)
	admin, err = s.GetUserByID(admin.ID)
	require.NoError(t, err)

	_, err = svc.ChangeRole(context.Background(), u1, admin.ID, config.RoleUser)
	assert.ErrorIs(t, err, authz.ErrForbidden)

	_, err = svc.ChangeRole(context.Background(), admin, admin.ID, config.RoleUser)
	assert.ErrorIs(t, err, authz.ErrSelfDemotion)
	still, err := s.GetUserByID(admin.ID)
	require.NoError(t, err)
	assert.Equal(t, config.RoleAdmin, still.Role, "self-demotion leaves the role unchanged")

	_, err = svc.ChangeRole(context.Background(), admin, u1.ID, "superuser")
	var verrs validation.Errors
	assert.ErrorAs(t, err, &verrs)

	promoted, err := svc.ChangeRole(context.Background(), admin, u1.ID, config.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	rows := auditRows(t, s, "user_role_update")
	require.Len(t, rows, 2)
	assert.Equal(t, config.RoleAdmin, rows[1].Meta)
}

func TestEnsureAdmin(t *testing.T) {
	s := storagetest.New(t)
	svc := newService(t, s, account.Throttle{})

	created, err := svc.EnsureAdmin(context.Background(), "admin", "Admin@example.com", "admin12345")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(context.Background(), "admin", "admin@example.com", "admin12345")
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := s.GetUserByUsername("admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, "admin@example.com", admin.Email)
}
