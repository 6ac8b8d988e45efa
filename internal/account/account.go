// Package account handles registration, login, profiles and role changes.
package account

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/authz"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"
	"healthportal/backend/internal/storage"
	"healthportal/backend/internal/uploads"
	"healthportal/backend/internal/validation"

	"go.uber.org/zap"
)

var (
	ErrDuplicateAccount   = errors.New("username or email already registered")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrTermsRequired      = errors.New("required terms must be accepted")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)

// Store is the persistence the account service needs.
type Store interface {
	CreateUser(user *models.User) error
	UpdateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	IsUsernameOrEmailTaken(username, email string) (bool, error)
	IsEmailTakenByOther(email string, userID uint) (bool, error)
	SearchUsers(f storage.UserFilter, p storage.Page) ([]models.User, int64, error)

	RecordLoginFailure(key string, window time.Duration) (int64, error)
	LoginFailures(key string) (int64, error)
	ClearLoginFailures(key string) error
}

// ImageStore keeps profile images.
type ImageStore interface {
	Check(fh *multipart.FileHeader) (string, error)
	Save(fh *multipart.FileHeader) (uploads.Saved, error)
	Remove(stored string) error
}

// Throttle bounds failed logins per username and client IP. MaxFailures <= 0
// disables it.
type Throttle struct {
	MaxFailures int
	Window      time.Duration
}

type Service struct {
	store    Store
	audit    audit.Recorder
	images   ImageStore
	throttle Throttle
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, rec audit.Recorder, images ImageStore, throttle Throttle, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, audit: rec, images: images, throttle: throttle, log: log, now: time.Now}
}

type Registration struct {
	Username      string
	Email         string
	FullName      string
	Phone         string
	Password      string
	AgreeRequired bool
	AgreeOptional bool
}

// Register creates a plain user. Validation failures are returned as
// validation.Errors.
func (s *Service) Register(ctx context.Context, in Registration) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)

	if errs := validation.Registration(in.Username, in.Email, in.FullName, in.Phone, in.Password); len(errs) > 0 {
		return nil, errs
	}
	if !in.AgreeRequired {
		return nil, ErrTermsRequired
	}

	taken, err := s.store.IsUsernameOrEmailTaken(in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check duplicate account: %w", err)
	}
	if taken {
		return nil, ErrDuplicateAccount
	}

	now := s.now()
	user := &models.User{
		Username:              in.Username,
		Email:                 in.Email,
		FullName:              in.FullName,
		Phone:                 in.Phone,
		Role:                  config.RoleUser,
		RequiredTermsAgreed:   true,
		RequiredTermsAgreedAt: &now,
	}
	if in.AgreeOptional {
		user.OptionalTermsAgreed = true
		user.OptionalTermsAgreedAt = &now
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(user); err != nil {
		// A concurrent registration won the unique index.
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit.Log(ctx, audit.Entry{
		ActorID:    &user.ID,
		Action:     "register",
		TargetType: "user",
		TargetID:   audit.ID(user.ID),
	})
	return user, nil
}

// Authenticate checks credentials and writes login_attempt followed by login,
// login_failed or login_throttled.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	ri := audit.RequestFrom(ctx)
	key := username + "|" + ri.IP

	if s.throttle.MaxFailures > 0 {
		n, err := s.store.LoginFailures(key)
		if err != nil {
			s.log.Warn("login throttle lookup failed", zap.Error(err))
		} else if n >= int64(s.throttle.MaxFailures) {
			s.logLogin(ctx, "login_attempt", nil, username, "throttled", ri)
			s.logLogin(ctx, "login_throttled", nil, username, "throttled", ri)
			return nil, ErrTooManyAttempts
		}
	}

	user, err := s.store.GetUserByUsername(username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil || !user.CheckPassword(password) {
		s.logLogin(ctx, "login_attempt", nil, username, "failed", ri)
		s.logLogin(ctx, "login_failed", nil, username, "failed", ri)
		if s.throttle.MaxFailures > 0 {
			if _, err := s.store.RecordLoginFailure(key, s.throttle.Window); err != nil {
				s.log.Warn("login throttle update failed", zap.Error(err))
			}
		}
		return nil, ErrInvalidCredentials
	}

	s.logLogin(ctx, "login_attempt", user, username, "ok", ri)
	s.logLogin(ctx, "login", user, username, "ok", ri)
	if s.throttle.MaxFailures > 0 {
		if err := s.store.ClearLoginFailures(key); err != nil {
			s.log.Warn("login throttle reset failed", zap.Error(err))
		}
	}
	return user, nil
}

func (s *Service) logLogin(ctx context.Context, action string, user *models.User, username, result string, ri audit.RequestInfo) {
	e := audit.Entry{
		Action:     action,
		TargetType: "user",
		Meta:       audit.FormatMeta(append([]string{"username", username, "result", result}, ri.Meta()...)...),
	}
	if user != nil {
		e.ActorID = &user.ID
		e.TargetID = audit.ID(user.ID)
	} else {
		e.Anonymous = true
	}
	s.audit.Log(ctx, e)
}

// Logout only records the event; the caller revokes the session.
func (s *Service) Logout(ctx context.Context, user *models.User) {
	if user == nil {
		return
	}
	s.audit.Log(ctx, audit.Entry{ActorID: &user.ID, Action: "logout", TargetType: "user", TargetID: audit.ID(user.ID)})
}

func (s *Service) Get(id uint) (*models.User, error) {
	return s.store.GetUserByID(id)
}

type ProfileUpdate struct {
	FullName      string
	Phone         string
	Email         string
	AgreeOptional bool
	Image         *multipart.FileHeader
}

// UpdateProfile edits the caller's own profile. A replaced image is removed
// from disk best-effort.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, in ProfileUpdate) error {
	if err := authz.Check(user, authz.Update, user); err != nil {
		return err
	}
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if errs := validation.Profile(in.FullName, in.Phone, in.Email); len(errs) > 0 {
		return errs
	}
	if in.Email != user.Email {
		taken, err := s.store.IsEmailTakenByOther(in.Email, user.ID)
		if err != nil {
			return fmt.Errorf("check duplicate email: %w", err)
		}
		if taken {
			return ErrDuplicateEmail
		}
	}

	var newImage string
	if in.Image != nil {
		saved, err := s.images.Save(in.Image)
		if err != nil {
			return err
		}
		newImage = saved.StoredName
	}

	oldImage := user.ProfileImageName
	user.FullName = in.FullName
	user.Phone = in.Phone
	user.Email = in.Email
	if newImage != "" {
		user.ProfileImageName = newImage
	}
	switch {
	case in.AgreeOptional && !user.OptionalTermsAgreed:
		now := s.now()
		user.OptionalTermsAgreed = true
		user.OptionalTermsAgreedAt = &now
	case !in.AgreeOptional && user.OptionalTermsAgreed:
		user.OptionalTermsAgreed = false
		user.OptionalTermsAgreedAt = nil
	}

	if err := s.store.UpdateUser(user); err != nil {
		if newImage != "" {
			s.removeImage(newImage)
		}
		return fmt.Errorf("update user: %w", err)
	}
	if newImage != "" && oldImage != "" {
		s.removeImage(oldImage)
	}

	s.audit.Log(ctx, audit.Entry{ActorID: &user.ID, Action: "profile_update", TargetType: "user", TargetID: audit.ID(user.ID)})
	return nil
}

func (s *Service) removeImage(stored string) {
	if err := s.images.Remove(stored); err != nil {
		s.log.Warn("profile image cleanup failed", zap.String("stored_name", stored), zap.Error(err))
	}
}

// ChangeRole sets the role of targetID. Admins cannot demote themselves.
func (s *Service) ChangeRole(ctx context.Context, actor *models.User, targetID uint, role string) (*models.User, error) {
	if err := authz.Check(actor, authz.ChangeRole, authz.RoleChange{}); err != nil {
		return nil, err
	}
	if errs := validation.Role(role); len(errs) > 0 {
		return nil, errs
	}
	target, err := s.store.GetUserByID(targetID)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(actor, authz.ChangeRole, authz.RoleChange{Target: target, NewRole: role}); err != nil {
		return nil, err
	}

	target.Role = role
	if err := s.store.UpdateUser(target); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	s.audit.Log(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     "user_role_update",
		TargetType: "user",
		TargetID:   audit.ID(target.ID),
		Meta:       role,
	})
	return target, nil
}

// Search lists users for the admin console.
func (s *Service) Search(actor *models.User, f storage.UserFilter, p storage.Page) ([]models.User, int64, error) {
	if err := authz.Check(actor, authz.Administer, authz.AdminArea{}); err != nil {
		return nil, 0, err
	}
	return s.store.SearchUsers(f, p)
}

// SetRole changes a role by username without an acting user. It backs the
// operator CLI and is audited with a null actor.
func (s *Service) SetRole(ctx context.Context, username, role string) (*models.User, error) {
	if errs := validation.Role(role); len(errs) > 0 {
		return nil, errs
	}
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.store.UpdateUser(user); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, audit.Entry{
		Anonymous:  true,
		Action:     "user_role_update",
		TargetType: "user",
		TargetID:   audit.ID(user.ID),
		Meta:       audit.FormatMeta("role", role, "via", "cli"),
	})
	return user, nil
}

// EnsureAdmin creates the bootstrap admin when username is not taken yet.
// It reports whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	_, err := s.store.GetUserByUsername(username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	now := s.now()
	admin := &models.User{
		Username:              username,
		Email:                 strings.ToLower(email),
		FullName:              "System Administrator",
		Phone:                 "000-0000-0000",
		Role:                  config.RoleAdmin,
		RequiredTermsAgreed:   true,
		RequiredTermsAgreedAt: &now,
	}
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := s.store.CreateUser(admin); err != nil {
		return false, err
	}
	s.audit.Log(ctx, audit.Entry{Anonymous: true, Action: "admin_bootstrap", TargetType: "user", TargetID: audit.ID(admin.ID)})
	return true, nil
}
