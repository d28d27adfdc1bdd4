package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
	"github.com/oksasatya/go-ddd-storefront/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-storefront/pkg/mailer/templates"
)

const (
	msgInvalidLogin  = "invalid email or password"
	msgInvalidReset  = "invalid or expired reset code"
	minPasswordLen   = 6
	maxResetAttempts = 5
)

// dummyHash keeps login timing similar for unknown emails.
var dummyHash, _ = helpers.HashPassword("timing-equalizer")

type AccountService struct {
	Users    repo.UserRepository
	JWT      *helpers.JWTManager
	Revoker  SessionRevoker
	Notifier Notifier
	Logger   *logrus.Logger
	AppName  string
	ResetTTL time.Duration
	now      func() time.Time
}

func NewAccountService(users repo.UserRepository, jwt *helpers.JWTManager, revoker SessionRevoker, notifier Notifier, logger *logrus.Logger, appName string, resetTTL time.Duration) *AccountService {
	return &AccountService{
		Users:    users,
		JWT:      jwt,
		Revoker:  revoker,
		Notifier: notifier,
		Logger:   logger,
		AppName:  appName,
		ResetTTL: resetTTL,
		now:      time.Now,
	}
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(pw string) error {
	if len(pw) < minPasswordLen {
		return apperror.InvalidInput("password must be at least 6 characters")
	}
	return nil
}

// Register emails a verification code and returns an activation token carrying the pending account.
// Nothing is persisted until VerifyEmail.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (string, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if name == "" || email == "" {
		return "", apperror.InvalidInput("name and email are required")
	}
	if err := checkPassword(password); err != nil {
		return "", err
	}
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return "", apperror.Conflict("user already exists")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return "", apperror.Internal(err)
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return "", apperror.Internal(err)
	}
	code, err := helpers.GenOTPCode()
	if err != nil {
		return "", apperror.Internal(err)
	}
	token, exp, err := s.JWT.GenerateActivationToken(name, email, hash, code)
	if err != nil {
		return "", apperror.Internal(err)
	}

	job := mailer.EmailJob{
		To:       email,
		Template: mailtpl.VerificationCode,
		Data:     mailtpl.NewVerificationCodeData(s.AppName, name, code, exp),
	}
	if err := s.Notifier.Notify(ctx, job); err != nil {
		helpers.LogError(s.Logger, "queue verification email failed", err, logrus.Fields{"email": email})
		return "", apperror.Upstream("could not send verification email", err)
	}
	return token, nil
}

// VerifyEmail checks the code against the activation token and persists the verified user.
func (s *AccountService) VerifyEmail(ctx context.Context, activationToken, code string) (*entity.User, error) {
	claims, err := s.JWT.ParseActivationToken(activationToken, code)
	if err != nil {
		return nil, apperror.InvalidCode("invalid or expired verification code")
	}
	u := &entity.User{
		Name:            claims.Name,
		Email:           claims.Email,
		Password:        claims.PasswordHash,
		IsEmailVerified: true,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperror.Conflict("user already exists")
		}
		return nil, apperror.Internal(err)
	}
	helpers.LogInfo(s.Logger, "user registered", logrus.Fields{"user_id": u.ID})
	return u, nil
}

// Login verifies credentials and issues a session. Every failure reads the same.
func (s *AccountService) Login(ctx context.Context, email, password string) (*entity.User, Session, error) {
	u, err := s.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, Session{}, apperror.Internal(err)
		}
		helpers.CompareHashAndPassword(dummyHash, password)
		return nil, Session{}, apperror.Unauthorized(msgInvalidLogin)
	}
	if !helpers.CompareHashAndPassword(u.Password, password) || !u.IsEmailVerified {
		return nil, Session{}, apperror.Unauthorized(msgInvalidLogin)
	}
	token, _, exp, err := s.JWT.GenerateSessionToken(u.ID)
	if err != nil {
		return nil, Session{}, apperror.Internal(err)
	}
	return u, Session{Token: token, ExpiresAt: exp}, nil
}

// Logout revokes the token's id until it would have expired. Invalid tokens are ignored.
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" || s.Revoker == nil {
		return nil
	}
	claims, err := s.JWT.ParseSessionToken(token)
	if err != nil {
		return nil
	}
	if err := s.Revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		helpers.LogError(s.Logger, "revoke session failed", err, logrus.Fields{"user_id": claims.UserID})
		return apperror.Internal(err)
	}
	return nil
}

// Authenticate resolves a session token to the current user.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, apperror.Unauthorized("not authorized, no token")
	}
	claims, err := s.JWT.ParseSessionToken(token)
	if err != nil {
		return nil, apperror.Unauthorized("not authorized, token failed")
	}
	if s.Revoker != nil {
		revoked, err := s.Revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			helpers.LogError(s.Logger, "revocation lookup failed", err, nil)
		}
		if revoked {
			return nil, apperror.Unauthorized("not authorized, token revoked")
		}
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperror.Unauthorized("not authorized, user not found")
		}
		return nil, apperror.Internal(err)
	}
	u.Password = ""
	u.ClearResetCode()
	return u, nil
}

// ForgotPassword emails a reset code when the account exists. The result never reveals which.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			helpers.LogError(s.Logger, "forgot password lookup failed", err, nil)
		}
		return nil
	}
	code, err := helpers.GenOTPCode()
	if err != nil {
		return apperror.Internal(err)
	}
	hash, err := helpers.HashPassword(code)
	if err != nil {
		return apperror.Internal(err)
	}
	exp := s.now().Add(s.ResetTTL)
	u.ResetCode = hash
	u.ResetCodeExpiresAt = &exp
	u.ResetAttempts = 0
	if err := s.Users.Update(ctx, u); err != nil {
		return apperror.Internal(err)
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.ResetCode,
		Data:     mailtpl.NewResetCodeData(s.AppName, u.Name, code, exp),
	}
	if err := s.Notifier.Notify(ctx, job); err != nil {
		helpers.LogError(s.Logger, "queue reset email failed", err, logrus.Fields{"user_id": u.ID})
	}
	return nil
}

// ResetPassword replaces the password when the reset code matches and is unexpired.
// The code is dropped after maxResetAttempts wrong guesses.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	u, err := s.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.InvalidCode(msgInvalidReset)
		}
		return apperror.Internal(err)
	}
	if u.ResetCode == "" || u.ResetCodeExpiresAt == nil || s.now().After(*u.ResetCodeExpiresAt) {
		return apperror.InvalidCode(msgInvalidReset)
	}
	if !helpers.CompareHashAndPassword(u.ResetCode, code) {
		return s.recordResetFailure(ctx, u)
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	if helpers.CompareHashAndPassword(u.Password, newPassword) {
		return apperror.InvalidInput("new password must differ from the current password")
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return apperror.Internal(err)
	}
	u.Password = hash
	u.ClearResetCode()
	if err := s.Users.Update(ctx, u); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *AccountService) recordResetFailure(ctx context.Context, u *entity.User) error {
	u.ResetAttempts++
	if u.ResetAttempts >= maxResetAttempts {
		u.ClearResetCode()
		helpers.LogInfo(s.Logger, "reset code dropped after repeated failures", logrus.Fields{"user_id": u.ID})
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return apperror.Internal(err)
	}
	return apperror.InvalidCode(msgInvalidReset)
}

func (s *AccountService) GetProfile(ctx context.Context, p entity.Principal) (*entity.User, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	u, err := s.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return u, nil
}

// ProfileUpdate holds optional changes; nil fields are left alone.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

func (s *AccountService) UpdateProfile(ctx context.Context, p entity.Principal, in ProfileUpdate) (*entity.User, error) {
	u, err := s.GetProfile(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := applyUserChanges(u, in.Name, in.Email); err != nil {
		return nil, err
	}
	if in.Password != nil && *in.Password != "" {
		if err := checkPassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := helpers.HashPassword(*in.Password)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		u.Password = hash
	}
	if err := s.saveUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func applyUserChanges(u *entity.User, name, email *string) error {
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return apperror.InvalidInput("name must not be empty")
		}
		u.Name = n
	}
	if email != nil {
		e := normalizeEmail(*email)
		if e == "" {
			return apperror.InvalidInput("email must not be empty")
		}
		u.Email = e
	}
	return nil
}

func (s *AccountService) saveUser(ctx context.Context, u *entity.User) error {
	if err := s.Users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return apperror.Conflict("email already in use")
		case errors.Is(err, repo.ErrNotFound):
			return apperror.NotFound("user not found")
		}
		return apperror.Internal(err)
	}
	return nil
}

func (s *AccountService) ListUsers(ctx context.Context, p entity.Principal) ([]*entity.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return users, nil
}

func (s *AccountService) GetUser(ctx context.Context, p entity.Principal, id string) (*entity.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return u, nil
}

type AdminUserUpdate struct {
	Name    *string
	Email   *string
	IsAdmin *bool
}

func (s *AccountService) UpdateUser(ctx context.Context, p entity.Principal, id string, in AdminUserUpdate) (*entity.User, error) {
	u, err := s.GetUser(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := applyUserChanges(u, in.Name, in.Email); err != nil {
		return nil, err
	}
	if in.IsAdmin != nil {
		u.IsAdmin = *in.IsAdmin
	}
	if err := s.saveUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes a non-admin account.
func (s *AccountService) DeleteUser(ctx context.Context, p entity.Principal, id string) error {
	u, err := s.GetUser(ctx, p, id)
	if err != nil {
		return err
	}
	if u.IsAdmin {
		return apperror.Forbidden("cannot delete admin user")
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		return notFoundOr(err, "user not found")
	}
	helpers.LogInfo(s.Logger, "user deleted", logrus.Fields{"user_id": id, "by": p.UserID})
	return nil
}
