package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
	"github.com/oksasatya/go-ddd-storefront/pkg/helpers"
	mailtpl "github.com/oksasatya/go-ddd-storefront/pkg/mailer/templates"
)

func codeFrom(t *testing.T, n *captureNotifier, template string) string {
	t.Helper()
	job := n.last()
	if job.Template != template {
		t.Fatalf("last email is %q, want %q", job.Template, template)
	}
	code, _ := job.Data["Code"].(string)
	if len(code) != 6 {
		t.Fatalf("bad code %q", code)
	}
	return code
}

func otherCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestRegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	token, err := f.accounts.Register(ctx, "Bob", " Bob@Example.com ", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.Users().GetByEmail(ctx, "bob@example.com"); err == nil {
		t.Fatal("user persisted before verification")
	}
	code := codeFrom(t, f.notifier, mailtpl.VerificationCode)

	if _, err := f.accounts.VerifyEmail(ctx, token, otherCode(code)); !apperror.Is(err, apperror.KindInvalidCode) {
		t.Fatalf("wrong code: expected InvalidCode, got %v", err)
	}
	u, err := f.accounts.VerifyEmail(ctx, token, code)
	if err != nil {
		t.Fatal(err)
	}
	if !u.IsEmailVerified || u.Email != "bob@example.com" || u.IsAdmin {
		t.Fatalf("unexpected user %+v", u)
	}

	// the same activation cannot create a second account
	if _, err := f.accounts.VerifyEmail(ctx, token, code); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestRegisterExistingEmailConflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.accounts.Register(context.Background(), "Ann", "ANN@example.com", "secret1")
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	_, err := f.accounts.Register(context.Background(), "Bob", "bob@example.com", "123")
	if !apperror.Is(err, apperror.KindInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestRegisterEmailFailureIsUpstream(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	_, err := f.accounts.Register(context.Background(), "Bob", "bob@example.com", "secret1")
	if !apperror.Is(err, apperror.KindUpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}
}

func TestVerifyExpiredActivation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.accounts.JWT = helpers.NewJWTManager("test-secret", time.Hour, -time.Minute)
	token, err := f.accounts.Register(ctx, "Bob", "bob@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	code := codeFrom(t, f.notifier, mailtpl.VerificationCode)
	if _, err := f.accounts.VerifyEmail(ctx, token, code); !apperror.Is(err, apperror.KindInvalidCode) {
		t.Fatalf("expected InvalidCode, got %v", err)
	}
	if _, err := f.store.Users().GetByEmail(ctx, "bob@example.com"); err == nil {
		t.Fatal("expired verification created a user")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hash, _ := helpers.HashPassword("secret1")
	u := f.addUser(t, "Unverified", "u@example.com", false)
	stored, _ := f.store.Users().GetByID(ctx, u.UserID)
	stored.IsEmailVerified = false
	stored.Password = hash
	_ = f.store.Users().Update(ctx, stored)

	cases := map[string][2]string{
		"unknown email":  {"nobody@example.com", "secret1"},
		"wrong password": {"ann@example.com", "nope123"},
		"unverified":     {"u@example.com", "secret1"},
	}
	for name, c := range cases {
		_, _, err := f.accounts.Login(ctx, c[0], c[1])
		if !apperror.Is(err, apperror.KindUnauthorized) || apperror.MessageOf(err) != msgInvalidLogin {
			t.Fatalf("%s: got %v", name, err)
		}
	}

	user, sess, err := f.accounts.Login(ctx, "Ann@Example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != f.buyer.UserID || sess.Token == "" || sess.ExpiresAt.Before(time.Now()) {
		t.Fatalf("bad session %+v", sess)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, sess, err := f.accounts.Login(ctx, "ann@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	u, err := f.accounts.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatal(err)
	}
	if u.Password != "" {
		t.Fatal("password hash leaked into request context")
	}
	if err := f.accounts.Logout(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := f.accounts.Authenticate(ctx, sess.Token); !apperror.Is(err, apperror.KindUnauthorized) {
		t.Fatalf("expected Unauthorized after logout, got %v", err)
	}
	if _, err := f.accounts.Authenticate(ctx, "garbage"); !apperror.Is(err, apperror.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.accounts.ForgotPassword(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must look like success: %v", err)
	}
	if len(f.notifier.jobs) != 0 {
		t.Fatal("email sent for unknown account")
	}

	if err := f.accounts.ForgotPassword(ctx, "ann@example.com"); err != nil {
		t.Fatal(err)
	}
	code := codeFrom(t, f.notifier, mailtpl.ResetCode)

	if err := f.accounts.ResetPassword(ctx, "ann@example.com", otherCode(code), "newpass1"); !apperror.Is(err, apperror.KindInvalidCode) {
		t.Fatalf("expected InvalidCode, got %v", err)
	}
	if err := f.accounts.ResetPassword(ctx, "ann@example.com", code, "secret1"); !apperror.Is(err, apperror.KindInvalidInput) {
		t.Fatalf("reusing the current password: expected InvalidInput, got %v", err)
	}
	if err := f.accounts.ResetPassword(ctx, "ann@example.com", code, "newpass1"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.accounts.Login(ctx, "ann@example.com", "newpass1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	// codes are single use
	if err := f.accounts.ResetPassword(ctx, "ann@example.com", code, "another1"); !apperror.Is(err, apperror.KindInvalidCode) {
		t.Fatalf("expected InvalidCode on reuse, got %v", err)
	}
}

func TestResetCodeExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.accounts.ForgotPassword(ctx, "ann@example.com")
	code := codeFrom(t, f.notifier, mailtpl.ResetCode)
	f.accounts.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	if err := f.accounts.ResetPassword(ctx, "ann@example.com", code, "newpass1"); !apperror.Is(err, apperror.KindInvalidCode) {
		t.Fatalf("expected InvalidCode, got %v", err)
	}
}

func TestResetCodeDroppedAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.accounts.ForgotPassword(ctx, "ann@example.com")
	code := codeFrom(t, f.notifier, mailtpl.ResetCode)

	for i := 0; i < maxResetAttempts; i++ {
		if err := f.accounts.ResetPassword(ctx, "ann@example.com", otherCode(code), "newpass1"); !apperror.Is(err, apperror.KindInvalidCode) {
			t.Fatalf("attempt %d: expected InvalidCode, got %v", i+1, err)
		}
	}
	if err := f.accounts.ResetPassword(ctx, "ann@example.com", code, "newpass1"); !apperror.Is(err, apperror.KindInvalidCode) {
		t.Fatalf("correct code after lockout: expected InvalidCode, got %v", err)
	}
	u, _ := f.store.Users().GetByEmail(ctx, "ann@example.com")
	if u.ResetCode != "" || u.ResetAttempts != 0 {
		t.Fatalf("reset state not cleared: %+v", u)
	}

	// a fresh code starts a fresh count
	_ = f.accounts.ForgotPassword(ctx, "ann@example.com")
	code = codeFrom(t, f.notifier, mailtpl.ResetCode)
	if err := f.accounts.ResetPassword(ctx, "ann@example.com", otherCode(code), "newpass1"); !apperror.Is(err, apperror.KindInvalidCode) {
		t.Fatalf("expected InvalidCode, got %v", err)
	}
	if err := f.accounts.ResetPassword(ctx, "ann@example.com", code, "newpass1"); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	name, email, pw := "Annie", "annie@example.com", "changed1"
	u, err := f.accounts.UpdateProfile(ctx, f.buyer, ProfileUpdate{Name: &name, Email: &email, Password: &pw})
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "Annie" || u.Email != "annie@example.com" {
		t.Fatalf("got %+v", u)
	}
	if _, _, err := f.accounts.Login(ctx, "annie@example.com", "changed1"); err != nil {
		t.Fatalf("login after update: %v", err)
	}
	taken := "admin@example.com"
	if _, err := f.accounts.UpdateProfile(ctx, f.buyer, ProfileUpdate{Email: &taken}); !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestAdminUserManagement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.accounts.ListUsers(ctx, f.buyer); !apperror.Is(err, apperror.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	users, err := f.accounts.ListUsers(ctx, f.admin)
	if err != nil || len(users) != 2 {
		t.Fatalf("list: %v %d", err, len(users))
	}

	if err := f.accounts.DeleteUser(ctx, f.admin, f.admin.UserID); !apperror.Is(err, apperror.KindForbidden) {
		t.Fatalf("deleting an admin: expected Forbidden, got %v", err)
	}

	yes := true
	promoted, err := f.accounts.UpdateUser(ctx, f.admin, f.buyer.UserID, AdminUserUpdate{IsAdmin: &yes})
	if err != nil || !promoted.IsAdmin {
		t.Fatalf("promote: %v", err)
	}
	no := false
	if _, err := f.accounts.UpdateUser(ctx, f.admin, f.buyer.UserID, AdminUserUpdate{IsAdmin: &no}); err != nil {
		t.Fatal(err)
	}

	if err := f.accounts.DeleteUser(ctx, f.admin, f.buyer.UserID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.accounts.GetUser(ctx, f.admin, f.buyer.UserID); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	if _, err := f.accounts.GetUser(ctx, f.admin, "not-a-uuid"); !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("malformed id: expected NotFound, got %v", err)
	}
}
