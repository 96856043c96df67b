package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

type sentCode struct {
	to, username, code string
	validFor           time.Duration
	reset              bool
}

type fakeMailer struct {
	mu         sync.Mutex
	sent       []sentCode
	configured bool
	err        error
}

func (m *fakeMailer) Configured() bool { return m.configured }

func (m *fakeMailer) SendVerification(_ context.Context, to, username, code string, validFor time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentCode{to: to, username: username, code: code, validFor: validFor})
	return m.err
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, username, otp string, validFor time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentCode{to: to, username: username, code: otp, validFor: validFor, reset: true})
	return m.err
}

func (m *fakeMailer) last(t *testing.T) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected an email to be sent")
	}
	return m.sent[len(m.sent)-1]
}

type fakeTokens struct{}

func (fakeTokens) Issue(u user.User) (string, error) { return "token-" + u.ID, nil }

func newTestService(t *testing.T) (*Service, *fakeMailer, *time.Time) {
	t.Helper()
	mailer := &fakeMailer{configured: true}
	svc := NewService(user.NewMemoryStore(), mailer, fakeTokens{})
	svc.hashCost = bcrypt.MinCost
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, mailer, &now
}

func TestSignUpVerifySignIn(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, "  Alice ", "Alice@Example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if u.Username != "alice" || u.Email != "alice@example.com" {
		t.Fatalf("expected normalized identity, got %q %q", u.Username, u.Email)
	}
	if u.IsVerified || !u.IsAcceptingMessages {
		t.Fatalf("unexpected initial flags: %+v", u)
	}

	sent := mailer.last(t)
	if sent.to != "alice@example.com" || sent.validFor != time.Hour || len(sent.code) != 6 {
		t.Fatalf("unexpected verification email: %+v", sent)
	}

	if _, _, err := svc.SignIn(ctx, "alice", "s3cretpass"); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified before verification, got %v", err)
	}

	if err := svc.VerifyCode(ctx, "ALICE", sent.code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	verified, err := svc.VerificationStatus(ctx, "alice")
	if err != nil || !verified {
		t.Fatalf("expected verified, got %v %v", verified, err)
	}

	token, signedIn, err := svc.SignIn(ctx, "alice@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("sign in by email: %v", err)
	}
	if token != "token-"+signedIn.ID {
		t.Fatalf("unexpected token %q", token)
	}
	if _, _, err := svc.SignIn(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "nobody", "whatever"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSignUpReleasesUnverifiedUsername(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.SignUp(ctx, "carol", "carol@old.example.com", "password1")
	if err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	staleCode := mailer.last(t).code
	msg := user.Message{ID: "m1", Content: "meant for the old owner", CreatedAt: first.CreatedAt}
	if err := svc.store.AppendMessage(ctx, first.ID, msg); err != nil {
		t.Fatalf("append: %v", err)
	}

	available, err := svc.CheckUsername(ctx, "carol")
	if err != nil || !available {
		t.Fatalf("expected unverified username to be available, got %v %v", available, err)
	}

	second, err := svc.SignUp(ctx, "carol", "carol@new.example.com", "password2")
	if err != nil {
		t.Fatalf("second sign up: %v", err)
	}
	if second.ID == first.ID || second.Email != "carol@new.example.com" {
		t.Fatalf("expected a fresh account, got %+v", second)
	}
	if _, err := svc.store.FindByEmail(ctx, "carol@old.example.com"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected stale account to be removed, got %v", err)
	}
	msgs, err := svc.store.Messages(ctx, second.ID)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("new owner inherited messages: %v %v", msgs, err)
	}

	newCode := mailer.last(t).code
	if staleCode != newCode {
		if err := svc.VerifyCode(ctx, "carol", staleCode); !errors.Is(err, ErrCodeInvalid) {
			t.Fatalf("expected stale code to be rejected, got %v", err)
		}
	}
	if err := svc.VerifyCode(ctx, "carol", newCode); err != nil {
		t.Fatalf("verify new owner: %v", err)
	}
}

func TestSignUpConflicts(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "bob", "bob@example.com", "password1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	available, err := svc.CheckUsername(ctx, "bob")
	if err != nil || !available {
		t.Fatalf("unverified username should stay available, got %v %v", available, err)
	}

	if err := svc.VerifyCode(ctx, "bob", mailer.last(t).code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	available, err = svc.CheckUsername(ctx, "Bob")
	if err != nil || available {
		t.Fatalf("verified username should be taken, got %v %v", available, err)
	}
	if _, err := svc.SignUp(ctx, "bob", "other@example.com", "password1"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.SignUp(ctx, "bobby", "bob@example.com", "password1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignUpRefreshesUnverifiedAccount(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.SignUp(ctx, "carol", "carol@example.com", "password1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	second, err := svc.SignUp(ctx, "carol", "carol@example.com", "password2")
	if err != nil {
		t.Fatalf("repeat sign up: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the unverified account to be reused")
	}
	code := mailer.last(t).code
	if err := svc.VerifyCode(ctx, "carol", code); err != nil {
		t.Fatalf("verify with refreshed code: %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "carol", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "carol", "password2"); err != nil {
		t.Fatalf("sign in with new password: %v", err)
	}
}

func TestVerifyCodeErrors(t *testing.T) {
	svc, mailer, now := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "dave", "dave@example.com", "password1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	code := mailer.last(t).code

	if err := svc.VerifyCode(ctx, "dave", "000000x"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
	if err := svc.VerifyCode(ctx, "ghost", code); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	*now = now.Add(2 * time.Hour)
	if err := svc.VerifyCode(ctx, "dave", code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}

	if err := svc.ResendCode(ctx, "dave"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	resent := mailer.last(t)
	if resent.validFor != 15*time.Minute {
		t.Fatalf("expected 15 minute code, got %v", resent.validFor)
	}
	if err := svc.VerifyCode(ctx, "dave", resent.code); err != nil {
		t.Fatalf("verify resent code: %v", err)
	}
	if err := svc.VerifyCode(ctx, "dave", resent.code); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("code should be consumed after verification, got %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	svc, mailer, now := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, "erin", "erin@example.com", "password1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := svc.VerifyCode(ctx, "erin", mailer.last(t).code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := svc.ForgotPassword(ctx, "ERIN@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	otp := mailer.last(t)
	if !otp.reset || otp.validFor != 10*time.Minute || len(otp.code) != 6 {
		t.Fatalf("unexpected reset email: %+v", otp)
	}

	if err := svc.VerifyOTP(ctx, "erin@example.com", otp.code); err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if err := svc.ResetPassword(ctx, "erin@example.com", otp.code, "brand-new"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "erin", "brand-new"); err != nil {
		t.Fatalf("sign in with new password: %v", err)
	}
	if err := svc.ResetPassword(ctx, "erin@example.com", otp.code, "again-new"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("otp should be single use, got %v", err)
	}

	if err := svc.ForgotPassword(ctx, "erin@example.com"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	*now = now.Add(11 * time.Minute)
	if err := svc.VerifyOTP(ctx, "erin@example.com", mailer.last(t).code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestForgotPasswordRequiresMail(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	mailer.configured = false

	if err := svc.ForgotPassword(context.Background(), "x@example.com"); !errors.Is(err, ErrMailUnavailable) {
		t.Fatalf("expected ErrMailUnavailable, got %v", err)
	}
}

func TestSignUpReportsMailFailure(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	mailer.err = errors.New("smtp down")

	_, err := svc.SignUp(context.Background(), "frank", "frank@example.com", "password1")
	if err == nil || !errors.Is(err, mailer.err) {
		t.Fatalf("expected mail failure to surface, got %v", err)
	}
}

func TestAcceptingMessagesToggle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.SignUp(ctx, "gina", "gina@example.com", "password1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	updated, err := svc.SetAcceptingMessages(ctx, u.ID, false)
	if err != nil || updated.IsAcceptingMessages {
		t.Fatalf("expected acceptance off, got %+v %v", updated, err)
	}
	accepting, err := svc.AcceptingMessages(ctx, u.ID)
	if err != nil || accepting {
		t.Fatalf("expected false, got %v %v", accepting, err)
	}
	if _, err := svc.AcceptingMessages(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCodeFormats(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := verificationCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != 6 || code[0] == '0' {
			t.Fatalf("bad verification code %q", code)
		}
		otp, err := resetCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(otp) != 6 {
			t.Fatalf("bad reset code %q", otp)
		}
	}
}
