package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ghostnote/ghost-note/backend/internal/model/user"
)

const (
	signUpCodeTTL = time.Hour
	resendCodeTTL = 15 * time.Minute
	resetCodeTTL  = 10 * time.Minute
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrCodeExpired        = errors.New("code has expired")
	ErrCodeInvalid        = errors.New("invalid code")
	ErrNotVerified        = errors.New("account is not verified")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMailUnavailable    = errors.New("mail service not configured")
)

// Mailer delivers account codes.
type Mailer interface {
	Configured() bool
	SendVerification(ctx context.Context, to, username, code string, validFor time.Duration) error
	SendPasswordReset(ctx context.Context, to, username, otp string, validFor time.Duration) error
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(u user.User) (string, error)
}

// Service implements registration, verification, password reset and sign-in.
type Service struct {
	store    user.Store
	mailer   Mailer
	tokens   TokenIssuer
	hashCost int
	now      func() time.Time
}

// NewService wires the account service.
func NewService(store user.Store, mailer Mailer, tokens TokenIssuer) *Service {
	return &Service{
		store:    store,
		mailer:   mailer,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SignUp registers a new account, or refreshes an unverified one registered
// with the same e-mail, and mails a verification code. A username held only by
// an unverified account under another e-mail is released to the new sign-up.
func (s *Service) SignUp(ctx context.Context, username, email, password string) (user.User, error) {
	username = normalizeUsername(username)
	email = normalizeEmail(email)

	var stale *user.User
	holder, err := s.store.FindByUsername(ctx, username)
	switch {
	case err == nil && holder.IsVerified:
		return user.User{}, ErrUsernameTaken
	case err == nil:
		stale = &holder
	case !errors.Is(err, user.ErrNotFound):
		return user.User{}, fmt.Errorf("lookup username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}
	code, err := verificationCode()
	if err != nil {
		return user.User{}, err
	}
	now := s.now()

	existing, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.IsVerified:
		return user.User{}, ErrEmailTaken
	case err == nil:
		existing.PasswordHash = string(hash)
		existing.VerifyCode = code
		existing.VerifyCodeExpiry = now.Add(signUpCodeTTL)
		if err := s.store.Update(ctx, existing); err != nil {
			return user.User{}, fmt.Errorf("refresh unverified user: %w", err)
		}
		username = existing.Username
	case errors.Is(err, user.ErrNotFound):
		if stale != nil {
			if err := s.store.Delete(ctx, stale.ID); err != nil && !errors.Is(err, user.ErrNotFound) {
				return user.User{}, fmt.Errorf("release unverified username: %w", err)
			}
			logrus.Infof("[account] released unverified username=%s", username)
		}
		existing = user.User{
			ID:                  uuid.NewString(),
			Username:            username,
			Email:               email,
			PasswordHash:        string(hash),
			VerifyCode:          code,
			VerifyCodeExpiry:    now.Add(signUpCodeTTL),
			IsAcceptingMessages: true,
			Messages:            []user.Message{},
			CreatedAt:           now,
		}
		if err := s.store.Create(ctx, existing); err != nil {
			if errors.Is(err, user.ErrConflict) {
				return user.User{}, ErrUsernameTaken
			}
			return user.User{}, fmt.Errorf("create user: %w", err)
		}
	default:
		return user.User{}, fmt.Errorf("lookup email: %w", err)
	}

	if err := s.mailer.SendVerification(ctx, email, username, code, signUpCodeTTL); err != nil {
		return existing, fmt.Errorf("send verification email: %w", err)
	}

	logrus.Infof("[account] registered user=%s", username)
	return existing, nil
}

// CheckUsername reports whether username is free for sign-up. A name held
// only by an unverified account counts as free; SignUp releases it.
func (s *Service) CheckUsername(ctx context.Context, username string) (bool, error) {
	u, err := s.store.FindByUsername(ctx, normalizeUsername(username))
	if errors.Is(err, user.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup username: %w", err)
	}
	return !u.IsVerified, nil
}

// VerifyCode marks the account verified when code matches and is unexpired.
func (s *Service) VerifyCode(ctx context.Context, username, code string) error {
	u, err := s.findByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.checkCode(u, code); err != nil {
		return err
	}

	u.IsVerified = true
	u.VerifyCode = ""
	if err := s.store.Update(ctx, u); err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	logrus.Infof("[account] verified user=%s", u.Username)
	return nil
}

// VerificationStatus reports the verification state of username.
func (s *Service) VerificationStatus(ctx context.Context, username string) (bool, error) {
	u, err := s.findByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	return u.IsVerified, nil
}

// ResendCode issues a fresh verification code.
func (s *Service) ResendCode(ctx context.Context, username string) error {
	u, err := s.findByUsername(ctx, username)
	if err != nil {
		return err
	}

	code, err := verificationCode()
	if err != nil {
		return err
	}
	u.VerifyCode = code
	u.VerifyCodeExpiry = s.now().Add(resendCodeTTL)
	if err := s.store.Update(ctx, u); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	if err := s.mailer.SendVerification(ctx, u.Email, u.Username, code, resendCodeTTL); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// ForgotPassword mails a password reset OTP.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if !s.mailer.Configured() {
		return ErrMailUnavailable
	}

	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	otp, err := resetCode()
	if err != nil {
		return err
	}
	u.VerifyCode = otp
	u.VerifyCodeExpiry = s.now().Add(resetCodeTTL)
	if err := s.store.Update(ctx, u); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, u.Email, u.Username, otp, resetCodeTTL); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// VerifyOTP checks a reset OTP without consuming it.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.checkCode(u, otp)
}

// ResetPassword replaces the password when otp is valid and consumes the OTP.
func (s *Service) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.checkCode(u, otp); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.VerifyCode = ""
	if err := s.store.Update(ctx, u); err != nil {
		return fmt.Errorf("store new password: %w", err)
	}
	logrus.Infof("[account] password reset for user=%s", u.Username)
	return nil
}

// SignIn authenticates by e-mail or username and returns a signed token.
func (s *Service) SignIn(ctx context.Context, identifier, password string) (string, user.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	u, err := s.store.FindByIdentifier(ctx, identifier)
	if errors.Is(err, user.ErrNotFound) {
		return "", user.User{}, ErrUserNotFound
	}
	if err != nil {
		return "", user.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.IsVerified {
		return "", user.User{}, ErrNotVerified
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", user.User{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", user.User{}, fmt.Errorf("issue token: %w", err)
	}
	return token, u, nil
}

// AcceptingMessages reports the acceptance flag of the user.
func (s *Service) AcceptingMessages(ctx context.Context, userID string) (bool, error) {
	u, err := s.store.FindByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return u.IsAcceptingMessages, nil
}

// SetAcceptingMessages toggles whether anonymous visitors may post.
func (s *Service) SetAcceptingMessages(ctx context.Context, userID string, accepting bool) (user.User, error) {
	u, err := s.store.SetAcceptingMessages(ctx, userID, accepting)
	if errors.Is(err, user.ErrNotFound) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("update acceptance: %w", err)
	}
	return u, nil
}

func (s *Service) checkCode(u user.User, code string) error {
	valid, expired := u.CodeMatches(code, s.now())
	switch {
	case valid && !expired:
		return nil
	case expired:
		return ErrCodeExpired
	default:
		return ErrCodeInvalid
	}
}

func (s *Service) findByUsername(ctx context.Context, username string) (user.User, error) {
	u, err := s.store.FindByUsername(ctx, normalizeUsername(username))
	if errors.Is(err, user.ErrNotFound) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("lookup username: %w", err)
	}
	return u, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, user.ErrNotFound) {
		return user.User{}, ErrUserNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("lookup email: %w", err)
	}
	return u, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// verificationCode returns a six digit code in [100000, 999999].
func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// resetCode returns a zero padded six digit code.
func resetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
