package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"e2e-transit/internal/adapters/persistence/models"
	"e2e-transit/internal/adapters/persistence/repositories"
	"e2e-transit/internal/config"
	"e2e-transit/internal/core/domain"
	"e2e-transit/internal/pkg/jwt"
	"e2e-transit/internal/pkg/logger"
	"e2e-transit/internal/pkg/password"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Mail subjects
const (
	subjectSignupOTP = "Your Signup OTP"
	subjectOTP       = "Your OTP from E2E Transit Solutions"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo repositories.UserRepository
	mailer   Mailer
	provider IdentityProvider
	cfg      *config.Config
	now      func() time.Time
	dispatch dispatchFunc
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	mailer Mailer,
	provider IdentityProvider,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		mailer:   mailer,
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
		dispatch: goDispatch,
	}
}

// SignupInput represents signup input
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResult reports whether a new account was created
type SignupResult struct {
	Message string `json:"message"`
	Created bool   `json:"-"`
}

// VerifyInput represents OTP verification input. NewPassword turns the call
// into a password reset.
type VerifyInput struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword,omitempty"`
}

// VerifyResult represents OTP verification output
type VerifyResult struct {
	Message    string `json:"message"`
	IsVerified bool   `json:"isVerified"`
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult represents a successful login
type LoginResult struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         *models.UserResponse `json:"user"`
}

// SyncUserInput represents an identity reported by the OAuth provider
type SyncUserInput struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
}

// SyncUserResult represents OAuth user sync output
type SyncUserResult struct {
	Message string       `json:"message"`
	Created bool         `json:"created"`
	User    *models.User `json:"user"`
}

// CallbackResult is returned after a successful OAuth code exchange
type CallbackResult struct {
	Session *ProviderSession `json:"session"`
	Sync    *SyncUserResult  `json:"sync"`
}

// Signup creates an unverified account, or re-sends the OTP of an existing
// unverified one.
func (s *AuthService) Signup(ctx context.Context, input *SignupInput) (*SignupResult, error) {
	// 1. Existing account?
	existing, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsVerified {
			return nil, domain.ErrAlreadyExists
		}
		if err := s.reissueOTP(ctx, existing, subjectSignupOTP); err != nil {
			return nil, err
		}
		return &SignupResult{Message: "User exists but not verified. OTP re-sent."}, nil
	}

	// 2. Hash password and OTP
	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	otp, otpHash, expiresAt, err := s.newOTP()
	if err != nil {
		return nil, err
	}

	// 3. Create user
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: &hashedPassword,
		IsVerified:   false,
		OTP:          &otpHash,
		OTPExpiresAt: &expiresAt,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// 4. Mail the plaintext OTP
	s.sendOTP(user.Email, subjectSignupOTP, otp)

	logger.WithFields(logrus.Fields{"user_id": user.ID}).Info("User signed up")

	return &SignupResult{Message: "Signup successful. OTP sent to email.", Created: true}, nil
}

// Verify checks an OTP and completes signup or a password reset
func (s *AuthService) Verify(ctx context.Context, input *VerifyInput) (*VerifyResult, error) {
	user, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	if !user.HasActiveOTP() {
		return nil, domain.ErrNoActiveOTP
	}
	// expiry wins over correctness
	if user.OTPExpiresAt.Before(s.now()) {
		return nil, domain.ErrOTPExpired
	}
	if !password.Verify(input.OTP, *user.OTP) {
		return nil, domain.ErrOTPInvalid
	}

	fields := map[string]interface{}{
		"otp":            nil,
		"otp_expires_at": nil,
	}
	result := &VerifyResult{IsVerified: user.IsVerified}

	switch {
	case input.NewPassword != "":
		hashedPassword, err := password.Hash(input.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		fields["password_hash"] = hashedPassword
		fields["is_verified"] = true
		result.IsVerified = true
		result.Message = "Password reset successful."
	case !user.IsVerified:
		fields["is_verified"] = true
		result.IsVerified = true
		result.Message = "Verification successful."
	default:
		result.Message = "OTP accepted."
	}

	if err := s.userRepo.UpdateFields(ctx, user.ID, fields); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return result, nil
}

// Login authenticates a user. Unverified accounts get a fresh OTP and are refused.
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	// 1. Find user by email
	user, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	// 2. Nudge unverified users through verification
	if !user.IsVerified {
		if err := s.reissueOTP(ctx, user, subjectOTP); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotVerified
	}

	// 3. Verify password
	if !user.HasPassword() {
		return nil, domain.ErrNoPassword
	}
	if !password.Verify(input.Password, *user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	// 4. Generate tokens
	accessToken, err := jwt.GenerateAccessToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := jwt.GenerateRefreshToken(user.ID, uuid.NewString(), s.cfg.JWT.RefreshSecret, s.cfg.JWT.RefreshTokenDays)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	// 5. Store refresh token hash
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"refresh_token_hash": password.HashToken(refreshToken),
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	logger.WithFields(logrus.Fields{"user_id": user.ID}).Info("User logged in")

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.ToResponse(),
	}, nil
}

// ForgotPassword sends a reset OTP. Unknown emails get the same kind of
// answer so accounts cannot be enumerated.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "If that email exists, an OTP has been sent.", nil
	}

	if err := s.reissueOTP(ctx, user, subjectOTP); err != nil {
		return "", err
	}
	return "Reset OTP sent to email.", nil
}

// SyncOAuthUser reconciles an identity from the OAuth provider with the users
// table. An existing row with another id is migrated to the provider's id.
// A provider id already used by a different email is not detected.
func (s *AuthService) SyncOAuthUser(ctx context.Context, input *SyncUserInput) (*SyncUserResult, error) {
	if input.ID == "" || input.Email == "" {
		return nil, domain.InvalidBody("Fields 'id' and 'email' are required.")
	}

	user, err := s.findByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if user != nil {
		if user.ID == input.ID {
			return &SyncUserResult{
				Message: "User already exists. Login successful.",
				Created: false,
				User:    user,
			}, nil
		}

		provider, providerID := optional(input.Provider), optional(input.ProviderID)
		if err := s.userRepo.UpdateByEmail(ctx, input.Email, map[string]interface{}{
			"id":          input.ID,
			"provider":    provider,
			"provider_id": providerID,
			"is_verified": true,
		}); err != nil {
			return nil, fmt.Errorf("migrate user id: %w", err)
		}

		logger.WithFields(logrus.Fields{"old_id": user.ID, "new_id": input.ID}).Info("OAuth user id migrated")

		user.ID = input.ID
		user.Provider = provider
		user.ProviderID = providerID
		user.IsVerified = true
		return &SyncUserResult{
			Message: "User updated with new ID.",
			Created: false,
			User:    user,
		}, nil
	}

	user = &models.User{
		ID:         input.ID,
		Email:      input.Email,
		Provider:   optional(input.Provider),
		ProviderID: optional(input.ProviderID),
		IsVerified: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create oauth user: %w", err)
	}

	return &SyncUserResult{
		Message: "User created (first login).",
		Created: true,
		User:    user,
	}, nil
}

// OAuthCallback exchanges an authorization code and syncs the returned identity
func (s *AuthService) OAuthCallback(ctx context.Context, code, codeVerifier string) (*CallbackResult, error) {
	if code == "" {
		return nil, domain.InvalidBody("Missing required field(s): code")
	}
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no identity provider configured", domain.ErrProvider)
	}

	session, err := s.provider.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		return nil, err
	}

	sync, err := s.SyncOAuthUser(ctx, &SyncUserInput{
		ID:         session.User.ID,
		Email:      session.User.Email,
		Provider:   session.User.Provider,
		ProviderID: session.User.ProviderID,
	})
	if err != nil {
		return nil, err
	}

	return &CallbackResult{Session: session, Sync: sync}, nil
}

// ClearExpiredOTPs is run by the housekeeping cron
func (s *AuthService) ClearExpiredOTPs(ctx context.Context) (int64, error) {
	return s.userRepo.ClearExpiredOTPs(ctx, s.now())
}

// ============================================================
// Helpers
// ============================================================

// findByEmail returns nil, nil when no user has the email
func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// newOTP returns the plaintext code, its bcrypt hash and the expiry
func (s *AuthService) newOTP() (string, string, time.Time, error) {
	otp, err := generateOTP(OTPLength)
	if err != nil {
		return "", "", time.Time{}, err
	}
	otpHash, err := password.Hash(otp)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("hash otp: %w", err)
	}
	return otp, otpHash, s.now().Add(s.cfg.OTP.TTL()), nil
}

// reissueOTP overwrites the stored OTP and mails the new code
func (s *AuthService) reissueOTP(ctx context.Context, user *models.User, subject string) error {
	otp, otpHash, expiresAt, err := s.newOTP()
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"otp":            otpHash,
		"otp_expires_at": expiresAt,
	}); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	s.sendOTP(user.Email, subject, otp)
	return nil
}

func (s *AuthService) sendOTP(email, subject, otp string) {
	body := fmt.Sprintf("Your OTP is: %s (valid %d min)", otp, s.cfg.OTP.TTLMinutes)
	sendMailAsync(s.dispatch, s.mailer, email, subject, body)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
