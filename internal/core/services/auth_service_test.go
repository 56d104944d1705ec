package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"e2e-transit/internal/adapters/persistence/models"
	"e2e-transit/internal/core/domain"
	"e2e-transit/internal/pkg/jwt"
	"e2e-transit/internal/pkg/password"
)

var otpBody = regexp.MustCompile(`^Your OTP is: (\d{6}) \(valid 10 min\)$`)

type authFixture struct {
	svc      *AuthService
	repo     *MockUserRepo
	mailer   *MockMailer
	provider *MockIdentityProvider
	now      time.Time
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		repo:     new(MockUserRepo),
		mailer:   new(MockMailer),
		provider: new(MockIdentityProvider),
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewAuthService(f.repo, f.mailer, f.provider, testConfig())
	f.svc.now = func() time.Time { return f.now }
	f.svc.dispatch = syncDispatch
	return f
}

// expectOTPMail records the code of every OTP mail sent to email
func (f *authFixture) expectOTPMail(email, subject string, codes *[]string) {
	f.mailer.On("Send", mock.Anything, email, subject, mock.MatchedBy(otpBody.MatchString)).
		Run(func(args mock.Arguments) {
			*codes = append(*codes, otpBody.FindStringSubmatch(args.String(3))[1])
		}).
		Return(nil)
}

func hashed(t *testing.T, s string) *string {
	h, err := password.Hash(s)
	require.NoError(t, err)
	return &h
}

func unverifiedUser(t *testing.T, otp string, expires time.Time) *models.User {
	return &models.User{
		ID:           "u-1",
		Email:        "a@b.com",
		PasswordHash: hashed(t, "pw"),
		IsVerified:   false,
		OTP:          hashed(t, otp),
		OTPExpiresAt: &expires,
	}
}

func TestSignup_NewUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	var created *models.User
	var codes []string
	f.repo.On("GetByEmail", ctx, "a@b.com").Return(nil, gorm.ErrRecordNotFound)
	f.repo.On("Create", ctx, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*models.User) }).
		Return(nil)
	f.expectOTPMail("a@b.com", subjectSignupOTP, &codes)

	result, err := f.svc.Signup(ctx, &SignupInput{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, "Signup successful. OTP sent to email.", result.Message)

	require.NotNil(t, created)
	assert.False(t, created.IsVerified)
	assert.NotEmpty(t, created.ID)
	assert.True(t, password.Verify("pw", *created.PasswordHash))
	assert.Equal(t, f.now.Add(10*time.Minute), *created.OTPExpiresAt)

	require.Len(t, codes, 1)
	assert.Len(t, codes[0], OTPLength)
	assert.True(t, password.Verify(codes[0], *created.OTP), "stored OTP hash must match mailed code")
	assert.NotEqual(t, codes[0], *created.OTP)

	f.repo.AssertExpectations(t)
	f.mailer.AssertExpectations(t)
}

func TestSignup_VerifiedUserConflict(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(&models.User{ID: "u-1", Email: "a@b.com", IsVerified: true}, nil)

	result, err := f.svc.Signup(ctx, &SignupInput{Email: "a@b.com", Password: "pw"})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignup_UnverifiedIsIdempotent(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	existing := unverifiedUser(t, "111111", f.now.Add(time.Minute))

	var codes []string
	var stored []map[string]interface{}
	f.repo.On("GetByEmail", ctx, "a@b.com").Return(existing, nil)
	f.repo.On("UpdateFields", ctx, "u-1", mock.Anything).
		Run(func(args mock.Arguments) { stored = append(stored, args.Get(2).(map[string]interface{})) }).
		Return(nil)
	f.expectOTPMail("a@b.com", subjectSignupOTP, &codes)

	for i := 0; i < 3; i++ {
		result, err := f.svc.Signup(ctx, &SignupInput{Email: "a@b.com", Password: "pw"})
		require.NoError(t, err)
		assert.False(t, result.Created)
		assert.Equal(t, "User exists but not verified. OTP re-sent.", result.Message)
	}

	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	require.Len(t, stored, 3)
	require.Len(t, codes, 3)
	for i := range stored {
		assert.True(t, password.Verify(codes[i], stored[i]["otp"].(string)))
		assert.Equal(t, f.now.Add(10*time.Minute), stored[i]["otp_expires_at"])
	}
}

func TestSignup_LookupFailureIsNotSentinel(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(nil, errors.New("connection refused"))

	_, err := f.svc.Signup(ctx, &SignupInput{Email: "a@b.com", Password: "pw"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUserNotFound))
	assert.False(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name    string
		user    func(t *testing.T, now time.Time) *models.User
		otp     string
		wantErr error
	}{
		{
			name:    "unknown user",
			user:    func(*testing.T, time.Time) *models.User { return nil },
			otp:     "123456",
			wantErr: domain.ErrUserNotFound,
		},
		{
			name: "no active otp",
			user: func(*testing.T, time.Time) *models.User {
				return &models.User{ID: "u-1", Email: "a@b.com"}
			},
			otp:     "123456",
			wantErr: domain.ErrNoActiveOTP,
		},
		{
			name: "expired otp with correct code",
			user: func(t *testing.T, now time.Time) *models.User {
				return unverifiedUser(t, "123456", now.Add(-time.Second))
			},
			otp:     "123456",
			wantErr: domain.ErrOTPExpired,
		},
		{
			name: "expired otp with wrong code",
			user: func(t *testing.T, now time.Time) *models.User {
				return unverifiedUser(t, "123456", now.Add(-time.Hour))
			},
			otp:     "000000",
			wantErr: domain.ErrOTPExpired,
		},
		{
			name: "wrong code",
			user: func(t *testing.T, now time.Time) *models.User {
				return unverifiedUser(t, "123456", now.Add(time.Minute))
			},
			otp:     "654321",
			wantErr: domain.ErrOTPInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			ctx := context.Background()

			if u := tt.user(t, f.now); u != nil {
				f.repo.On("GetByEmail", ctx, "a@b.com").Return(u, nil)
			} else {
				f.repo.On("GetByEmail", ctx, "a@b.com").Return(nil, gorm.ErrRecordNotFound)
			}

			result, err := f.svc.Verify(ctx, &VerifyInput{Email: "a@b.com", OTP: tt.otp})
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
			f.repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestVerify_SignupCompletes(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(unverifiedUser(t, "123456", f.now.Add(time.Minute)), nil)
	f.repo.On("UpdateFields", ctx, "u-1", map[string]interface{}{
		"otp":            nil,
		"otp_expires_at": nil,
		"is_verified":    true,
	}).Return(nil)

	result, err := f.svc.Verify(ctx, &VerifyInput{Email: "a@b.com", OTP: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "Verification successful.", result.Message)
	assert.True(t, result.IsVerified)
	f.repo.AssertExpectations(t)
}

func TestVerify_PasswordReset(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user := unverifiedUser(t, "123456", f.now.Add(time.Minute))
	user.IsVerified = true
	var fields map[string]interface{}
	f.repo.On("GetByEmail", ctx, "a@b.com").Return(user, nil)
	f.repo.On("UpdateFields", ctx, "u-1", mock.Anything).
		Run(func(args mock.Arguments) { fields = args.Get(2).(map[string]interface{}) }).
		Return(nil)

	result, err := f.svc.Verify(ctx, &VerifyInput{Email: "a@b.com", OTP: "123456", NewPassword: "n3w-pass"})
	require.NoError(t, err)
	assert.Equal(t, "Password reset successful.", result.Message)
	assert.True(t, result.IsVerified)

	assert.Nil(t, fields["otp"])
	assert.Nil(t, fields["otp_expires_at"])
	assert.Equal(t, true, fields["is_verified"])
	assert.True(t, password.Verify("n3w-pass", fields["password_hash"].(string)))
}

func TestVerify_AlreadyVerifiedAcceptsOTP(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user := unverifiedUser(t, "123456", f.now.Add(time.Minute))
	user.IsVerified = true
	f.repo.On("GetByEmail", ctx, "a@b.com").Return(user, nil)
	f.repo.On("UpdateFields", ctx, "u-1", map[string]interface{}{
		"otp":            nil,
		"otp_expires_at": nil,
	}).Return(nil)

	result, err := f.svc.Verify(ctx, &VerifyInput{Email: "a@b.com", OTP: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "OTP accepted.", result.Message)
	assert.True(t, result.IsVerified)
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(nil, gorm.ErrRecordNotFound)

	_, err := f.svc.Login(ctx, &LoginInput{Email: "a@b.com", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLogin_UnverifiedResendsOTP(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	var codes []string
	f.repo.On("GetByEmail", ctx, "a@b.com").Return(unverifiedUser(t, "111111", f.now.Add(-time.Hour)), nil)
	f.repo.On("UpdateFields", ctx, "u-1", mock.MatchedBy(func(m map[string]interface{}) bool {
		_, hasOTP := m["otp"]
		return hasOTP && m["otp_expires_at"] == f.now.Add(10*time.Minute)
	})).Return(nil)
	f.expectOTPMail("a@b.com", subjectOTP, &codes)

	result, err := f.svc.Login(ctx, &LoginInput{Email: "a@b.com", Password: "pw"})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrNotVerified)
	assert.Len(t, codes, 1)
	f.repo.AssertExpectations(t)
}

func TestLogin_OAuthOnlyAccount(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(&models.User{ID: "u-1", Email: "a@b.com", IsVerified: true}, nil)

	_, err := f.svc.Login(ctx, &LoginInput{Email: "a@b.com", Password: "pw"})
	assert.ErrorIs(t, err, domain.ErrNoPassword)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(&models.User{
		ID: "u-1", Email: "a@b.com", IsVerified: true, PasswordHash: hashed(t, "pw"),
	}, nil)

	_, err := f.svc.Login(ctx, &LoginInput{Email: "a@b.com", Password: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	f.repo.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	var stored map[string]interface{}
	f.repo.On("GetByEmail", ctx, "a@b.com").Return(&models.User{
		ID: "u-1", Email: "a@b.com", IsVerified: true, PasswordHash: hashed(t, "pw"),
	}, nil)
	f.repo.On("UpdateFields", ctx, "u-1", mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(2).(map[string]interface{}) }).
		Return(nil)

	result, err := f.svc.Login(ctx, &LoginInput{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, &models.UserResponse{ID: "u-1", Email: "a@b.com"}, result.User)

	claims, err := jwt.ValidateAccessToken(result.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)

	refresh, err := jwt.ValidateRefreshToken(result.RefreshToken, "test-refresh-secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", refresh.UserID)

	assert.Equal(t, password.HashToken(result.RefreshToken), stored["refresh_token_hash"])
}

func TestForgotPassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "ghost@b.com").Return(nil, gorm.ErrRecordNotFound)
	msg, err := f.svc.ForgotPassword(ctx, "ghost@b.com")
	require.NoError(t, err)
	assert.Equal(t, "If that email exists, an OTP has been sent.", msg)
	f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	var codes []string
	f.repo.On("GetByEmail", ctx, "a@b.com").Return(&models.User{ID: "u-1", Email: "a@b.com", IsVerified: true}, nil)
	f.repo.On("UpdateFields", ctx, "u-1", mock.Anything).Return(nil)
	f.expectOTPMail("a@b.com", subjectOTP, &codes)

	msg, err = f.svc.ForgotPassword(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "Reset OTP sent to email.", msg)
	assert.Len(t, codes, 1)
}

func TestMailFailureDoesNotFailSignup(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.repo.On("GetByEmail", ctx, "a@b.com").Return(nil, gorm.ErrRecordNotFound)
	f.repo.On("Create", ctx, mock.Anything).Return(nil)
	f.mailer.On("Send", mock.Anything, "a@b.com", subjectSignupOTP, mock.Anything).Return(errors.New("smtp down"))

	result, err := f.svc.Signup(ctx, &SignupInput{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, result.Created)
}

func TestSyncOAuthUser(t *testing.T) {
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.svc.SyncOAuthUser(ctx, &SyncUserInput{Email: "a@b.com"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("same id", func(t *testing.T) {
		f := newAuthFixture()
		existing := &models.User{ID: "oauth-1", Email: "a@b.com", IsVerified: true}
		f.repo.On("GetByEmail", ctx, "a@b.com").Return(existing, nil)

		result, err := f.svc.SyncOAuthUser(ctx, &SyncUserInput{ID: "oauth-1", Email: "a@b.com"})
		require.NoError(t, err)
		assert.Equal(t, "User already exists. Login successful.", result.Message)
		assert.False(t, result.Created)
		assert.Same(t, existing, result.User)
	})

	t.Run("id migration", func(t *testing.T) {
		f := newAuthFixture()
		f.repo.On("GetByEmail", ctx, "a@b.com").Return(&models.User{ID: "legacy-1", Email: "a@b.com"}, nil)
		f.repo.On("UpdateByEmail", ctx, "a@b.com", mock.MatchedBy(func(m map[string]interface{}) bool {
			return m["id"] == "oauth-1" && m["is_verified"] == true && *(m["provider"].(*string)) == "google"
		})).Return(nil)

		result, err := f.svc.SyncOAuthUser(ctx, &SyncUserInput{ID: "oauth-1", Email: "a@b.com", Provider: "google", ProviderID: "g-42"})
		require.NoError(t, err)
		assert.Equal(t, "User updated with new ID.", result.Message)
		assert.False(t, result.Created)
		assert.Equal(t, "oauth-1", result.User.ID)
		assert.True(t, result.User.IsVerified)
		assert.Equal(t, "g-42", *result.User.ProviderID)
		f.repo.AssertExpectations(t)
	})

	t.Run("first login", func(t *testing.T) {
		f := newAuthFixture()
		f.repo.On("GetByEmail", ctx, "new@b.com").Return(nil, gorm.ErrRecordNotFound)
		f.repo.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.ID == "oauth-2" && u.IsVerified && u.PasswordHash == nil
		})).Return(nil)

		result, err := f.svc.SyncOAuthUser(ctx, &SyncUserInput{ID: "oauth-2", Email: "new@b.com", Provider: "google"})
		require.NoError(t, err)
		assert.Equal(t, "User created (first login).", result.Message)
		assert.True(t, result.Created)
		f.repo.AssertExpectations(t)
	})
}

func TestOAuthCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("missing code", func(t *testing.T) {
		f := newAuthFixture()
		_, err := f.svc.OAuthCallback(ctx, "", "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("provider failure", func(t *testing.T) {
		f := newAuthFixture()
		f.provider.On("ExchangeCode", ctx, "bad", "").Return(nil, domain.ErrProvider)

		_, err := f.svc.OAuthCallback(ctx, "bad", "")
		assert.ErrorIs(t, err, domain.ErrProvider)
	})

	t.Run("exchanges and syncs", func(t *testing.T) {
		f := newAuthFixture()
		session := &ProviderSession{
			AccessToken: "at",
			User:        ProviderUser{ID: "oauth-1", Email: "a@b.com", Provider: "google", ProviderID: "g-1"},
		}
		f.provider.On("ExchangeCode", ctx, "code-1", "verifier").Return(session, nil)
		f.repo.On("GetByEmail", ctx, "a@b.com").Return(nil, gorm.ErrRecordNotFound)
		f.repo.On("Create", ctx, mock.Anything).Return(nil)

		result, err := f.svc.OAuthCallback(ctx, "code-1", "verifier")
		require.NoError(t, err)
		assert.Equal(t, "at", result.Session.AccessToken)
		assert.True(t, result.Sync.Created)
	})
}

func TestClearExpiredOTPs(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.repo.On("ClearExpiredOTPs", ctx, f.now).Return(int64(2), nil)

	n, err := f.svc.ClearExpiredOTPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestGenerateOTP(t *testing.T) {
	digits := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		otp, err := generateOTP(OTPLength)
		require.NoError(t, err)
		assert.Regexp(t, digits, otp)
	}
}
