package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/ovela/onboard-service/internal/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// authService implements AuthService with email one-time codes. Codes are
// bcrypt-hashed in Redis and single-use.
type authService struct {
	userRepo   repository.UserRepository
	redis      *redis.Client
	jwtManager *utils.JWTManager
	logger     *zap.Logger
	bcryptCost int
	otpExpiry  time.Duration
	otpLength  int
	env        string
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	redisClient *redis.Client,
	jwtManager *utils.JWTManager,
	logger *zap.Logger,
	bcryptCost int,
	otpExpiry time.Duration,
	otpLength int,
	env string,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		redis:      redisClient,
		jwtManager: jwtManager,
		logger:     logger,
		bcryptCost: bcryptCost,
		otpExpiry:  otpExpiry,
		otpLength:  otpLength,
		env:        env,
	}
}

func otpKey(email string) string {
	return fmt.Sprintf("otp:%s", email)
}

// RequestCode issues a one-time code for the email. Delivery is handled by
// the mail provider; outside production the code is echoed back so sandbox
// flows can complete without email.
func (s *authService) RequestCode(ctx context.Context, email string) (*dto.OTPRequestResponse, error) {
	email = utils.SanitizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, fmt.Errorf("invalid email format")
	}

	code, err := utils.GenerateOTP(s.otpLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := utils.HashOTP(code, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	if err := s.redis.Set(ctx, otpKey(email), hash, s.otpExpiry).Err(); err != nil {
		return nil, fmt.Errorf("failed to store code: %w", err)
	}

	s.logger.Info("one-time code issued",
		zap.String("email", email),
		zap.Duration("expiry", s.otpExpiry),
	)

	resp := &dto.OTPRequestResponse{Message: "Code sent"}
	if s.env != "production" {
		resp.DebugCode = code
	}

	return resp, nil
}

// VerifyCode exchanges a one-time code for a session token, creating the
// user profile on first sign-in.
func (s *authService) VerifyCode(ctx context.Context, email, code string) (*dto.AuthResponse, error) {
	email = utils.SanitizeEmail(email)

	hash, err := s.redis.Get(ctx, otpKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to load code: %w", err)
	}

	if !utils.CheckOTPHash(code, hash) {
		return nil, ErrInvalidCode
	}

	// Single use: delete before issuing the session.
	if err := s.redis.Del(ctx, otpKey(email)).Err(); err != nil {
		s.logger.Warn("failed to delete used code", zap.String("email", email), zap.Error(err))
	}

	user, err := s.userRepo.UpsertByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user profile: %w", err)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &dto.AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtManager.GetAccessTokenExpiry(),
		User: dto.UserInfo{
			ID:    user.ID,
			Email: user.Email,
		},
	}, nil
}

// ValidateToken validates an access token and returns its subject
func (s *authService) ValidateToken(ctx context.Context, token string) (string, string, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return "", "", fmt.Errorf("invalid token: %w", err)
	}
	return claims.UserID, claims.Email, nil
}
