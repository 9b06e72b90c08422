package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/alarmdesk/console/internal/metrics"
	"github.com/alarmdesk/console/internal/store"
	"github.com/alarmdesk/console/internal/users"
)

var (
	// ErrInvalidCredentials covers unknown users, wrong passwords, and
	// disabled accounts. Callers must not reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrLocked is returned while an account is in failed-login lockout.
	ErrLocked = errors.New("account temporarily locked")
)

// Token is the success response of a login: the two fields the console
// persists, nothing else.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Service verifies console credentials and issues access tokens.
type Service struct {
	logger           *zap.Logger
	users            users.Repository
	store            store.Store
	issuer           *TokenIssuer
	lockoutThreshold int64
	lockoutWindow    time.Duration
}

func NewService(
	logger *zap.Logger,
	repo users.Repository,
	st store.Store,
	issuer *TokenIssuer,
	lockoutThreshold int,
	lockoutWindow time.Duration,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:           logger,
		users:            repo,
		store:            st,
		issuer:           issuer,
		lockoutThreshold: int64(lockoutThreshold),
		lockoutWindow:    lockoutWindow,
	}
}

// Login verifies the credentials and returns a bearer token.
// Failed attempts count toward the lockout window; a locked account gets
// ErrLocked without a credential check so the hash is never exercised
// during an attack burst.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	if s.lockoutThreshold > 0 {
		count, err := s.store.FailedLogins(ctx, username)
		if err != nil {
			// Redis being down must not take logins with it.
			s.logger.Warn("auth.lockout_check_failed", zap.Error(err))
		} else if count >= s.lockoutThreshold {
			s.logger.Warn("auth.login_locked", zap.String("user", username), zap.Int64("failed_attempts", count))
			return nil, ErrLocked
		}
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.recordFailure(ctx, username)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Disabled {
		s.recordFailure(ctx, username)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, username)
		return nil, ErrInvalidCredentials
	}

	if err := s.store.ClearFailedLogins(ctx, username); err != nil {
		s.logger.Warn("auth.lockout_clear_failed", zap.Error(err))
	}
	if err := s.users.TouchLastLogin(ctx, username); err != nil {
		s.logger.Warn("auth.touch_last_login_failed", zap.Error(err))
	}

	accessToken, err := s.issuer.Generate(user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("auth.login_success", zap.String("user", username))
	return &Token{AccessToken: accessToken, TokenType: "bearer"}, nil
}

// Bootstrap provisions an account with the given plaintext password,
// hashing it before it touches the repository. Callers decide how to treat
// users.ErrAlreadyExists; a re-run against an existing account is normal.
func (s *Service) Bootstrap(ctx context.Context, username, password, role string) (*users.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, username, hash, role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("auth.account_provisioned",
		zap.String("user", username),
		zap.String("role", role))
	return user, nil
}

// Introspect validates a bearer token and returns its claims.
func (s *Service) Introspect(tokenString string) (*Claims, error) {
	return s.issuer.Validate(tokenString)
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func (s *Service) recordFailure(ctx context.Context, username string) {
	if s.lockoutThreshold <= 0 {
		return
	}
	count, err := s.store.IncrFailedLogin(ctx, username, s.lockoutWindow)
	if err != nil {
		s.logger.Warn("auth.lockout_incr_failed", zap.Error(err))
		return
	}
	if count == s.lockoutThreshold {
		metrics.IncLockout()
		s.logger.Warn("auth.account_locked",
			zap.String("user", username),
			zap.Duration("window", s.lockoutWindow))
	}
}
