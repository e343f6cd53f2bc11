package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/infrastructure/config"
	"github.com/mallmap/core/internal/infrastructure/logger"
	"github.com/mallmap/core/internal/ports"
)

// DevPassword is the password of the accounts seeded when none are configured.
const DevPassword = "password123"

// Claims represents the JWT claims
type Claims struct {
	Username string        `json:"username"`
	Role     entities.Role `json:"role"`
	StoreID  int           `json:"storeId,omitempty"`
	jwt.RegisteredClaims
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo  ports.UserRepository
	jwtConfig config.JWTConfig
	logger    *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo ports.UserRepository, jwtConfig config.JWTConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtConfig: jwtConfig,
		logger:    logger.WithComponent("auth_service"),
	}
}

// Login authenticates a user and returns a signed token
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		s.logger.Warnw("Login attempt with unknown username", "username", req.Username)
		return nil, entities.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warnw("Login attempt with invalid password", "username", req.Username)
		return nil, entities.ErrInvalidCredentials
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.logger.Infow("User logged in successfully", "username", user.Username, "role", user.Role)

	return &ports.AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.jwtConfig.ExpiresIn.Seconds()),
		User:      user.Caller(),
	}, nil
}

// ValidateToken validates a JWT token and returns the caller it names
func (s *AuthService) ValidateToken(tokenString string) (*entities.Caller, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	}, jwt.WithIssuer(s.jwtConfig.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %w", entities.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ExpiresAt == nil || !claims.Role.IsValid() {
		return nil, fmt.Errorf("%w: invalid token claims", entities.ErrUnauthenticated)
	}

	return &entities.Caller{
		Username: claims.Username,
		Role:     claims.Role,
		StoreID:  claims.StoreID,
	}, nil
}

func (s *AuthService) generateAccessToken(user *entities.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: user.Username,
		Role:     user.Role,
		StoreID:  user.StoreID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   user.Username,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// HashPassword returns the bcrypt hash stored in the users configuration.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// UsersFromConfig converts configured accounts. With none configured it
// seeds one development account per role, all using DevPassword.
func UsersFromConfig(cfgUsers []config.UserConfig, log *logger.Logger) ([]entities.User, error) {
	if len(cfgUsers) == 0 {
		hash, err := HashPassword(DevPassword)
		if err != nil {
			return nil, err
		}
		log.Warnw("No users configured, seeding development accounts", "usernames", []string{"admin", "manager", "store"})
		return []entities.User{
			{Username: "admin", PasswordHash: hash, Role: entities.RoleAdmin},
			{Username: "manager", PasswordHash: hash, Role: entities.RoleManager},
			{Username: "store", PasswordHash: hash, Role: entities.RoleStore},
		}, nil
	}

	users := make([]entities.User, 0, len(cfgUsers))
	seen := make(map[string]struct{}, len(cfgUsers))
	for _, u := range cfgUsers {
		role := entities.Role(u.Role)
		if !role.IsValid() {
			return nil, fmt.Errorf("user %q: unknown role %q", u.Username, u.Role)
		}
		if _, dup := seen[u.Username]; dup {
			return nil, fmt.Errorf("user %q configured twice", u.Username)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, errors.Join(fmt.Errorf("user %q: password_hash is not a bcrypt hash", u.Username), err)
		}
		seen[u.Username] = struct{}{}
		users = append(users, entities.User{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         role,
			StoreID:      u.StoreID,
		})
	}
	return users, nil
}
