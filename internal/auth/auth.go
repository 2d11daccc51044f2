package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/todmy/faers-signals/pkg/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAnalystExists      = errors.New("analyst already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAnalystNotFound    = errors.New("analyst not found")
)

// Claims represents the JWT claims
type Claims struct {
	AnalystID string `json:"analyst_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// AnalystRepository defines the interface for analyst persistence
type AnalystRepository interface {
	Create(ctx context.Context, analyst *models.Analyst) error
	GetByID(ctx context.Context, id string) (*models.Analyst, error)
	GetByEmail(ctx context.Context, email string) (*models.Analyst, error)
}

// Service defines the authentication service interface
type Service interface {
	Register(ctx context.Context, email, password string) (*models.Analyst, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Config holds authentication configuration
type Config struct {
	SecretKey     string
	TokenDuration time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		SecretKey:     "change-me-in-production",
		TokenDuration: 24 * time.Hour,
	}
}

// JWTService implements the Service interface
type JWTService struct {
	config Config
	repo   AnalystRepository
}

// NewJWTService creates a new JWT-based authentication service
func NewJWTService(config Config, repo AnalystRepository) *JWTService {
	return &JWTService{
		config: config,
		repo:   repo,
	}
}

// Register creates a new analyst with a hashed password
func (s *JWTService) Register(ctx context.Context, email, password string) (*models.Analyst, error) {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	analyst := &models.Analyst{
		Email:        normalizeEmail(email),
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, analyst); err != nil {
		return nil, err
	}

	return analyst, nil
}

// Login authenticates an analyst and returns a JWT token
func (s *JWTService) Login(ctx context.Context, email, password string) (string, error) {
	analyst, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if !CheckPassword(password, analyst.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	return s.generateToken(analyst)
}

// ValidateToken validates a JWT token and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *JWTService) generateToken(analyst *models.Analyst) (string, error) {
	now := time.Now()
	claims := &Claims{
		AnalystID: analyst.ID,
		Email:     analyst.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   analyst.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.SecretKey))
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
