package services

import (
	"errors"
	"time"

	"content-hub-cms/config"
	"content-hub-cms/models"
	"content-hub-cms/repositories"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errInvalidCredentials = models.NewBusinessRuleError("invalid credentials")

type AuthService interface {
	Register(req models.RegisterRequest) (*models.AuthResponse, error)
	Login(req models.LoginRequest) (*models.AuthResponse, error)
	GetUserByID(id uint) (*models.User, error)
}

type authService struct {
	users repositories.UserRepository
	jwt   config.JWTConfig
	clock Clock
}

func NewAuthService(users repositories.UserRepository, jwtConfig config.JWTConfig, clock Clock) AuthService {
	if clock == nil {
		clock = SystemClock()
	}
	return &authService{users: users, jwt: jwtConfig, clock: clock}
}

// Register stores a new account. Username and email uniqueness is enforced by
// the users table indexes.
func (s *authService) Register(req models.RegisterRequest) (*models.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
		Role:     req.Role,
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	if err := s.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewBusinessRuleError("user already exists")
		}
		return nil, err
	}
	return s.issue(user)
}

func (s *authService) Login(req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(req.Email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errInvalidCredentials
	case err != nil:
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, errInvalidCredentials
	}
	return s.issue(user)
}

func (s *authService) GetUserByID(id uint) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// issue signs an HS256 token carrying the claims AuthMiddleware reads back.
func (s *authService) issue(user *models.User) (*models.AuthResponse, error) {
	issuedAt := s.clock.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
		"iat":      issuedAt.Unix(),
		"nbf":      issuedAt.Add(-time.Second).Unix(),
		"exp":      issuedAt.Add(s.jwt.Expiration).Unix(),
	}).SignedString(s.jwt.Secret)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: *user}, nil
}
