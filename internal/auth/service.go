// backend/internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/internal/store"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "invalid username or password")
	ErrInvalidToken       = apperr.New(apperr.ErrUnauthorized, "invalid token")
	ErrUsernameTaken      = apperr.New(apperr.ErrConflict, "username already taken")
	ErrDeleteSelf         = apperr.New(apperr.ErrConflict, "you cannot delete your own account")
	ErrLastMainAdmin      = apperr.New(apperr.ErrConflict, "the last main admin cannot be deleted")
	ErrNotAllowed         = apperr.New(apperr.ErrForbidden, "not allowed")
)

// Claims is the JWT payload issued to admins.
type Claims struct {
	AdminID  string `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Service struct {
	repo      Repository
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

func normaliseUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	admin, err := s.repo.GetAdminByUsername(ctx, normaliseUsername(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("failed admin login", "username", admin.Username)
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(admin)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin logged in", "username", admin.Username)
	return &LoginResult{Token: token, Username: admin.Username, Role: admin.Role}, nil
}

func (s *Service) issueToken(admin *models.Admin) (string, error) {
	now := s.now()
	claims := Claims{
		AdminID:  admin.ID,
		Username: admin.Username,
		Role:     admin.Role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
			Subject:   admin.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a signed token and returns its claims.
func (s *Service) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid || claims.AdminID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate parses raw and checks the admin still exists. Role and
// username come from the stored account, not the token.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.ParseToken(raw)
	if err != nil {
		return nil, err
	}
	admin, err := s.repo.GetAdmin(ctx, claims.AdminID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	claims.Username = admin.Username
	claims.Role = admin.Role
	return claims, nil
}

func (s *Service) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

func (s *Service) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	admin, err := s.repo.GetAdmin(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("admin")
	}
	return admin, err
}

func (s *Service) CreateAdmin(ctx context.Context, username, password, role string) (*models.Admin, error) {
	username = normaliseUsername(username)
	if username == "" {
		return nil, apperr.Invalid("username is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Invalid("password must be at least %d characters", minPasswordLength)
	}
	if role == "" {
		role = models.RoleAdmin
	}
	if !models.ValidRole(role) {
		return nil, apperr.Invalid("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &models.Admin{
		ID:           store.NewID(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("admin created", "username", username, "role", role)
	return admin, nil
}

// ChangePassword lets main admins reset anyone's password and every admin
// change their own.
func (s *Service) ChangePassword(ctx context.Context, actor *Claims, id, password string) error {
	if actor.Role != models.RoleMain && actor.AdminID != id {
		return ErrNotAllowed
	}
	if len(password) < minPasswordLength {
		return apperr.Invalid("password must be at least %d characters", minPasswordLength)
	}
	admin, err := s.GetAdmin(ctx, id)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin.PasswordHash = string(hash)
	if err := s.repo.UpdateAdmin(ctx, admin); err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	return nil
}

func (s *Service) DeleteAdmin(ctx context.Context, actor *Claims, id string) error {
	if actor.AdminID == id {
		return ErrDeleteSelf
	}
	admin, err := s.GetAdmin(ctx, id)
	if err != nil {
		return err
	}
	if admin.Role == models.RoleMain {
		count, err := s.repo.CountAdmins(ctx, models.RoleMain)
		if err != nil {
			return fmt.Errorf("count main admins: %w", err)
		}
		if count <= 1 {
			return ErrLastMainAdmin
		}
	}
	if err := s.repo.DeleteAdmin(ctx, id); err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	s.logger.Info("admin deleted", "username", admin.Username, "by", actor.Username)
	return nil
}

// Bootstrap creates a main admin when no admin exists yet. It reports whether
// an account was created.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	count, err := s.repo.CountAdmins(ctx, "")
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if _, err := s.CreateAdmin(ctx, username, password, models.RoleMain); err != nil {
		return false, err
	}
	return true, nil
}
