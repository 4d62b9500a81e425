package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/database"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/errs"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/models"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/repository"
	"github.com/urmilavishwakarma612-art/rahi-guardian/pkg/utils"
	"go.uber.org/zap"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService struct {
	users    repository.UserRepository
	jwt      *utils.JWTManager
	sessions *database.SessionStore
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAuthService(users repository.UserRepository, jwt *utils.JWTManager, sessions *database.SessionStore, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwt:      jwt,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger,
	}
}

// Register creates an account with the traveler role. Responder roles
// are only ever granted by an admin afterwards.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errs.Validation("", err.Error())
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, errs.Validation("email", "already registered")
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:    req.Email,
		Password: hashed,
		FullName: req.FullName,
		Phone:    req.Phone,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.AssignRole(ctx, user.ID, models.RoleTraveler); err != nil {
		s.logger.Warn("default role assignment failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	// Reload so the response carries the assigned roles.
	user, err = s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errs.Validation("", err.Error())
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !utils.CheckPassword(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// Logout blacklists the presented token for the remainder of its life.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		// Already invalid; nothing to revoke.
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.sessions.BlacklistToken(ctx, token, ttl)
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errs.Validation("", err.Error())
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.EmergencyContactName != nil {
		user.EmergencyContactName = *req.EmergencyContactName
	}
	if req.EmergencyContactPhone != nil {
		user.EmergencyContactPhone = *req.EmergencyContactPhone
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueToken(user *models.User) (*models.LoginResponse, error) {
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, r.Code)
	}
	token, err := s.jwt.GenerateToken(user.ID, user.Email, roles)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{
		Token: token,
		User:  models.ToUserResponse(user),
	}, nil
}
