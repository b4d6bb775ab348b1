package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"campus_store/internal/models"
	"campus_store/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type StudentInput struct {
	StudentNumber string `json:"student_number"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
}

type UserService interface {
	CreateStudent(ctx context.Context, in StudentInput) (*models.User, error)
	CreateAdmin(ctx context.Context, fullName, email, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

type userService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserService(users repository.UserRepository, logger *zap.Logger) (UserService, error) {
	if users == nil {
		return nil, errors.New("user service: repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{users: users, logger: logger.Named("users")}, nil
}

func (s *userService) CreateStudent(ctx context.Context, in StudentInput) (*models.User, error) {
	number := strings.TrimSpace(in.StudentNumber)
	if number == "" {
		return nil, invalidInput("student_number is required")
	}
	user, err := s.newUser(in.FullName, in.Email, in.Password, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	user.StudentNumber = number
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fromRepository(err)
	}
	s.logger.Info("student created", zap.Uint("user_id", user.ID), zap.String("student_number", number))
	return user, nil
}

func (s *userService) CreateAdmin(ctx context.Context, fullName, email, password string) (*models.User, error) {
	user, err := s.newUser(fullName, email, password, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fromRepository(err)
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user", id)
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) newUser(fullName, email, password string, role models.UserRole) (*models.User, error) {
	name := strings.TrimSpace(fullName)
	if name == "" {
		return nil, invalidInput("full_name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, invalidInput("email is invalid")
	}
	if len(password) < minPasswordLength {
		return nil, invalidInput("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &models.User{
		FullName:     name,
		Email:        strings.ToLower(addr.Address),
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
	}, nil
}
