package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/repository"
	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/Eursukkul/rental-marketplace/pkg/presence"
	"gorm.io/gorm"
)

type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	AvatarURL *string
}

type UserService interface {
	GetUser(ctx context.Context, actor models.Actor, id uint) (*models.User, error)
	ListUsers(ctx context.Context, actor models.Actor, page, limit int) ([]models.User, int64, error)
	UpdateProfile(ctx context.Context, actor models.Actor, in ProfileUpdate) (*models.User, error)
	ChangeRole(ctx context.Context, actor models.Actor, id uint, role models.Role) (*models.User, error)
	DeleteUser(ctx context.Context, actor models.Actor, id uint) error
	IsOnline(ctx context.Context, id uint) (bool, error)
}

type userService struct {
	userRepo repository.UserRepository
	presence presence.Store
}

func NewUserService(userRepo repository.UserRepository, presence presence.Store) UserService {
	return &userService{userRepo: userRepo, presence: presence}
}

func (s *userService) find(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, actor models.Actor, id uint) (*models.User, error) {
	if actor.UserID != id && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.find(ctx, id)
}

func (s *userService) ListUsers(ctx context.Context, actor models.Actor, page, limit int) ([]models.User, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	page, limit = normalizePage(page, limit)
	return s.userRepo.List(ctx, (page-1)*limit, limit)
}

func (s *userService) UpdateProfile(ctx context.Context, actor models.Actor, in ProfileUpdate) (*models.User, error) {
	user, err := s.find(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *userService) ChangeRole(ctx context.Context, actor models.Actor, id uint, role models.Role) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	logger.Log.WithField("user_id", id).WithField("role", role).Info("User role changed")
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, actor models.Actor, id uint) error {
	if actor.UserID != id && !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *userService) IsOnline(ctx context.Context, id uint) (bool, error) {
	if _, err := s.find(ctx, id); err != nil {
		return false, err
	}
	return s.presence.IsOnline(ctx, id)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
