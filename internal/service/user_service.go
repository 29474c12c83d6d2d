package service

import (
	"errors"

	"question_bank_backend/internal/model"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/util"
	"question_bank_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UserService struct {
	UserRepo    *repository.UserRepository
	ExamService *ExamService
}

func NewUserService(userRepo *repository.UserRepository, examService *ExamService) *UserService {
	return &UserService{UserRepo: userRepo, ExamService: examService}
}

func (s *UserService) GetProfile(userID uint) (*model.User, error) {
	return s.findUser(userID)
}

func (s *UserService) FindByCode(code string) (*model.User, error) {
	user, err := s.UserRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

func (s *UserService) UpdateProfile(userID uint, req UpdateProfileRequest) (*model.User, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetDisabled 管理员封禁/解封账号
func (s *UserService) SetDisabled(userID uint, disabled bool) (*model.User, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	user.Disabled = disabled
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser 删除账号及其名下全部考试记录
func (s *UserService) DeleteUser(userID uint) error {
	if _, err := s.findUser(userID); err != nil {
		return err
	}
	if err := s.ExamService.DeleteExamsForUser(userID); err != nil {
		return err
	}
	if err := s.UserRepo.Delete(userID); err != nil {
		return err
	}
	logger.Log.Info("User deleted with all exam records", zap.Uint("user_id", userID))
	return nil
}

func (s *UserService) ListUsers(page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.List(page, limit)
}

func (s *UserService) findUser(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
