package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrCodeRegistered     = errors.New("该识别码已被占用")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrTopicNotFound      = errors.New("topic not found")
	ErrExamNotFound       = errors.New("exam not found")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrExamAlreadyChecked = errors.New("exam already checked")
	ErrNotEnoughQuestions = errors.New("not enough questions for the requested topic and difficulty")
)

// ValidationError 载荷校验失败（数组长度不一致、分数越界、非法枚举值等）
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation 判断是否属于校验类错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound 判断是否属于"资源不存在"类错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrTopicNotFound) ||
		errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

// IsConflict 判断是否属于状态冲突类错误（如重复批改）
func IsConflict(err error) bool {
	return errors.Is(err, ErrExamAlreadyChecked)
}
