package service

import (
	"encoding/json"
	"errors"
	"strings"

	"question_bank_backend/internal/model"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/util"
	"question_bank_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
	SubjectRepo  *repository.SubjectRepository
}

func NewQuestionService(questionRepo *repository.QuestionRepository, subjectRepo *repository.SubjectRepository) *QuestionService {
	return &QuestionService{QuestionRepo: questionRepo, SubjectRepo: subjectRepo}
}

type CreateQuestionRequest struct {
	Kind          model.QuestionKind `json:"kind" binding:"required"`
	Text          string             `json:"text" binding:"required"`
	Options       []string           `json:"options"`
	CorrectAnswer string             `json:"correctAnswer" binding:"required"`
	Hint          string             `json:"hint"`
	Difficulty    model.Difficulty   `json:"difficulty" binding:"required"`
	TopicID       uint               `json:"topicId" binding:"required"`
}

// CreateQuestion 题库录题。客观题必须带 2~4 个选项且标准答案在选项内，
// 主观题不允许带选项。
func (s *QuestionService) CreateQuestion(req CreateQuestionRequest) (*model.Question, error) {
	if req.Kind != model.Objective && req.Kind != model.Subjective {
		return nil, util.NewValidationError("unknown question kind %q", req.Kind)
	}
	if !req.Difficulty.Valid() {
		return nil, util.NewValidationError("unknown difficulty %q", req.Difficulty)
	}
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.CorrectAnswer) == "" {
		return nil, util.NewValidationError("question text and correct answer must not be empty")
	}

	var options json.RawMessage
	if req.Kind == model.Objective {
		if len(req.Options) < 2 || len(req.Options) > 4 {
			return nil, util.NewValidationError("objective questions need between 2 and 4 options, got %d", len(req.Options))
		}
		found := false
		for _, opt := range req.Options {
			if opt == req.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return nil, util.NewValidationError("the correct answer must be one of the options")
		}
		raw, err := json.Marshal(req.Options)
		if err != nil {
			return nil, err
		}
		options = raw
	} else if len(req.Options) > 0 {
		return nil, util.NewValidationError("subjective questions must not carry options")
	}

	if _, err := s.SubjectRepo.FindTopicByID(req.TopicID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTopicNotFound
		}
		return nil, err
	}

	question := &model.Question{
		Kind:          req.Kind,
		Text:          req.Text,
		Options:       options,
		CorrectAnswer: req.CorrectAnswer,
		Hint:          req.Hint,
		Difficulty:    req.Difficulty,
		TopicID:       req.TopicID,
	}
	if err := s.QuestionRepo.Create(question); err != nil {
		return nil, err
	}

	logger.Log.Info("Question created",
		zap.Uint("question_id", question.ID),
		zap.String("kind", string(question.Kind)),
		zap.Uint("topic_id", question.TopicID))
	return question, nil
}

type UpdateQuestionRequest struct {
	Text          string           `json:"text"`
	Options       []string         `json:"options"`
	CorrectAnswer string           `json:"correctAnswer"`
	Hint          string           `json:"hint"`
	Difficulty    model.Difficulty `json:"difficulty"`
}

func (s *QuestionService) UpdateQuestion(id uint, req UpdateQuestionRequest) (*model.Question, error) {
	question, err := s.findQuestion(id)
	if err != nil {
		return nil, err
	}

	if req.Text != "" {
		question.Text = req.Text
	}
	if req.CorrectAnswer != "" {
		question.CorrectAnswer = req.CorrectAnswer
	}
	if req.Hint != "" {
		question.Hint = req.Hint
	}
	if req.Difficulty != "" {
		if !req.Difficulty.Valid() {
			return nil, util.NewValidationError("unknown difficulty %q", req.Difficulty)
		}
		question.Difficulty = req.Difficulty
	}
	if len(req.Options) > 0 {
		if question.Kind != model.Objective {
			return nil, util.NewValidationError("subjective questions must not carry options")
		}
		if len(req.Options) < 2 || len(req.Options) > 4 {
			return nil, util.NewValidationError("objective questions need between 2 and 4 options, got %d", len(req.Options))
		}
		raw, err := json.Marshal(req.Options)
		if err != nil {
			return nil, err
		}
		question.Options = raw
	}

	if err := s.QuestionRepo.Update(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) GetQuestion(id uint) (*model.Question, error) {
	return s.findQuestion(id)
}

func (s *QuestionService) DeleteQuestion(id uint) error {
	if _, err := s.findQuestion(id); err != nil {
		return err
	}
	return s.QuestionRepo.Delete(id)
}

func (s *QuestionService) ListQuestions(topicID uint, kind model.QuestionKind, page, limit int) ([]model.Question, int64, error) {
	return s.QuestionRepo.List(topicID, kind, page, limit)
}

func (s *QuestionService) findQuestion(id uint) (*model.Question, error) {
	question, err := s.QuestionRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, err
	}
	return question, nil
}

// ---- 科目与主题维护 ----

func (s *QuestionService) CreateSubject(name string) (*model.Subject, error) {
	if strings.TrimSpace(name) == "" {
		return nil, util.NewValidationError("subject name must not be empty")
	}
	subject := &model.Subject{Name: name}
	if err := s.SubjectRepo.CreateSubject(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *QuestionService) ListSubjects() ([]model.Subject, error) {
	return s.SubjectRepo.ListSubjects()
}

func (s *QuestionService) DeleteSubject(id uint) error {
	return s.SubjectRepo.DeleteSubject(id)
}

func (s *QuestionService) CreateTopic(name string, subjectID uint) (*model.Topic, error) {
	if strings.TrimSpace(name) == "" {
		return nil, util.NewValidationError("topic name must not be empty")
	}
	topic := &model.Topic{Name: name, SubjectID: subjectID}
	if err := s.SubjectRepo.CreateTopic(topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *QuestionService) ListTopics(subjectID uint) ([]model.Topic, error) {
	return s.SubjectRepo.ListTopics(subjectID)
}

func (s *QuestionService) DeleteTopic(id uint) error {
	return s.SubjectRepo.DeleteTopic(id)
}
