package service

import (
	"errors"
	"strings"
	"sync"
	"time"

	"question_bank_backend/internal/config"
	"question_bank_backend/internal/model"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/util"
	"question_bank_backend/pkg/logger"
	"question_bank_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ExamService struct {
	ExamRepo     *repository.ExamRepository
	QuestionRepo *repository.QuestionRepository

	cfgMu sync.RWMutex
	cfg   *config.Config
}

func NewExamService(examRepo *repository.ExamRepository, questionRepo *repository.QuestionRepository, cfg *config.Config) *ExamService {
	return &ExamService{ExamRepo: examRepo, QuestionRepo: questionRepo, cfg: cfg}
}

func (s *ExamService) SetConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

func (s *ExamService) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// SubmitExamRequest 提交载荷：三个平行数组按题目顺序对齐。
// 总分一律由服务端按难度档位表计算，不收客户端给的值。
type SubmitExamRequest struct {
	UserID      uint               `json:"-"`
	Kind        model.QuestionKind `json:"kind" binding:"required"`
	Difficulty  model.Difficulty   `json:"difficulty" binding:"required"`
	QuestionIDs []uint             `json:"questionIds" binding:"required"`
	Answers     []string           `json:"answers" binding:"required"`
	TimesTaken  []int              `json:"timesTaken" binding:"required"`

	// 会话路径带入开考时冻结的单题分值，配置热更新不影响在途考试；
	// 外部直提为零值，走当前档位表
	scoreWeight float64
}

// SubmitExam 组装并落库一场考试。客观题当场判分（答案精确相等得满额单题分），
// 主观题进入待批改队列。
func (s *ExamService) SubmitExam(req SubmitExamRequest) (*model.Exam, error) {
	if req.Kind != model.Objective && req.Kind != model.Subjective {
		return nil, util.NewValidationError("unknown question kind %q", req.Kind)
	}
	if !req.Difficulty.Valid() {
		return nil, util.NewValidationError("unknown difficulty %q", req.Difficulty)
	}

	count := len(req.QuestionIDs)
	if count == 0 {
		return nil, util.NewValidationError("an exam must contain at least one question")
	}
	if len(req.Answers) != count || len(req.TimesTaken) != count {
		return nil, util.NewValidationError(
			"questionIds, answers and timesTaken must have the same length (%d, %d, %d)",
			count, len(req.Answers), len(req.TimesTaken))
	}

	cfg := s.config()
	tier := cfg.Exam.Tier(string(req.Difficulty))

	questions, err := s.QuestionRepo.FindByIDs(req.QuestionIDs)
	if err != nil {
		return nil, err
	}

	share := req.scoreWeight
	if share <= 0 {
		share = tier.ScoreWeight
	}
	totalScore := share * float64(count)

	exam := &model.Exam{
		UserID:     req.UserID,
		Kind:       req.Kind,
		Difficulty: req.Difficulty,
		TotalScore: totalScore,
		Status:     model.Unchecked,
	}

	records := make([]model.ExamRecord, count)
	for i, qid := range req.QuestionIDs {
		question, ok := questions[qid]
		if !ok {
			return nil, util.ErrQuestionNotFound
		}

		answer := strings.TrimSpace(req.Answers[i])
		if answer == "" {
			answer = cfg.Exam.Sentinel
		}

		taken := req.TimesTaken[i]
		if taken < 0 {
			return nil, util.NewValidationError("timesTaken[%d] must not be negative", i)
		}
		// 耗时为 0 视为倒计时边界竞态，按满时长记
		if taken == 0 {
			taken = tier.DurationSeconds
		}

		records[i] = model.ExamRecord{
			Position:    i,
			QuestionID:  qid,
			GivenAnswer: answer,
			TimeTaken:   taken,
		}

		// 客观题当场判分；哨兵值永远不等于标准答案
		if req.Kind == model.Objective {
			score := 0.0
			if answer == question.CorrectAnswer {
				score = share
			}
			records[i].AcquiredScore = &score
		}
	}

	if req.Kind == model.Objective {
		now := time.Now()
		exam.Status = model.Checked
		exam.CheckedAt = &now
	}
	exam.Records = records

	if err := s.ExamRepo.Create(exam); err != nil {
		return nil, err
	}

	monitoring.ExamSubmittedCounter.WithLabelValues(string(exam.Kind), string(exam.Status)).Inc()
	logger.Log.Info("Exam submitted",
		zap.String("exam_id", exam.ID),
		zap.Uint("user_id", exam.UserID),
		zap.String("kind", string(exam.Kind)),
		zap.String("status", string(exam.Status)))

	return exam, nil
}

// FinalizeCheckRequest 批改载荷，分数数组与作答记录按题目顺序对齐
type FinalizeCheckRequest struct {
	Scores []float64 `json:"scores" binding:"required"`
}

// FinalizeCheck 主观题批改定稿。分数必须落在 [0, 单题分值] 内，越界直接拒绝；
// 已批改的考试再次定稿返回冲突。
func (s *ExamService) FinalizeCheck(examID string, req FinalizeCheckRequest) (*model.Exam, error) {
	exam, err := s.findExam(examID)
	if err != nil {
		return nil, err
	}

	if exam.Status == model.Checked {
		return nil, util.ErrExamAlreadyChecked
	}

	if len(req.Scores) != len(exam.Records) {
		return nil, util.NewValidationError(
			"scores length %d does not match the exam's %d questions",
			len(req.Scores), len(exam.Records))
	}

	share := exam.QuestionShare()
	for i, score := range req.Scores {
		if score < 0 || score > share {
			return nil, util.NewValidationError(
				"scores[%d] = %.2f is outside the valid range [0, %.2f]", i, score, share)
		}
	}

	checkedAt := time.Now()
	if err := s.ExamRepo.FinalizeCheck(exam, req.Scores, checkedAt); err != nil {
		return nil, err
	}

	monitoring.ExamSubmittedCounter.WithLabelValues(string(exam.Kind), string(model.Checked)).Inc()
	logger.Log.Info("Exam check finalized",
		zap.String("exam_id", exam.ID),
		zap.Uint("user_id", exam.UserID))

	return exam, nil
}

// ExamDTO 考试详情，作答以平行数组形式对外
type ExamDTO struct {
	ID             string             `json:"id"`
	UserID         uint               `json:"userId"`
	Kind           model.QuestionKind `json:"kind"`
	Difficulty     model.Difficulty   `json:"difficulty"`
	TotalScore     float64            `json:"totalScore"`
	QuestionShare  float64            `json:"questionShare"`
	Status         model.ExamStatus   `json:"status"`
	CheckedAt      *time.Time         `json:"checkedAt,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	QuestionIDs    []uint             `json:"questionIds"`
	Answers        []string           `json:"answers"`
	TimesTaken     []int              `json:"timesTaken"`
	AcquiredScores []*float64         `json:"acquiredScores"`
	Questions      []ExamQuestionDTO  `json:"questions"`
}

type ExamQuestionDTO struct {
	ID            uint             `json:"id"`
	Text          string           `json:"text"`
	Topic         string           `json:"topic"`
	Subject       string           `json:"subject"`
	Difficulty    model.Difficulty `json:"difficulty"`
	CorrectAnswer string           `json:"correctAnswer,omitempty"`
}

// GetExam 查询考试详情。仅本人与批改人员可见；
// 未批改前不向考生暴露标准答案。
func (s *ExamService) GetExam(examID string, requesterID uint, requesterRole model.UserRole) (*ExamDTO, error) {
	exam, err := s.findExam(examID)
	if err != nil {
		return nil, err
	}

	isStaff := requesterRole == model.Examiner || requesterRole == model.Admin
	if exam.UserID != requesterID && !isStaff {
		return nil, util.ErrPermissionDenied
	}

	revealAnswers := isStaff || exam.Status == model.Checked
	return buildExamDTO(exam, revealAnswers), nil
}

func buildExamDTO(exam *model.Exam, revealAnswers bool) *ExamDTO {
	dto := &ExamDTO{
		ID:             exam.ID,
		UserID:         exam.UserID,
		Kind:           exam.Kind,
		Difficulty:     exam.Difficulty,
		TotalScore:     exam.TotalScore,
		QuestionShare:  exam.QuestionShare(),
		Status:         exam.Status,
		CheckedAt:      exam.CheckedAt,
		CreatedAt:      exam.CreatedAt,
		QuestionIDs:    make([]uint, len(exam.Records)),
		Answers:        make([]string, len(exam.Records)),
		TimesTaken:     make([]int, len(exam.Records)),
		AcquiredScores: make([]*float64, len(exam.Records)),
		Questions:      make([]ExamQuestionDTO, len(exam.Records)),
	}

	for i, record := range exam.Records {
		dto.QuestionIDs[i] = record.QuestionID
		dto.Answers[i] = record.GivenAnswer
		dto.TimesTaken[i] = record.TimeTaken
		dto.AcquiredScores[i] = record.AcquiredScore

		dto.Questions[i] = ExamQuestionDTO{
			ID:         record.Question.ID,
			Text:       record.Question.Text,
			Topic:      record.Question.Topic.Name,
			Subject:    record.Question.Topic.Subject.Name,
			Difficulty: record.Question.Difficulty,
		}
		if revealAnswers {
			dto.Questions[i].CorrectAnswer = record.Question.CorrectAnswer
		}
	}
	return dto
}

// ExamSummaryDTO 列表页摘要
type ExamSummaryDTO struct {
	ID         string             `json:"id"`
	UserID     uint               `json:"userId"`
	Kind       model.QuestionKind `json:"kind"`
	Difficulty model.Difficulty   `json:"difficulty"`
	TotalScore float64            `json:"totalScore"`
	Status     model.ExamStatus   `json:"status"`
	CheckedAt  *time.Time         `json:"checkedAt,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

func toSummaries(exams []model.Exam) []ExamSummaryDTO {
	summaries := make([]ExamSummaryDTO, len(exams))
	for i, exam := range exams {
		summaries[i] = ExamSummaryDTO{
			ID:         exam.ID,
			UserID:     exam.UserID,
			Kind:       exam.Kind,
			Difficulty: exam.Difficulty,
			TotalScore: exam.TotalScore,
			Status:     exam.Status,
			CheckedAt:  exam.CheckedAt,
			CreatedAt:  exam.CreatedAt,
		}
	}
	return summaries
}

// ListUserExams 某用户的考试记录，可按题型/状态过滤
func (s *ExamService) ListUserExams(userID uint, kind model.QuestionKind, status model.ExamStatus, page, limit int) ([]ExamSummaryDTO, int64, error) {
	if kind != "" && kind != model.Objective && kind != model.Subjective {
		return nil, 0, util.NewValidationError("unknown question kind %q", kind)
	}
	if status != "" && status != model.Unchecked && status != model.Checked {
		return nil, 0, util.NewValidationError("unknown exam status %q", status)
	}

	exams, total, err := s.ExamRepo.ListByUser(userID, kind, status, page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toSummaries(exams), total, nil
}

// ListUnchecked 待批改队列，按提交时间先到先批
func (s *ExamService) ListUnchecked(page, limit int) ([]ExamSummaryDTO, int64, error) {
	exams, total, err := s.ExamRepo.ListUnchecked(page, limit)
	if err != nil {
		return nil, 0, err
	}
	return toSummaries(exams), total, nil
}

// DeleteExamsForUser 用户注销时清空其全部考试记录
func (s *ExamService) DeleteExamsForUser(userID uint) error {
	return s.ExamRepo.DeleteByUser(userID)
}

func (s *ExamService) findExam(examID string) (*model.Exam, error) {
	exam, err := s.ExamRepo.FindByID(examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExamNotFound
		}
		return nil, err
	}
	return exam, nil
}
