package service

import (
	"sync"
	"time"

	"question_bank_backend/internal/config"
	"question_bank_backend/internal/model"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/util"
	"question_bank_backend/pkg/logger"
	"question_bank_backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionManager 持有全部进行中的答题会话（纯内存，不落库）。
// 会话超时无人操作由后台 reaper 回收。
type SessionManager struct {
	QuestionRepo *repository.QuestionRepository
	ExamService  *ExamService

	mu       sync.RWMutex
	sessions map[string]*ExamSession

	cfgMu sync.RWMutex
	cfg   *config.Config

	clock  Clock
	stopCh chan struct{}
	once   sync.Once
}

func NewSessionManager(questionRepo *repository.QuestionRepository, examService *ExamService, cfg *config.Config) *SessionManager {
	return &SessionManager{
		QuestionRepo: questionRepo,
		ExamService:  examService,
		sessions:     make(map[string]*ExamSession),
		cfg:          cfg,
		clock:        realClock{},
		stopCh:       make(chan struct{}),
	}
}

// SetConfig 配置热更新入口（难度档位表、哨兵值、TTL）
func (m *SessionManager) SetConfig(cfg *config.Config) {
	m.cfgMu.Lock()
	m.cfg = cfg
	m.cfgMu.Unlock()
	logger.Log.Info("Session manager config reloaded")
}

func (m *SessionManager) config() *config.Config {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.cfg
}

type StartSessionRequest struct {
	Mode       SessionMode        `json:"mode" binding:"required"`
	Kind       model.QuestionKind `json:"kind" binding:"required"`
	TopicID    uint               `json:"topicId" binding:"required"`
	Difficulty model.Difficulty   `json:"difficulty" binding:"required"`
	Count      int                `json:"count" binding:"required"`
}

// StartSession 抽题并建立新会话。考试模式立即启动第一题倒计时。
func (m *SessionManager) StartSession(userID uint, req StartSessionRequest) (*ExamSession, error) {
	if req.Mode != ModePractice && req.Mode != ModeExam {
		return nil, util.NewValidationError("unknown session mode %q", req.Mode)
	}
	if req.Kind != model.Objective && req.Kind != model.Subjective {
		return nil, util.NewValidationError("unknown question kind %q", req.Kind)
	}
	if !req.Difficulty.Valid() {
		return nil, util.NewValidationError("unknown difficulty %q", req.Difficulty)
	}
	if req.Count <= 0 || req.Count > 50 {
		return nil, util.NewValidationError("question count must be between 1 and 50")
	}

	questions, err := m.QuestionRepo.Sample(req.TopicID, req.Difficulty, req.Kind, req.Count)
	if err != nil {
		return nil, err
	}
	if len(questions) < req.Count {
		return nil, util.ErrNotEnoughQuestions
	}

	cfg := m.config()
	tier := cfg.Exam.Tier(string(req.Difficulty))

	session := newExamSession(
		uuid.NewString(), userID, req.Mode, req.Kind, req.Difficulty,
		questions, tier.DurationSeconds, tier.ScoreWeight, cfg.Exam.Sentinel,
		m.clock,
	)

	if req.Mode == ModeExam {
		// 超时自动答完最后一题后直接代为提交
		session.onComplete = func(s *ExamSession) {
			go m.autoSubmit(s)
		}
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	monitoring.ActiveSessions.Inc()

	session.start()

	logger.Log.Info("Exam session started",
		zap.String("session_id", session.ID),
		zap.Uint("user_id", userID),
		zap.String("mode", string(req.Mode)),
		zap.String("kind", string(req.Kind)),
		zap.String("difficulty", string(req.Difficulty)),
		zap.Int("count", req.Count))

	return session, nil
}

// Get 取会话并校验归属
func (m *SessionManager) Get(sessionID string, userID uint) (*ExamSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, util.ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return session, nil
}

func (m *SessionManager) SaveAnswer(sessionID string, userID uint, answer string) (*ExamSession, error) {
	session, err := m.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if err := session.SaveAnswer(answer); err != nil {
		return nil, err
	}
	return session, nil
}

// Advance 进入下一题，返回会话与是否已全部答完
func (m *SessionManager) Advance(sessionID string, userID uint) (*ExamSession, bool, error) {
	session, err := m.Get(sessionID, userID)
	if err != nil {
		return nil, false, err
	}
	completed, err := session.Advance()
	if err != nil {
		return nil, false, err
	}
	return session, completed, nil
}

func (m *SessionManager) RevealAnswer(sessionID string, userID uint) (string, error) {
	session, err := m.Get(sessionID, userID)
	if err != nil {
		return "", err
	}
	return session.RevealAnswer()
}

// Submit 提交会话成绩。提交失败时会话保留在内存，允许重试。
func (m *SessionManager) Submit(sessionID string, userID uint) (*model.Exam, error) {
	session, err := m.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Mode != ModeExam {
		return nil, util.NewValidationError("practice sessions are not submitted for scoring")
	}
	if !session.isCompleted() {
		return nil, util.NewValidationError("all questions must be answered before submitting")
	}

	exam, err := m.performSubmit(session)
	if err != nil {
		return nil, err
	}
	return exam, nil
}

func (m *SessionManager) performSubmit(session *ExamSession) (*model.Exam, error) {
	ids, answers, times := session.snapshot()

	exam, err := m.ExamService.SubmitExam(SubmitExamRequest{
		UserID:      session.UserID,
		Kind:        session.Kind,
		Difficulty:  session.Difficulty,
		QuestionIDs: ids,
		Answers:     answers,
		TimesTaken:  times,
		scoreWeight: session.Weight,
	})
	if err != nil {
		logger.Log.Error("Exam submission failed, session retained",
			zap.String("session_id", session.ID),
			zap.Error(err))
		return nil, err
	}

	session.stop()
	m.remove(session.ID)
	monitoring.SessionEventCounter.WithLabelValues("submit").Inc()

	logger.Log.Info("Exam session submitted",
		zap.String("session_id", session.ID),
		zap.String("exam_id", exam.ID))
	return exam, nil
}

// autoSubmit 最后一题超时走完后的自动提交，失败仅记日志，会话保留
func (m *SessionManager) autoSubmit(session *ExamSession) {
	if _, err := m.performSubmit(session); err != nil {
		logger.Log.Warn("Auto submission failed after timeout, awaiting manual retry",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
}

// Abandon 放弃会话，不留任何痕迹
func (m *SessionManager) Abandon(sessionID string, userID uint) error {
	session, err := m.Get(sessionID, userID)
	if err != nil {
		return err
	}
	session.stop()
	m.remove(sessionID)
	monitoring.SessionEventCounter.WithLabelValues("abandon").Inc()

	logger.Log.Info("Exam session abandoned", zap.String("session_id", sessionID))
	return nil
}

func (m *SessionManager) remove(sessionID string) {
	m.mu.Lock()
	if _, ok := m.sessions[sessionID]; ok {
		delete(m.sessions, sessionID)
		monitoring.ActiveSessions.Dec()
	}
	m.mu.Unlock()
}

// StartReaper 启动后台回收：超过 TTL 无操作的会话直接丢弃
func (m *SessionManager) StartReaper() {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.reapIdle()
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *SessionManager) reapIdle() {
	ttl := m.config().Exam.SessionTTL
	deadline := m.clock.Now().Add(-ttl)

	m.mu.Lock()
	var expired []*ExamSession
	for id, session := range m.sessions {
		if session.idleSince().Before(deadline) {
			expired = append(expired, session)
			delete(m.sessions, id)
			monitoring.ActiveSessions.Dec()
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.stop()
		logger.Log.Info("Idle exam session reaped",
			zap.String("session_id", session.ID),
			zap.Uint("user_id", session.UserID))
	}
}

// Stop 关停 reaper 并终止所有在途会话（优雅退出时调用）
func (m *SessionManager) Stop() {
	m.once.Do(func() { close(m.stopCh) })

	m.mu.Lock()
	for id, session := range m.sessions {
		session.stop()
		delete(m.sessions, id)
		monitoring.ActiveSessions.Dec()
	}
	m.mu.Unlock()
}
