package service

import (
	"strings"
	"sync"
	"time"

	"question_bank_backend/internal/model"
	"question_bank_backend/internal/util"
	"question_bank_backend/pkg/monitoring"
)

type SessionMode string

const (
	ModePractice SessionMode = "practice"
	ModeExam     SessionMode = "exam"
)

type SessionState string

const (
	// Active 倒计时进行中，等待作答
	StateActive SessionState = "active"
	// Saved 当前题已保存，等待 Next/Submit
	StateSaved SessionState = "saved"
	// Completed 最后一题已保存，作答数组齐全，等待提交落库
	StateCompleted SessionState = "completed"
	// Submitted 已成功提交，会话终结
	StateSubmitted SessionState = "submitted"
)

// Clock 可注入时钟，测试用手动时钟驱动倒计时
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (rt *realTicker) C() <-chan time.Time { return rt.t.C }
func (rt *realTicker) Stop()               { rt.t.Stop() }

// sessionQuestion 会话内一道题的作答进度
type sessionQuestion struct {
	Question    model.Question
	GivenAnswer string
	TimeTaken   int // 秒
	Answered    bool
}

// ExamSession 一次进行中的答题会话。所有状态变更都在 mu 下进行，
// 倒计时滴答与用户操作互斥，保证单写者。
type ExamSession struct {
	ID         string
	UserID     uint
	Mode       SessionMode
	Kind       model.QuestionKind
	Difficulty model.Difficulty

	// 考试模式参数（练习模式不计时不计分）
	Duration int     // 每题倒计时秒数
	Weight   float64 // 每题分值
	Sentinel string

	mu        sync.Mutex
	questions []sessionQuestion
	index     int
	state     SessionState
	remaining int
	// generation 每次启动新倒计时递增，过期 ticker 的滴答直接丢弃
	generation int
	ticker     Ticker
	clock      Clock
	lastTouch  time.Time

	// onComplete 超时驱动走完最后一题时回调（提交交给 SessionManager）
	onComplete func(*ExamSession)
}

func newExamSession(id string, userID uint, mode SessionMode, kind model.QuestionKind,
	difficulty model.Difficulty, questions []model.Question,
	duration int, weight float64, sentinel string, clock Clock) *ExamSession {

	s := &ExamSession{
		ID:         id,
		UserID:     userID,
		Mode:       mode,
		Kind:       kind,
		Difficulty: difficulty,
		Duration:   duration,
		Weight:     weight,
		Sentinel:   sentinel,
		state:      StateActive,
		remaining:  duration,
		clock:      clock,
		lastTouch:  clock.Now(),
	}
	s.questions = make([]sessionQuestion, len(questions))
	for i, q := range questions {
		s.questions[i] = sessionQuestion{Question: q}
	}
	return s
}

// start 启动第一题的倒计时（练习模式无倒计时）
func (s *ExamSession) start() {
	if s.Mode != ModeExam {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startCountdownLocked()
}

// startCountdownLocked 重置剩余时间并启动新一代倒计时。
// 必须先停掉旧 ticker 再换代，过期滴答靠 generation 挡住。
func (s *ExamSession) startCountdownLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.generation++
	s.remaining = s.Duration

	gen := s.generation
	ticker := s.clock.NewTicker(time.Second)
	s.ticker = ticker

	go func() {
		for range ticker.C() {
			if !s.tick(gen) {
				return
			}
		}
	}()
}

// tick 处理一次滴答，返回 false 表示该倒计时已过期/结束
func (s *ExamSession) tick(gen int) bool {
	s.mu.Lock()

	if gen != s.generation || s.state == StateSubmitted || s.state == StateCompleted {
		s.mu.Unlock()
		return false
	}
	if s.state != StateActive {
		// Saved 状态下计时已停，等用户 Next
		s.mu.Unlock()
		return false
	}

	s.remaining--
	if s.remaining > 0 {
		s.mu.Unlock()
		return true
	}

	// 倒计时归零：视同按下保存（哪怕答案为空），随即自动进入下一题
	monitoring.SessionEventCounter.WithLabelValues("timeout").Inc()
	s.saveLocked(s.questions[s.index].GivenAnswer)
	completed := s.advanceLocked()
	s.mu.Unlock()

	if completed && s.onComplete != nil {
		s.onComplete(s)
	}
	return false
}

// SaveAnswer 保存当前题答案：Active → Saved，倒计时停止
func (s *ExamSession) SaveAnswer(answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return util.NewValidationError("session is not accepting an answer in state %q", s.state)
	}

	s.saveLocked(answer)
	monitoring.SessionEventCounter.WithLabelValues("save").Inc()
	return nil
}

func (s *ExamSession) saveLocked(answer string) {
	q := &s.questions[s.index]
	q.GivenAnswer = answer
	q.Answered = true

	if s.Mode == ModeExam {
		elapsed := s.Duration - s.remaining
		if elapsed > s.Duration || s.remaining <= 0 {
			elapsed = s.Duration
		}
		q.TimeTaken = elapsed
		// 本题计时作废，旧 ticker 不得再动状态
		s.generation++
		if s.ticker != nil {
			s.ticker.Stop()
			s.ticker = nil
		}
	}

	s.state = StateSaved
	s.lastTouch = s.clock.Now()
}

// Advance 进入下一题：Saved → Active(i+1)；最后一题则收束为 Completed
func (s *ExamSession) Advance() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSaved {
		return false, util.NewValidationError("current question must be saved before advancing")
	}

	monitoring.SessionEventCounter.WithLabelValues("advance").Inc()
	return s.advanceLocked(), nil
}

// advanceLocked 返回 true 表示整场已答完（Completed）
func (s *ExamSession) advanceLocked() bool {
	if s.index >= len(s.questions)-1 {
		s.state = StateCompleted
		if s.ticker != nil {
			s.ticker.Stop()
			s.ticker = nil
		}
		s.generation++
		s.lastTouch = s.clock.Now()
		return true
	}

	s.index++
	s.state = StateActive
	s.lastTouch = s.clock.Now()
	if s.Mode == ModeExam {
		s.startCountdownLocked()
	}
	return false
}

// RevealAnswer 练习模式下查看标准/参考答案，需先作答
func (s *ExamSession) RevealAnswer() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Mode != ModePractice {
		return "", util.NewValidationError("answers can only be revealed in practice mode")
	}
	if s.state != StateSaved && s.state != StateCompleted {
		return "", util.NewValidationError("answer the question before revealing the solution")
	}
	return s.questions[s.index].Question.CorrectAnswer, nil
}

// stop 终止会话（放弃或提交成功后），内存即弃
func (s *ExamSession) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.state = StateSubmitted
}

// SessionView 面向前端的会话快照，不含标准答案
type SessionView struct {
	SessionID     string          `json:"sessionId"`
	Mode          SessionMode     `json:"mode"`
	Kind          model.QuestionKind `json:"kind"`
	State         SessionState    `json:"state"`
	QuestionIndex int             `json:"questionIndex"`
	QuestionCount int             `json:"questionCount"`
	Remaining     int             `json:"remainingSeconds"`
	Question      SessionQuestionView `json:"question"`
}

type SessionQuestionView struct {
	ID         uint               `json:"id"`
	Text       string             `json:"text"`
	Options    interface{}        `json:"options,omitempty"`
	Hint       string             `json:"hint,omitempty"`
	Difficulty model.Difficulty   `json:"difficulty"`
	Topic      string             `json:"topic"`
	Given      string             `json:"givenAnswer,omitempty"`
}

// View 当前题快照
func (s *ExamSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.index
	q := s.questions[idx]

	view := SessionView{
		SessionID:     s.ID,
		Mode:          s.Mode,
		Kind:          s.Kind,
		State:         s.state,
		QuestionIndex: idx,
		QuestionCount: len(s.questions),
		Remaining:     s.remaining,
		Question: SessionQuestionView{
			ID:         q.Question.ID,
			Text:       q.Question.Text,
			Hint:       q.Question.Hint,
			Difficulty: q.Question.Difficulty,
			Topic:      q.Question.Topic.Name,
			Given:      q.GivenAnswer,
		},
	}
	if len(q.Question.Options) > 0 {
		view.Question.Options = q.Question.Options
	}
	return view
}

// snapshot 导出提交载荷：空白答案补哨兵值，耗时为 0 的补满时长
// （防住倒计时边界竞态，见提交流程约定）
func (s *ExamSession) snapshot() ([]uint, []string, []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uint, len(s.questions))
	answers := make([]string, len(s.questions))
	times := make([]int, len(s.questions))

	for i, q := range s.questions {
		ids[i] = q.Question.ID

		answer := strings.TrimSpace(q.GivenAnswer)
		if answer == "" {
			answer = s.Sentinel
		}
		answers[i] = answer

		taken := q.TimeTaken
		if taken == 0 {
			taken = s.Duration
		}
		times[i] = taken
	}

	return ids, answers, times
}

func (s *ExamSession) isCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCompleted
}

func (s *ExamSession) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouch
}
