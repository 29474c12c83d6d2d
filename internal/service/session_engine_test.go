package service

import (
	"testing"
	"time"

	"question_bank_backend/internal/model"
	"question_bank_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock 测试时钟：ticker 永不自发触发，由测试直接驱动 tick
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) NewTicker(time.Duration) Ticker { return &idleTicker{} }

type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

func makeQuestions(kind model.QuestionKind, answers ...string) []model.Question {
	questions := make([]model.Question, len(answers))
	for i, answer := range answers {
		questions[i] = model.Question{
			BaseModel:     model.BaseModel{ID: uint(i + 1)},
			Kind:          kind,
			Text:          "Q",
			CorrectAnswer: answer,
			Difficulty:    model.Easy,
		}
	}
	return questions
}

func newTestSession(mode SessionMode, questions []model.Question) *ExamSession {
	clock := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := newExamSession("sess-1", 1, mode, model.Objective, model.Easy,
		questions, 30, 1, "not answered", clock)
	s.start()
	return s
}

// 驱动 n 次当前代的滴答
func driveTicks(s *ExamSession, n int) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	for i := 0; i < n; i++ {
		if !s.tick(gen) {
			return
		}
	}
}

func TestSessionCountdownTimeoutAutoAdvances(t *testing.T) {
	s := newTestSession(ModeExam, makeQuestions(model.Objective, "A", "B"))

	driveTicks(s, 29)
	view := s.View()
	assert.Equal(t, StateActive, view.State)
	assert.Equal(t, 1, view.Remaining)
	assert.Equal(t, 0, view.QuestionIndex)

	// 第 30 秒归零：空答案被保存，自动进入下一题
	driveTicks(s, 1)
	view = s.View()
	assert.Equal(t, StateActive, view.State)
	assert.Equal(t, 1, view.QuestionIndex)
	assert.Equal(t, 30, view.Remaining)

	// 超时题在提交载荷里补哨兵值，耗时记满 30 秒
	require.NoError(t, s.SaveAnswer("B"))
	_, err := s.Advance()
	require.NoError(t, err)

	ids, answers, times := s.snapshot()
	assert.Equal(t, []uint{1, 2}, ids)
	assert.Equal(t, "not answered", answers[0])
	assert.Equal(t, 30, times[0])
}

func TestSessionStaleTickerIsIgnored(t *testing.T) {
	s := newTestSession(ModeExam, makeQuestions(model.Objective, "A", "B"))

	driveTicks(s, 10)
	s.mu.Lock()
	staleGen := s.generation
	s.mu.Unlock()

	// 保存后换代，旧倒计时的滴答不得再动状态
	require.NoError(t, s.SaveAnswer("A"))
	assert.False(t, s.tick(staleGen))

	view := s.View()
	assert.Equal(t, StateSaved, view.State)
	assert.Equal(t, 0, view.QuestionIndex)
}

func TestSessionSaveRecordsElapsedTime(t *testing.T) {
	s := newTestSession(ModeExam, makeQuestions(model.Objective, "A", "B"))

	driveTicks(s, 12)
	require.NoError(t, s.SaveAnswer("A"))

	completed, err := s.Advance()
	require.NoError(t, err)
	assert.False(t, completed)

	driveTicks(s, 5)
	require.NoError(t, s.SaveAnswer("B"))
	completed, err = s.Advance()
	require.NoError(t, err)
	assert.True(t, completed)
	assert.True(t, s.isCompleted())

	_, answers, times := s.snapshot()
	assert.Equal(t, []string{"A", "B"}, answers)
	assert.Equal(t, []int{12, 5}, times)
}

func TestSessionRejectsOutOfOrderEvents(t *testing.T) {
	s := newTestSession(ModeExam, makeQuestions(model.Objective, "A", "B"))

	// Active 状态不允许直接进下一题
	_, err := s.Advance()
	assert.True(t, util.IsValidation(err))

	require.NoError(t, s.SaveAnswer("A"))

	// Saved 状态不允许重复保存
	err = s.SaveAnswer("A2")
	assert.True(t, util.IsValidation(err))
}

func TestSessionLastQuestionTimeoutCompletes(t *testing.T) {
	done := make(chan *ExamSession, 1)
	s := newTestSession(ModeExam, makeQuestions(model.Objective, "A"))
	s.onComplete = func(sess *ExamSession) { done <- sess }

	driveTicks(s, 30)

	select {
	case sess := <-done:
		assert.Equal(t, "sess-1", sess.ID)
	default:
		t.Fatal("expected completion callback after last question timed out")
	}
	assert.True(t, s.isCompleted())
}

func TestPracticeSessionRevealsAnswerAfterSave(t *testing.T) {
	s := newTestSession(ModePractice, makeQuestions(model.Objective, "A", "B"))

	// 未作答不能看答案
	_, err := s.RevealAnswer()
	assert.True(t, util.IsValidation(err))

	require.NoError(t, s.SaveAnswer("C"))
	answer, err := s.RevealAnswer()
	require.NoError(t, err)
	assert.Equal(t, "A", answer)

	// 练习模式不计时
	_, _, times := s.snapshot()
	assert.Equal(t, 30, times[0]) // 0 补满时长
}

func TestExamSessionRefusesReveal(t *testing.T) {
	s := newTestSession(ModeExam, makeQuestions(model.Objective, "A"))

	require.NoError(t, s.SaveAnswer("A"))
	_, err := s.RevealAnswer()
	assert.True(t, util.IsValidation(err))
}
