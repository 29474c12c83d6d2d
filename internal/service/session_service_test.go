package service

import (
	"testing"
	"time"

	"question_bank_backend/internal/model"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSessionManagerForTest(t *testing.T, db *gorm.DB) *SessionManager {
	t.Helper()
	examSvc := newExamServiceForTest(t, db)
	m := NewSessionManager(repository.NewQuestionRepository(db), examSvc, testConfig())
	m.clock = &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return m
}

func TestSessionManagerFullExamFlow(t *testing.T) {
	db := setupTestDB(t)
	m := newSessionManagerForTest(t, db)
	user := seedUser(t, db, "U-300")
	seedQuestions(t, db, model.Objective, model.Easy, "A", "B")

	session, err := m.StartSession(user.ID, StartSessionRequest{
		Mode:       ModeExam,
		Kind:       model.Objective,
		TopicID:    1,
		Difficulty: model.Easy,
		Count:      2,
	})
	require.NoError(t, err)

	// 未答完不允许提交
	_, err = m.Submit(session.ID, user.ID)
	assert.True(t, util.IsValidation(err))

	// 其他用户摸不到这个会话
	_, err = m.Get(session.ID, user.ID+1)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	// 两道题各答一遍（抽题顺序随机，只走流程不押对错）
	_, err = m.SaveAnswer(session.ID, user.ID, "A")
	require.NoError(t, err)
	_, completed, err := m.Advance(session.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, completed)

	_, err = m.SaveAnswer(session.ID, user.ID, "B")
	require.NoError(t, err)
	_, completed, err = m.Advance(session.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, completed)

	exam, err := m.Submit(session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Checked, exam.Status)
	assert.Equal(t, 2.0, exam.TotalScore) // easy 档 2 题

	// 提交成功后会话即弃
	_, err = m.Get(session.ID, user.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestSessionManagerNotEnoughQuestions(t *testing.T) {
	db := setupTestDB(t)
	m := newSessionManagerForTest(t, db)
	user := seedUser(t, db, "U-301")
	seedQuestions(t, db, model.Objective, model.Easy, "A")

	_, err := m.StartSession(user.ID, StartSessionRequest{
		Mode:       ModeExam,
		Kind:       model.Objective,
		TopicID:    1,
		Difficulty: model.Easy,
		Count:      5,
	})
	assert.ErrorIs(t, err, util.ErrNotEnoughQuestions)
}

func TestSessionManagerRejectsBadStartParams(t *testing.T) {
	db := setupTestDB(t)
	m := newSessionManagerForTest(t, db)
	user := seedUser(t, db, "U-302")

	_, err := m.StartSession(user.ID, StartSessionRequest{
		Mode: "cram", Kind: model.Objective, TopicID: 1, Difficulty: model.Easy, Count: 2,
	})
	assert.True(t, util.IsValidation(err))

	_, err = m.StartSession(user.ID, StartSessionRequest{
		Mode: ModeExam, Kind: "riddle", TopicID: 1, Difficulty: model.Easy, Count: 2,
	})
	assert.True(t, util.IsValidation(err))

	_, err = m.StartSession(user.ID, StartSessionRequest{
		Mode: ModeExam, Kind: model.Objective, TopicID: 1, Difficulty: "Brutal", Count: 2,
	})
	assert.True(t, util.IsValidation(err))

	_, err = m.StartSession(user.ID, StartSessionRequest{
		Mode: ModeExam, Kind: model.Objective, TopicID: 1, Difficulty: model.Easy, Count: 0,
	})
	assert.True(t, util.IsValidation(err))
}

func TestSessionManagerAbandon(t *testing.T) {
	db := setupTestDB(t)
	m := newSessionManagerForTest(t, db)
	user := seedUser(t, db, "U-303")
	seedQuestions(t, db, model.Objective, model.Easy, "A", "B")

	session, err := m.StartSession(user.ID, StartSessionRequest{
		Mode:       ModePractice,
		Kind:       model.Objective,
		TopicID:    1,
		Difficulty: model.Easy,
		Count:      2,
	})
	require.NoError(t, err)

	require.NoError(t, m.Abandon(session.ID, user.ID))
	_, err = m.Get(session.ID, user.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestSessionManagerReapsIdleSessions(t *testing.T) {
	db := setupTestDB(t)
	m := newSessionManagerForTest(t, db)
	user := seedUser(t, db, "U-304")
	seedQuestions(t, db, model.Objective, model.Easy, "A", "B")

	session, err := m.StartSession(user.ID, StartSessionRequest{
		Mode:       ModePractice,
		Kind:       model.Objective,
		TopicID:    1,
		Difficulty: model.Easy,
		Count:      2,
	})
	require.NoError(t, err)

	// TTL 默认 2 小时，把时钟往后拨 3 小时触发回收
	m.clock.(*manualClock).now = m.clock.(*manualClock).now.Add(3 * time.Hour)
	m.reapIdle()

	_, err = m.Get(session.ID, user.ID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}
