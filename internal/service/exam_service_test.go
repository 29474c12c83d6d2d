package service

import (
	"encoding/json"
	"testing"
	"time"

	"question_bank_backend/internal/config"
	"question_bank_backend/internal/model"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/util"
	"question_bank_backend/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Exam: config.ExamConfig{
			Sentinel:       "not answered",
			SessionTTL:     2 * time.Hour,
			AnalyticsCache: 5 * time.Minute,
			Tiers: map[string]config.TierConfig{
				"easy":   {DurationSeconds: 30, ScoreWeight: 1},
				"medium": {DurationSeconds: 45, ScoreWeight: 2},
				"hard":   {DurationSeconds: 60, ScoreWeight: 3},
			},
		},
	}
}

// seedQuestions 建一个主题并塞入指定答案的题目，返回题目 ID 列表
func seedQuestions(t *testing.T, db *gorm.DB, kind model.QuestionKind, difficulty model.Difficulty, answers ...string) []uint {
	t.Helper()

	subject := &model.Subject{Name: "Physics"}
	require.NoError(t, db.Create(subject).Error)
	topic := &model.Topic{Name: "Thermodynamics", SubjectID: subject.ID}
	require.NoError(t, db.Create(topic).Error)

	ids := make([]uint, len(answers))
	for i, answer := range answers {
		q := &model.Question{
			Kind:          kind,
			Text:          "Q",
			CorrectAnswer: answer,
			Difficulty:    difficulty,
			TopicID:       topic.ID,
		}
		require.NoError(t, db.Create(q).Error)
		ids[i] = q.ID
	}
	return ids
}

func seedUser(t *testing.T, db *gorm.DB, code string) *model.User {
	t.Helper()
	user := &model.User{
		Name:     "student",
		Email:    code + "@test.local",
		Password: "x",
		Code:     code,
		Role:     model.Student,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newExamServiceForTest(t *testing.T, db *gorm.DB) *ExamService {
	t.Helper()
	return NewExamService(
		repository.NewExamRepository(db),
		repository.NewQuestionRepository(db),
		testConfig(),
	)
}

func TestSubmitObjectiveExamScoresInline(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-100")
	ids := seedQuestions(t, db, model.Objective, model.Easy, "A", "B", "C", "D")

	exam, err := svc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Easy,
		QuestionIDs: ids,
		Answers:     []string{"A", "B", "C", "X"},
		TimesTaken:  []int{10, 12, 8, 30},
	})
	require.NoError(t, err)

	// easy 档每题 1 分，4 题满分 4，答对 3 题
	assert.Equal(t, model.Checked, exam.Status)
	assert.NotNil(t, exam.CheckedAt)
	assert.Equal(t, 4.0, exam.TotalScore)
	assert.Equal(t, 1.0, exam.QuestionShare())

	var sum float64
	for _, record := range exam.Records {
		require.NotNil(t, record.AcquiredScore)
		sum += *record.AcquiredScore
	}
	assert.Equal(t, 3.0, sum)
}

func TestSubmitExamSentinelAndZeroTimeFixups(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-101")
	ids := seedQuestions(t, db, model.Objective, model.Easy, "A", "B")

	exam, err := svc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Easy,
		QuestionIDs: ids,
		Answers:     []string{"  ", "B"},
		TimesTaken:  []int{0, 15},
	})
	require.NoError(t, err)

	assert.Equal(t, "not answered", exam.Records[0].GivenAnswer)
	assert.Equal(t, 30, exam.Records[0].TimeTaken) // 0 耗时补满 easy 档 30 秒
	assert.Equal(t, 0.0, *exam.Records[0].AcquiredScore)
	assert.Equal(t, 1.0, *exam.Records[1].AcquiredScore)
}

func TestSubmitExamRejectsBadPayloads(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-102")
	ids := seedQuestions(t, db, model.Objective, model.Easy, "A", "B")

	// 数组长度不一致
	_, err := svc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Easy,
		QuestionIDs: ids,
		Answers:     []string{"A"},
		TimesTaken:  []int{10, 10},
	})
	assert.True(t, util.IsValidation(err))

	// 空考试
	_, err = svc.SubmitExam(SubmitExamRequest{
		UserID:     user.ID,
		Kind:       model.Objective,
		Difficulty: model.Easy,
	})
	assert.True(t, util.IsValidation(err))

	// 不存在的题目
	_, err = svc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Easy,
		QuestionIDs: []uint{9999, ids[0]},
		Answers:     []string{"A", "B"},
		TimesTaken:  []int{10, 10},
	})
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)

	// 负耗时
	_, err = svc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Easy,
		QuestionIDs: ids,
		Answers:     []string{"A", "B"},
		TimesTaken:  []int{-1, 10},
	})
	assert.True(t, util.IsValidation(err))
}

func TestSubmitExamIgnoresClientTotalScore(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-109")
	ids := seedQuestions(t, db, model.Objective, model.Easy, "A", "B")

	// 载荷里夹带 totalScore 也不会被采纳，总分只认难度档位表
	payload := map[string]interface{}{
		"kind":        "objective",
		"difficulty":  "easy",
		"questionIds": ids,
		"answers":     []string{"A", "B"},
		"timesTaken":  []int{10, 10},
		"totalScore":  100,
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var req SubmitExamRequest
	require.NoError(t, json.Unmarshal(raw, &req))
	req.UserID = user.ID

	exam, err := svc.SubmitExam(req)
	require.NoError(t, err)

	assert.Equal(t, 2.0, exam.TotalScore)
	assert.Equal(t, 1.0, exam.QuestionShare())
	assert.Equal(t, 1.0, *exam.Records[0].AcquiredScore)
	assert.Equal(t, 1.0, *exam.Records[1].AcquiredScore)
}

func TestSubmitExamHonorsFrozenWeight(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-110")
	ids := seedQuestions(t, db, model.Objective, model.Easy, "A", "B")

	// 会话开考时冻结的单题分值优先于当前档位表（配置热更新场景）
	exam, err := svc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Easy,
		QuestionIDs: ids,
		Answers:     []string{"A", "X"},
		TimesTaken:  []int{10, 10},
		scoreWeight: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, 10.0, exam.TotalScore)
	assert.Equal(t, 5.0, *exam.Records[0].AcquiredScore)
	assert.Equal(t, 0.0, *exam.Records[1].AcquiredScore)
}

func submitSubjectiveExam(t *testing.T, svc *ExamService, userID uint, ids []uint) *model.Exam {
	t.Helper()
	answers := make([]string, len(ids))
	times := make([]int, len(ids))
	for i := range ids {
		answers[i] = "essay"
		times[i] = 20
	}
	exam, err := svc.SubmitExam(SubmitExamRequest{
		UserID:      userID,
		Kind:        model.Subjective,
		Difficulty:  model.Medium,
		QuestionIDs: ids,
		Answers:     answers,
		TimesTaken:  times,
	})
	require.NoError(t, err)
	return exam
}

func TestSubjectiveExamAwaitsChecking(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-103")
	ids := seedQuestions(t, db, model.Subjective, model.Medium, "ref1", "ref2")

	exam := submitSubjectiveExam(t, svc, user.ID, ids)

	// medium 档每题 2 分，批改前不带得分
	assert.Equal(t, model.Unchecked, exam.Status)
	assert.Nil(t, exam.CheckedAt)
	assert.Equal(t, 4.0, exam.TotalScore)
	for _, record := range exam.Records {
		assert.Nil(t, record.AcquiredScore)
	}

	queue, total, err := svc.ListUnchecked(1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, exam.ID, queue[0].ID)
}

func TestFinalizeCheckHappyPath(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-104")
	ids := seedQuestions(t, db, model.Subjective, model.Medium, "ref1", "ref2")
	exam := submitSubjectiveExam(t, svc, user.ID, ids)

	checked, err := svc.FinalizeCheck(exam.ID, FinalizeCheckRequest{Scores: []float64{2, 1.5}})
	require.NoError(t, err)
	assert.Equal(t, model.Checked, checked.Status)
	assert.NotNil(t, checked.CheckedAt)

	// 重新读库核对落盘结果
	reloaded, err := svc.findExam(exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Checked, reloaded.Status)
	assert.Equal(t, 2.0, *reloaded.Records[0].AcquiredScore)
	assert.Equal(t, 1.5, *reloaded.Records[1].AcquiredScore)
}

func TestFinalizeCheckRejectsOutOfRangeScores(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-105")
	ids := seedQuestions(t, db, model.Subjective, model.Medium, "ref1", "ref2")
	exam := submitSubjectiveExam(t, svc, user.ID, ids)

	// 单题分值 2，越界不截断直接拒绝
	_, err := svc.FinalizeCheck(exam.ID, FinalizeCheckRequest{Scores: []float64{2.5, 1}})
	assert.True(t, util.IsValidation(err))

	_, err = svc.FinalizeCheck(exam.ID, FinalizeCheckRequest{Scores: []float64{-0.5, 1}})
	assert.True(t, util.IsValidation(err))

	// 长度不匹配
	_, err = svc.FinalizeCheck(exam.ID, FinalizeCheckRequest{Scores: []float64{1}})
	assert.True(t, util.IsValidation(err))

	// 拒绝之后考试仍是未批改状态
	reloaded, err := svc.findExam(exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Unchecked, reloaded.Status)
}

func TestFinalizeCheckConflictsOnRecheck(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-106")
	ids := seedQuestions(t, db, model.Subjective, model.Medium, "ref1", "ref2")
	exam := submitSubjectiveExam(t, svc, user.ID, ids)

	_, err := svc.FinalizeCheck(exam.ID, FinalizeCheckRequest{Scores: []float64{2, 2}})
	require.NoError(t, err)

	_, err = svc.FinalizeCheck(exam.ID, FinalizeCheckRequest{Scores: []float64{1, 1}})
	assert.ErrorIs(t, err, util.ErrExamAlreadyChecked)
	assert.True(t, util.IsConflict(err))
}

func TestFinalizeCheckRejectsSecondConcurrentGrader(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-111")
	ids := seedQuestions(t, db, model.Subjective, model.Medium, "ref1", "ref2")
	exam := submitSubjectiveExam(t, svc, user.ID, ids)

	// 两个批改人同时加载同一份未批改的考试
	repo := repository.NewExamRepository(db)
	graderA, err := repo.FindByID(exam.ID)
	require.NoError(t, err)
	graderB, err := repo.FindByID(exam.ID)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, repo.FinalizeCheck(graderA, []float64{2, 2}, now))

	// 后到的拿冲突错误，不能覆盖先落库的分数
	err = repo.FinalizeCheck(graderB, []float64{0, 0}, now)
	assert.ErrorIs(t, err, util.ErrExamAlreadyChecked)

	reloaded, err := svc.findExam(exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Checked, reloaded.Status)
	assert.Equal(t, 2.0, *reloaded.Records[0].AcquiredScore)
	assert.Equal(t, 2.0, *reloaded.Records[1].AcquiredScore)
}

func TestFinalizeCheckMissingExam(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)

	_, err := svc.FinalizeCheck("no-such-exam", FinalizeCheckRequest{Scores: []float64{1}})
	assert.ErrorIs(t, err, util.ErrExamNotFound)
}

func TestGetExamHidesAnswersBeforeChecking(t *testing.T) {
	db := setupTestDB(t)
	svc := newExamServiceForTest(t, db)
	user := seedUser(t, db, "U-107")
	other := seedUser(t, db, "U-108")
	ids := seedQuestions(t, db, model.Subjective, model.Medium, "ref1", "ref2")
	exam := submitSubjectiveExam(t, svc, user.ID, ids)

	// 其他考生无权查看
	_, err := svc.GetExam(exam.ID, other.ID, model.Student)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	// 本人批改前看不到参考答案
	dto, err := svc.GetExam(exam.ID, user.ID, model.Student)
	require.NoError(t, err)
	assert.Equal(t, []string{"essay", "essay"}, dto.Answers)
	assert.Empty(t, dto.Questions[0].CorrectAnswer)

	// 批改人员能看到
	dto, err = svc.GetExam(exam.ID, other.ID, model.Examiner)
	require.NoError(t, err)
	assert.Equal(t, "ref1", dto.Questions[0].CorrectAnswer)
}
