package service

import (
	"context"
	"testing"

	"question_bank_backend/internal/model"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAnalyticsServiceForTest(t *testing.T, db *gorm.DB) (*AnalyticsService, *ExamService) {
	t.Helper()
	examSvc := newExamServiceForTest(t, db)
	analyticsSvc := NewAnalyticsService(
		repository.NewUserRepository(db),
		repository.NewExamRepository(db),
		nil, // 无 Redis 时每次重算
		testConfig(),
	)
	return analyticsSvc, examSvc
}

func TestAnalyticsBucketsPerTopicAndDifficulty(t *testing.T) {
	db := setupTestDB(t)
	analyticsSvc, examSvc := newAnalyticsServiceForTest(t, db)
	user := seedUser(t, db, "U-200")
	ids := seedQuestions(t, db, model.Objective, model.Easy, "A", "B", "C", "D")

	_, err := examSvc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Easy,
		QuestionIDs: ids,
		Answers:     []string{"A", "B", "C", "X"},
		TimesTaken:  []int{10, 20, 10, 20},
	})
	require.NoError(t, err)

	report, err := analyticsSvc.ReportByCode(context.Background(), "U-200")
	require.NoError(t, err)
	require.NotNil(t, report.Objective)

	// easy 档 4 题答对 3 题，桶内均分 0.75；未作答的难度档保持 0
	require.Len(t, report.Objective.PerTopic, 1)
	row := report.Objective.PerTopic[0]
	assert.Equal(t, "Thermodynamics", row.Topic)
	assert.Equal(t, "Physics", row.Subject)
	assert.InDelta(t, 0.75, row.Difficulty.Easy, 1e-9)
	assert.Zero(t, row.Difficulty.Medium)
	assert.Zero(t, row.Difficulty.Hard)

	assert.InDelta(t, 15.0, report.Objective.AverageTimeTaken, 1e-9)

	// 没有已批改的主观题，报告为空但不报错
	require.NotNil(t, report.Subjective)
	assert.Empty(t, report.Subjective.PerTopic)
	assert.Zero(t, report.Subjective.AverageTimeTaken)
}

func TestAnalyticsExcludesUncheckedExams(t *testing.T) {
	db := setupTestDB(t)
	analyticsSvc, examSvc := newAnalyticsServiceForTest(t, db)
	user := seedUser(t, db, "U-201")
	ids := seedQuestions(t, db, model.Subjective, model.Medium, "ref1", "ref2")
	exam := submitSubjectiveExam(t, examSvc, user.ID, ids)

	report, err := analyticsSvc.ReportByCode(context.Background(), "U-201")
	require.NoError(t, err)
	assert.Empty(t, report.Subjective.PerTopic)

	// 批改定稿后进入统计：2 分与 1 分的均值折算
	_, err = examSvc.FinalizeCheck(exam.ID, FinalizeCheckRequest{Scores: []float64{2, 1}})
	require.NoError(t, err)

	report, err = analyticsSvc.ReportByCode(context.Background(), "U-201")
	require.NoError(t, err)
	require.Len(t, report.Subjective.PerTopic, 1)
	assert.InDelta(t, 1.5, report.Subjective.PerTopic[0].Difficulty.Medium, 1e-9)
	assert.InDelta(t, 20.0, report.Subjective.AverageTimeTaken, 1e-9)
}

func TestAnalyticsPoolsScoresAcrossAttempts(t *testing.T) {
	db := setupTestDB(t)
	analyticsSvc, examSvc := newAnalyticsServiceForTest(t, db)
	user := seedUser(t, db, "U-203")
	ids := seedQuestions(t, db, model.Objective, model.Easy, "A", "B", "C")

	// 第一场 3 题得分 [1,0,1]
	_, err := examSvc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Easy,
		QuestionIDs: ids,
		Answers:     []string{"A", "X", "C"},
		TimesTaken:  []int{10, 10, 10},
	})
	require.NoError(t, err)

	// 第二场 1 题得分 [1]
	_, err = examSvc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Easy,
		QuestionIDs: ids[:1],
		Answers:     []string{"A"},
		TimesTaken:  []int{30},
	})
	require.NoError(t, err)

	report, err := analyticsSvc.ReportByCode(context.Background(), "U-203")
	require.NoError(t, err)

	// 同一 (主题, 难度) 桶把两场的单题得分汇在一起取均值：
	// (1+0+1+1)/4 = 0.75，而不是先按场均值再平均的 0.833
	require.Len(t, report.Objective.PerTopic, 1)
	assert.InDelta(t, 0.75, report.Objective.PerTopic[0].Difficulty.Easy, 1e-9)
	assert.InDelta(t, 15.0, report.Objective.AverageTimeTaken, 1e-9)
}

func TestAnalyticsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	analyticsSvc, examSvc := newAnalyticsServiceForTest(t, db)
	user := seedUser(t, db, "U-202")
	ids := seedQuestions(t, db, model.Objective, model.Hard, "A", "B")

	_, err := examSvc.SubmitExam(SubmitExamRequest{
		UserID:      user.ID,
		Kind:        model.Objective,
		Difficulty:  model.Hard,
		QuestionIDs: ids,
		Answers:     []string{"A", "B"},
		TimesTaken:  []int{30, 40},
	})
	require.NoError(t, err)

	first, err := analyticsSvc.ReportByCode(context.Background(), "U-202")
	require.NoError(t, err)
	second, err := analyticsSvc.ReportByCode(context.Background(), "U-202")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// hard 档每题 3 分全对
	assert.InDelta(t, 3.0, first.Objective.PerTopic[0].Difficulty.Hard, 1e-9)
}

func TestAnalyticsUnknownCode(t *testing.T) {
	db := setupTestDB(t)
	analyticsSvc, _ := newAnalyticsServiceForTest(t, db)

	_, err := analyticsSvc.ReportByCode(context.Background(), "NO-SUCH-CODE")
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}
