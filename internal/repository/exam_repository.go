package repository

import (
	"question_bank_backend/internal/model"
	"question_bank_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

// Create 在一个事务里写入考试头与全部作答记录
func (r *ExamRepository) Create(exam *model.Exam) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(exam).Error
	})
}

func (r *ExamRepository) FindByID(id string) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.
		Preload("Records", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_records.position ASC")
		}).
		Preload("Records.Question").
		Preload("Records.Question.Topic").
		Preload("Records.Question.Topic.Subject").
		Where("id = ?", id).
		First(&exam).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListByUser 按题型/状态过滤某用户的考试记录
func (r *ExamRepository) ListByUser(userID uint, kind model.QuestionKind, status model.ExamStatus, page, limit int) ([]model.Exam, int64, error) {
	query := r.DB.Model(&model.Exam{}).Where("user_id = ?", userID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var exams []model.Exam
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&exams).Error

	return exams, total, err
}

// ListUnchecked 待批改队列（主观题）
func (r *ExamRepository) ListUnchecked(page, limit int) ([]model.Exam, int64, error) {
	query := r.DB.Model(&model.Exam{}).
		Where("kind = ? AND status = ?", model.Subjective, model.Unchecked)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var exams []model.Exam
	err := query.Order("created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&exams).Error

	return exams, total, err
}

// ListCheckedByUser 拉取某用户全部已批改考试（含题目、主题、科目），供成绩聚合
func (r *ExamRepository) ListCheckedByUser(userID uint, kind model.QuestionKind) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.
		Preload("Records", func(db *gorm.DB) *gorm.DB {
			return db.Order("exam_records.position ASC")
		}).
		Preload("Records.Question").
		Preload("Records.Question.Topic").
		Preload("Records.Question.Topic.Subject").
		Where("user_id = ? AND kind = ? AND status = ?", userID, kind, model.Checked).
		Order("created_at ASC").
		Find(&exams).Error

	return exams, err
}

// FinalizeCheck 批改落库：先带状态条件翻转考试头，抢不到 Unchecked 的批改人
// 拿冲突错误退出，抢到后才在同一事务里写每题得分。两个批改人并发定稿只有一个成功。
func (r *ExamRepository) FinalizeCheck(exam *model.Exam, scores []float64, checkedAt time.Time) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Exam{}).
			Where("id = ? AND status = ?", exam.ID, model.Unchecked).
			Updates(map[string]interface{}{
				"status":     model.Checked,
				"checked_at": checkedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrExamAlreadyChecked
		}

		for i := range exam.Records {
			if err := tx.Model(&model.ExamRecord{}).
				Where("id = ?", exam.Records[i].ID).
				Update("acquired_score", scores[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i := range exam.Records {
		score := scores[i]
		exam.Records[i].AcquiredScore = &score
	}
	exam.Status = model.Checked
	exam.CheckedAt = &checkedAt
	return nil
}

// DeleteByUser 删除某用户的全部考试记录（用户删除时级联调用）
func (r *ExamRepository) DeleteByUser(userID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var examIDs []string
		if err := tx.Model(&model.Exam{}).
			Where("user_id = ?", userID).
			Pluck("id", &examIDs).Error; err != nil {
			return err
		}
		if len(examIDs) == 0 {
			return nil
		}
		if err := tx.Where("exam_id IN ?", examIDs).
			Delete(&model.ExamRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&model.Exam{}).Error
	})
}
