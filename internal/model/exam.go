package model

import "time"

type ExamStatus string

const (
	Unchecked ExamStatus = "Unchecked"
	Checked   ExamStatus = "Checked"
)

// Exam 一次已提交的考试（Attempt）。题目顺序、作答、耗时与得分
// 统一收在有序的 Records 里，对外仍按四个平行数组序列化。
// swagger:model Exam
type Exam struct {
	UUIDBase
	UserID     uint         `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	User       User         `gorm:"foreignKey:UserID" json:"-"`
	Kind       QuestionKind `gorm:"size:20;not null;index" json:"kind"`
	Difficulty Difficulty   `gorm:"size:20;not null" json:"difficulty"`
	TotalScore float64      `gorm:"not null" json:"totalScore"`
	Status     ExamStatus   `gorm:"size:20;default:'Unchecked';index" json:"status"`
	CheckedAt  *time.Time   `json:"checkedAt,omitempty"`

	Records []ExamRecord `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE" json:"records,omitempty"`
}

func (Exam) TableName() string {
	return "exams"
}

// QuestionShare 单题满分（总分按题数均摊）
func (e *Exam) QuestionShare() float64 {
	if len(e.Records) == 0 {
		return 0
	}
	return e.TotalScore / float64(len(e.Records))
}

// ExamRecord 考试中一道题的作答记录，Position 保持提交时的题目顺序
type ExamRecord struct {
	ID            uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	ExamID        string   `gorm:"index;type:varchar(36);not null" json:"examId"`
	Position      int      `gorm:"not null" json:"position"`
	QuestionID    uint     `gorm:"index;type:bigint unsigned;not null" json:"questionId"`
	Question      Question `gorm:"foreignKey:QuestionID" json:"-"`
	GivenAnswer   string   `gorm:"type:text;not null" json:"givenAnswer"`
	TimeTaken     int      `gorm:"not null" json:"timeTaken"` // 秒
	AcquiredScore *float64 `json:"acquiredScore,omitempty"`   // 批改前为空
}

func (ExamRecord) TableName() string {
	return "exam_records"
}
