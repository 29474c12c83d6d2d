package model

import "encoding/json"

type QuestionKind string

const (
	Objective  QuestionKind = "objective"
	Subjective QuestionKind = "subjective"
)

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Valid 检查难度取值是否为合法档位
func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}

// swagger:model Subject
type Subject struct {
	BaseModel
	Name string `gorm:"size:100;unique;not null" json:"name"`
}

func (Subject) TableName() string {
	return "subjects"
}

// swagger:model Topic
type Topic struct {
	BaseModel
	Name      string  `gorm:"size:100;not null;uniqueIndex:idx_topic_subject" json:"name"`
	SubjectID uint    `gorm:"index;type:bigint unsigned;uniqueIndex:idx_topic_subject" json:"subjectId"`
	Subject   Subject `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
}

func (Topic) TableName() string {
	return "topics"
}

// Question 题库题目（题库侧维护，考试核心只读）
// 客观题带 2~4 个选项和标准答案，主观题带参考答案和可选提示
// swagger:model Question
type Question struct {
	BaseModel
	Kind          QuestionKind    `gorm:"size:20;not null;index" json:"kind"`
	Text          string          `gorm:"type:text;not null" json:"text"`
	Options       json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	CorrectAnswer string          `gorm:"type:text;not null" json:"-"`
	Hint          string          `gorm:"type:text" json:"hint,omitempty"`
	Difficulty    Difficulty      `gorm:"size:20;not null;index" json:"difficulty"`
	TopicID       uint            `gorm:"index;type:bigint unsigned" json:"topicId"`
	Topic         Topic           `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}
