package repository

import (
	"question_bank_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Topic").Preload("Topic.Subject").First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// FindByIDs 批量查题，带主题与科目
func (r *QuestionRepository) FindByIDs(ids []uint) (map[uint]model.Question, error) {
	var questions []model.Question
	err := r.DB.Preload("Topic").Preload("Topic.Subject").
		Where("id IN ?", ids).Find(&questions).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		result[q.ID] = q
	}
	return result, nil
}

// Sample 按主题+难度+题型随机抽取 count 道题
func (r *QuestionRepository) Sample(topicID uint, difficulty model.Difficulty, kind model.QuestionKind, count int) ([]model.Question, error) {
	// sqlite 用 RANDOM()，mysql 用 RAND()
	random := "RAND()"
	if r.DB.Dialector.Name() == "sqlite" {
		random = "RANDOM()"
	}

	var questions []model.Question
	err := r.DB.Preload("Topic").Preload("Topic.Subject").
		Where("topic_id = ? AND difficulty = ? AND kind = ?", topicID, difficulty, kind).
		Order(random).
		Limit(count).
		Find(&questions).Error

	return questions, err
}

func (r *QuestionRepository) Update(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}

func (r *QuestionRepository) List(topicID uint, kind model.QuestionKind, page, limit int) ([]model.Question, int64, error) {
	query := r.DB.Model(&model.Question{})
	if topicID > 0 {
		query = query.Where("topic_id = ?", topicID)
	}
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var questions []model.Question
	err := query.Preload("Topic").Preload("Topic.Subject").
		Order("id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&questions).Error

	return questions, total, err
}

type SubjectRepository struct {
	DB *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{DB: db}
}

func (r *SubjectRepository) CreateSubject(s *model.Subject) error {
	return r.DB.Create(s).Error
}

func (r *SubjectRepository) ListSubjects() ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.Order("name ASC").Find(&subjects).Error
	return subjects, err
}

func (r *SubjectRepository) DeleteSubject(id uint) error {
	return r.DB.Delete(&model.Subject{}, id).Error
}

func (r *SubjectRepository) CreateTopic(t *model.Topic) error {
	return r.DB.Create(t).Error
}

func (r *SubjectRepository) FindTopicByID(id uint) (*model.Topic, error) {
	var topic model.Topic
	err := r.DB.Preload("Subject").First(&topic, id).Error
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *SubjectRepository) ListTopics(subjectID uint) ([]model.Topic, error) {
	query := r.DB.Preload("Subject")
	if subjectID > 0 {
		query = query.Where("subject_id = ?", subjectID)
	}
	var topics []model.Topic
	err := query.Order("name ASC").Find(&topics).Error
	return topics, err
}

func (r *SubjectRepository) DeleteTopic(id uint) error {
	return r.DB.Delete(&model.Topic{}, id).Error
}
