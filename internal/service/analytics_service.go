package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"question_bank_backend/internal/config"
	"question_bank_backend/internal/model"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/util"
	"question_bank_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AnalyticsService struct {
	UserRepo *repository.UserRepository
	ExamRepo *repository.ExamRepository
	Redis    *redis.Client

	cfgMu sync.RWMutex
	cfg   *config.Config
}

func NewAnalyticsService(userRepo *repository.UserRepository, examRepo *repository.ExamRepository, rdb *redis.Client, cfg *config.Config) *AnalyticsService {
	return &AnalyticsService{UserRepo: userRepo, ExamRepo: examRepo, Redis: rdb, cfg: cfg}
}

func (s *AnalyticsService) SetConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

func (s *AnalyticsService) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// ReportByCode 按用户识别码生成成绩分析，只统计已批改的考试。
// 结果在 Redis 缓存一小段时间，题库高峰期重复查询走缓存。
func (s *AnalyticsService) ReportByCode(ctx context.Context, code string) (*model.AnalyticsReport, error) {
	user, err := s.UserRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	cacheKey := fmt.Sprintf("analytics:%s", code)
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var report model.AnalyticsReport
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				return &report, nil
			}
		}
	}

	report, err := s.buildReport(user.ID)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(report); err == nil {
			ttl := s.config().Exam.AnalyticsCache
			if err := s.Redis.Set(ctx, cacheKey, payload, ttl).Err(); err != nil {
				logger.Log.Warn("Failed to cache analytics report",
					zap.String("code", code), zap.Error(err))
			}
		}
	}

	return report, nil
}

// InvalidateCache 批改定稿后主动失效缓存，下一次查询重算
func (s *AnalyticsService) InvalidateCache(ctx context.Context, code string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, fmt.Sprintf("analytics:%s", code)).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate analytics cache",
			zap.String("code", code), zap.Error(err))
	}
}

func (s *AnalyticsService) buildReport(userID uint) (*model.AnalyticsReport, error) {
	report := &model.AnalyticsReport{}

	for _, kind := range []model.QuestionKind{model.Objective, model.Subjective} {
		exams, err := s.ExamRepo.ListCheckedByUser(userID, kind)
		if err != nil {
			return nil, err
		}

		perf := aggregate(exams)
		switch kind {
		case model.Objective:
			report.Objective = perf
		case model.Subjective:
			report.Subjective = perf
		}
	}

	return report, nil
}

// bucketKey (主题, 难度) 聚合桶
type bucketKey struct {
	topic      string
	subject    string
	difficulty model.Difficulty
}

type bucket struct {
	sum   float64
	count int
}

// aggregate 把一批已批改考试的每题得分折算进 (主题, 难度) 桶，
// 桶内取均值；没有样本的格子保持 0。同时统计全量每题平均耗时。
func aggregate(exams []model.Exam) *model.PerformanceReport {
	buckets := make(map[bucketKey]*bucket)
	var timeSum, timeCount float64

	for _, exam := range exams {
		for _, record := range exam.Records {
			if record.AcquiredScore == nil {
				continue
			}

			key := bucketKey{
				topic:      record.Question.Topic.Name,
				subject:    record.Question.Topic.Subject.Name,
				difficulty: record.Question.Difficulty,
			}
			b, ok := buckets[key]
			if !ok {
				b = &bucket{}
				buckets[key] = b
			}
			b.sum += *record.AcquiredScore
			b.count++

			timeSum += float64(record.TimeTaken)
			timeCount++
		}
	}

	// 同一主题的三个难度档收进一行
	perTopic := make(map[string]*model.TopicPerformance)
	for key, b := range buckets {
		row, ok := perTopic[key.topic]
		if !ok {
			row = &model.TopicPerformance{Topic: key.topic, Subject: key.subject}
			perTopic[key.topic] = row
		}

		mean := b.sum / float64(b.count)
		switch key.difficulty {
		case model.Easy:
			row.Difficulty.Easy = mean
		case model.Medium:
			row.Difficulty.Medium = mean
		case model.Hard:
			row.Difficulty.Hard = mean
		}
	}

	report := &model.PerformanceReport{
		PerTopic: make([]model.TopicPerformance, 0, len(perTopic)),
	}
	for _, row := range perTopic {
		report.PerTopic = append(report.PerTopic, *row)
	}
	sort.Slice(report.PerTopic, func(i, j int) bool {
		return report.PerTopic[i].Topic < report.PerTopic[j].Topic
	})

	if timeCount > 0 {
		report.AverageTimeTaken = timeSum / timeCount
	}

	return report
}
