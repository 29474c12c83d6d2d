package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"question_bank_backend/internal/config"
	"question_bank_backend/internal/model"
	"question_bank_backend/internal/util"
	"question_bank_backend/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 报表归档后端，本地目录或 MinIO 对象存储
type StorageProvider interface {
	Put(ctx context.Context, objectName string, payload []byte) (string, error)
}

type localStorage struct {
	basePath string
}

func (l *localStorage) Put(_ context.Context, objectName string, payload []byte) (string, error) {
	fullPath := filepath.Join(l.basePath, objectName)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(fullPath, payload, 0644); err != nil {
		return "", err
	}
	return fullPath, nil
}

type minioStorage struct {
	client *minio.Client
	bucket string
}

func (m *minioStorage) Put(ctx context.Context, objectName string, payload []byte) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, objectName,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", m.bucket, objectName), nil
}

// ExportService 成绩报告归档：生成分析报告的 JSON 快照并落到存储后端
type ExportService struct {
	Analytics *AnalyticsService
	provider  StorageProvider
}

func NewExportService(analytics *AnalyticsService, cfg *config.Config) (*ExportService, error) {
	provider, err := newStorageProvider(cfg.Storage)
	if err != nil {
		return nil, err
	}
	return &ExportService{Analytics: analytics, provider: provider}, nil
}

func newStorageProvider(cfg config.StorageConfig) (StorageProvider, error) {
	switch cfg.Type {
	case util.StorageMinio:
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
			Secure: cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init minio client: %w", err)
		}
		return &minioStorage{client: client, bucket: cfg.MinioBucket}, nil
	case util.StorageLocal, "":
		return &localStorage{basePath: cfg.LocalPath}, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// exportEnvelope 归档文件内容：报告加生成时间戳
type exportEnvelope struct {
	Code        string                 `json:"code"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Report      *model.AnalyticsReport `json:"report"`
}

// ExportReport 生成并归档某用户的成绩分析快照，返回归档位置
func (s *ExportService) ExportReport(ctx context.Context, code string) (string, error) {
	report, err := s.Analytics.ReportByCode(ctx, code)
	if err != nil {
		return "", err
	}

	now := time.Now()
	envelope := exportEnvelope{Code: code, GeneratedAt: now, Report: report}
	payload, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("reports/%s/%s.json", code, now.Format("20060102-150405"))
	location, err := s.provider.Put(ctx, objectName, payload)
	if err != nil {
		return "", err
	}

	logger.Log.Info("Analytics report archived",
		zap.String("code", code),
		zap.String("location", location))
	return location, nil
}
