package database

import (
	"fmt"
	"log"
	"question_bank_backend/internal/config"
	"question_bank_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	seedDefaults(db)

	return db, nil
}

// Migrate 建表/迁移，测试里也用同一份模型清单
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Subject{},
		&model.Topic{},
		&model.Question{},
		&model.Exam{},
		&model.ExamRecord{},
	)
}

// 默认科目与主题（题库为空时便于联调）
func seedDefaults(db *gorm.DB) {
	var count int64
	db.Model(&model.Subject{}).Count(&count)
	if count > 0 {
		return
	}

	subjects := map[string][]string{
		"Physics":          {"Thermodynamics", "Mechanics", "Optics"},
		"Computer Science": {"Data Structures", "Operating Systems"},
		"Mathematics":      {"Calculus", "Linear Algebra"},
	}

	for name, topics := range subjects {
		subject := &model.Subject{Name: name}
		if err := db.Create(subject).Error; err != nil {
			continue
		}
		for _, t := range topics {
			db.Create(&model.Topic{Name: t, SubjectID: subject.ID})
		}
	}
}
