// 手动触发题库批量导入脚本
//
// 从 JSON 文件批量导入题目，例如首次部署或从旧系统迁移题库时使用。
// 文件格式为 CreateQuestionRequest 的数组。
//
// 用法: go run scripts/import_questions.go -file questions.json

package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"question_bank_backend/internal/config"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/service"
	"question_bank_backend/pkg/database"
)

func main() {
	file := flag.String("file", "questions.json", "题目 JSON 文件路径")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("无法读取题目文件: %v", err)
	}

	var requests []service.CreateQuestionRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		log.Fatalf("解析题目文件失败: %v", err)
	}

	svc := service.NewQuestionService(
		repository.NewQuestionRepository(db),
		repository.NewSubjectRepository(db),
	)

	imported := 0
	for i, req := range requests {
		if _, err := svc.CreateQuestion(req); err != nil {
			log.Printf("第 %d 条导入失败: %v", i+1, err)
			continue
		}
		imported++
	}

	log.Printf("导入完成: %d/%d", imported, len(requests))
}
