package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// Check 健康检查
// @Summary 健康检查
// @Description 探活数据库与 Redis 连接
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (ctl *HealthController) Check(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}

	if sqlDB, err := ctl.DB.DB(); err != nil || sqlDB.Ping() != nil {
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "up"
	}

	if ctl.Redis != nil {
		if err := ctl.Redis.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}
	}

	c.JSON(status, gin.H{
		"status": http.StatusText(status),
		"time":   time.Now().Format(time.RFC3339),
		"checks": checks,
	})
}
