package controller

import (
	"question_bank_backend/internal/service"
	"question_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
	ExportService    *service.ExportService
}

func NewAnalyticsController(analyticsService *service.AnalyticsService, exportService *service.ExportService) *AnalyticsController {
	return &AnalyticsController{AnalyticsService: analyticsService, ExportService: exportService}
}

// GetReport 成绩分析
// @Summary 成绩分析
// @Description 按用户识别码返回 (主题, 难度) 平均分矩阵与每题平均耗时，只统计已批改考试
// @Tags analytics
// @Produce json
// @Param code path string true "用户识别码"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/v1/analytics/{code} [get]
// @Security BearerAuth
func (ctl *AnalyticsController) GetReport(c *gin.Context) {
	report, err := ctl.AnalyticsService.ReportByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, report)
}

// ExportReport 归档成绩报告
// @Summary 归档成绩报告
// @Description 生成分析快照并写入存储后端（本地目录或 MinIO），返回归档位置
// @Tags analytics
// @Produce json
// @Param code path string true "用户识别码"
// @Success 201 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/v1/analytics/{code}/export [post]
// @Security BearerAuth
func (ctl *AnalyticsController) ExportReport(c *gin.Context) {
	location, err := ctl.ExportService.ExportReport(c.Request.Context(), c.Param("code"))
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Created(c, gin.H{"location": location})
}
