package controller

import (
	"strconv"

	"question_bank_backend/internal/model"
	"question_bank_backend/internal/service"
	"question_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	ExamService      *service.ExamService
	UserService      *service.UserService
	AnalyticsService *service.AnalyticsService
}

func NewExamController(examService *service.ExamService, userService *service.UserService, analyticsService *service.AnalyticsService) *ExamController {
	return &ExamController{
		ExamService:      examService,
		UserService:      userService,
		AnalyticsService: analyticsService,
	}
}

// SubmitExam 直接提交成绩
// @Summary 直接提交成绩
// @Description 按三个平行数组提交一场考试（离线客户端补交用），总分由服务端按难度档位计算
// @Tags exam
// @Accept json
// @Produce json
// @Param request body service.SubmitExamRequest true "提交载荷"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/exams [post]
// @Security BearerAuth
func (ctl *ExamController) SubmitExam(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req service.SubmitExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	req.UserID = claims.UserID

	exam, err := ctl.ExamService.SubmitExam(req)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Created(c, exam)
}

// GetExam 考试详情
// @Summary 考试详情
// @Description 仅本人与批改人员可见，未批改前不向考生暴露标准答案
// @Tags exam
// @Produce json
// @Param id path string true "考试ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/v1/exams/{id} [get]
// @Security BearerAuth
func (ctl *ExamController) GetExam(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	exam, err := ctl.ExamService.GetExam(c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, exam)
}

// ListMyExams 我的考试记录
// @Summary 我的考试记录
// @Tags exam
// @Produce json
// @Param kind query string false "题型 objective/subjective"
// @Param status query string false "状态 Unchecked/Checked"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/v1/exams [get]
// @Security BearerAuth
func (ctl *ExamController) ListMyExams(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	kind := model.QuestionKind(c.Query("kind"))
	status := model.ExamStatus(c.Query("status"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	exams, total, err := ctl.ExamService.ListUserExams(claims.UserID, kind, status, page, limit)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, util.PageResponse{List: exams, Total: total, Page: page, Limit: limit})
}

// ListUnchecked 待批改队列
// @Summary 待批改队列
// @Description 主观题按提交时间先到先批
// @Tags exam
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/v1/exams/unchecked [get]
// @Security BearerAuth
func (ctl *ExamController) ListUnchecked(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	exams, total, err := ctl.ExamService.ListUnchecked(page, limit)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, util.PageResponse{List: exams, Total: total, Page: page, Limit: limit})
}

// FinalizeCheck 批改定稿
// @Summary 批改定稿
// @Description 分数必须落在 [0, 单题分值] 内，已批改的考试返回 409
// @Tags exam
// @Accept json
// @Produce json
// @Param id path string true "考试ID"
// @Param request body service.FinalizeCheckRequest true "每题分数"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/v1/exams/{id}/check [post]
// @Security BearerAuth
func (ctl *ExamController) FinalizeCheck(c *gin.Context) {
	var req service.FinalizeCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	exam, err := ctl.ExamService.FinalizeCheck(c.Param("id"), req)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	// 成绩落库后旧的分析报告作废
	if user, err := ctl.UserService.GetProfile(exam.UserID); err == nil {
		ctl.AnalyticsService.InvalidateCache(c.Request.Context(), user.Code)
	}

	util.Success(c, exam)
}
