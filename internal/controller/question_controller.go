package controller

import (
	"strconv"

	"question_bank_backend/internal/model"
	"question_bank_backend/internal/service"
	"question_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

// CreateQuestion 录入题目
// @Summary 录入题目
// @Description 题库录题，客观题需 2~4 个选项且标准答案在选项内
// @Tags question
// @Accept json
// @Produce json
// @Param request body service.CreateQuestionRequest true "题目内容"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/questions [post]
// @Security BearerAuth
func (ctl *QuestionController) CreateQuestion(c *gin.Context) {
	var req service.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	question, err := ctl.QuestionService.CreateQuestion(req)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Created(c, question)
}

// GetQuestion 题目详情
// @Summary 题目详情
// @Tags question
// @Produce json
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/v1/questions/{id} [get]
// @Security BearerAuth
func (ctl *QuestionController) GetQuestion(c *gin.Context) {
	id := util.MustParseUint(c.Param("id"))
	if id == 0 {
		util.BadRequest(c, "invalid question id")
		return
	}

	question, err := ctl.QuestionService.GetQuestion(id)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, question)
}

// UpdateQuestion 修改题目
// @Summary 修改题目
// @Tags question
// @Accept json
// @Produce json
// @Param id path int true "题目ID"
// @Param request body service.UpdateQuestionRequest true "修改内容"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/questions/{id} [put]
// @Security BearerAuth
func (ctl *QuestionController) UpdateQuestion(c *gin.Context) {
	id := util.MustParseUint(c.Param("id"))
	if id == 0 {
		util.BadRequest(c, "invalid question id")
		return
	}

	var req service.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	question, err := ctl.QuestionService.UpdateQuestion(id, req)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, question)
}

// DeleteQuestion 删除题目
// @Summary 删除题目
// @Tags question
// @Produce json
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/v1/questions/{id} [delete]
// @Security BearerAuth
func (ctl *QuestionController) DeleteQuestion(c *gin.Context) {
	id := util.MustParseUint(c.Param("id"))
	if id == 0 {
		util.BadRequest(c, "invalid question id")
		return
	}

	if err := ctl.QuestionService.DeleteQuestion(id); err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, nil)
}

// ListQuestions 题目列表
// @Summary 题目列表
// @Description 按主题和题型过滤，分页返回
// @Tags question
// @Produce json
// @Param topic_id query int false "主题ID"
// @Param kind query string false "题型 objective/subjective"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/v1/questions [get]
// @Security BearerAuth
func (ctl *QuestionController) ListQuestions(c *gin.Context) {
	topicID, _ := strconv.ParseUint(c.DefaultQuery("topic_id", "0"), 10, 64)
	kind := model.QuestionKind(c.Query("kind"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	questions, total, err := ctl.QuestionService.ListQuestions(uint(topicID), kind, page, limit)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, util.PageResponse{List: questions, Total: total, Page: page, Limit: limit})
}

type createSubjectRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateSubject 新建科目
// @Summary 新建科目
// @Tags subject
// @Accept json
// @Produce json
// @Success 201 {object} util.Response
// @Router /api/v1/subjects [post]
// @Security BearerAuth
func (ctl *QuestionController) CreateSubject(c *gin.Context) {
	var req createSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	subject, err := ctl.QuestionService.CreateSubject(req.Name)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Created(c, subject)
}

// ListSubjects 科目列表
// @Summary 科目列表
// @Tags subject
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/v1/subjects [get]
// @Security BearerAuth
func (ctl *QuestionController) ListSubjects(c *gin.Context) {
	subjects, err := ctl.QuestionService.ListSubjects()
	if err != nil {
		util.ServiceError(c, err)
		return
	}
	util.Success(c, subjects)
}

type createTopicRequest struct {
	Name      string `json:"name" binding:"required"`
	SubjectID uint   `json:"subjectId" binding:"required"`
}

// CreateTopic 新建主题
// @Summary 新建主题
// @Tags subject
// @Accept json
// @Produce json
// @Success 201 {object} util.Response
// @Router /api/v1/topics [post]
// @Security BearerAuth
func (ctl *QuestionController) CreateTopic(c *gin.Context) {
	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	topic, err := ctl.QuestionService.CreateTopic(req.Name, req.SubjectID)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Created(c, topic)
}

// ListTopics 主题列表
// @Summary 主题列表
// @Tags subject
// @Produce json
// @Param subject_id query int false "科目ID"
// @Success 200 {object} util.Response
// @Router /api/v1/topics [get]
// @Security BearerAuth
func (ctl *QuestionController) ListTopics(c *gin.Context) {
	subjectID, _ := strconv.ParseUint(c.DefaultQuery("subject_id", "0"), 10, 64)

	topics, err := ctl.QuestionService.ListTopics(uint(subjectID))
	if err != nil {
		util.ServiceError(c, err)
		return
	}
	util.Success(c, topics)
}
