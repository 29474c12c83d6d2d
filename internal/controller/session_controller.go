package controller

import (
	"question_bank_backend/internal/service"
	"question_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Sessions *service.SessionManager
}

func NewSessionController(sessions *service.SessionManager) *SessionController {
	return &SessionController{Sessions: sessions}
}

// StartSession 开始答题会话
// @Summary 开始答题会话
// @Description 按主题/难度/题型抽题开场，考试模式启动每题倒计时
// @Tags session
// @Accept json
// @Produce json
// @Param request body service.StartSessionRequest true "开场参数"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/sessions [post]
// @Security BearerAuth
func (ctl *SessionController) StartSession(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req service.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	session, err := ctl.Sessions.StartSession(claims.UserID, req)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Created(c, session.View())
}

// GetSession 当前会话快照
// @Summary 当前会话快照
// @Description 返回当前题面与剩余秒数，不含标准答案
// @Tags session
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/v1/sessions/{id} [get]
// @Security BearerAuth
func (ctl *SessionController) GetSession(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	session, err := ctl.Sessions.Get(c.Param("id"), claims.UserID)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, session.View())
}

type saveAnswerRequest struct {
	Answer string `json:"answer"`
}

// SaveAnswer 保存当前题答案
// @Summary 保存当前题答案
// @Description 保存后倒计时停止，需调下一题接口继续
// @Tags session
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/sessions/{id}/answer [post]
// @Security BearerAuth
func (ctl *SessionController) SaveAnswer(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req saveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	session, err := ctl.Sessions.SaveAnswer(c.Param("id"), claims.UserID, req.Answer)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, session.View())
}

// NextQuestion 进入下一题
// @Summary 进入下一题
// @Description 最后一题之后会话收束，等待提交
// @Tags session
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/sessions/{id}/next [post]
// @Security BearerAuth
func (ctl *SessionController) NextQuestion(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	session, completed, err := ctl.Sessions.Advance(c.Param("id"), claims.UserID)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	view := session.View()
	util.Success(c, gin.H{"completed": completed, "session": view})
}

// RevealAnswer 查看标准答案（仅练习模式）
// @Summary 查看标准答案
// @Tags session
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/sessions/{id}/reveal [get]
// @Security BearerAuth
func (ctl *SessionController) RevealAnswer(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	answer, err := ctl.Sessions.RevealAnswer(c.Param("id"), claims.UserID)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, gin.H{"correctAnswer": answer})
}

// SubmitSession 提交会话成绩
// @Summary 提交会话成绩
// @Description 客观题当场判分，主观题进入待批改队列；失败时会话保留可重试
// @Tags session
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/sessions/{id}/submit [post]
// @Security BearerAuth
func (ctl *SessionController) SubmitSession(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	exam, err := ctl.Sessions.Submit(c.Param("id"), claims.UserID)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, exam)
}

// AbandonSession 放弃会话
// @Summary 放弃会话
// @Tags session
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/v1/sessions/{id} [delete]
// @Security BearerAuth
func (ctl *SessionController) AbandonSession(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	if err := ctl.Sessions.Abandon(c.Param("id"), claims.UserID); err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, nil)
}
