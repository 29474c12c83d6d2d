package controller

import (
	"question_bank_backend/internal/service"
	"question_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// Register 用户注册
// @Summary 用户注册
// @Description 注册新用户，邮箱与识别码全局唯一
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterRequest true "注册信息"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/auth/register [post]
func (ctl *AuthController) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	user, err := ctl.AuthService.Register(req)
	if err != nil {
		if err == util.ErrEmailRegistered || err == util.ErrCodeRegistered {
			util.Conflict(c, err.Error())
			return
		}
		util.ServiceError(c, err)
		return
	}

	util.Created(c, user)
}

// Login 用户登录
// @Summary 用户登录
// @Description 邮箱密码登录，返回 JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginRequest true "登录信息"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/v1/auth/login [post]
func (ctl *AuthController) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	resp, err := ctl.AuthService.Login(req)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, resp)
}
