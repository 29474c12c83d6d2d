package controller

import (
	"strconv"

	"question_bank_backend/internal/service"
	"question_bank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// GetProfile 个人信息
// @Summary 个人信息
// @Tags user
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/v1/users/me [get]
// @Security BearerAuth
func (ctl *UserController) GetProfile(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	user, err := ctl.UserService.GetProfile(claims.UserID)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, user)
}

// UpdateProfile 修改个人信息
// @Summary 修改个人信息
// @Tags user
// @Accept json
// @Produce json
// @Param request body service.UpdateProfileRequest true "修改内容"
// @Success 200 {object} util.Response
// @Router /api/v1/users/me [put]
// @Security BearerAuth
func (ctl *UserController) UpdateProfile(c *gin.Context) {
	claims := util.GetUserFromContext(c)

	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	user, err := ctl.UserService.UpdateProfile(claims.UserID, req)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, user)
}

// GetByCode 按识别码查用户（批改人员定位考生用）
// @Summary 按识别码查用户
// @Tags user
// @Produce json
// @Param code path string true "用户识别码"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/v1/users/code/{code} [get]
// @Security BearerAuth
func (ctl *UserController) GetByCode(c *gin.Context) {
	user, err := ctl.UserService.FindByCode(c.Param("code"))
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, user)
}

// ListUsers 用户列表（管理员）
// @Summary 用户列表
// @Tags user
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/v1/users [get]
// @Security BearerAuth
func (ctl *UserController) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	users, total, err := ctl.UserService.ListUsers(page, limit)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, util.PageResponse{List: users, Total: total, Page: page, Limit: limit})
}

type setDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// SetDisabled 封禁/解封账号（管理员）
// @Summary 封禁/解封账号
// @Tags user
// @Accept json
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/v1/users/{id}/disabled [put]
// @Security BearerAuth
func (ctl *UserController) SetDisabled(c *gin.Context) {
	id := util.MustParseUint(c.Param("id"))
	if id == 0 {
		util.BadRequest(c, "invalid user id")
		return
	}

	var req setDisabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	user, err := ctl.UserService.SetDisabled(id, req.Disabled)
	if err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, user)
}

// DeleteUser 删除账号及其全部考试记录（管理员）
// @Summary 删除账号
// @Tags user
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/v1/users/{id} [delete]
// @Security BearerAuth
func (ctl *UserController) DeleteUser(c *gin.Context) {
	id := util.MustParseUint(c.Param("id"))
	if id == 0 {
		util.BadRequest(c, "invalid user id")
		return
	}

	if err := ctl.UserService.DeleteUser(id); err != nil {
		util.ServiceError(c, err)
		return
	}

	util.Success(c, nil)
}
