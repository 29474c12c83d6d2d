package app

import (
	"question_bank_backend/docs"
	"question_bank_backend/internal/config"
	"question_bank_backend/internal/middleware"
	"question_bank_backend/internal/model"
	"question_bank_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api/v1"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.Check)

	// 公共路由（无需登录）
	public := router.Group("/api/v1/auth")
	{
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		// 个人信息
		api.GET("/users/me", c.user.GetProfile)
		api.PUT("/users/me", c.user.UpdateProfile)

		// 科目/主题/题目查询（全部登录用户）
		api.GET("/subjects", c.question.ListSubjects)
		api.GET("/topics", c.question.ListTopics)
		api.GET("/questions", c.question.ListQuestions)
		api.GET("/questions/:id", c.question.GetQuestion)

		// 答题会话
		api.POST("/sessions", c.session.StartSession)
		api.GET("/sessions/:id", c.session.GetSession)
		api.POST("/sessions/:id/answer", c.session.SaveAnswer)
		api.POST("/sessions/:id/next", c.session.NextQuestion)
		api.GET("/sessions/:id/reveal", c.session.RevealAnswer)
		api.POST("/sessions/:id/submit", c.session.SubmitSession)
		api.DELETE("/sessions/:id", c.session.AbandonSession)

		// 考试记录
		api.POST("/exams", c.exam.SubmitExam)
		api.GET("/exams", c.exam.ListMyExams)

		// 出题/批改人员接口
		examiner := api.Group("")
		examiner.Use(middleware.RoleMiddleware(model.Examiner))
		{
			examiner.POST("/questions", c.question.CreateQuestion)
			examiner.PUT("/questions/:id", c.question.UpdateQuestion)
			examiner.DELETE("/questions/:id", c.question.DeleteQuestion)
			examiner.POST("/subjects", c.question.CreateSubject)
			examiner.POST("/topics", c.question.CreateTopic)

			examiner.GET("/exams/unchecked", c.exam.ListUnchecked)
			examiner.POST("/exams/:id/check", c.exam.FinalizeCheck)

			examiner.GET("/users/code/:code", c.user.GetByCode)
			examiner.GET("/analytics/:code", c.analytics.GetReport)
			examiner.POST("/analytics/:code/export", c.analytics.ExportReport)
		}

		// 详情路由放在 unchecked 之后，避免吞掉静态段
		api.GET("/exams/:id", c.exam.GetExam)

		// 管理员接口
		admin := api.Group("")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.GET("/users", c.user.ListUsers)
			admin.PUT("/users/:id/disabled", c.user.SetDisabled)
			admin.DELETE("/users/:id", c.user.DeleteUser)
		}
	}
}
