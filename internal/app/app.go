package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"question_bank_backend/internal/config"
	"question_bank_backend/internal/controller"
	"question_bank_backend/internal/repository"
	"question_bank_backend/internal/service"
	"question_bank_backend/pkg/database"
	"question_bank_backend/pkg/logger"
	"question_bank_backend/pkg/monitoring"
	"question_bank_backend/pkg/security"
	"question_bank_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	question *repository.QuestionRepository
	subject  *repository.SubjectRepository
	exam     *repository.ExamRepository
}

type services struct {
	auth      *service.AuthService
	user      *service.UserService
	question  *service.QuestionService
	exam      *service.ExamService
	sessions  *service.SessionManager
	analytics *service.AnalyticsService
	export    *service.ExportService
}

type controllers struct {
	auth      *controller.AuthController
	user      *controller.UserController
	question  *controller.QuestionController
	exam      *controller.ExamController
	session   *controller.SessionController
	analytics *controller.AnalyticsController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ReloadConfig 配置热更新入口，difficulty 档位表改动即时生效
func (a *App) ReloadConfig(cfg *config.Config) {
	a.Config = cfg
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		question: repository.NewQuestionRepository(db),
		subject:  repository.NewSubjectRepository(db),
		exam:     repository.NewExamRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.question = service.NewQuestionService(repos.question, repos.subject)
	s.exam = service.NewExamService(repos.exam, repos.question, cfg)
	s.user = service.NewUserService(repos.user, s.exam)
	s.sessions = service.NewSessionManager(repos.question, s.exam, cfg)
	s.analytics = service.NewAnalyticsService(repos.user, repos.exam, rdb, cfg)

	export, err := service.NewExportService(s.analytics, cfg)
	if err != nil {
		return nil, err
	}
	s.export = export

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		user:      controller.NewUserController(s.user),
		question:  controller.NewQuestionController(s.question),
		exam:      controller.NewExamController(s.exam, s.user, s.analytics),
		session:   controller.NewSessionController(s.sessions),
		analytics: controller.NewAnalyticsController(s.analytics, s.export),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 成绩分析没有缓存也能跑，只降级不退出
		logger.Log.Warn("Redis unavailable, analytics caching disabled", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
		log.Fatalf("Failed to initialize services: %v", err)
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 配置热更新时需要刷新档位表的组件
	app.RegisterConfigCallback(services.sessions.SetConfig)
	app.RegisterConfigCallback(services.exam.SetConfig)
	app.RegisterConfigCallback(services.analytics.SetConfig)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("question-bank", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	app.registerRoutes(router, controllers, cfg)

	services.sessions.StartReaper()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 终止全部在途答题会话并停掉回收协程
	if a.services != nil && a.services.sessions != nil {
		a.services.sessions.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
